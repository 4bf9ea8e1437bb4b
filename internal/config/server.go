package config

import (
	detectionHandler "FaceGate/internal/api/detection/handler"
	detectionRepository "FaceGate/internal/api/detection/repository"
	detectionService "FaceGate/internal/api/detection/service"
	"FaceGate/internal/entity"
	"FaceGate/internal/middleware"
	"FaceGate/pkg/detector"
	"FaceGate/pkg/redis"
	"FaceGate/pkg/utils"
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine           *fiber.App
	log              *logrus.Logger
	settings         *Settings
	middleware       middleware.Middleware
	validator        *validator.Validate
	utils            utils.IUtils
	handlers         []handler
	redisServer      redis.IRedis
	detectorFactory  detector.Factory
	detectionService detectionService.IDetectionService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if server.detectorFactory == nil {
		return nil, fmt.Errorf("face detector is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, middleware.DefaultConfig())
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithSettings(settings *Settings) ServerOption {
	return func(s *Server) error {
		s.settings = settings
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

// WithDetectorFactory overrides the engine chosen by the settings.
func WithDetectorFactory(factory detector.Factory) ServerOption {
	return func(s *Server) error {
		s.detectorFactory = factory
		return nil
	}
}

// WithFaceEngine builds the detector factory for the configured engine.
func WithFaceEngine() ServerOption {
	return func(s *Server) error {
		if s.settings == nil || s.log == nil {
			return fmt.Errorf("settings and logger must be initialized before the face engine")
		}

		factory, err := NewDetectorFactory(s.settings, s.log)
		if err != nil {
			s.log.Errorf("Failed to initialize face engine: %v", err)
			return fmt.Errorf("failed to create face engine: %w", err)
		}
		s.detectorFactory = factory
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}

		cfg := middleware.DefaultConfig()
		if s.settings != nil {
			cfg = middleware.Config{
				RateLimit:   s.settings.HTTP.RateLimit,
				RateBurst:   s.settings.HTTP.RateBurst,
				AuthEnabled: s.settings.HTTP.AuthEnabled,
				TokenSecret: s.settings.HTTP.TokenSecret,
			}
		}
		s.middleware = middleware.New(s.log, cfg)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		if s.settings == nil {
			s.utils = utils.New()
			return nil
		}
		s.utils = utils.NewWithSnapshotConfig(utils.SnapshotConfig{
			Format:       s.settings.Snapshot.Format,
			Quality:      s.settings.Snapshot.Quality,
			MaxDimension: s.settings.Snapshot.MaxDimension,
		})
		return nil
	}
}

func NewDetectorFactory(settings *Settings, log *logrus.Logger) (detector.Factory, error) {
	switch entity.ParseSessionEngine(settings.Detection.Engine) {
	case entity.SessionEnginePigo:
		return detector.NewPigoFactory(settings.Pigo)
	case entity.SessionEngineRemote:
		if settings.Remote.URL == "" {
			return nil, errors.New("AI_FACE_DETECTION_URL is required for the remote engine")
		}
		return detector.NewRemoteFactory(settings.Remote, log), nil
	default:
		return nil, fmt.Errorf("unknown face engine %q", settings.Detection.Engine)
	}
}

func (s *Server) RegisterHandler() {
	var opts []detectionService.Option
	if s.redisServer != nil {
		opts = append(opts, detectionService.WithSessionStore(s.redisServer))
	}

	// Detection
	detectionRepo := detectionRepository.New(s.log)
	s.detectionService = detectionService.NewDetectionService(
		detectionRepo,
		s.detectorFactory,
		s.utils,
		s.log,
		detectionService.Config{
			DebounceInterval:   s.settings.Detection.DebounceInterval,
			DetectionTimeout:   s.settings.Detection.Timeout,
			DirectionThreshold: s.settings.Detection.DirectionThreshold,
		},
		opts...,
	)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, s.detectionService, s.utils)

	s.handlers = append(s.handlers, detectionHandlers)
}

func (s *Server) setupRoutes() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware)

	s.setupHealthCheck()

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

func (s *Server) Run() error {
	s.setupRoutes()

	port := s.settings.App.Port
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests, then closes every live session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.engine.ShutdownWithContext(ctx)

	if s.detectionService != nil {
		s.detectionService.CloseAll(ctx)
	}
	if s.redisServer != nil {
		if closeErr := s.redisServer.Close(); closeErr != nil {
			s.log.Warnf("Failed to close Redis client: %v", closeErr)
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message":  "Server is Healthy!",
			"engine":   s.settings.Detection.Engine,
			"sessions": len(s.detectionService.Sessions()),
		})
	})
}
