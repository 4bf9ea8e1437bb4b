package detectionService

import (
	detectionRepository "FaceGate/internal/api/detection/repository"
	"FaceGate/internal/entity"
	"FaceGate/pkg/detector"
	"FaceGate/pkg/geometry"
	"FaceGate/pkg/redis"
	"FaceGate/pkg/utils"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultDebounceInterval = 1500 * time.Millisecond

type IDetectionService interface {
	DetectFace(ctx context.Context, input DetectFaceInput) *entity.DetectionResult
	Result(id string) (*entity.DetectionResult, bool)
	Close(ctx context.Context, id string) *entity.DetectionResult
	Sessions() []entity.SessionState
	CloseAll(ctx context.Context)
}

type DetectFaceInput struct {
	ID      string
	Command string
	Frame   entity.Frame
}

type Config struct {
	DebounceInterval   time.Duration
	DetectionTimeout   time.Duration
	DirectionThreshold float64
}

func DefaultConfig() Config {
	return Config{
		DebounceInterval:   DefaultDebounceInterval,
		DetectionTimeout:   detector.DefaultTimeout,
		DirectionThreshold: geometry.DefaultDirectionThreshold,
	}
}

type Option func(*detectionService)

// WithClock replaces the millisecond clock used by the debounce gate.
func WithClock(nowMs func() int64) Option {
	return func(s *detectionService) {
		s.nowMs = nowMs
	}
}

// WithSessionStore mirrors cadence state of every session into Redis.
func WithSessionStore(store redis.IRedis) Option {
	return func(s *detectionService) {
		s.store = store
	}
}

type detectionService struct {
	registry detectionRepository.SessionRegistry
	factory  detector.Factory
	utils    utils.IUtils
	store    redis.IRedis
	log      *logrus.Logger
	cfg      Config
	nowMs    func() int64

	pending sync.WaitGroup
}

func NewDetectionService(
	registry detectionRepository.SessionRegistry,
	factory detector.Factory,
	utils utils.IUtils,
	log *logrus.Logger,
	cfg Config,
	opts ...Option,
) IDetectionService {
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = DefaultDebounceInterval
	}
	if cfg.DetectionTimeout <= 0 {
		cfg.DetectionTimeout = detector.DefaultTimeout
	}
	if cfg.DirectionThreshold <= 0 {
		cfg.DirectionThreshold = geometry.DefaultDirectionThreshold
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	started := time.Now()
	s := &detectionService{
		registry: registry,
		factory:  factory,
		utils:    utils,
		log:      log,
		cfg:      cfg,
		nowMs: func() int64 {
			return time.Since(started).Milliseconds()
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}
