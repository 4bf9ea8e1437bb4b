package main

import (
	"FaceGate/internal/config"
	"FaceGate/pkg/redis"
	"context"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the face detection HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		fiberApp := config.NewFiber(logger, settings.HTTP.BodyLimit)
		validator := config.NewValidator()

		options := []config.ServerOption{
			config.WithFiber(fiberApp),
			config.WithLogger(logger),
			config.WithSettings(settings),
			config.WithValidator(validator),
			config.WithMiddleware(),
			config.WithUtils(),
			config.WithFaceEngine(),
		}
		if settings.Redis.Enabled {
			redisServer := redis.New(redis.Config{
				Address:  settings.Redis.Address,
				Password: settings.Redis.Password,
				DB:       settings.Redis.DB,
				TTL:      settings.Redis.TTL,
			}, logger)
			options = append(options, config.WithRedisServer(redisServer))
		}

		server, err := config.NewServer(options...)
		if err != nil {
			return err
		}

		server.RegisterHandler()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Run()
		}()

		logger.WithField("engine", settings.Detection.Engine).Info("Server started successfully")

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}

		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), settings.App.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(ctx)
	},
}
