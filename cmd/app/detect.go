package main

import (
	detectionRepository "FaceGate/internal/api/detection/repository"
	detectionService "FaceGate/internal/api/detection/service"
	"FaceGate/internal/config"
	"FaceGate/internal/entity"
	"FaceGate/pkg/utils"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var (
	detectImage     string
	detectRotation  int
	detectWithFrame bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run one image through the detection gate and print the verdict",
	RunE: func(cmd *cobra.Command, args []string) error {
		if detectImage == "" {
			return errors.New("--image is required")
		}

		data, err := os.ReadFile(detectImage)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}

		factory, err := config.NewDetectorFactory(settings, logger)
		if err != nil {
			return err
		}

		svc := detectionService.NewDetectionService(
			detectionRepository.New(logger),
			factory,
			utils.NewWithSnapshotConfig(utils.SnapshotConfig{
				Format:       settings.Snapshot.Format,
				Quality:      settings.Snapshot.Quality,
				MaxDimension: settings.Snapshot.MaxDimension,
			}),
			logger,
			detectionService.Config{
				DebounceInterval:   settings.Detection.DebounceInterval,
				DetectionTimeout:   settings.Detection.Timeout,
				DirectionThreshold: settings.Detection.DirectionThreshold,
			},
		)

		ctx := cmd.Context()
		id := "cli"
		svc.DetectFace(ctx, detectionService.DetectFaceInput{
			ID:      id,
			Command: string(entity.CommandStart),
			Frame:   entity.Frame{Data: data, Rotation: detectRotation},
		})

		result, err := waitForResult(ctx, svc, id, settings.Detection.Timeout+time.Second)
		svc.Close(ctx, id)

		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.CloseAll(closeCtx)

		if err != nil {
			return err
		}

		if !detectWithFrame && result.FrameData != "" {
			trimmed := *result
			trimmed.FrameData = fmt.Sprintf("[%d base64 chars]", len(result.FrameData))
			result = &trimmed
		}

		out, err := jsoniter.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if result.Status != entity.DetectionStatusSuccess {
			return fmt.Errorf("detection failed: %s", result.Error.Message)
		}
		return nil
	},
}

func waitForResult(ctx context.Context, svc detectionService.IDetectionService, id string, timeout time.Duration) (*entity.DetectionResult, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	deadline := time.After(timeout)
	for {
		if result, ok := svc.Result(id); ok && result.Status != entity.DetectionStatusStandby {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, errors.New("timed out waiting for detection")
		case <-ticker.C:
		}
	}
}

func init() {
	detectCmd.Flags().StringVar(&detectImage, "image", "", "path to a JPEG, PNG or WebP image")
	detectCmd.Flags().IntVar(&detectRotation, "rotation", 0, "clockwise rotation of the image in degrees (0, 90, 180, 270)")
	detectCmd.Flags().BoolVar(&detectWithFrame, "with-frame", false, "print the full base64 snapshot")
}
