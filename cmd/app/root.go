package main

import (
	"FaceGate/internal/config"
	"FaceGate/pkg/log"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	envFile     string
	cascadePath string
	puplocPath  string
	logger      *logrus.Logger
	settings    *config.Settings
)

var rootCmd = &cobra.Command{
	Use:     "facegate",
	Short:   "Per-session face framing gate for live camera feeds",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = log.NewLogger()

		if err := godotenv.Load(envFile); err != nil {
			if cmd.Flags().Changed("env") {
				return fmt.Errorf("error loading %s: %w", envFile, err)
			}
			logger.Debugf("No %s file loaded: %v", envFile, err)
		}

		var err error
		settings, err = config.LoadSettings()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		applyCascadeFlags(cmd, settings)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyCascadeFlags lets --cascade and --puploc win over settings and environment.
func applyCascadeFlags(cmd *cobra.Command, s *config.Settings) {
	if f := cmd.Flag("cascade"); f != nil && f.Changed {
		s.Pigo.CascadePath = cascadePath
	}
	if f := cmd.Flag("puploc"); f != nil && f.Changed {
		s.Pigo.PuplocPath = puplocPath
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before reading settings")
	rootCmd.PersistentFlags().StringVar(&cascadePath, "cascade", "", "pigo facefinder cascade file (overrides PIGO_CASCADE_PATH)")
	rootCmd.PersistentFlags().StringVar(&puplocPath, "puploc", "", "pigo puploc cascade file used to estimate head yaw (overrides PIGO_PUPLOC_PATH)")
	rootCmd.AddCommand(serveCmd, detectCmd)
}
