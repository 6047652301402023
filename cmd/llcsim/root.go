package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel string
	envFile  string

	log *zap.SugaredLogger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "llcsim",
		Short:         "Drive the LLC replacement-policy core standalone",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogger(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&envFile, "config", "", "path to a .env-style config file (L3_SRRIP_BITS_0=2, ...)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

func initLogger(level string) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	log = l.Sugar()
	return nil
}
