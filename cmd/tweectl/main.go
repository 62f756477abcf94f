// Command tweectl is the operator tool for the twee backend: it seeds
// development data, hashes local account passwords and removes orphaned
// avatar uploads.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/config"
	"github.com/laibashaikh28/twee-webapp/internal/container"
	"github.com/laibashaikh28/twee-webapp/internal/logging"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:           "tweectl",
	Short:         "Operator tool for the twee backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(seedCmd, hashPasswordCmd, sweepAvatarsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openBackends loads configuration and connects to the configured stores.
func openBackends(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger, err = logging.New(cfg.LogLevel, cfg.IsDevelopment())
		if err != nil {
			return nil, err
		}
	}
	return container.New(ctx, cfg, logger)
}
