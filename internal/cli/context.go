// Package cli provides the command-line interface for dircrawl.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/law-makers/dircrawl/internal/app"
	"github.com/law-makers/dircrawl/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// loaded configuration of the running command
var globalConfig *config.Config

// SetConfig stores the configuration loaded for the current command
func SetConfig(cfg *config.Config) {
	globalConfig = cfg
}

// GetConfig returns the configuration loaded for the current command
func GetConfig() *config.Config {
	return globalConfig
}

// openApp builds the Application for commands that crawl. The caller must
// call the returned close function.
func openApp(cmd *cobra.Command) (*app.Application, func(), error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}

	initCtx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTP.Timeout)
	defer cancel()

	a, err := app.New(initCtx, cfg)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 10*time.Second)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Error closing application")
		}
	}
	return a, closeFn, nil
}
