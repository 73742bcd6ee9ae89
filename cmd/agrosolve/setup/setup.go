// Package setup builds the components shared by the agrosolve subcommands.
package setup

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrosolve/agrosolve/pkg/advice"
	"github.com/agrosolve/agrosolve/pkg/config"
	"github.com/agrosolve/agrosolve/pkg/gemini"
	"github.com/agrosolve/agrosolve/pkg/logger"
)

// Flags are the options every subcommand accepts.
type Flags struct {
	ConfigPath string
	Debug      bool
}

// AddFlags registers --config and --debug on cmd.
func AddFlags(cmd *cobra.Command, f *Flags) {
	cmd.Flags().StringVarP(&f.ConfigPath, "config", "c", "", "Path to a TOML config file (default: ./"+config.DefaultPath+" if present)")
	cmd.Flags().BoolVar(&f.Debug, "debug", false, "Enable debug logging")
}

// App holds the wired components.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Backend gemini.Backend
	Adapter *advice.Adapter
}

// New loads the configuration and builds the backend and adapter. Logs go
// to logOut; a nil logOut discards them.
func New(ctx context.Context, f *Flags, logOut io.Writer) (*App, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if f.Debug {
		cfg.Log.Debug = true
	}

	log := zap.NewNop()
	if logOut != nil {
		log = logger.NewLoggerTo(logOut, cfg.Log.Debug)
	}

	backend, err := gemini.NewBackend(ctx, cfg.Gemini(), log)
	if err != nil {
		return nil, fmt.Errorf("could not create %s backend: %w", cfg.Model.Backend, err)
	}

	return &App{
		Config:  cfg,
		Logger:  log,
		Backend: backend,
		Adapter: advice.New(cfg.Advice(), backend, log),
	}, nil
}

// Close releases the backend and flushes the logger.
func (a *App) Close() {
	if err := a.Backend.Close(); err != nil {
		a.Logger.Warn("failed to close backend", zap.Error(err))
	}
	_ = a.Logger.Sync()
}
