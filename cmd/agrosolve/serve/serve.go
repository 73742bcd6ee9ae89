package servecmder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrosolve/agrosolve/chat"
	"github.com/agrosolve/agrosolve/cmd/agrosolve/setup"
	"github.com/agrosolve/agrosolve/server"
)

const serveLongDesc string = `Run the AgroSolve HTTP service.

Exposes one-shot advice at POST /api/advice and in-memory chat sessions
under /api/sessions. Sessions are lost when the process exits.

Examples:
  agrosolve serve
  agrosolve serve --listen :9000 --config agrosolve.toml`

const serveShortDesc string = "Run the HTTP service"

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	flags  setup.Flags
	listen string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	setup.AddFlags(cmd, &cmder.flags)
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides config)")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.New(ctx, &c.flags, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	if c.listen != "" {
		cfg.Server.Listen = c.listen
	}

	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", cfg.Server.Listen, err)
	}

	sessions := chat.NewManager(app.Adapter, cfg.Server.MaxSessions, app.Logger)
	srv := server.New(server.Config{
		BodyLimit:      cfg.BodyLimit(),
		RequestTimeout: cfg.RequestTimeout(),
	}, app.Adapter, sessions, app.Logger)

	app.Logger.Info("agrosolve starting",
		zap.String("listen", ln.Addr().String()),
		zap.String("model", cfg.Model.Name),
		zap.String("backend", string(cfg.Model.Backend)),
		zap.Bool("debug", cfg.Log.Debug),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.RunWithListener(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not shut down cleanly: %w", err)
	}
	return nil
}
