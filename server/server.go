// Package server exposes the advice adapter and chat sessions over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/agrosolve/agrosolve/chat"
	"github.com/agrosolve/agrosolve/pkg/llm"
)

// Server is a fiber app in front of a chat.Adviser and a chat.Manager.
// It keeps no state of its own; sessions live in the manager.
type Server struct {
	config   Config
	adviser  chat.Adviser
	sessions *chat.Manager
	logger   *zap.Logger
	server   *fiber.App
}

// New creates a Server and registers its routes.
func New(config Config, adviser chat.Adviser, sessions *chat.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:   config,
		adviser:  adviser,
		sessions: sessions,
		logger:   logger,
	}

	s.server = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
		ErrorHandler:          s.handleError,
	})
	s.server.Use(s.logRequests)

	s.server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	api := s.server.Group("/api")
	api.Post("/advice", s.handleAdvice)
	api.Post("/sessions", s.handleCreateSession)
	api.Get("/sessions/:id", s.handleGetSession)
	api.Delete("/sessions/:id", s.handleDeleteSession)
	api.Post("/sessions/:id/messages", s.handleSendMessage)
	api.Delete("/sessions/:id/messages", s.handleClearSession)

	return s
}

// RunWithListener serves on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting server", zap.String("listen", ln.Addr().String()))
	return s.server.Listener(ln)
}

// Shutdown stops accepting requests, waits for open ones until ctx is done
// and then closes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.ShutdownWithContext(ctx)
	s.sessions.Close()
	return err
}

// adviceContext bounds a single advice call.
func (s *Server) adviceContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if s.config.RequestTimeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), s.config.RequestTimeout)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	startTime := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	s.logger.Debug("handled request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(startTime)),
	)
	return err
}

// handleError renders errors that escape the handlers, such as unknown
// routes, in the same shape as handler errors. Bodies over BodyLimit are
// refused by fasthttp before routing and never reach it.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		s.logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
	}

	return c.Status(code).JSON(llm.ErrorResponse{Error: message})
}
