// Package gemini provides advice backends for the Gemini generateContent API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agrosolve/agrosolve/pkg/advice"
)

const (
	// DefaultBaseURL is the public Gemini API host.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	defaultTimeout = 90 * time.Second
)

// BackendType selects a Backend implementation.
type BackendType string

const (
	BackendSDK  BackendType = "sdk"
	BackendREST BackendType = "rest"
)

// ErrUpstream is wrapped around failures that carry no more specific meaning.
var ErrUpstream = errors.New("gemini request failed")

// Config holds connection settings shared by every backend.
type Config struct {
	Type    BackendType
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Backend is an advice.Backend holding connections that must be released.
type Backend interface {
	advice.Backend
	io.Closer
}

// NewBackend creates the backend named by cfg.Type.
// A missing API key is not an error here; calls fail instead.
func NewBackend(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		logger.Warn("no Gemini API key configured, advice requests will fail")
	}

	switch cfg.Type {
	case BackendSDK, "":
		return NewSDKBackend(ctx, cfg, logger)
	case BackendREST:
		return NewRESTBackend(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}

// statusError maps an HTTP status from the Gemini API to an advice sentinel.
func statusError(code int, message string) error {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return advice.ErrUnauthorized
	case code == http.StatusTooManyRequests:
		return advice.ErrRateLimited
	case code == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "api key"):
		// Gemini reports an invalid key as INVALID_ARGUMENT
		return advice.ErrUnauthorized
	default:
		return ErrUpstream
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen]) + "...(truncated)"
}
