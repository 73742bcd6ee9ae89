// Package config loads AgroSolve settings from defaults, an optional TOML
// file, a .env file and the process environment, in that order.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/agrosolve/agrosolve/pkg/advice"
	"github.com/agrosolve/agrosolve/pkg/gemini"
	"github.com/agrosolve/agrosolve/pkg/llm"
)

// DefaultPath is read when no config file is named explicitly.
const DefaultPath = "agrosolve.toml"

// bodyOverhead is the room left for the JSON envelope and prompt around a
// base64 encoded image.
const bodyOverhead = 1 << 20

// Environment variables read by Load.
const (
	EnvListen       = "AGROSOLVE_LISTEN"
	EnvModel        = "AGROSOLVE_MODEL"
	EnvBackend      = "AGROSOLVE_BACKEND"
	EnvDebug        = "AGROSOLVE_DEBUG"
	EnvAPIKey       = "GEMINI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
)

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Model  ModelConfig  `toml:"model"`
	Image  ImageConfig  `toml:"image"`
	Log    LogConfig    `toml:"log"`

	// APIKey only ever comes from the environment.
	APIKey string `toml:"-"`
}

type ServerConfig struct {
	Listen                string `toml:"listen"`
	BodyLimitMB           int    `toml:"body_limit_mb"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	MaxSessions           int    `toml:"max_sessions"`
}

type ModelConfig struct {
	Name    string             `toml:"name"`
	Backend gemini.BackendType `toml:"backend"`
	BaseURL string             `toml:"base_url"`

	llm.Options
}

type ImageConfig struct {
	MaxBytes     int  `toml:"max_bytes"`
	CheckContent bool `toml:"check_content"`
}

type LogConfig struct {
	Debug bool `toml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:                ":8080",
			BodyLimitMB:           16,
			RequestTimeoutSeconds: 90,
			MaxSessions:           1000,
		},
		Model: ModelConfig{
			Name:    advice.DefaultModel,
			Backend: gemini.BackendSDK,
			BaseURL: gemini.DefaultBaseURL,
		},
		Image: ImageConfig{
			MaxBytes: 10 << 20,
		},
	}
}

// Load builds the configuration. An empty path reads DefaultPath if it
// exists; a named path must exist. Variables from .env never override ones
// already set in the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.readFile(path); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) readFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	_, err := toml.DecodeFile(path, c)
	switch {
	case err == nil:
		return nil
	case !explicit && errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvListen); ok && v != "" {
		c.Server.Listen = v
	}
	if v, ok := lookup(EnvModel); ok && v != "" {
		c.Model.Name = v
	}
	if v, ok := lookup(EnvBackend); ok && v != "" {
		c.Model.Backend = gemini.BackendType(strings.ToLower(v))
	}
	if v, ok := lookup(EnvDebug); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		c.Log.Debug = debug
	}

	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		c.APIKey = v
	} else if v, ok := lookup(EnvGoogleAPIKey); ok && v != "" {
		c.APIKey = v
	}

	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case gemini.BackendSDK, gemini.BackendREST:
	default:
		return fmt.Errorf("model.backend must be %q or %q, got %q", gemini.BackendSDK, gemini.BackendREST, c.Model.Backend)
	}

	if strings.TrimSpace(c.Model.Name) == "" {
		return errors.New("model.name must not be empty")
	}
	if c.Server.BodyLimitMB <= 0 {
		return fmt.Errorf("server.body_limit_mb must be positive, got %d", c.Server.BodyLimitMB)
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be positive, got %d", c.Server.RequestTimeoutSeconds)
	}
	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("server.max_sessions must not be negative, got %d", c.Server.MaxSessions)
	}
	if c.Image.MaxBytes < 0 {
		return fmt.Errorf("image.max_bytes must not be negative, got %d", c.Image.MaxBytes)
	}
	if need := MinBodyLimit(c.Image.MaxBytes); c.BodyLimit() < need {
		return fmt.Errorf("server.body_limit_mb (%d) must fit an encoded image of image.max_bytes (%d): need at least %d bytes",
			c.Server.BodyLimitMB, c.Image.MaxBytes, need)
	}
	if t := c.Model.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("model.temperature must be within [0, 2], got %v", *t)
	}
	if p := c.Model.TopP; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("model.top_p must be within [0, 1], got %v", *p)
	}

	return nil
}

// MinBodyLimit is the smallest request body that still carries an image of
// imageMaxBytes as a data URI inside JSON. Zero means images are uncapped
// and only the overhead is required.
func MinBodyLimit(imageMaxBytes int) int {
	return base64.StdEncoding.EncodedLen(imageMaxBytes) + bodyOverhead
}

// BodyLimit returns the HTTP body limit in bytes.
func (c *Config) BodyLimit() int {
	return c.Server.BodyLimitMB << 20
}

// RequestTimeout bounds a single advice call made by the server.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// Advice returns the adapter settings.
func (c *Config) Advice() advice.Config {
	return advice.Config{
		Model:             c.Model.Name,
		Options:           c.Model.Options,
		ImageMaxBytes:     c.Image.MaxBytes,
		CheckImageContent: c.Image.CheckContent,
	}
}

// Gemini returns the backend connection settings.
func (c *Config) Gemini() gemini.Config {
	return gemini.Config{
		Type:    c.Model.Backend,
		APIKey:  c.APIKey,
		BaseURL: c.Model.BaseURL,
		Timeout: c.RequestTimeout(),
	}
}
