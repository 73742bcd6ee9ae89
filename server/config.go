package server

import "time"

// Config is the HTTP server configuration.
type Config struct {
	// BodyLimit caps request bodies in bytes. Photos arrive base64 encoded,
	// so this must be at least config.MinBodyLimit of the image size limit.
	BodyLimit int

	// RequestTimeout bounds each advice call. Zero means no bound.
	RequestTimeout time.Duration
}
