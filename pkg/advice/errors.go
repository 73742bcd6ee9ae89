package advice

import (
	"context"
	"errors"
	"net"
)

// Backends wrap these so the adapter can tell failures apart.
var (
	ErrUnauthorized      = errors.New("backend rejected credentials")
	ErrRateLimited       = errors.New("backend rate limit exceeded")
	ErrTransport         = errors.New("backend unreachable")
	ErrMalformedResponse = errors.New("malformed backend response")
)

func classify(err error) Kind {
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrUnauthorized):
		return KindAuth
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return KindTransport
	case errors.As(err, &netErr):
		return KindTransport
	default:
		return KindBackend
	}
}
