// Package datauri parses and builds base64 image data URIs of the form
// data:<mediaType>;base64,<payload>, as produced by browser file pickers.
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	scheme       = "data:"
	base64Param  = "base64"
	imageTopType = "image"
)

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

var (
	// ErrInvalid is wrapped by every error Parse returns.
	ErrInvalid = errors.New("invalid image data URI")

	// ErrTooLarge is returned together with ErrInvalid when the decoded
	// payload exceeds the configured limit.
	ErrTooLarge = errors.New("image exceeds size limit")
)

// Payload is a validated inline image. Data is kept exactly as it appeared
// in the URI.
type Payload struct {
	MediaType string
	Data      string
}

// Bytes decodes the payload.
func (p *Payload) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Data)
}

// String renders the payload back into a data URI.
func (p *Payload) String() string {
	return scheme + p.MediaType + ";" + base64Param + "," + p.Data
}

type options struct {
	maxBytes     int
	checkContent bool
}

// Option tunes Parse.
type Option func(*options)

// WithMaxBytes rejects payloads whose decoded size is larger than n.
// n <= 0 disables the limit.
func WithMaxBytes(n int) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// WithContentCheck sniffs the decoded bytes and rejects payloads whose
// detected type does not match the declared media type.
func WithContentCheck() Option {
	return func(o *options) {
		o.checkContent = true
	}
}

// Parse splits a data URI into its media type and base64 payload.
func Parse(s string, opts ...Option) (*Payload, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if !strings.HasPrefix(s, scheme) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalid, scheme)
	}

	header, data, ok := strings.Cut(s[len(scheme):], ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing ',' before payload", ErrInvalid)
	}

	params := strings.Split(header, ";")
	if len(params) < 2 || params[len(params)-1] != base64Param {
		return nil, fmt.Errorf("%w: payload is not base64 encoded", ErrInvalid)
	}

	mediaType := strings.TrimSpace(params[0])
	if err := checkMediaType(mediaType); err != nil {
		return nil, err
	}

	// Wrapped base64 decodes fine but must not reach the backend as is.
	data = lineBreaks.Replace(data)
	if data == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalid)
	}

	if o.maxBytes > 0 && base64.StdEncoding.DecodedLen(len(data)) > o.maxBytes+2 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, ErrTooLarge)
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if o.maxBytes > 0 && len(decoded) > o.maxBytes {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, ErrTooLarge)
	}

	if o.checkContent {
		detected := mimetype.Detect(decoded)
		if !detected.Is(canonical(mediaType)) {
			return nil, fmt.Errorf("%w: declared %s but content is %s", ErrInvalid, mediaType, detected.String())
		}
	}

	return &Payload{MediaType: mediaType, Data: data}, nil
}

// Encode builds a data URI for data.
func Encode(mediaType string, data []byte) string {
	return scheme + mediaType + ";" + base64Param + "," + base64.StdEncoding.EncodeToString(data)
}

// Detect returns the sniffed media type of data, for callers that only hold
// raw file bytes.
func Detect(data []byte) string {
	return mimetype.Detect(data).String()
}

func checkMediaType(mediaType string) error {
	top, sub, ok := strings.Cut(mediaType, "/")
	if !ok || top == "" || sub == "" || strings.ContainsAny(mediaType, " \t") {
		return fmt.Errorf("%w: malformed media type %q", ErrInvalid, mediaType)
	}
	if !strings.EqualFold(top, imageTopType) {
		return fmt.Errorf("%w: %q is not an image type", ErrInvalid, mediaType)
	}
	return nil
}

// canonical folds the non-standard aliases browsers still emit.
func canonical(mediaType string) string {
	mt := strings.ToLower(mediaType)
	switch mt {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-png":
		return "image/png"
	}
	return mt
}
