package advice

import (
	"context"

	"github.com/agrosolve/agrosolve/pkg/llm"
)

// Backend is a hosted generative model able to answer one request.
type Backend interface {
	GenerateContent(ctx context.Context, req *Request) (*Response, error)
}

// Request is everything a backend needs for a single generation.
type Request struct {
	Model             string
	SystemInstruction string
	Contents          Contents
	Options           llm.Options
}

// Contents is either a plain string (Parts == nil) or an ordered list of
// parts for multimodal requests.
type Contents struct {
	Text  string
	Parts []Part
}

// TextContents returns plain-string contents.
func TextContents(text string) Contents {
	return Contents{Text: text}
}

// PartsContents returns multimodal contents.
func PartsContents(parts ...Part) Contents {
	return Contents{Parts: parts}
}

// Multimodal reports whether the contents are a list of parts.
func (c Contents) Multimodal() bool {
	return c.Parts != nil
}

// Part is a single piece of multimodal content. Exactly one field is set.
type Part struct {
	Text       string
	InlineData *InlineData
}

// InlineData is binary content sent inline with the request.
type InlineData struct {
	MIMEType string
	Data     string // base64, as received from the caller
}

// Response is what the adapter consumes from a backend. Text may be empty
// when the model produced nothing usable.
type Response struct {
	Text         string
	FinishReason string
	BlockReason  string
}
