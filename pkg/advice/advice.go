// Package advice turns a chat prompt and an optional photo into a reply from
// a hosted generative model.
//
// The Adapter never fails towards its caller: Advise returns a tagged Result
// and GetAdvice flattens that into display text. Every failure is logged once,
// with its kind, at the point where it is absorbed.
package advice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agrosolve/agrosolve/pkg/datauri"
	"github.com/agrosolve/agrosolve/pkg/llm"
)

// Config controls how requests are built.
type Config struct {
	// Model is the backend model identifier.
	Model string

	// Options are passed through to the backend.
	Options llm.Options

	// ImageMaxBytes caps the decoded image size. Zero means no cap.
	ImageMaxBytes int

	// CheckImageContent rejects images whose bytes do not match their
	// declared media type.
	CheckImageContent bool
}

// Adapter is safe for concurrent use; it holds no per-call state.
type Adapter struct {
	config  Config
	backend Backend
	logger  *zap.Logger
}

// New creates an Adapter over backend.
func New(config Config, backend Backend, logger *zap.Logger) *Adapter {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Adapter{
		config:  config,
		backend: backend,
		logger:  logger,
	}
}

// GetAdvice returns the reply for prompt and the optional image data URI, or
// a fallback message. It never returns an error.
func (a *Adapter) GetAdvice(ctx context.Context, prompt, image string) string {
	return Present(a.Advise(ctx, prompt, image))
}

// Advise performs one backend call and reports the typed outcome.
func (a *Adapter) Advise(ctx context.Context, prompt, image string) (result Result) {
	startTime := time.Now()
	hasImage := image != ""

	defer func() {
		if r := recover(); r != nil {
			result = failure(KindBackend, fmt.Errorf("backend panic: %v", r))
			a.logFailure(result, hasImage, startTime)
		}
	}()

	req, err := a.BuildRequest(prompt, image)
	if err != nil {
		result = failure(KindInvalidImage, err)
		a.logFailure(result, hasImage, startTime)
		return result
	}

	a.logger.Debug("requesting advice",
		zap.String("model", req.Model),
		zap.Bool("has_image", hasImage),
		zap.String("prompt_preview", truncate(prompt, 80)),
	)

	resp, err := a.backend.GenerateContent(ctx, req)
	if err != nil {
		result = failure(classify(err), err)
		a.logFailure(result, hasImage, startTime)
		return result
	}
	if resp == nil {
		result = failure(KindBackend, ErrMalformedResponse)
		a.logFailure(result, hasImage, startTime)
		return result
	}

	result = reply(resp.Text)
	if result.Kind == KindNoText {
		a.logger.Warn("backend returned no text",
			zap.String("model", req.Model),
			zap.Bool("has_image", hasImage),
			zap.String("finish_reason", resp.FinishReason),
			zap.String("block_reason", resp.BlockReason),
			zap.Duration("duration", time.Since(startTime)),
		)
		return result
	}

	a.logger.Debug("received advice",
		zap.String("model", req.Model),
		zap.Int("reply_len", len(resp.Text)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return result
}

// BuildRequest assembles the backend request without sending it.
// It fails only when image is not a usable data URI.
func (a *Adapter) BuildRequest(prompt, image string) (*Request, error) {
	req := &Request{
		Model:             a.config.Model,
		SystemInstruction: SystemInstruction,
		Options:           a.config.Options,
	}

	if image == "" {
		req.Contents = TextContents(prompt)
		return req, nil
	}

	payload, err := datauri.Parse(image, a.parseOptions()...)
	if err != nil {
		return nil, err
	}

	text := prompt
	if text == "" {
		text = DefaultImagePrompt
	}

	req.Contents = PartsContents(
		Part{InlineData: &InlineData{MIMEType: payload.MediaType, Data: payload.Data}},
		Part{Text: text},
	)

	return req, nil
}

func (a *Adapter) parseOptions() []datauri.Option {
	var opts []datauri.Option
	if a.config.ImageMaxBytes > 0 {
		opts = append(opts, datauri.WithMaxBytes(a.config.ImageMaxBytes))
	}
	if a.config.CheckImageContent {
		opts = append(opts, datauri.WithContentCheck())
	}
	return opts
}

func (a *Adapter) logFailure(r Result, hasImage bool, startTime time.Time) {
	a.logger.Error("advice request failed",
		zap.String("kind", string(r.Kind)),
		zap.String("model", a.config.Model),
		zap.Bool("has_image", hasImage),
		zap.Duration("duration", time.Since(startTime)),
		zap.Error(r.Err),
	)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
