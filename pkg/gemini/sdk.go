package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/agrosolve/agrosolve/pkg/advice"
	"github.com/agrosolve/agrosolve/pkg/llm"
)

// SDKBackend calls Gemini through google/generative-ai-go.
type SDKBackend struct {
	client *genai.Client
	logger *zap.Logger
}

// NewSDKBackend creates the SDK client. With an empty key no client is
// created and every call fails with advice.ErrUnauthorized.
func NewSDKBackend(ctx context.Context, cfg Config, logger *zap.Logger) (*SDKBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &SDKBackend{logger: logger}
	if cfg.APIKey == "" {
		return b, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" && cfg.BaseURL != DefaultBaseURL {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	b.client = client

	return b, nil
}

// GenerateContent implements advice.Backend.
func (b *SDKBackend) GenerateContent(ctx context.Context, req *advice.Request) (*advice.Response, error) {
	if b.client == nil {
		return nil, fmt.Errorf("%w: missing GEMINI_API_KEY", advice.ErrUnauthorized)
	}

	parts, err := sdkParts(req.Contents)
	if err != nil {
		return nil, err
	}

	// GenerativeModel carries per-call settings, so each call gets its own.
	model := b.client.GenerativeModel(req.Model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	applyOptions(model, req.Options)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			b.logger.Debug("gemini blocked the request", zap.String("reason", blocked.Error()))
			return blockedResponse(blocked), nil
		}
		return nil, sdkError(err)
	}

	return sdkResponse(resp), nil
}

// Close releases the SDK client.
func (b *SDKBackend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

func sdkParts(contents advice.Contents) ([]genai.Part, error) {
	if !contents.Multimodal() {
		return []genai.Part{genai.Text(contents.Text)}, nil
	}

	parts := make([]genai.Part, 0, len(contents.Parts))
	for _, p := range contents.Parts {
		if p.InlineData == nil {
			parts = append(parts, genai.Text(p.Text))
			continue
		}

		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decode inline data: %w", err)
		}
		parts = append(parts, genai.Blob{MIMEType: p.InlineData.MIMEType, Data: data})
	}

	return parts, nil
}

func applyOptions(model *genai.GenerativeModel, opts llm.Options) {
	if opts.Temperature != nil {
		model.SetTemperature(float32(*opts.Temperature))
	}
	if opts.TopP != nil {
		model.SetTopP(float32(*opts.TopP))
	}
	if opts.TopK != nil {
		model.SetTopK(int32(*opts.TopK))
	}
	if opts.MaxOutputTokens != nil {
		model.SetMaxOutputTokens(int32(*opts.MaxOutputTokens))
	}
}

func sdkResponse(resp *genai.GenerateContentResponse) *advice.Response {
	out := &advice.Response{}
	if resp == nil {
		return out
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		out.BlockReason = resp.PromptFeedback.BlockReason.String()
	}
	if len(resp.Candidates) == 0 {
		return out
	}

	cand := resp.Candidates[0]
	out.FinishReason = cand.FinishReason.String()
	if cand.Content == nil {
		return out
	}

	var text strings.Builder
	for _, p := range cand.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	out.Text = text.String()

	return out
}

func blockedResponse(blocked *genai.BlockedError) *advice.Response {
	out := &advice.Response{}
	if blocked.PromptFeedback != nil {
		out.BlockReason = blocked.PromptFeedback.BlockReason.String()
	}
	if blocked.Candidate != nil {
		out.FinishReason = blocked.Candidate.FinishReason.String()
	}
	return out
}

func sdkError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %w", statusError(apiErr.Code, apiErr.Message), apiErr.Code, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", advice.ErrTransport, err)
	}

	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
