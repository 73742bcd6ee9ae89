package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/agrosolve/agrosolve/pkg/advice"
)

// RESTBackend calls the generateContent endpoint directly over HTTPS.
type RESTBackend struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewRESTBackend creates a REST backend.
func NewRESTBackend(cfg Config, logger *zap.Logger) *RESTBackend {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RESTBackend{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       *string     `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateContent implements advice.Backend.
func (b *RESTBackend) GenerateContent(ctx context.Context, req *advice.Request) (*advice.Response, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("%w: missing GEMINI_API_KEY", advice.ErrUnauthorized)
	}

	body, err := json.Marshal(restRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", b.baseURL, url.PathEscape(req.Model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", b.apiKey)

	b.logger.Debug("sending generateContent request",
		zap.String("model", req.Model),
		zap.Int("body_bytes", len(body)),
	)

	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", advice.ErrTransport, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", advice.ErrTransport, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var envelope errorEnvelope
		message := string(respBody)
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		return nil, fmt.Errorf("%w: gemini API error (status %d): %s",
			statusError(httpResp.StatusCode, message), httpResp.StatusCode, truncate(message, 200))
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", advice.ErrMalformedResponse, err)
	}

	return adviceResponse(&resp), nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (b *RESTBackend) Close() error {
	return nil
}

func restRequest(req *advice.Request) *generateRequest {
	out := &generateRequest{
		SystemInstruction: &content{Parts: []part{textPart(req.SystemInstruction)}},
	}

	user := content{Role: "user"}
	if !req.Contents.Multimodal() {
		user.Parts = []part{textPart(req.Contents.Text)}
	} else {
		for _, p := range req.Contents.Parts {
			if p.InlineData != nil {
				user.Parts = append(user.Parts, part{InlineData: &inlineData{
					MimeType: p.InlineData.MIMEType,
					Data:     p.InlineData.Data,
				}})
				continue
			}
			user.Parts = append(user.Parts, textPart(p.Text))
		}
	}
	out.Contents = []content{user}

	opts := req.Options
	if opts.Temperature != nil || opts.TopP != nil || opts.TopK != nil || opts.MaxOutputTokens != nil {
		out.GenerationConfig = &generationConfig{
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			TopK:            opts.TopK,
			MaxOutputTokens: opts.MaxOutputTokens,
		}
	}

	return out
}

func adviceResponse(resp *generateResponse) *advice.Response {
	out := &advice.Response{}
	if resp.PromptFeedback != nil {
		out.BlockReason = resp.PromptFeedback.BlockReason
	}
	if len(resp.Candidates) == 0 {
		return out
	}

	cand := resp.Candidates[0]
	out.FinishReason = cand.FinishReason

	var text strings.Builder
	for _, p := range cand.Content.Parts {
		if p.Text != nil {
			text.WriteString(*p.Text)
		}
	}
	out.Text = text.String()

	return out
}

func textPart(s string) part {
	return part{Text: &s}
}
