package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/vistoria/internal/vision"
)

// A single verdict line is expected; 256 tokens leaves room for a short
// preamble from verbose models.
const maxTokens = 256

type ClaudeAssessor struct {
	client *anthropic.Client
	model  string
}

type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the client at another Messages API endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func NewClaudeAssessor(apiKey, model string, opts ...Option) *ClaudeAssessor {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var clientOpts []anthropic.ClientOption
	if o.baseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, anthropic.WithHTTPClient(o.httpClient))
	}

	return &ClaudeAssessor{
		client: anthropic.NewClient(apiKey, clientOpts...),
		model:  model,
	}
}

func (a *ClaudeAssessor) Assess(ctx context.Context, r io.Reader, mimeType string) (*vision.Assessment, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					base64.StdEncoding.EncodeToString(imageData),
				)),
				anthropic.NewTextMessageContent(vision.AssessmentPrompt),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	text := resp.GetFirstContentText()
	assessment := vision.ParseResponse(text)
	if assessment == nil {
		return nil, fmt.Errorf("unexpected claude response: %q", text)
	}
	return assessment, nil
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// Unknown types are coerced to jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
