package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vbonduro/vistoria/internal/vision"
)

const defaultTimeout = 2 * time.Minute

type OllamaAssessor struct {
	model  string
	client *resty.Client
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

func NewOllamaAssessor(host, model string) *OllamaAssessor {
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json")

	return &OllamaAssessor{
		model:  model,
		client: client,
	}
}

func (a *OllamaAssessor) Assess(ctx context.Context, r io.Reader, mimeType string) (*vision.Assessment, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	var out generateResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Model:  a.model,
			Prompt: vision.AssessmentPrompt,
			Images: []string{base64.StdEncoding.EncodeToString(imageData)},
			Stream: false,
		}).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode())
	}

	assessment := vision.ParseResponse(out.Response)
	if assessment == nil {
		return nil, fmt.Errorf("unexpected ollama response: %q", out.Response)
	}
	return assessment, nil
}
