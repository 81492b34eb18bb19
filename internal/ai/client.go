// Package ai wraps the remote inference endpoint used for triage,
// suggestions, sentiment scoring and embeddings. The model itself is
// external; this package only owns the call contract.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/config"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// Inference is the contract job handlers consume.
type Inference interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string, out any) error
	Embed(ctx context.Context, input string) ([]float32, error)
	EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error)
}

// Client talks to an Ollama-compatible endpoint.
type Client struct {
	api    *api.Client
	cfg    config.InferenceConfig
	logger *zap.Logger
}

// NewClient builds the client from configuration.
func NewClient(cfg config.InferenceConfig, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid inference endpoint: %w", err)
	}
	httpClient := &http.Client{Timeout: cfg.Timeout()}
	return &Client{
		api:    api.NewClient(base, httpClient),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Generate runs a non-streaming completion and returns the full text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: &stream,
	}
	var out strings.Builder
	err := c.api.Generate(ctx, req, func(r api.GenerateResponse) error {
		out.WriteString(r.Response)
		return nil
	})
	if err != nil {
		return "", apperrors.NewUpstreamError("inference", err)
	}
	return out.String(), nil
}

// GenerateJSON runs a completion in JSON mode and decodes the result into
// out. Models occasionally wrap JSON in prose; the decoder tolerates
// leading and trailing noise around the outermost object.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
	}
	var raw strings.Builder
	err := c.api.Generate(ctx, req, func(r api.GenerateResponse) error {
		raw.WriteString(r.Response)
		return nil
	})
	if err != nil {
		return apperrors.NewUpstreamError("inference", err)
	}

	text := extractJSON(raw.String())
	if err := json.Unmarshal([]byte(text), out); err != nil {
		c.logger.Warn("model returned undecodable JSON", zap.String("model", c.cfg.Model))
		return apperrors.NewUpstreamError("inference", fmt.Errorf("decode model response: %w", err))
	}
	return nil
}

// Embed returns the embedding vector for one input.
func (c *Client) Embed(ctx context.Context, input string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, apperrors.NewUpstreamError("embedding", fmt.Errorf("empty embedding response"))
	}
	return vectors[0], nil
}

// EmbedBatch embeds several inputs in one call, preserving order.
func (c *Client) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	resp, err := c.api.Embed(ctx, &api.EmbedRequest{
		Model: c.cfg.EmbeddingModel,
		Input: inputs,
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("embedding", err)
	}
	if len(resp.Embeddings) != len(inputs) {
		return nil, apperrors.NewUpstreamError("embedding",
			fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(resp.Embeddings)))
	}
	return resp.Embeddings, nil
}

// extractJSON trims everything outside the outermost JSON object.
func extractJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	end := strings.LastIndexAny(s, "}]")
	if end < start {
		return s
	}
	return s[start : end+1]
}
