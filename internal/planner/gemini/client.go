// Package gemini is the planner backend for Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/planner"
)

const providerName = "gemini"

// Client implements planner.Backend on the genai SDK.
type Client struct {
	client *genai.Client
	cfg    config.LLMModelConfig
	logger *zap.Logger
}

var _ planner.Backend = (*Client)(nil)

// New creates the client. cfg.Endpoint, when set, overrides the API base URL.
func New(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set PAGEPILOT_GEMINI_API_KEY)")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("Gemini model name is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger.Named("llm_client.gemini"),
	}, nil
}

// Name implements planner.Backend.
func (c *Client) Name() string { return providerName }

// Generate sends the system instruction, prompt and optional image in a single request.
func (c *Client) Generate(ctx context.Context, req planner.Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image, req.ImageMIME))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(c.cfg.Temperature),
	}
	if c.cfg.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(c.cfg.MaxTokens)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, genConfig)
	if err != nil {
		return "", c.transportError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &planner.TransportError{
			Provider: providerName,
			Message:  fmt.Sprintf("request blocked (reason: %s)", resp.PromptFeedback.BlockReason),
		}
	}

	fields := []zap.Field{zap.Duration("duration", time.Since(start))}
	if u := resp.UsageMetadata; u != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", u.PromptTokenCount),
			zap.Int32("completion_tokens", u.CandidatesTokenCount),
			zap.Int32("total_tokens", u.TotalTokenCount),
		)
	}
	c.logger.Info("LLM generation complete (Gemini)", fields...)

	text := resp.Text()
	if text == "" {
		reason := "none"
		if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
			reason = string(resp.Candidates[0].FinishReason)
		}
		c.logger.Warn("Gemini reply carried no text.", zap.String("finish_reason", reason), zap.Int("candidates", len(resp.Candidates)))
	}
	return text, nil
}

func (c *Client) transportError(err error) error {
	te := &planner.TransportError{Provider: providerName, Message: err.Error(), Err: err}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		te.StatusCode, te.Message = apiErr.Code, apiErr.Message
	case errors.As(err, &apiErrPtr):
		te.StatusCode, te.Message = apiErrPtr.Code, apiErrPtr.Message
	}

	c.logger.Error("Gemini API returned an error.", zap.Int("status", te.StatusCode), zap.String("message", te.Message))
	return te
}
