// Package openai is the planner backend for OpenAI-compatible chat-completions APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/planner"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	providerName    = "openai"
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
)

// Client implements planner.Backend over plain HTTP.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	cfg        config.LLMModelConfig
	logger     *zap.Logger
}

var _ planner.Backend = (*Client)(nil)

// -- Chat Completions Request/Response Structures --

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role string `json:"role"`
	// Content is a plain string for the system message and a part list for the user message.
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// New creates the client.
func New(cfg config.LLMModelConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set PAGEPILOT_OPENAI_API_KEY)")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("OpenAI model name is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: cfg.APITimeout},
		cfg:        cfg,
		logger:     logger.Named("llm_client.openai"),
	}, nil
}

// Name implements planner.Backend.
func (c *Client) Name() string { return providerName }

// Generate posts one chat-completions request and returns the first choice's text.
func (c *Client) Generate(ctx context.Context, req planner.Request) (string, error) {
	body, err := json.Marshal(c.buildRequestPayload(req))
	if err != nil {
		return "", &planner.TransportError{Provider: providerName, Message: "failed to marshal request payload: " + err.Error(), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &planner.TransportError{Provider: providerName, Message: err.Error(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &planner.TransportError{Provider: providerName, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &planner.TransportError{Provider: providerName, StatusCode: resp.StatusCode, Message: "failed to read response body: " + err.Error(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.handleAPIError(resp.StatusCode, respBody)
	}

	var payload chatResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", &planner.TransportError{Provider: providerName, StatusCode: resp.StatusCode, Message: "failed to decode response payload: " + err.Error(), Err: err}
	}
	if len(payload.Choices) == 0 {
		return "", &planner.TransportError{Provider: providerName, StatusCode: resp.StatusCode, Message: "response contained no choices"}
	}

	c.logger.Info("LLM generation complete (OpenAI)",
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", payload.Usage.PromptTokens),
		zap.Int("completion_tokens", payload.Usage.CompletionTokens),
		zap.Int("total_tokens", payload.Usage.TotalTokens),
	)
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) buildRequestPayload(req planner.Request) chatRequest {
	userParts := []contentPart{{Type: "text", Text: req.Prompt}}
	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		userParts = append(userParts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image)},
		})
	}

	return chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: userParts},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
}

// handleAPIError extracts the provider's message from an error body, falling back to the raw body.
func (c *Client) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("OpenAI API returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))

	message := strings.TrimSpace(string(body))
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		message = er.Error.Message
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &planner.TransportError{Provider: providerName, StatusCode: statusCode, Message: message}
}
