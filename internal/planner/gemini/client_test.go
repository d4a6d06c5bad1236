package gemini

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/planner"
)

const testModel = "gemini-test"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	return newTestClientWithLogger(t, handler, zaptest.NewLogger(t))
}

func newTestClientWithLogger(t *testing.T, handler http.HandlerFunc, logger *zap.Logger) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), config.LLMModelConfig{
		Model:       testModel,
		APIKey:      "test-key",
		Endpoint:    srv.URL + "/",
		APITimeout:  5 * time.Second,
		Temperature: 0.1,
		MaxTokens:   256,
	}, logger)
	require.NoError(t, err)
	return c
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), config.LLMModelConfig{Model: testModel}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "API key is required")
}

func TestGenerate_Success(t *testing.T) {
	var calls int32
	var body map[string]interface{}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/"+testModel+":generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, jsoniter.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "[{\"type\":\"wait\"}]"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
		}`)
	})

	image := []byte("\x89PNG\r\n\x1a\nrest")
	reply, err := c.Generate(context.Background(), planner.Request{
		System:    "policy",
		Prompt:    "prompt text",
		Image:     image,
		ImageMIME: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"type":"wait"}]`, reply)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// The single request carries the prompt, the inline image and the system instruction.
	contents := body["contents"].([]interface{})
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]interface{})["parts"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "prompt text", parts[0].(map[string]interface{})["text"])
	inline := parts[1].(map[string]interface{})["inlineData"].(map[string]interface{})
	assert.Equal(t, "image/png", inline["mimeType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), inline["data"])

	sys := body["systemInstruction"].(map[string]interface{})["parts"].([]interface{})
	assert.Equal(t, "policy", sys[0].(map[string]interface{})["text"])
}

func TestGenerate_TextOnly(t *testing.T) {
	var partCount int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Contents []struct {
				Parts []map[string]interface{} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, jsoniter.NewDecoder(r.Body).Decode(&body))
		partCount = len(body.Contents[0].Parts)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"[]"}]}}]}`)
	})

	reply, err := c.Generate(context.Background(), planner.Request{System: "s", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "[]", reply)
	assert.Equal(t, 1, partCount)
}

func TestGenerate_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"code": 400, "message": "API key not valid. Please pass a valid API key.", "status": "INVALID_ARGUMENT"}}`)
	})

	_, err := c.Generate(context.Background(), planner.Request{System: "s", Prompt: "p"})

	var te *planner.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "gemini", te.Provider)
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
	assert.Equal(t, "API key not valid. Please pass a valid API key.", te.Message)
}

func TestGenerate_Blocked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"promptFeedback": {"blockReason": "SAFETY"}}`)
	})

	_, err := c.Generate(context.Background(), planner.Request{System: "s", Prompt: "p"})

	var te *planner.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Message, "SAFETY")
}

func TestGenerate_EmptyReplyLogsFinishReason(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newTestClientWithLogger(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[]},"finishReason":"MAX_TOKENS"}]}`)
	}, zap.New(core))

	reply, err := c.Generate(context.Background(), planner.Request{System: "s", Prompt: "p"})
	require.NoError(t, err)
	assert.Empty(t, reply)

	entries := logs.FilterMessage("Gemini reply carried no text.").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "MAX_TOKENS", entries[0].ContextMap()["finish_reason"])
}
