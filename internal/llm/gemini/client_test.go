package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettersontherocks/AI-Interview/internal/llm"
)

func candidates(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}}},
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg, err := NewConfig(llm.Settings{APIKey: "test", Model: "test-model", BaseURL: server.URL})
	require.NoError(t, err)
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func TestGenerateContentReturnsCandidateText(t *testing.T) {
	var prompt string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent"), r.URL.Path)
		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) && len(body.Contents) > 0 && len(body.Contents[0].Parts) > 0 {
			prompt = body.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(candidates(`{"question":"请先做一个简单的自我介绍。"}`))
	})

	resp, err := client.GenerateContent(context.Background(), "面试官提示", "req-1")
	require.NoError(t, err)
	assert.Equal(t, "面试官提示", prompt)
	assert.Equal(t, `{"question":"请先做一个简单的自我介绍。"}`, resp.Content)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "gemini", resp.Metadata.Provider)
	assert.Equal(t, "test-model", resp.Metadata.Model)
}

func TestGenerateContentClassifiesRateLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	})

	_, err := client.GenerateContent(context.Background(), "prompt", "req")
	var provErr *llm.ProviderError
	require.True(t, errors.As(err, &provErr), "got %v", err)
	assert.Equal(t, llm.ErrCodeRateLimit, provErr.Code)
}

func TestGenerateContentRejectsBlankText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(candidates("   "))
	})

	_, err := client.GenerateContent(context.Background(), "prompt", "req")
	var provErr *llm.ProviderError
	require.True(t, errors.As(err, &provErr), "got %v", err)
	assert.Equal(t, llm.ErrCodeInvalidInput, provErr.Code)
}

func TestGenerateContentHonoursDeadline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GenerateContent(ctx, "prompt", "req")
	require.Error(t, err)
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{context.DeadlineExceeded, llm.ErrCodeTimeout},
		{errors.New("Error 429, RESOURCE_EXHAUSTED"), llm.ErrCodeRateLimit},
		{errors.New("quota exceeded for project"), llm.ErrCodeRateLimit},
		{errors.New("connection reset"), llm.ErrCodeServiceDown},
	}
	for _, tc := range cases {
		got := classifyError(tc.err)
		assert.Equal(t, tc.code, got.Code, tc.err.Error())
		assert.ErrorIs(t, got, tc.err)
	}
	assert.True(t, llm.IsTimeout(classifyError(context.DeadlineExceeded)))
	assert.False(t, isRateLimitError(nil))
	assert.Equal(t, "gemini", (&Client{}).GetProviderName())
}
