package perplexity

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
)

const okBody = `{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}],"usage":{}}`

func TestAsk(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    string
		wantStatus int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "cmpl-123",
				"choices": [
					{"index": 0, "message": {"role": "assistant", "content": "Hello!"}},
					{"index": 1, "message": {"role": "assistant", "content": "Again"}}
				],
				"citations": ["https://example.com/a"],
				"usage": {"prompt_tokens": 10, "completion_tokens": 5}
			}`,
		},
		{
			name:       "rate_limit",
			status:     http.StatusTooManyRequests,
			body:       `{"error": "rate limit exceeded"}`,
			wantErr:    "unexpected status 429",
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "server_error",
			status:     http.StatusInternalServerError,
			body:       `{"error": "internal server error"}`,
			wantErr:    "unexpected status 500",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ans, err := NewClient("test-key", WithBaseURL(srv.URL)).Ask(context.Background(), AskRequest{Prompt: "Hi"})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, ans)
				if tt.wantStatus != 0 {
					var se *StatusError
					require.True(t, errors.As(err, &se))
					assert.Equal(t, tt.wantStatus, se.StatusCode)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "cmpl-123", ans.ID)
			assert.Equal(t, []string{"Hello!", "Again"}, ans.Texts)
			assert.Equal(t, []string{"https://example.com/a"}, ans.Citations)
			assert.Equal(t, 5, ans.Usage.CompletionTokens)
		})
	}
}

func TestAsk_RequestBody(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		req  AskRequest
		want string
	}{
		{
			name: "defaults",
			req:  AskRequest{Prompt: "test"},
			want: `{"model":"sonar-pro","messages":[{"role":"user","content":"test"}]}`,
		},
		{
			name: "restricted with token cap",
			opts: []Option{WithModel("sonar")},
			req:  AskRequest{Prompt: "test", MaxTokens: 256, Domains: []string{"linkedin.com"}},
			want: `{"model":"sonar","messages":[{"role":"user","content":"test"}],"max_tokens":256,"search_domain_filter":["linkedin.com"]}`,
		},
		{
			name: "request model wins",
			opts: []Option{WithModel("sonar")},
			req:  AskRequest{Model: "sonar-reasoning", Prompt: "test"},
			want: `{"model":"sonar-reasoning","messages":[{"role":"user","content":"test"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var raw json.RawMessage
				require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
				assert.JSONEq(t, tt.want, string(raw))

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(okBody))
			}))
			defer srv.Close()

			opts := append([]Option{WithBaseURL(srv.URL)}, tt.opts...)
			_, err := NewClient("test-key", opts...).Ask(context.Background(), tt.req)
			require.NoError(t, err)
		})
	}
}

func TestAsk_ErrorBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 10*errorSnippet)))
	}))
	defer srv.Close()

	_, err := NewClient("test-key", WithBaseURL(srv.URL)).Ask(context.Background(), AskRequest{Prompt: "x"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Len(t, se.Body, errorSnippet)
}

func TestAsk_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("test-key", WithBaseURL(srv.URL)).Ask(ctx, AskRequest{Prompt: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("my-key").(*client)
	assert.Equal(t, "my-key", c.apiKey)
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, defaultModel, c.model)
	assert.Zero(t, c.http.Timeout)
}
