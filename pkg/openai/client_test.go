package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageResponse = `{
	"id": "resp_1",
	"object": "response",
	"created_at": 1700000000,
	"status": "completed",
	"model": "gpt-4.1",
	"output": [
		{"type": "web_search_call", "id": "ws_1", "status": "completed", "action": {"type": "search", "query": "jane"}},
		{"type": "message", "id": "msg_1", "role": "assistant", "status": "completed",
		 "content": [{"type": "output_text", "text": "{\"verified\": false}", "annotations": []}]}
	],
	"usage": {"input_tokens": 321, "output_tokens": 12, "total_tokens": 333,
		"input_tokens_details": {"cached_tokens": 0}, "output_tokens_details": {"reasoning_tokens": 0}}
}`

type requestBody struct {
	Model           string `json:"model"`
	Input           string `json:"input"`
	MaxOutputTokens int    `json:"max_output_tokens"`
	Tools           []struct {
		Type    string `json:"type"`
		Filters *struct {
			AllowedDomains []string `json:"allowed_domains"`
		} `json:"filters"`
	} `json:"tools"`
}

func TestCreateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req requestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4.1", req.Model)
		assert.Equal(t, "Find Jane", req.Input)
		assert.Equal(t, 512, req.MaxOutputTokens)
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "web_search", req.Tools[0].Type)
		require.NotNil(t, req.Tools[0].Filters)
		assert.Equal(t, []string{"linkedin.com"}, req.Tools[0].Filters.AllowedDomains)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.CreateResponse(context.Background(), ResponseRequest{
		Input:           "Find Jane",
		Tools:           []Tool{WebSearchTool("linkedin.com")},
		MaxOutputTokens: 512,
	})
	require.NoError(t, err)
	assert.Equal(t, "resp_1", resp.ID)
	assert.Equal(t, "completed", resp.Status)
	require.Len(t, resp.Output, 2)
	assert.Empty(t, resp.Output[0].Content)
	assert.Equal(t, "message", resp.Output[1].Type)
	require.Len(t, resp.Output[1].Content, 1)
	assert.Equal(t, `{"verified": false}`, resp.Output[1].Content[0].Text)
	assert.Equal(t, `{"verified": false}`, resp.OutputText)
	assert.Equal(t, 321, resp.Usage.InputTokens)
	assert.Equal(t, 12, resp.Usage.OutputTokens)
}

func TestCreateResponse_UnrestrictedOmitsFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "o4-mini", raw["model"])
		assert.NotContains(t, raw, "max_output_tokens")

		tools, ok := raw["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)
		assert.Equal(t, map[string]any{"type": "web_search"}, tools[0])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithModel("o4-mini"))
	_, err := client.CreateResponse(context.Background(), ResponseRequest{
		Input: "x",
		Tools: []Tool{WebSearchTool()},
	})
	require.NoError(t, err)
}

func TestCreateResponse_StatusError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream","type":"server_error"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.CreateResponse(context.Background(), ResponseRequest{Input: "x"})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Contains(t, err.Error(), "unexpected status 502")
	assert.Equal(t, 1, calls, "no retries")
}

func TestCreateResponse_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.CreateResponse(context.Background(), ResponseRequest{Input: "x"})
	require.Error(t, err)

	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestWebSearchTool(t *testing.T) {
	assert.Nil(t, WebSearchTool().Filters)

	tool := WebSearchTool("linkedin.com", "crunchbase.com")
	assert.Equal(t, "web_search", tool.Type)
	require.NotNil(t, tool.Filters)
	assert.Equal(t, []string{"linkedin.com", "crunchbase.com"}, tool.Filters.AllowedDomains)
}
