package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaudeClientTestMode(t *testing.T) {
	client := NewClaudeClient(ClaudeConfig{APIKey: "TEST_MODE"})
	got, err := client.Complete(context.Background(), "system", "สวัสดี")
	require.NoError(t, err)
	assert.Equal(t, "TEST RESPONSE: สวัสดี", got)
}

func TestClaudeClientDisabledWithoutKey(t *testing.T) {
	client := NewClaudeClient(ClaudeConfig{})
	_, err := client.Complete(context.Background(), "system", "hi")
	assert.ErrorIs(t, err, ErrFallbackDisabled)
}

func TestClaudeClientComplete(t *testing.T) {
	var req ClaudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ClaudeResponse{
			Content: []ContentBlock{
				{Type: "text", Text: "สวัสดีครับ "},
				{Type: "tool_use"},
				{Type: "text", Text: "ยินดีช่วยครับ\n"},
			},
		})
	}))
	defer srv.Close()

	client := NewClaudeClient(ClaudeConfig{
		APIURL:            srv.URL,
		APIKey:            "secret",
		Model:             "claude-test",
		RequestsPerMinute: 10,
		Timeout:           5 * time.Second,
	})
	got, err := client.Complete(context.Background(), "be nice", "hello")
	require.NoError(t, err)
	assert.Equal(t, "สวัสดีครับ ยินดีช่วยครับ", got)

	assert.Equal(t, "claude-test", req.Model)
	assert.Equal(t, 512, req.MaxTokens)
	assert.Equal(t, "be nice", req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, Message{Role: "user", Content: "hello"}, req.Messages[0])
}

func TestClaudeClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"empty content", http.StatusOK, `{"content":[]}`},
		{"bad json", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClaudeClient(ClaudeConfig{APIURL: srv.URL, APIKey: "secret"})
			_, err := client.Complete(context.Background(), "", "hello")
			assert.Error(t, err)
		})
	}
}
