package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]interface{}
}

func newLineServer(t *testing.T, status int, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		if r.Method == http.MethodPost {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			_ = json.NewDecoder(r.Body).Decode(&captured.body)
		}
		if strings.HasPrefix(r.URL.Path, "/v2/bot/profile/") && status == http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"userId":"U1","displayName":"Somchai","pictureUrl":"https://example.com/p.png"}`))
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLineClientReply(t *testing.T) {
	var got capturedRequest
	srv := newLineServer(t, http.StatusOK, &got)
	client := NewLineClient(srv.URL+"/", "token-123")

	require.NoError(t, client.Reply(context.Background(), "reply-token", "สวัสดีครับ"))

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/v2/bot/message/reply", got.path)
	assert.Equal(t, "Bearer token-123", got.auth)
	assert.Equal(t, "reply-token", got.body["replyToken"])
	messages := got.body["messages"].([]interface{})
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]interface{})
	assert.Equal(t, "text", msg["type"])
	assert.Equal(t, "สวัสดีครับ", msg["text"])
}

func TestLineClientPush(t *testing.T) {
	var got capturedRequest
	srv := newLineServer(t, http.StatusOK, &got)
	client := NewLineClient(srv.URL, "token-123")

	require.NoError(t, client.Push(context.Background(), "U1", "hello"))
	assert.Equal(t, "/v2/bot/message/push", got.path)
	assert.Equal(t, "U1", got.body["to"])
}

func TestLineClientErrorStatus(t *testing.T) {
	var got capturedRequest
	srv := newLineServer(t, http.StatusBadRequest, &got)
	client := NewLineClient(srv.URL, "token-123")

	assert.Error(t, client.Reply(context.Background(), "expired", "hello"))

	_, err := client.GetProfile(context.Background(), "U1")
	assert.Error(t, err)
}

func TestLineClientGetProfile(t *testing.T) {
	var got capturedRequest
	srv := newLineServer(t, http.StatusOK, &got)
	client := NewLineClient(srv.URL, "token-123")

	profile, err := client.GetProfile(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/v2/bot/profile/U1", got.path)
	assert.Equal(t, "Bearer token-123", got.auth)
	assert.Equal(t, "Somchai", profile.DisplayName)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "สวัสดี", truncateRunes("สวัสดี", 10))

	long := strings.Repeat("ก", 6000)
	cut := truncateRunes(long, lineMaxTextRunes)
	assert.Equal(t, lineMaxTextRunes, utf8.RuneCountInString(cut))
	assert.True(t, strings.HasSuffix(cut, "…"))
}
