package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// LINE allows at most 5000 characters per text message
const lineMaxTextRunes = 5000

// LineClient talks to the LINE Messaging API
type LineClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewLineClient creates a client for the channel identified by accessToken
func NewLineClient(baseURL, accessToken string) *LineClient {
	return &LineClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type lineTextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// LineProfile is the public profile of a LINE user
type LineProfile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// Reply answers an event with its reply token. A token is valid once and only
// for a short time after the event
func (c *LineClient) Reply(ctx context.Context, replyToken, text string) error {
	payload := map[string]interface{}{
		"replyToken": replyToken,
		"messages":   []lineTextMessage{{Type: "text", Text: truncateRunes(text, lineMaxTextRunes)}},
	}
	return c.post(ctx, "/v2/bot/message/reply", payload)
}

// Push sends a message to userID without a reply token
func (c *LineClient) Push(ctx context.Context, userID, text string) error {
	payload := map[string]interface{}{
		"to":       userID,
		"messages": []lineTextMessage{{Type: "text", Text: truncateRunes(text, lineMaxTextRunes)}},
	}
	return c.post(ctx, "/v2/bot/message/push", payload)
}

// GetProfile retrieves the display name and picture of userID
func (c *LineClient) GetProfile(ctx context.Context, userID string) (*LineProfile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v2/bot/profile/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get profile: %s", resp.Status)
	}

	var profile LineProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *LineClient) post(ctx context.Context, path string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("LINE API call failed", "path", path, "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("LINE API %s: %s", path, resp.Status)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
