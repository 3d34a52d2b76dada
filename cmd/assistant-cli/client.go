package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/upb/it-assistant/utils"
)

// answer is the part of the POST /question reply the CLI shows
type answer struct {
	ConversationID string  `json:"conversation_id"`
	Answer         string  `json:"answer"`
	Relevance      string  `json:"relevance"`
	ResponseTime   float64 `json:"response_time"`
	Cost           float64 `json:"cost"`
}

// apiClient talks to the assistant HTTP API
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ask sends a question and returns the stored answer
func (c *apiClient) Ask(ctx context.Context, question string) (*answer, error) {
	var out struct {
		Data answer `json:"data"`
	}
	if _, err := c.post(ctx, "/question", map[string]string{"question": question}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// SendFeedback records +1 or -1 for a conversation and returns the HTTP status
func (c *apiClient) SendFeedback(ctx context.Context, conversationID string, value int) (int, error) {
	body := map[string]interface{}{
		"conversation_id": conversationID,
		"feedback":        value,
	}
	return c.post(ctx, "/feedback", body, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr utils.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return resp.StatusCode, fmt.Errorf("%s: %s (status %d)", path, apiErr.Message, resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}
