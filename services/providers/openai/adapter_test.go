package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/upb/it-assistant/services/providers"
)

func TestNewOpenAIAdapter(t *testing.T) {
	adapter := NewOpenAIAdapter(providers.ProviderConfig{APIKey: "test-key"})

	if adapter == nil {
		t.Fatal("NewOpenAIAdapter() returned nil")
	}

	if adapter.Name() != "openai" {
		t.Errorf("Name() = %s, want openai", adapter.Name())
	}

	if adapter.config.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", adapter.config.BaseURL, defaultBaseURL)
	}

	if adapter.httpClient.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", adapter.httpClient.Timeout)
	}
}

func TestNewOpenAIAdapter_TrimsBaseURL(t *testing.T) {
	adapter := NewOpenAIAdapter(providers.ProviderConfig{BaseURL: "http://localhost:8080/v1/"})

	if adapter.config.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("BaseURL = %s, want trailing slash removed", adapter.config.BaseURL)
	}
}

func TestOpenAIAdapter_ChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}

		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}

		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", auth)
		}

		if org := r.Header.Get("OpenAI-Organization"); org != "org-1" {
			t.Errorf("OpenAI-Organization = %q, want org-1", org)
		}

		body, _ := io.ReadAll(r.Body)
		var req OpenAIChatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("invalid request body: %v", err)
		}

		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("Messages = %+v, want a single user message", req.Messages)
		}

		resp := OpenAIChatResponse{
			ID:      "chatcmpl-test123",
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   req.Model,
			Choices: []OpenAIChoice{
				{
					Index: 0,
					Message: OpenAIMessage{
						Role:    "assistant",
						Content: "Use the VPN client.",
					},
					FinishReason: "stop",
				},
			},
			Usage: OpenAIUsage{
				PromptTokens:     10,
				CompletionTokens: 20,
				TotalTokens:      30,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(providers.ProviderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		OrgID:   "org-1",
		Timeout: 5 * time.Second,
	})

	req := &providers.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []providers.Message{{Role: "user", Content: "How do I connect remotely?"}},
	}

	resp, err := adapter.ChatCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}

	if resp.ID != "chatcmpl-test123" {
		t.Errorf("ID = %s, want chatcmpl-test123", resp.ID)
	}

	if resp.Model != "gpt-4o-mini" {
		t.Errorf("Model = %s, want gpt-4o-mini", resp.Model)
	}

	if resp.Provider != "openai" {
		t.Errorf("Provider = %s, want openai", resp.Provider)
	}

	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "Use the VPN client." {
		t.Errorf("Unexpected choices: %+v", resp.Choices)
	}

	if resp.Usage.TotalTokens != 30 {
		t.Errorf("TotalTokens = %d, want 30", resp.Usage.TotalTokens)
	}
}

func TestOpenAIAdapter_ChatCompletion_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)

		json.NewEncoder(w).Encode(OpenAIErrorResponse{
			Error: OpenAIError{
				Message: "Incorrect API key provided",
				Type:    "invalid_request_error",
				Code:    "invalid_api_key",
			},
		})
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(providers.ProviderConfig{APIKey: "invalid-key", BaseURL: server.URL})

	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []providers.Message{{Role: "user", Content: "test"}},
	})
	if err == nil {
		t.Fatal("Expected error but got none")
	}

	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected ProviderError, got %T", err)
	}

	if provErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want %d", provErr.StatusCode, http.StatusUnauthorized)
	}

	if provErr.Code != "invalid_request_error" {
		t.Errorf("Code = %s, want invalid_request_error", provErr.Code)
	}
}

func TestOpenAIAdapter_ChatCompletion_NoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(providers.ProviderConfig{APIKey: "test-key", BaseURL: server.URL})

	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []providers.Message{{Role: "user", Content: "test"}},
	})
	if err == nil {
		t.Fatal("Expected error but got none")
	}

	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}

	if code := providers.StatusCodeOf(err); code != http.StatusServiceUnavailable {
		t.Errorf("StatusCodeOf() = %d, want %d", code, http.StatusServiceUnavailable)
	}

	if !strings.Contains(err.Error(), "upstream unavailable") {
		t.Errorf("error %q does not carry the response body", err.Error())
	}
}

func TestOpenAIAdapter_ChatCompletion_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(providers.ProviderConfig{APIKey: "test-key", BaseURL: server.URL})

	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []providers.Message{{Role: "user", Content: "test"}},
	})

	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) || provErr.Code != "UNMARSHAL_ERROR" {
		t.Errorf("expected UNMARSHAL_ERROR, got %v", err)
	}
}

func TestOpenAIAdapter_ChatCompletion_MissingModel(t *testing.T) {
	adapter := NewOpenAIAdapter(providers.ProviderConfig{APIKey: "test-key"})

	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{})
	if code := providers.StatusCodeOf(err); code != http.StatusBadRequest {
		t.Errorf("StatusCodeOf() = %d, want %d", code, http.StatusBadRequest)
	}
}

func TestOpenAIAdapter_ChatCompletion_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(providers.ProviderConfig{APIKey: "test-key", BaseURL: server.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := adapter.ChatCompletion(ctx, &providers.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []providers.Message{{Role: "user", Content: "test"}},
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestOpenAIAdapter_IsAvailable(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/models" {
				t.Errorf("Expected path /models, got %s", r.URL.Path)
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"data": []}`))
		}))
		defer server.Close()

		adapter := NewOpenAIAdapter(providers.ProviderConfig{APIKey: "test-key", BaseURL: server.URL})

		if !adapter.IsAvailable(context.Background()) {
			t.Error("Expected provider to be available")
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		adapter := NewOpenAIAdapter(providers.ProviderConfig{APIKey: "test-key", BaseURL: server.URL})

		if adapter.IsAvailable(context.Background()) {
			t.Error("Expected provider to be unavailable")
		}
	})
}

func TestBuildOpenAIRequest(t *testing.T) {
	adapter := NewOpenAIAdapter(providers.ProviderConfig{})

	openaiReq := adapter.buildOpenAIRequest(&providers.ChatRequest{
		Model: "gpt-4o-mini",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "Hello"},
			{Role: providers.RoleAssistant, Content: "Hi, how can I help?"},
		},
	})

	if openaiReq.Model != "gpt-4o-mini" {
		t.Errorf("Model = %s, want gpt-4o-mini", openaiReq.Model)
	}

	if len(openaiReq.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(openaiReq.Messages))
	}

	if openaiReq.Messages[1].Role != "assistant" || openaiReq.Messages[1].Content != "Hi, how can I help?" {
		t.Errorf("Messages[1] = %+v", openaiReq.Messages[1])
	}

	body, err := json.Marshal(openaiReq)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(body), "max_tokens") || strings.Contains(string(body), "temperature") {
		t.Errorf("request carries sampling parameters: %s", body)
	}
}
