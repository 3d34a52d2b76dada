package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/it-assistant/app"
	"github.com/upb/it-assistant/config"
	"github.com/upb/it-assistant/models"
	"go.uber.org/zap/zaptest"
)

const testDataset = `Title,Text,alt_Text
VPN access,Install the VPN client and sign in with your campus account.,Remote network connection
Printer setup,Add the printer from the print server using its queue name.,Printing on campus
Password reset,Use the self-service portal to reset a forgotten password.,Account recovery
`

// fakeOpenAI answers chat completions the way the OpenAI API does. Evaluation
// prompts get a RELEVANT judgment; every other prompt gets a canned answer.
func fakeOpenAI() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) != 1 {
			http.Error(w, `{"error":{"message":"bad request","type":"invalid_request_error"}}`, http.StatusBadRequest)
			return
		}

		content := "Install the VPN client and sign in with your campus account."
		prompt, completion := 100, 20
		if strings.HasPrefix(req.Messages[0].Content, "You are an expert evaluator") {
			content = `{"Relevance": "RELEVANT", "Explanation": "The answer addresses the question."}`
			prompt, completion = 50, 10
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": %q,
			"choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": %d, "completion_tokens": %d, "total_tokens": %d}
		}`, req.Model, content, prompt, completion, prompt+completion)
	}))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dataPath := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(testDataset), 0o600))

	llm := fakeOpenAI()
	t.Cleanup(llm.Close)

	cfg := &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			RequestTimeout: 10 * time.Second,
		},
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: ":memory:",
		},
		Providers: config.ProvidersConfig{
			Default: "openai",
			OpenAI: config.OpenAIConfig{
				APIKey:  "test-key",
				BaseURL: llm.URL,
				Timeout: 5 * time.Second,
			},
		},
		Knowledge: config.KnowledgeConfig{
			DataPath:     dataPath,
			NumResults:   10,
			BoostTitle:   1.5,
			BoostText:    1,
			BoostAltText: 1,
		},
		Assistant: config.AssistantConfig{
			Model: "gpt-4o-mini",
		},
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	srv := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestQuestionFeedbackRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/question", `{"question":"  How do I use the VPN?  "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var asked struct {
		Data struct {
			ConversationID string  `json:"conversation_id"`
			Question       string  `json:"question"`
			Answer         string  `json:"answer"`
			Relevance      string  `json:"relevance"`
			ResponseTime   float64 `json:"response_time"`
			Cost           float64 `json:"cost"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asked))

	convID := asked.Data.ConversationID
	require.NotEmpty(t, convID)
	assert.Equal(t, "  How do I use the VPN?  ", asked.Data.Question)
	assert.Equal(t, "Install the VPN client and sign in with your campus account.", asked.Data.Answer)
	assert.Equal(t, "RELEVANT", asked.Data.Relevance)
	assert.GreaterOrEqual(t, asked.Data.ResponseTime, 0.0)
	// (100*0.00015 + 20*0.0006)/1000 + (50*0.00015 + 10*0.0006)/1000
	assert.InDelta(t, 0.0000405, asked.Data.Cost, 1e-12)

	resp = postJSON(t, srv.URL+"/feedback", fmt.Sprintf(`{"conversation_id":%q,"feedback":1}`, convID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ack struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.Equal(t, fmt.Sprintf("Feedback received for conversation %s: 1", convID), ack.Message)

	resp = getJSON(t, srv.URL+"/api/v1/conversations/"+convID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored struct {
		Data models.Conversation `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.Equal(t, "gpt-4o-mini", stored.Data.ModelUsed)
	assert.Equal(t, 120, stored.Data.TotalTokens)
	assert.Equal(t, 60, stored.Data.EvalTotalTokens)
	assert.Equal(t, "The answer addresses the question.", stored.Data.RelevanceExplanation)

	resp = getJSON(t, srv.URL+"/api/v1/feedback/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		Data models.FeedbackStats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, models.FeedbackStats{ThumbsUp: 1, ThumbsDown: 0}, stats.Data)

	resp = getJSON(t, srv.URL+"/api/v1/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var metrics struct {
		Data models.ConversationMetrics `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&metrics))
	assert.Equal(t, 1, metrics.Data.TotalConversations)
	assert.Equal(t, 1, metrics.Data.RelevanceCounts["RELEVANT"])

	resp = getJSON(t, srv.URL+"/api/v1/conversations?relevance=relevant&limit=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed struct {
		Data []models.Conversation `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, convID, listed.Data[0].ID)
}

func TestRoutes_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "blank question", method: http.MethodPost, path: "/question", body: `{"question":"   "}`, wantStatus: http.StatusBadRequest},
		{name: "invalid feedback value", method: http.MethodPost, path: "/feedback", body: `{"conversation_id":"x","feedback":0}`, wantStatus: http.StatusBadRequest},
		{name: "feedback for unknown conversation", method: http.MethodPost, path: "/feedback", body: `{"conversation_id":"missing","feedback":-1}`, wantStatus: http.StatusNotFound},
		{name: "unknown conversation", method: http.MethodGet, path: "/api/v1/conversations/missing", wantStatus: http.StatusNotFound},
		{name: "bad relevance filter", method: http.MethodGet, path: "/api/v1/conversations?relevance=maybe", wantStatus: http.StatusBadRequest},
		{name: "limit above maximum", method: http.MethodGet, path: "/api/v1/conversations?limit=1000", wantStatus: http.StatusBadRequest},
		{name: "unknown route", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, path: "/question", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestHealthRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp := getJSON(t, srv.URL+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Data struct {
			Status  string `json:"status"`
			Service string `json:"service"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Data.Status)
	assert.Equal(t, "IT Group Assistant", health.Data.Service)

	resp = getJSON(t, srv.URL+"/health/ready")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ready struct {
		Data struct {
			Checks map[string]string `json:"checks"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	assert.Equal(t, map[string]string{"database": "healthy", "knowledge_base": "healthy"}, ready.Data.Checks)
}
