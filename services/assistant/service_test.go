package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/it-assistant/internal/rag"
	"github.com/upb/it-assistant/internal/search"
	"github.com/upb/it-assistant/services"
	"github.com/upb/it-assistant/services/cost"
	"github.com/upb/it-assistant/services/providers"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt, model string) (string, providers.Usage, error) {
	args := m.Called(ctx, prompt, model)
	return args.String(0), args.Get(1).(providers.Usage), args.Error(2)
}

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, opts rag.RetrievalOptions) ([]rag.Document, error) {
	args := m.Called(ctx, query, opts)
	if docs := args.Get(0); docs != nil {
		return docs.([]rag.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func answerPrompt() interface{} {
	return mock.MatchedBy(func(p string) bool { return strings.HasPrefix(p, "You're an IT expert") })
}

func evalPrompt() interface{} {
	return mock.MatchedBy(func(p string) bool { return strings.HasPrefix(p, "You are an expert evaluator") })
}

func newKnowledgeRetriever(t *testing.T) rag.Retriever {
	t.Helper()
	docs := []search.Document{
		{"Title": "Docker", "Text": "Docker is a containerization platform.", "alt_Text": ""},
		{"Title": "VPN", "Text": "Install the VPN client to work remotely.", "alt_Text": "Remote access"},
	}
	idx, err := search.Build(docs, []string{"Title", "Text", "alt_Text"}, nil)
	require.NoError(t, err)
	return rag.NewKnowledgeRetriever(idx, rag.DefaultBoost(), 5)
}

// steppingClock returns start, then start+step, start+2*step...
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

func newService(t *testing.T, retriever rag.Retriever, llm *MockCompleter, logger *zap.Logger) *Service {
	t.Helper()
	svc := NewService(
		retriever,
		llm,
		rag.NewEvaluator(llm, "gpt-4o-mini", logger),
		cost.NewAccountant(cost.DefaultTable(), logger),
		"",
		logger,
	)
	svc.now = steppingClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), 1500*time.Millisecond)
	return svc
}

func TestService_Answer(t *testing.T) {
	llm := new(MockCompleter)
	svc := newService(t, newKnowledgeRetriever(t), llm, zaptest.NewLogger(t))

	var sentPrompt string
	llm.On("Complete", mock.Anything, answerPrompt(), "gpt-4o-mini").
		Run(func(args mock.Arguments) { sentPrompt = args.String(1) }).
		Return("Docker packages applications into containers.", providers.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}, nil).
		Once()
	llm.On("Complete", mock.Anything, evalPrompt(), "gpt-4o-mini").
		Return(`{"Relevance": "RELEVANT", "Explanation": "It explains Docker."}`, providers.Usage{PromptTokens: 200, CompletionTokens: 50, TotalTokens: 250}, nil).
		Once()

	record, err := svc.Answer(context.Background(), "What is Docker?", "")
	require.NoError(t, err)

	assert.Equal(t, "Docker packages applications into containers.", record.Answer)
	assert.Equal(t, "gpt-4o-mini", record.ModelUsed)
	assert.Equal(t, rag.RelevanceRelevant, record.Relevance)
	assert.Equal(t, "It explains Docker.", record.RelevanceExplanation)
	assert.Equal(t, providers.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}, record.Usage)
	assert.Equal(t, providers.Usage{PromptTokens: 200, CompletionTokens: 50, TotalTokens: 250}, record.EvalUsage)
	assert.Equal(t, 1.5, record.ResponseTime)

	// 0.00045 for the answer plus 200*0.00015/1000 + 50*0.0006/1000 for the judgment
	assert.InDelta(t, 0.00045+0.00006, record.OpenAICost, 1e-12)

	require.NotEmpty(t, record.Sources)
	assert.Equal(t, "Docker", record.Sources[0].Title)
	assert.Contains(t, sentPrompt, "QUESTION: What is Docker?")
	assert.Contains(t, sentPrompt, "Title: Docker\nText: Docker is a containerization platform.")
	llm.AssertExpectations(t)
}

func TestService_AnswerSendsEvalStagePrompt(t *testing.T) {
	llm := new(MockCompleter)
	svc := newService(t, newKnowledgeRetriever(t), llm, zap.NewNop())

	answer := "Install the VPN client."
	llm.On("Complete", mock.Anything, answerPrompt(), "gpt-4o-mini").
		Return(answer, providers.Usage{PromptTokens: 10, CompletionTokens: 5}, nil).
		Once()
	llm.On("Complete", mock.Anything, rag.BuildEvalPrompt("How do I work remotely?", answer), "gpt-4o-mini").
		Return(`{"Relevance": "RELEVANT", "Explanation": "ok"}`, providers.Usage{PromptTokens: 20, CompletionTokens: 2}, nil).
		Once()

	record, err := svc.Answer(context.Background(), "How do I work remotely?", "")
	require.NoError(t, err)
	assert.Equal(t, rag.RelevanceRelevant, record.Relevance)
	llm.AssertExpectations(t)
}

func TestService_AnswerUsesRequestedModel(t *testing.T) {
	llm := new(MockCompleter)
	svc := newService(t, newKnowledgeRetriever(t), llm, zap.NewNop())

	llm.On("Complete", mock.Anything, answerPrompt(), "gpt-4o").
		Return("answer", providers.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil).Once()
	llm.On("Complete", mock.Anything, evalPrompt(), "gpt-4o-mini").
		Return(`{"Relevance": "PARTLY_RELEVANT", "Explanation": "partial"}`, providers.Usage{}, nil).Once()

	record, err := svc.Answer(context.Background(), "How do I use the VPN?", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", record.ModelUsed)
	assert.Equal(t, rag.RelevancePartlyRelevant, record.Relevance)
	llm.AssertExpectations(t)
}

func TestService_AnswerEvaluationNeverAborts(t *testing.T) {
	tests := []struct {
		name            string
		reply           string
		err             error
		wantExplanation string
		wantEvalUsage   providers.Usage
	}{
		{
			name:            "unparsable reply",
			reply:           "I think it is relevant.",
			wantExplanation: rag.ExplanationParseFailed,
			wantEvalUsage:   providers.Usage{PromptTokens: 40, CompletionTokens: 8, TotalTokens: 48},
		},
		{
			name:            "request failure",
			err:             errors.New("503 service unavailable"),
			wantExplanation: rag.ExplanationRequestFailed,
			wantEvalUsage:   providers.Usage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := new(MockCompleter)
			svc := newService(t, newKnowledgeRetriever(t), llm, zap.NewNop())

			genUsage := providers.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}
			llm.On("Complete", mock.Anything, answerPrompt(), "gpt-4o-mini").
				Return("answer", genUsage, nil).Once()
			evalUsage := providers.Usage{}
			if tt.err == nil {
				evalUsage = tt.wantEvalUsage
			}
			llm.On("Complete", mock.Anything, evalPrompt(), "gpt-4o-mini").
				Return(tt.reply, evalUsage, tt.err).Once()

			record, err := svc.Answer(context.Background(), "What is Docker?", "")
			require.NoError(t, err)
			assert.Equal(t, rag.RelevanceUnknown, record.Relevance)
			assert.Equal(t, tt.wantExplanation, record.RelevanceExplanation)
			assert.Equal(t, tt.wantEvalUsage, record.EvalUsage)
			assert.Equal(t, "answer", record.Answer)

			accountant := cost.NewAccountant(cost.DefaultTable(), zap.NewNop())
			want := accountant.EstimateCost("gpt-4o-mini", genUsage) + accountant.EstimateCost("gpt-4o-mini", tt.wantEvalUsage)
			assert.InDelta(t, want, record.OpenAICost, 1e-12)
		})
	}
}

func TestService_AnswerGenerationFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"provider error", providers.NewProviderError("openai", "server_error", "upstream failure", 500, nil), "answer generation failed"},
		{"timeout", fmt.Errorf("openai completion: %w", context.DeadlineExceeded), "answer generation timed out"},
		{"empty response", providers.ErrEmptyResponse, "answer generation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := new(MockCompleter)
			svc := newService(t, newKnowledgeRetriever(t), llm, zap.NewNop())

			llm.On("Complete", mock.Anything, answerPrompt(), "gpt-4o-mini").
				Return("", providers.Usage{}, tt.err).Once()

			record, err := svc.Answer(context.Background(), "What is Docker?", "")
			assert.Nil(t, record)
			require.Error(t, err)
			assert.True(t, services.IsExternalError(err))
			assert.Equal(t, tt.wantMsg, services.GetErrorMessage(err))
			assert.ErrorIs(t, err, tt.err)

			// evaluation must not run without an answer
			llm.AssertNumberOfCalls(t, "Complete", 1)
		})
	}
}

func TestService_AnswerSearchFailure(t *testing.T) {
	llm := new(MockCompleter)
	retriever := new(MockRetriever)
	svc := newService(t, retriever, llm, zap.NewNop())

	retriever.On("Retrieve", mock.Anything, "What is Docker?", rag.RetrievalOptions{}).
		Return(nil, context.Canceled)

	record, err := svc.Answer(context.Background(), "What is Docker?", "")
	assert.Nil(t, record)
	require.Error(t, err)
	assert.True(t, services.IsInternalError(err))
	assert.ErrorIs(t, err, context.Canceled)
	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_AnswerWithNoContext(t *testing.T) {
	llm := new(MockCompleter)
	retriever := new(MockRetriever)
	svc := newService(t, retriever, llm, zap.NewNop())

	retriever.On("Retrieve", mock.Anything, "anything", rag.RetrievalOptions{}).
		Return([]rag.Document{}, nil)

	var sentPrompt string
	llm.On("Complete", mock.Anything, answerPrompt(), "gpt-4o-mini").
		Run(func(args mock.Arguments) { sentPrompt = args.String(1) }).
		Return("I don't know.", providers.Usage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8}, nil).Once()
	llm.On("Complete", mock.Anything, evalPrompt(), "gpt-4o-mini").
		Return(`{"Relevance": "NON_RELEVANT", "Explanation": "No context."}`, providers.Usage{}, nil).Once()

	record, err := svc.Answer(context.Background(), "anything", "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sentPrompt, "CONTEXT:"))
	assert.Equal(t, rag.RelevanceNonRelevant, record.Relevance)
}

func TestService_AnswerGenerationTokensAddUp(t *testing.T) {
	llm := new(MockCompleter)
	svc := newService(t, newKnowledgeRetriever(t), llm, zap.NewNop())

	usage := providers.Usage{PromptTokens: 321, CompletionTokens: 123}.Normalized()
	llm.On("Complete", mock.Anything, answerPrompt(), "gpt-4o-mini").Return("answer", usage, nil).Once()
	llm.On("Complete", mock.Anything, evalPrompt(), "gpt-4o-mini").
		Return(`{"Relevance": "RELEVANT", "Explanation": "ok"}`, providers.Usage{}, nil).Once()

	record, err := svc.Answer(context.Background(), "What is Docker?", "")
	require.NoError(t, err)
	assert.Equal(t, record.Usage.PromptTokens+record.Usage.CompletionTokens, record.Usage.TotalTokens)
}

func TestService_DefaultModel(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, "", zap.NewNop())
	assert.Equal(t, DefaultModel, svc.DefaultModel())

	svc = NewService(nil, nil, nil, nil, "gpt-4o", zap.NewNop())
	assert.Equal(t, "gpt-4o", svc.DefaultModel())
}
