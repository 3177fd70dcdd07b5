package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mesgbairai/internal/models"
	"mesgbairai/internal/repository"
	"mesgbairai/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chatFixture struct {
	svc       *ChatService
	knowledge *repository.KnowledgeRepository
	history   *repository.HistoryRepository
	llm       *LLMService
	dir       string
}

func emptySearchHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`{}`))
}

func newChatFixture(t *testing.T, searchHandler, llmHandler http.HandlerFunc, trunc config.TruncationConfig) *chatFixture {
	t.Helper()

	if searchHandler == nil {
		searchHandler = emptySearchHandler
	}
	if llmHandler == nil {
		llmHandler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}

	searchServer := httptest.NewServer(searchHandler)
	t.Cleanup(searchServer.Close)
	llmServer := httptest.NewServer(llmHandler)
	t.Cleanup(llmServer.Close)

	dir := t.TempDir()
	nop := zap.NewNop()

	knowledge := repository.NewKnowledgeRepository(filepath.Join(dir, "knowledge_base.json"), nop)
	history := repository.NewHistoryRepository(filepath.Join(dir, "conversations.json"), nop)

	search := NewSearchService(&config.SerpAPIConfig{
		BaseURL: searchServer.URL,
		APIKey:  "serp-key",
		Locale:  "fr",
		Country: "fr",
		Timeout: 2 * time.Second,
	}, nop)

	llm := NewLLMService(&config.HuggingFaceConfig{
		ModelURL:               llmServer.URL,
		APIKey:                 "hf-key",
		MaxNewTokens:           1000,
		Temperature:            0.7,
		TopP:                   0.9,
		Timeout:                2 * time.Second,
		CompletionMaxNewTokens: 20,
		CompletionTemperature:  0.2,
		CompletionTimeout:      2 * time.Second,
	}, nop)

	detector := NewTruncationDetector(&trunc)
	svc := NewChatService(knowledge, history, search, llm, detector, nop)

	return &chatFixture{svc: svc, knowledge: knowledge, history: history, llm: llm, dir: dir}
}

func defaultTrunc() config.TruncationConfig {
	return config.TruncationConfig{MinWordLength: 2, MinTotalLength: 40}
}

func TestChatKnowledgeBaseHit(t *testing.T) {
	f := newChatFixture(t, nil, nil, defaultTrunc())

	require.NoError(t, f.svc.Teach("La terre est plate ?", "Non, la Terre est ronde."))

	answer, err := f.svc.Chat(context.Background(), "", "La Terre Est Plate ?")
	require.NoError(t, err)
	assert.Equal(t, "Non, la Terre est ronde.", answer.Text)
	assert.Equal(t, models.SourceExact, answer.Source)
}

func TestChatTeachOverwrite(t *testing.T) {
	f := newChatFixture(t, nil, nil, defaultTrunc())

	require.NoError(t, f.svc.Teach("La terre est plate ?", "Première réponse."))
	require.NoError(t, f.svc.Teach("LA TERRE EST PLATE ?", "Réponse corrigée."))

	answer, err := f.svc.Chat(context.Background(), "", "la terre est plate ?")
	require.NoError(t, err)
	assert.Equal(t, "Réponse corrigée.", answer.Text)
	assert.Equal(t, models.SourceExact, answer.Source)
}

func TestChatWebAnswer(t *testing.T) {
	search := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic_results": [{"snippet": "Yamoussoukro est la capitale politique de la Côte d'Ivoire."}]}`))
	}
	f := newChatFixture(t, search, nil, defaultTrunc())

	answer, err := f.svc.Chat(context.Background(), "", "capitale de la Côte d'Ivoire")
	require.NoError(t, err)
	assert.Equal(t, "Yamoussoukro est la capitale politique de la Côte d'Ivoire.", answer.Text)
	assert.Equal(t, models.SourceWeb, answer.Source)
}

func TestChatGenerationWithTruncationRepair(t *testing.T) {
	llm := func(w http.ResponseWriter, r *http.Request) {
		var req generationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Parameters.DoSample {
			w.Write([]byte(`[{"generated_text": "Abidjan est la plus grande vi"}]`))
			return
		}
		// Targeted last-word completion.
		w.Write([]byte(`[{"generated_text": "lle."}]`))
	}
	f := newChatFixture(t, nil, llm, config.TruncationConfig{MinWordLength: 2, MinTotalLength: 20})

	answer, err := f.svc.Chat(context.Background(), "", "parle-moi d'Abidjan")
	require.NoError(t, err)
	assert.Equal(t, "Abidjan est la plus grande ville.", answer.Text)
	assert.Equal(t, models.SourceAI, answer.Source)
}

func TestChatGenerationRepairFindsNothing(t *testing.T) {
	llm := func(w http.ResponseWriter, r *http.Request) {
		var req generationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Parameters.DoSample {
			w.Write([]byte(`[{"generated_text": "Abidjan est la plus grande vi"}]`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}
	f := newChatFixture(t, nil, llm, config.TruncationConfig{MinWordLength: 2, MinTotalLength: 20})

	answer, err := f.svc.Chat(context.Background(), "", "parle-moi d'Abidjan")
	require.NoError(t, err)
	// The partial text is accepted as-is when repair yields no completion.
	assert.Equal(t, "Abidjan est la plus grande vi", answer.Text)
	assert.Equal(t, models.SourceAI, answer.Source)
}

func TestChatGenerationTimeout(t *testing.T) {
	var llmCalls atomic.Int32
	llm := func(w http.ResponseWriter, r *http.Request) {
		llmCalls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}
	f := newChatFixture(t, nil, llm, defaultTrunc())
	f.llm.httpClient.Timeout = 20 * time.Millisecond

	answer, err := f.svc.Chat(context.Background(), "", "une question sans réponse")
	require.NoError(t, err)
	assert.Equal(t, MsgGenerationTimeout, answer.Text)
	assert.Equal(t, models.SourceAI, answer.Source)
	// Failure messages bypass truncation repair: only the primary call fired.
	assert.Equal(t, int32(1), llmCalls.Load())
}

func TestChatSearchFailureFallsBackToGeneration(t *testing.T) {
	search := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	llm := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"generated_text": "Réponse générée."}`))
	}
	f := newChatFixture(t, search, llm, defaultTrunc())

	answer, err := f.svc.Chat(context.Background(), "", "question obscure")
	require.NoError(t, err)
	assert.Equal(t, "Réponse générée.", answer.Text)
	assert.Equal(t, models.SourceAI, answer.Source)
}

func TestChatEmptyMessage(t *testing.T) {
	f := newChatFixture(t, nil, nil, defaultTrunc())

	_, err := f.svc.Chat(context.Background(), "", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, f.svc.History())
}

func TestTeachValidation(t *testing.T) {
	f := newChatFixture(t, nil, nil, defaultTrunc())

	assert.ErrorIs(t, f.svc.Teach("", "une réponse"), ErrEmptyTeach)
	assert.ErrorIs(t, f.svc.Teach("une question", "  "), ErrEmptyTeach)
	assert.Equal(t, 0, f.knowledge.Len())
}

func TestChatRecordsAndPersistsHistory(t *testing.T) {
	f := newChatFixture(t, nil, nil, defaultTrunc())
	require.NoError(t, f.svc.Teach("bonjour ?", "Bonjour !"))

	_, err := f.svc.Chat(context.Background(), "Awa", "bonjour ?")
	require.NoError(t, err)

	turns := f.svc.History()
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "Awa", turns[0].Name)
	assert.Equal(t, "bonjour ?", turns[0].Content)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Assistant", turns[1].Name)
	assert.Equal(t, "Bonjour !", turns[1].Content)

	// The log must be durably visible before the response returns.
	data, err := os.ReadFile(filepath.Join(f.dir, "conversations.json"))
	require.NoError(t, err)
	var persisted []models.ConversationTurn
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Len(t, persisted, 2)
}

func TestChatPromptIncludesPersonaAndHistory(t *testing.T) {
	promptCh := make(chan string, 1)
	llm := func(w http.ResponseWriter, r *http.Request) {
		var req generationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Parameters.DoSample {
			promptCh <- req.Inputs
		}
		w.Write([]byte(`{"generated_text": "D'accord."}`))
	}
	f := newChatFixture(t, nil, llm, defaultTrunc())

	_, err := f.svc.Chat(context.Background(), "Awa", "Quelle heure est-il ?")
	require.NoError(t, err)

	prompt := <-promptCh
	require.NotEmpty(t, prompt)
	lines := strings.Split(prompt, "\n")
	assert.Equal(t, "Tu es un assistant en Côte d'Ivoire qui lutte contre la désinformation. Réponds de façon factuelle et claire.", lines[0])
	assert.Contains(t, prompt, "Awa (User): Quelle heure est-il ?")
	assert.True(t, strings.HasSuffix(prompt, "Assistant:"))
}

func TestChatDefaultUsername(t *testing.T) {
	f := newChatFixture(t, nil, nil, defaultTrunc())
	require.NoError(t, f.svc.Teach("bonjour ?", "Bonjour !"))

	_, err := f.svc.Chat(context.Background(), "", "bonjour ?")
	require.NoError(t, err)

	turns := f.svc.History()
	require.NotEmpty(t, turns)
	assert.Equal(t, "Utilisateur", turns[0].Name)
}
