package service

import (
	"context"
	"strings"
	"sync"

	"mesgbairai/internal/models"
	"mesgbairai/internal/repository"

	"go.uber.org/zap"
)

const (
	systemPersona = "Tu es un assistant en Côte d'Ivoire qui lutte contre la désinformation. Réponds de façon factuelle et claire."

	assistantName   = "Assistant"
	defaultUsername = "Utilisateur"

	// TeachConfirmation is the body returned after a successful teach.
	TeachConfirmation = "Nouvelle connaissance enregistrée ✅"
)

// ChatService resolves a user message through the fallback chain: knowledge
// base, then web search, then model generation with truncation repair. One
// mutex serializes whole chat turns; the conversation log is process-wide
// shared state with no per-user isolation.
type ChatService struct {
	knowledge *repository.KnowledgeRepository
	history   *repository.HistoryRepository
	search    *SearchService
	llm       *LLMService
	detector  *TruncationDetector
	logger    *zap.Logger

	mu sync.Mutex
}

func NewChatService(
	knowledge *repository.KnowledgeRepository,
	history *repository.HistoryRepository,
	search *SearchService,
	llm *LLMService,
	detector *TruncationDetector,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		knowledge: knowledge,
		history:   history,
		search:    search,
		llm:       llm,
		detector:  detector,
		logger:    logger,
	}
}

// Chat appends the user turn, resolves an answer, appends the assistant turn,
// and persists the log before returning. The chain never backtracks: each
// stage either produces the answer or hands off to the next.
func (s *ChatService) Chat(ctx context.Context, username, message string) (models.Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.Answer{}, ErrEmptyMessage
	}
	if username == "" {
		username = defaultUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.Append(models.NewTurn(models.RoleUser, username, message))

	answer := s.resolve(ctx, message)

	s.history.Append(models.NewTurn(models.RoleAssistant, assistantName, answer.Text))
	s.history.Save()

	return answer, nil
}

// Teach stores a question/answer pair in the knowledge base. Both fields are
// required after trimming.
func (s *ChatService) Teach(question, answer string) error {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return ErrEmptyTeach
	}

	s.knowledge.Teach(question, answer)
	s.logger.Info("Knowledge entry stored", zap.String("question", question))
	return nil
}

// History returns the conversation log in order.
func (s *ChatService) History() []models.ConversationTurn {
	return s.history.All()
}

func (s *ChatService) resolve(ctx context.Context, message string) models.Answer {
	// 1. Exact, case-folded knowledge base lookup.
	if cached, ok := s.knowledge.Lookup(message); ok {
		s.logger.Info("Answer resolved from knowledge base")
		return models.Answer{Text: cached, Source: models.SourceExact}
	}

	// 2. Web search. Any failure means "no usable result", not an abort.
	webAnswer, err := s.search.Search(ctx, message)
	if err != nil {
		s.logger.Warn("Web search failed, falling back to generation", zap.Error(err))
	} else if strings.TrimSpace(webAnswer) != "" {
		s.logger.Info("Answer resolved from web search")
		return models.Answer{Text: webAnswer, Source: models.SourceWeb}
	}

	// 3. Model generation over the full conversation history.
	prompt := s.buildPrompt()
	generated, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		// The degraded message is the answer. It is not a sentence the model
		// produced, so truncation repair must not touch it.
		return models.Answer{Text: FailureMessage(err), Source: models.SourceAI}
	}

	if s.detector.IsTruncated(generated) {
		s.logger.Info("Truncated final word detected, requesting targeted completion")
		if extra, ok := s.llm.CompleteLastWord(ctx, prompt, generated); ok {
			generated = Splice(generated, extra)
		} else {
			s.logger.Info("No completion found for the last word")
		}
	}

	return models.Answer{Text: generated, Source: models.SourceAI}
}

// buildPrompt serializes the persona instruction, the full conversation log
// (which already includes the current user turn) and the assistant cue.
func (s *ChatService) buildPrompt() string {
	turns := s.history.All()
	lines := make([]string, 0, len(turns)+2)
	lines = append(lines, systemPersona)
	for _, turn := range turns {
		lines = append(lines, turn.PromptLine())
	}
	lines = append(lines, "Assistant:")
	return strings.Join(lines, "\n")
}
