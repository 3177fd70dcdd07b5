package repository

import (
	"encoding/json"
	"os"
	"sync"

	"mesgbairai/internal/models"

	"go.uber.org/zap"
)

// HistoryRepository holds the process-wide conversation log: an append-only
// ordered sequence of turns, rewritten wholesale to its backing file on Save.
// Ordering is the single source of truth for prompt replay.
type HistoryRepository struct {
	mu     sync.RWMutex
	turns  []models.ConversationTurn
	path   string
	logger *zap.Logger
}

func NewHistoryRepository(path string, logger *zap.Logger) *HistoryRepository {
	r := &HistoryRepository{
		path:   path,
		logger: logger,
	}
	r.load()
	return r
}

func (r *HistoryRepository) load() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("Failed to read history file, starting empty",
				zap.String("path", r.path), zap.Error(err))
		}
		return
	}

	var turns []models.ConversationTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		r.logger.Warn("Failed to parse history file, starting empty",
			zap.String("path", r.path), zap.Error(err))
		return
	}
	r.turns = turns
}

// Append adds a turn to the end of the log without persisting it.
func (r *HistoryRepository) Append(turn models.ConversationTurn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, turn)
}

// All returns a snapshot of the log in order.
func (r *HistoryRepository) All() []models.ConversationTurn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ConversationTurn, len(r.turns))
	copy(out, r.turns)
	return out
}

// Save rewrites the whole log to disk. A failure is logged and swallowed so a
// chat turn never fails on persistence.
func (r *HistoryRepository) Save() {
	r.mu.RLock()
	data, err := json.MarshalIndent(r.turns, "", "    ")
	r.mu.RUnlock()
	if err == nil {
		err = os.WriteFile(r.path, data, 0o644)
	}
	if err != nil {
		r.logger.Error("Failed to save conversation history",
			zap.String("path", r.path), zap.Error(err))
	}
}
