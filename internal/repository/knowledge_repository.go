package repository

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// KnowledgeRepository is the exact-match question→answer cache. Keys are
// case-folded before every lookup and insertion. The whole map is rewritten to
// its backing file after each Teach; the in-memory map stays authoritative even
// when the write fails.
type KnowledgeRepository struct {
	mu      sync.RWMutex
	entries map[string]string
	path    string
	logger  *zap.Logger
}

func NewKnowledgeRepository(path string, logger *zap.Logger) *KnowledgeRepository {
	r := &KnowledgeRepository{
		entries: make(map[string]string),
		path:    path,
		logger:  logger,
	}
	r.load()
	return r
}

func (r *KnowledgeRepository) load() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("Failed to read knowledge file, starting empty",
				zap.String("path", r.path), zap.Error(err))
		}
		return
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		r.logger.Warn("Failed to parse knowledge file, starting empty",
			zap.String("path", r.path), zap.Error(err))
		return
	}
	r.entries = entries
}

// Lookup returns the taught answer for a question, matching case-insensitively.
func (r *KnowledgeRepository) Lookup(question string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	answer, ok := r.entries[strings.ToLower(strings.TrimSpace(question))]
	return answer, ok
}

// Teach stores an answer under the case-folded question, overwriting any
// previous entry, and persists the whole store synchronously.
func (r *KnowledgeRepository) Teach(question, answer string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(question))
	r.entries[key] = answer

	if err := r.save(); err != nil {
		// In-memory state remains authoritative; persistence failure must not
		// fail the caller's request.
		r.logger.Error("Failed to save knowledge base",
			zap.String("path", r.path), zap.Error(err))
	}
}

// Len reports the number of stored entries.
func (r *KnowledgeRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *KnowledgeRepository) save() error {
	data, err := json.MarshalIndent(r.entries, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}
