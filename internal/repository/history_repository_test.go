package repository

import (
	"os"
	"path/filepath"
	"testing"

	"mesgbairai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHistoryRepository(t *testing.T) {
	t.Run("append preserves order", func(t *testing.T) {
		repo := NewHistoryRepository(filepath.Join(t.TempDir(), "conv.json"), zap.NewNop())
		repo.Append(models.NewTurn(models.RoleUser, "Awa", "bonjour"))
		repo.Append(models.NewTurn(models.RoleAssistant, "Assistant", "Bonjour !"))
		repo.Append(models.NewTurn(models.RoleUser, "Awa", "merci"))

		turns := repo.All()
		require.Len(t, turns, 3)
		assert.Equal(t, "bonjour", turns[0].Content)
		assert.Equal(t, "Bonjour !", turns[1].Content)
		assert.Equal(t, "merci", turns[2].Content)
	})

	t.Run("save and reload round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conv.json")
		repo := NewHistoryRepository(path, zap.NewNop())
		repo.Append(models.NewTurn(models.RoleUser, "Awa", "bonjour"))
		repo.Append(models.NewTurn(models.RoleAssistant, "Assistant", "Bonjour !"))
		repo.Save()

		reloaded := NewHistoryRepository(path, zap.NewNop())
		turns := reloaded.All()
		require.Len(t, turns, 2)
		assert.Equal(t, models.RoleUser, turns[0].Role)
		assert.Equal(t, "Awa", turns[0].Name)
		assert.Equal(t, models.RoleAssistant, turns[1].Role)
	})

	t.Run("missing file starts empty", func(t *testing.T) {
		repo := NewHistoryRepository(filepath.Join(t.TempDir(), "absent.json"), zap.NewNop())
		assert.Empty(t, repo.All())
	})

	t.Run("corrupt file degrades to an empty log", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conv.json")
		require.NoError(t, os.WriteFile(path, []byte("[{broken"), 0o644))

		repo := NewHistoryRepository(path, zap.NewNop())
		assert.Empty(t, repo.All())
	})

	t.Run("All returns a snapshot", func(t *testing.T) {
		repo := NewHistoryRepository(filepath.Join(t.TempDir(), "conv.json"), zap.NewNop())
		repo.Append(models.NewTurn(models.RoleUser, "Awa", "bonjour"))

		snapshot := repo.All()
		repo.Append(models.NewTurn(models.RoleAssistant, "Assistant", "Bonjour !"))
		assert.Len(t, snapshot, 1)
	})
}
