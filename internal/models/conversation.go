package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is a single entry of the shared conversation log. The
// role/name/content keys are the persisted wire format; id and created_at are
// metadata for tracing.
type ConversationTurn struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func NewTurn(role Role, name, content string) ConversationTurn {
	return ConversationTurn{
		ID:        uuid.New(),
		Role:      role,
		Name:      name,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// PromptLine renders a turn the way the generation prompt expects it:
// "Name (Role): content" with the role capitalized.
func (t ConversationTurn) PromptLine() string {
	role := string(t.Role)
	if role != "" {
		role = strings.ToUpper(role[:1]) + role[1:]
	}
	return fmt.Sprintf("%s (%s): %s", t.Name, role, t.Content)
}
