package handlers

import (
	"errors"
	"time"

	"mesgbairai/internal/dto"
	"mesgbairai/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Chat resolves a user message through the knowledge base, web search and
// model generation chain. Failures of the external services surface as a
// degraded message in the response body, never as a 5xx.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message invalide",
		})
	}

	answer, err := h.chatService.Chat(c.Context(), req.Username, req.Message)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Message invalide",
			})
		}
		h.logger.Error("Chat resolution failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Chat failed",
		})
	}

	return c.JSON(dto.ChatResponse{
		Response: answer.Text,
		Source:   string(answer.Source),
	})
}

// Teach stores a new question/answer pair in the knowledge base.
func (h *ChatHandler) Teach(c *fiber.Ctx) error {
	var req dto.TeachRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question et réponse requises",
		})
	}

	if err := h.chatService.Teach(req.Question, req.Answer); err != nil {
		if errors.Is(err, service.ErrEmptyTeach) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Question et réponse requises",
			})
		}
		h.logger.Error("Teach failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Teach failed",
		})
	}

	return c.JSON(dto.TeachResponse{Message: service.TeachConfirmation})
}

// History returns the shared conversation log in order.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	turns := h.chatService.History()

	items := make([]dto.TurnResponse, 0, len(turns))
	for _, turn := range turns {
		items = append(items, dto.TurnResponse{
			ID:        turn.ID.String(),
			Role:      string(turn.Role),
			Name:      turn.Name,
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(dto.HistoryResponse{
		Turns: len(items),
		Items: items,
	})
}
