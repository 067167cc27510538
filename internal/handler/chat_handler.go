package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/metrics"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/room"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/service"
)

type ChatHandler struct {
	messaging *service.Messaging
	log       zerolog.Logger
}

func NewChatHandler(messaging *service.Messaging, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{messaging: messaging, log: log}
}

// GetHistory returns the full conversation with a peer, oldest first.
// GET /api/v1/chat/history?scope=camp42&peer_id=bob
// The room key is derived from the authenticated user and the peer; clients
// never supply it directly.
func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	selfID, _ := c.Locals("user_id").(string)
	peerID := c.Query("peer_id")
	scope := c.Query("scope")

	if peerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "peer_id is required"})
	}

	msgs, err := h.messaging.History(c.Context(), selfID, peerID, scope)
	if err != nil {
		if errors.Is(err, room.ErrEmptyParticipant) || errors.Is(err, room.ErrSameParticipant) {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		h.log.Error().Err(err).Str("user_id", selfID).Str("peer_id", peerID).Msg("history fetch failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to get history"})
	}

	if msgs == nil {
		msgs = []model.Message{}
	}
	metrics.HistoryQueries.Inc()

	return c.JSON(fiber.Map{"messages": msgs})
}
