package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/service"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/store"
)

type HealthHandler struct {
	store store.MessageStore
	hub   *service.Hub
}

func NewHealthHandler(st store.MessageStore, hub *service.Hub) *HealthHandler {
	return &HealthHandler{store: st, hub: hub}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.Status(503).JSON(fiber.Map{"status": "not ready", "error": "store unreachable"})
	}

	return c.JSON(fiber.Map{"status": "ready", "online": h.hub.OnlineCount()})
}
