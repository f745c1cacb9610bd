package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wbl65535/Data-Engineering-1/store"
)

type CheckHandler struct {
	index store.Index
}

func NewCheckHandler(index store.Index) *CheckHandler {
	return &CheckHandler{index: index}
}

func (h *CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	stats, err := h.index.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":          "healthy",
		"document_count":  stats.DocumentCount,
		"collection_name": stats.CollectionName,
	})
}
