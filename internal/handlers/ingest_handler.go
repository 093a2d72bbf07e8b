package handlers

import (
	"github.com/gofiber/fiber/v2"

	"recordpipeline/internal/domain"
	logger "recordpipeline/internal/shared/log"
)

type IngestHandler struct {
	service *domain.IngestionService
}

func NewIngestHandler(service *domain.IngestionService) *IngestHandler {
	return &IngestHandler{service: service}
}

// HandleIngest is the HTTP adapter for POST /ingest. The body is the record
// itself; the response carries the generated object key.
func (h *IngestHandler) HandleIngest(c *fiber.Ctx) error {
	ctx := c.UserContext()
	payload := c.Body()
	logger.Infof(ctx, "Received ingest request, body size: %d bytes", len(payload))

	result, err := h.service.Ingest(ctx, payload)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
