package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"recordpipeline/internal/domain"
	"recordpipeline/internal/ports"
	appError "recordpipeline/internal/shared/error"
	logger "recordpipeline/internal/shared/log"
)

// RecordsHandler serves read-only views of pipeline state.
type RecordsHandler struct {
	service *domain.InspectionService
}

func NewRecordsHandler(service *domain.InspectionService) *RecordsHandler {
	return &RecordsHandler{service: service}
}

// HandleRecordStatus reports which locations hold an object key.
func (h *RecordsHandler) HandleRecordStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key := c.Params("key")

	status, err := h.service.Inspect(ctx, key)
	if err != nil {
		logger.Errorf(ctx, err, "Failed to inspect %s", key)
		return appError.ErrStoreLookupFail
	}
	return c.JSON(status)
}

func (h *RecordsHandler) HandleCatalogEntry(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")

	entry, err := h.service.CatalogEntry(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrCatalogEntryNotFound) {
			return appError.ErrRecordNotFound
		}
		logger.Errorf(ctx, err, "Failed to load catalog entry %s", id)
		return appError.ErrCatalogFailed
	}
	return c.JSON(entry)
}
