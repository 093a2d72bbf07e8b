package handlers

import (
	"github.com/gofiber/fiber/v2"

	"recordpipeline/internal/config/di"
)

// RegisterRoutes wires all HTTP routes to their handlers.
func RegisterRoutes(app *fiber.App, container *di.Container) {
	ingest := NewIngestHandler(container.IngestionService)
	app.Post("/ingest", ingest.HandleIngest)

	records := NewRecordsHandler(container.InspectionService)
	app.Get("/records/:key", records.HandleRecordStatus)
	app.Get("/catalog/:id", records.HandleCatalogEntry)
}
