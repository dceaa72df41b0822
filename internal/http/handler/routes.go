package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// Services bundles the use cases the HTTP layer depends on.
type Services struct {
	Documents service.DocumentService
	Lifecycle service.LifecycleService
	Owners    service.OwnerService
}

// AppConfig returns the Fiber settings the API is served with. maxUploadSize bounds
// every request body, so it must leave room for the multipart envelope around a file.
func AppConfig(maxUploadSize int) fiber.Config {
	return fiber.Config{
		ErrorHandler:          ErrorHandler(),
		BodyLimit:             maxUploadSize,
		DisableStartupMessage: true,
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// auth must verify the caller and store the principal (see middleware.Auth).
func RegisterRoutes(app *fiber.App, db *sql.DB, svc Services, auth fiber.Handler) {
	app.Get("/health", HealthCheck(db))
	// Backward-compatible simple liveness probe
	app.Get("/healthz", LivenessProbe())

	docs := app.Group("/documents", auth)
	docs.Get("/", ListDocuments(svc.Documents))
	docs.Post("/", UploadDocument(svc.Documents))
	docs.Get("/:id", GetDocument(svc.Documents))
	docs.Get("/:id/download", DownloadDocument(svc.Documents))
	docs.Get("/:id/preview", PreviewDocument(svc.Documents))
	docs.Put("/:id/rename", RenameDocument(svc.Documents))
	docs.Put("/:id/description", SetDescription(svc.Documents))
	docs.Put("/:id/content", ReplaceContent(svc.Documents))
	docs.Delete("/:id", SoftDeleteDocument(svc.Lifecycle))
	docs.Post("/:id/restore", RestoreDocument(svc.Lifecycle))
	docs.Delete("/:id/permanent", PurgeDocument(svc.Lifecycle))

	admin := app.Group("/admin", auth, middleware.RequireAdmin())
	admin.Get("/owners", ListOwners(svc.Owners))
	admin.Put("/owners/:id/promote", PromoteOwner(svc.Owners))
	admin.Put("/owners/:id/demote", DemoteOwner(svc.Owners))
	admin.Put("/owners/:id/soft_delete", SoftDeleteOwner(svc.Lifecycle))
	admin.Put("/owners/:id/restore", RestoreOwner(svc.Lifecycle))
	admin.Delete("/owners/:id/permanent", PurgeOwner(svc.Lifecycle))
	admin.Get("/documents", ListAllDocuments(svc.Documents))
	admin.Put("/documents/:id/soft_delete", SoftDeleteDocument(svc.Lifecycle))
	admin.Put("/documents/:id/restore", RestoreDocument(svc.Lifecycle))
	admin.Delete("/documents/:id/permanent", PurgeDocument(svc.Lifecycle))
}
