package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"photoapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// db may be nil when metadata lives in memory.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.PhotoService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", Liveness())

	app.Get("/photos", ListPhotos(svc))
	app.Post("/photos", UploadPhoto(svc))
	app.Get("/photos/:id", GetPhoto(svc))
	app.Delete("/photos/:id", DeletePhoto(svc))
	app.Get("/photos/:id/object", PhotoObjectStatus(svc))

	app.Get("/objects/*", GetPhotoByObjectKey(svc))
	app.Post("/admin/photos/renew", RenewExpiredPhotos(svc))
}
