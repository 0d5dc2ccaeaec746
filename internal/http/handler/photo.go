package handler

import (
	"io"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"photoapi/internal/model"
	"photoapi/internal/service"
)

// DefaultDescription replaces a blank upload description.
const DefaultDescription = "No description provided"

type photoListResponse struct {
	Items []model.Photo `json:"data"`
	Total int           `json:"total"`
}

func validID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// ListPhotos godoc
// @Summary List photos
// @Description Returns all photos, newest first. Expired access URLs are renewed before the response is written.
// @Tags photos
// @Produce json
// @Success 200 {object} photoListResponse
// @Failure 503 {object} errorPayload
// @Router /photos [get]
func ListPhotos(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(photoListResponse{Items: items, Total: len(items)})
	}
}

// UploadPhoto godoc
// @Summary Upload a photo
// @Description Multipart upload. The file must be a JPEG, PNG, GIF or WebP image within the size limit.
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "image file"
// @Param description formData string false "free text description"
// @Success 201 {object} model.Photo
// @Failure 400 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /photos [post]
func UploadPhoto(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		payload, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}

		description := strings.TrimSpace(c.FormValue("description"))
		if description == "" {
			description = DefaultDescription
		}

		p, err := svc.Upload(c.UserContext(), service.UploadRequest{
			Payload:      payload,
			ContentType:  fh.Header.Get("Content-Type"),
			Filename:     fh.Filename,
			Description:  description,
			DeclaredSize: fh.Size,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// GetPhoto godoc
// @Summary Get a photo
// @Tags photos
// @Produce json
// @Param id path string true "photo id (UUID)"
// @Success 200 {object} model.Photo
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /photos/{id} [get]
func GetPhoto(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		p, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

// DeletePhoto godoc
// @Summary Delete a photo
// @Description Removes the stored object, then the record. Unknown ids succeed.
// @Tags photos
// @Param id path string true "photo id (UUID)"
// @Success 204
// @Failure 400 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /photos/{id} [delete]
func DeletePhoto(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PhotoObjectStatus godoc
// @Summary Object diagnostics
// @Description Reports whether the stored object behind a photo is present. The check is advisory.
// @Tags diagnostics
// @Produce json
// @Param id path string true "photo id (UUID)"
// @Success 200 {object} service.ObjectStatus
// @Failure 404 {object} errorPayload
// @Router /photos/{id}/object [get]
func PhotoObjectStatus(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		st, err := svc.ObjectStatus(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(st)
	}
}

// GetPhotoByObjectKey godoc
// @Summary Find the photo bound to an object key
// @Description Used to triage objects found in the bucket. 404 means the object has no record.
// @Tags diagnostics
// @Produce json
// @Param key path string true "object key"
// @Success 200 {object} model.Photo
// @Failure 404 {object} errorPayload
// @Router /objects/{key} [get]
func GetPhotoByObjectKey(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := url.PathUnescape(c.Params("*"))
		if err != nil || key == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KEY", "invalid object key")
		}
		p, err := svc.GetByObjectKey(c.UserContext(), key)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

// RenewExpiredPhotos godoc
// @Summary Renew expired access URLs
// @Description Batch renewal for external schedulers. Per-photo failures are counted, not returned.
// @Tags admin
// @Produce json
// @Success 200 {object} service.RenewalReport
// @Failure 500 {object} errorPayload
// @Router /admin/photos/renew [post]
func RenewExpiredPhotos(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := svc.RenewExpired(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(report)
	}
}
