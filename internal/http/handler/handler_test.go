package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"photoapi/internal/model"
	"photoapi/internal/service"
	serviceMocks "photoapi/internal/service/mocks"
	"photoapi/internal/storage"
	"photoapi/internal/validation"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, r io.Reader) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

func samplePhoto() *model.Photo {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Photo{
		ID:                 uuid.New().String(),
		ObjectKey:          "photos/" + uuid.New().String() + ".jpg",
		DisplayName:        "cat.jpg",
		Description:        "test",
		ContentType:        "image/jpeg",
		SizeBytes:          10,
		AccessURL:          "https://bucket.example/photos/cat.jpg?X-Amz-Signature=abc",
		AccessURLExpiresAt: now.Add(48 * time.Hour),
		UploadedAt:         now,
	}
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("memory metadata store", func(t *testing.T) {
		memApp := fiber.New()
		memApp.Get("/health", HealthCheck(nil))

		resp, _ := memApp.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestLiveness(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", Liveness())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListPhotos(t *testing.T) {
	mockSvc := new(serviceMocks.MockPhotoService)
	app := fiber.New()
	app.Get("/photos", ListPhotos(mockSvc))

	t.Run("success", func(t *testing.T) {
		p := samplePhoto()
		mockSvc.On("List", mock.Anything).Return([]model.Photo{*p}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/photos", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Data  []map[string]any `json:"data"`
			Total int              `json:"total"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		require.Len(t, result.Data, 1)
		assert.Equal(t, 1, result.Total)
		assert.Equal(t, p.ID, result.Data[0]["id"])
		assert.Equal(t, p.AccessURL, result.Data[0]["access_url"])
		assert.Contains(t, result.Data[0], "url_expired")
		mockSvc.AssertExpectations(t)
	})

	t.Run("renewal failure", func(t *testing.T) {
		err := fmt.Errorf("%w: photo x: %w", service.ErrRenewalFailed, storage.ErrStoreUnavailable)
		mockSvc.On("List", mock.Anything).Return(nil, err).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/photos", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "STORE_UNAVAILABLE", decodeError(t, resp.Body).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return(nil, errors.New("service error")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/photos", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

// multipartUpload builds a multipart body with an optional file part and description field.
func multipartUpload(t *testing.T, filename, contentType string, data []byte, description *string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if description != nil {
		require.NoError(t, writer.WriteField("description", *description))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadPhoto(t *testing.T) {
	mockSvc := new(serviceMocks.MockPhotoService)
	app := fiber.New()
	app.Post("/photos", UploadPhoto(mockSvc))

	jpegBytes := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0, 0, 0}
	desc := func(s string) *string { return &s }

	t.Run("success", func(t *testing.T) {
		expected := samplePhoto()
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(req service.UploadRequest) bool {
			return req.Filename == "cat.jpg" &&
				req.ContentType == "image/jpeg" &&
				req.Description == "test" &&
				req.DeclaredSize == int64(len(jpegBytes)) &&
				bytes.Equal(req.Payload, jpegBytes)
		})).Return(expected, nil).Once()

		body, ct := multipartUpload(t, "cat.jpg", "image/jpeg", jpegBytes, desc("test"))
		req := httptest.NewRequest(http.MethodPost, "/photos", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Photo
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expected.ID, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("blank description gets default", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(req service.UploadRequest) bool {
			return req.Filename == "blank.jpg" && req.Description == DefaultDescription
		})).Return(samplePhoto(), nil).Once()

		body, ct := multipartUpload(t, "blank.jpg", "image/jpeg", jpegBytes, desc("   "))
		req := httptest.NewRequest(http.MethodPost, "/photos", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing file", func(t *testing.T) {
		body, ct := multipartUpload(t, "", "", nil, desc("no file"))
		req := httptest.NewRequest(http.MethodPost, "/photos", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("validation error message passed through", func(t *testing.T) {
		verr := &validation.ValidationError{Field: "content_type", Message: `invalid file type "text/plain": allowed types are image/jpeg`}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(req service.UploadRequest) bool {
			return req.Filename == "notes.txt"
		})).Return(nil, verr).Once()

		body, ct := multipartUpload(t, "notes.txt", "text/plain", []byte("hello"), nil)
		req := httptest.NewRequest(http.MethodPost, "/photos", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp.Body)
		assert.Equal(t, "VALIDATION_FAILED", res.Error.Code)
		assert.Equal(t, verr.Message, res.Error.Message)
		mockSvc.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		err := fmt.Errorf("%w: %w", service.ErrUploadFailed, storage.ErrStoreUnavailable)
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(req service.UploadRequest) bool {
			return req.Filename == "down.jpg"
		})).Return(nil, err).Once()

		body, ct := multipartUpload(t, "down.jpg", "image/jpeg", jpegBytes, nil)
		req := httptest.NewRequest(http.MethodPost, "/photos", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		res := decodeError(t, resp.Body)
		assert.Equal(t, "UPLOAD_FAILED", res.Error.Code)
		assert.Equal(t, "upload failed, please try again", res.Error.Message)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetPhoto(t *testing.T) {
	mockSvc := new(serviceMocks.MockPhotoService)
	app := fiber.New()
	app.Get("/photos/:id", GetPhoto(mockSvc))

	t.Run("success", func(t *testing.T) {
		p := samplePhoto()
		mockSvc.On("Get", mock.Anything, p.ID).Return(p, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/photos/"+p.ID, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Photo
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, p.ID, result.ID)
		assert.Equal(t, p.AccessURLExpiresAt, result.AccessURLExpiresAt)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/photos/"+id, nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/photos/invalid-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/photos/"+id, nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeletePhoto(t *testing.T) {
	mockSvc := new(serviceMocks.MockPhotoService)
	app := fiber.New()
	app.Delete("/photos/:id", DeletePhoto(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/photos/"+id, nil))

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/photos/nope", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("object delete failed", func(t *testing.T) {
		id := uuid.New().String()
		err := fmt.Errorf("%w: %w", service.ErrDeleteFailed, storage.ErrStoreUnavailable)
		mockSvc.On("Delete", mock.Anything, id).Return(err).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/photos/"+id, nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "DELETE_FAILED", decodeError(t, resp.Body).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestPhotoObjectStatus(t *testing.T) {
	mockSvc := new(serviceMocks.MockPhotoService)
	app := fiber.New()
	app.Get("/photos/:id/object", PhotoObjectStatus(mockSvc))

	p := samplePhoto()
	mockSvc.On("ObjectStatus", mock.Anything, p.ID).Return(&service.ObjectStatus{Photo: *p, ObjectExists: false}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/photos/"+p.ID+"/object", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["object_exists"])
	mockSvc.AssertExpectations(t)
}

func TestGetPhotoByObjectKey(t *testing.T) {
	mockSvc := new(serviceMocks.MockPhotoService)
	app := fiber.New()
	app.Get("/objects/*", GetPhotoByObjectKey(mockSvc))

	t.Run("found", func(t *testing.T) {
		p := samplePhoto()
		mockSvc.On("GetByObjectKey", mock.Anything, p.ObjectKey).Return(p, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/objects/"+p.ObjectKey, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("orphan object", func(t *testing.T) {
		mockSvc.On("GetByObjectKey", mock.Anything, "photos/orphan.jpg").Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/objects/photos/orphan.jpg", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRenewExpiredPhotos(t *testing.T) {
	mockSvc := new(serviceMocks.MockPhotoService)
	app := fiber.New()
	app.Post("/admin/photos/renew", RenewExpiredPhotos(mockSvc))

	t.Run("report", func(t *testing.T) {
		mockSvc.On("RenewExpired", mock.Anything).Return(service.RenewalReport{Scanned: 3, Renewed: 2, Failed: 1}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/admin/photos/renew", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var report service.RenewalReport
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		assert.Equal(t, service.RenewalReport{Scanned: 3, Renewed: 2, Failed: 1}, report)
		mockSvc.AssertExpectations(t)
	})

	t.Run("scan failure", func(t *testing.T) {
		mockSvc.On("RenewExpired", mock.Anything).Return(service.RenewalReport{}, errors.New("scan expired photos: db fail")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/admin/photos/renew", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockPhotoService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("photos wired", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return([]model.Photo{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/photos", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}
