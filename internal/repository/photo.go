package repository

import (
	"context"
	"errors"
	"time"

	"photoapi/internal/model"
)

// ErrNotFound is returned by finders when no row matches.
var ErrNotFound = errors.New("photo not found")

// PhotoRepository defines data access for photo metadata.
// No business logic here, strictly persistence operations.
type PhotoRepository interface {
	// Save inserts the record, or updates it when the ID already exists.
	// On update only the access URL and its expiry are written; every other column is immutable.
	Save(ctx context.Context, p *model.Photo) error

	// UpdateAccessURL writes a renewed access URL onto an existing record.
	// It returns ErrNotFound when the record is gone, and never re-creates it.
	UpdateAccessURL(ctx context.Context, id, accessURL string, expiresAt time.Time) error

	// FindByID returns a photo by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Photo, error)

	// FindByObjectKey returns the photo bound to an object key, or ErrNotFound.
	FindByObjectKey(ctx context.Context, key string) (*model.Photo, error)

	// FindAllOrderByUploadedAtDesc returns every photo, newest first.
	FindAllOrderByUploadedAtDesc(ctx context.Context) ([]model.Photo, error)

	// FindExpiresAtBefore returns photos whose access URL expires at or before ts.
	FindExpiresAtBefore(ctx context.Context, ts time.Time) ([]model.Photo, error)

	// DeleteByID removes a photo. Deleting a missing ID is not an error.
	DeleteByID(ctx context.Context, id string) error
}
