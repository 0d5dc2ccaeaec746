package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"photoapi/internal/model"
	"photoapi/internal/repository"
)

// PhotoPostgres is a PostgreSQL implementation of repository.PhotoRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type PhotoPostgres struct {
	db *sql.DB
}

// NewPhotoPostgres creates a new PhotoPostgres repository.
func NewPhotoPostgres(db *sql.DB) *PhotoPostgres {
	return &PhotoPostgres{db: db}
}

var _ repository.PhotoRepository = (*PhotoPostgres)(nil)

const photoColumns = `id, object_key, display_name, description, content_type, size_bytes, access_url, access_url_expires_at, uploaded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(s rowScanner) (*model.Photo, error) {
	var p model.Photo
	if err := s.Scan(
		&p.ID,
		&p.ObjectKey,
		&p.DisplayName,
		&p.Description,
		&p.ContentType,
		&p.SizeBytes,
		&p.AccessURL,
		&p.AccessURLExpiresAt,
		&p.UploadedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Save upserts a photo row. A conflicting ID only refreshes the access URL columns.
func (r *PhotoPostgres) Save(ctx context.Context, p *model.Photo) error {
	const q = `
		INSERT INTO photos (` + photoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			access_url = EXCLUDED.access_url,
			access_url_expires_at = EXCLUDED.access_url_expires_at
	`
	_, err := r.db.ExecContext(ctx, q,
		p.ID,
		p.ObjectKey,
		p.DisplayName,
		p.Description,
		p.ContentType,
		p.SizeBytes,
		p.AccessURL,
		p.AccessURLExpiresAt,
		p.UploadedAt,
	)
	return err
}

// UpdateAccessURL refreshes the access URL columns of an existing row.
func (r *PhotoPostgres) UpdateAccessURL(ctx context.Context, id, accessURL string, expiresAt time.Time) error {
	const q = `UPDATE photos SET access_url = $2, access_url_expires_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, accessURL, expiresAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindByID fetches a single photo by its ID.
func (r *PhotoPostgres) FindByID(ctx context.Context, id string) (*model.Photo, error) {
	const q = `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	return scanPhoto(r.db.QueryRowContext(ctx, q, id))
}

// FindByObjectKey fetches the photo bound to an object key.
func (r *PhotoPostgres) FindByObjectKey(ctx context.Context, key string) (*model.Photo, error) {
	const q = `SELECT ` + photoColumns + ` FROM photos WHERE object_key = $1`
	return scanPhoto(r.db.QueryRowContext(ctx, q, key))
}

// FindAllOrderByUploadedAtDesc returns all photos, newest first.
func (r *PhotoPostgres) FindAllOrderByUploadedAtDesc(ctx context.Context) ([]model.Photo, error) {
	const q = `SELECT ` + photoColumns + ` FROM photos ORDER BY uploaded_at DESC, id DESC`
	return r.query(ctx, q)
}

// FindExpiresAtBefore returns photos whose URL expires at or before ts.
func (r *PhotoPostgres) FindExpiresAtBefore(ctx context.Context, ts time.Time) ([]model.Photo, error) {
	const q = `SELECT ` + photoColumns + ` FROM photos WHERE access_url_expires_at <= $1 ORDER BY access_url_expires_at`
	return r.query(ctx, q, ts)
}

// DeleteByID removes a photo by ID. It does not return an error if the row does not exist.
func (r *PhotoPostgres) DeleteByID(ctx context.Context, id string) error {
	const q = `DELETE FROM photos WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *PhotoPostgres) query(ctx context.Context, q string, args ...any) ([]model.Photo, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
