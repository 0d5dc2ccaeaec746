package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"photoapi/internal/logging"
	"photoapi/internal/metrics"
	"photoapi/internal/model"
	"photoapi/internal/repository"
	"photoapi/internal/validation"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrNotFound      = errors.New("photo not found")
	ErrUploadFailed  = errors.New("upload failed")
	ErrDeleteFailed  = errors.New("delete failed")
	ErrRenewalFailed = errors.New("access url renewal failed")
)

const componentName = "photo_service"

// DefaultKeyPrefix is the object key namespace used when none is configured.
const DefaultKeyPrefix = "photos"

// defaultExtension is appended to keys of uploads whose file name has no extension.
const defaultExtension = ".jpg"

// Object user metadata written on upload. It ties an orphaned object back to the
// record that was meant to reference it.
const (
	MetaPhotoID     = "photo-id"
	MetaDisplayName = "display-name"
)

var tracer = otel.Tracer("photoapi/internal/service")

// ObjectGateway is the object store contract the lifecycle relies on.
// *storage.Gateway implements it.
type ObjectGateway interface {
	Store(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]string) error
	IssueSignedURL(ctx context.Context, key string, validity time.Duration) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	DefaultValidity() time.Duration
}

// UploadRequest carries one candidate upload.
type UploadRequest struct {
	Payload     []byte
	ContentType string
	// Filename is the client's file name. Only its extension reaches the object key.
	Filename    string
	Description string
	// DeclaredSize is the size the client announced, or a negative value when unknown.
	DeclaredSize int64
}

// RenewalReport summarizes one batch renewal pass.
type RenewalReport struct {
	Scanned int `json:"scanned"`
	Renewed int `json:"renewed"`
	Failed  int `json:"failed"`
}

// ObjectStatus pairs a record with the advisory existence of its object.
type ObjectStatus struct {
	Photo        model.Photo `json:"photo"`
	ObjectExists bool        `json:"object_exists"`
}

// PhotoService defines the lifecycle of uploaded photos: a binary object in the object store
// bound to a metadata record, with a signed access URL renewed whenever a read observes it expired.
type PhotoService interface {
	// Upload validates the payload, stores the object, issues a signed URL and saves the record.
	// Validation failures are returned verbatim; store and persistence failures wrap ErrUploadFailed.
	Upload(ctx context.Context, req UploadRequest) (*model.Photo, error)

	// List returns all photos newest first, renewing expired URLs in place.
	List(ctx context.Context) ([]model.Photo, error)

	// Get returns a single photo by its ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Photo, error)

	// GetByObjectKey returns the photo bound to an object key, or ErrNotFound.
	GetByObjectKey(ctx context.Context, key string) (*model.Photo, error)

	// Delete removes the object, then the record. Unknown IDs are a no-op.
	Delete(ctx context.Context, id string) error

	// RenewIfExpired re-issues the access URL of p when it expires at or before now
	// and persists the result. renewed reports whether anything changed.
	// A record deleted concurrently yields ErrNotFound and is not re-created.
	RenewIfExpired(ctx context.Context, p *model.Photo) (photo *model.Photo, renewed bool, err error)

	// RenewExpired renews every expired record, logging and skipping individual failures.
	RenewExpired(ctx context.Context) (RenewalReport, error)

	// ObjectStatus reports whether the object behind a record is present in the store.
	// An expired URL is renewed when the object exists and cleared otherwise.
	ObjectStatus(ctx context.Context, id string) (*ObjectStatus, error)
}

// Option customizes the photo service.
type Option func(*photoService)

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(log zerolog.Logger) Option {
	return func(s *photoService) { s.log = logging.Component(log, componentName) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *photoService) { s.metrics = m }
}

// WithClock overrides the time source for upload timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *photoService) { s.now = now }
}

// WithKeyPrefix sets the object key namespace. An empty prefix stores keys at the bucket root.
func WithKeyPrefix(prefix string) Option {
	return func(s *photoService) { s.keyPrefix = strings.Trim(prefix, "/") }
}

// photoService is a concrete implementation of PhotoService.
type photoService struct {
	validator *validation.Validator
	gateway   ObjectGateway
	repo      repository.PhotoRepository
	log       zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	keyPrefix string
}

// NewPhotoService constructs a new PhotoService.
func NewPhotoService(validator *validation.Validator, gateway ObjectGateway, repo repository.PhotoRepository, opts ...Option) PhotoService {
	s := &photoService{
		validator: validator,
		gateway:   gateway,
		repo:      repo,
		log:       zerolog.Nop(),
		now:       time.Now,
		keyPrefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *photoService) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		child := logging.Component(*l, componentName)
		return &child
	}
	return &s.log
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *photoService) objectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || ext == "." {
		ext = defaultExtension
	}
	name := uuid.NewString() + ext
	if s.keyPrefix == "" {
		return name
	}
	return path.Join(s.keyPrefix, name)
}

func (s *photoService) Upload(ctx context.Context, req UploadRequest) (_ *model.Photo, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.Upload")
	defer func() { finishSpan(span, err) }()
	log := s.logger(ctx)

	if err := s.validator.Validate(req.Payload, req.ContentType, req.DeclaredSize); err != nil {
		s.metrics.RecordUpload(metrics.StatusRejected, 0)
		log.Info().Err(err).Str("display_name", req.Filename).Msg("upload rejected")
		return nil, err
	}

	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	id := uuid.NewString()
	key := s.objectKey(req.Filename)
	displayName := strings.TrimSpace(req.Filename)
	if displayName == "" {
		displayName = path.Base(key)
	}
	span.SetAttributes(attribute.String("photo.object_key", key), attribute.Int("photo.size_bytes", len(req.Payload)))

	meta := map[string]string{
		MetaPhotoID:     id,
		MetaDisplayName: url.QueryEscape(displayName),
	}
	if err := s.gateway.Store(ctx, key, req.Payload, contentType, meta); err != nil {
		s.metrics.RecordUpload(metrics.StatusFailed, 0)
		log.Error().Err(err).Str("object_key", key).Msg("object store write failed")
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	signed, expiresAt, err := s.gateway.IssueSignedURL(ctx, key, s.gateway.DefaultValidity())
	if err != nil {
		s.orphaned(log, key, err, "signed url issuance failed after store")
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	p := &model.Photo{
		ID:                 id,
		ObjectKey:          key,
		DisplayName:        displayName,
		Description:        req.Description,
		ContentType:        contentType,
		SizeBytes:          int64(len(req.Payload)),
		AccessURL:          signed,
		AccessURLExpiresAt: expiresAt,
		UploadedAt:         s.now().UTC(),
	}
	if err := s.repo.Save(ctx, p); err != nil {
		s.orphaned(log, key, err, "metadata save failed after store")
		return nil, fmt.Errorf("%w: save metadata: %w", ErrUploadFailed, err)
	}

	s.metrics.RecordUpload(metrics.StatusSuccess, p.SizeBytes)
	log.Info().
		Str("photo_id", p.ID).
		Str("object_key", key).
		Int64("size_bytes", p.SizeBytes).
		Time("access_url_expires_at", expiresAt).
		Msg("photo uploaded")
	return p, nil
}

// orphaned records an object that exists in the store without a metadata record.
// No compensating delete is attempted; the logged key is what cleanup works from.
func (s *photoService) orphaned(log *zerolog.Logger, key string, cause error, msg string) {
	s.metrics.RecordUpload(metrics.StatusFailed, 0)
	s.metrics.RecordOrphan()
	log.Error().Err(cause).Str("object_key", key).Bool("orphaned", true).Msg(msg)
}

func (s *photoService) List(ctx context.Context) (_ []model.Photo, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.List")
	defer func() { finishSpan(span, err) }()

	items, err := s.repo.FindAllOrderByUploadedAtDesc(ctx)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	out := items[:0]
	for i := range items {
		renewed, _, err := s.RenewIfExpired(ctx, &items[i])
		switch {
		case errors.Is(err, ErrNotFound):
			continue
		case err != nil:
			return nil, err
		}
		out = append(out, *renewed)
	}
	span.SetAttributes(attribute.Int("photo.count", len(out)))
	return out, nil
}

func (s *photoService) Get(ctx context.Context, id string) (_ *model.Photo, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.Get", trace.WithAttributes(attribute.String("photo.id", id)))
	defer func() { finishSpan(span, err) }()

	if id == "" {
		return nil, ErrIDRequired
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find photo %s: %w", id, err)
	}
	p, _, err = s.RenewIfExpired(ctx, p)
	return p, err
}

func (s *photoService) GetByObjectKey(ctx context.Context, key string) (_ *model.Photo, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.GetByObjectKey", trace.WithAttributes(attribute.String("photo.object_key", key)))
	defer func() { finishSpan(span, err) }()

	if key == "" {
		return nil, ErrIDRequired
	}
	p, err := s.repo.FindByObjectKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find photo by key %s: %w", key, err)
	}
	p, _, err = s.RenewIfExpired(ctx, p)
	return p, err
}

// Delete removes the object first. If that fails the record is kept,
// since it is the only reference left to retry the cleanup from.
func (s *photoService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.Delete", trace.WithAttributes(attribute.String("photo.id", id)))
	defer func() { finishSpan(span, err) }()
	log := s.logger(ctx)

	if id == "" {
		return ErrIDRequired
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Debug().Str("photo_id", id).Msg("delete of unknown photo ignored")
			return nil
		}
		return fmt.Errorf("find photo %s: %w", id, err)
	}

	if err := s.gateway.Delete(ctx, p.ObjectKey); err != nil {
		s.metrics.RecordDelete(metrics.StatusFailed)
		log.Error().Err(err).Str("photo_id", id).Str("object_key", p.ObjectKey).Msg("object delete failed, record kept")
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		s.metrics.RecordDelete(metrics.StatusFailed)
		log.Error().Err(err).Str("photo_id", id).Str("object_key", p.ObjectKey).Msg("record delete failed after object removal")
		return fmt.Errorf("%w: delete metadata %s: %w", ErrDeleteFailed, id, err)
	}

	s.metrics.RecordDelete(metrics.StatusSuccess)
	log.Info().Str("photo_id", id).Str("object_key", p.ObjectKey).Msg("photo deleted")
	return nil
}

func (s *photoService) RenewIfExpired(ctx context.Context, p *model.Photo) (*model.Photo, bool, error) {
	if p == nil {
		return nil, false, ErrNotFound
	}
	if !p.URLExpired(s.now()) {
		return p, false, nil
	}

	ctx, span := tracer.Start(ctx, "PhotoService.RenewIfExpired", trace.WithAttributes(attribute.String("photo.id", p.ID)))
	var err error
	defer func() { finishSpan(span, err) }()
	log := s.logger(ctx)

	signed, expiresAt, err := s.gateway.IssueSignedURL(ctx, p.ObjectKey, s.gateway.DefaultValidity())
	if err != nil {
		s.metrics.RecordRenewal(metrics.StatusFailed)
		log.Warn().Err(err).Str("photo_id", p.ID).Str("object_key", p.ObjectKey).Msg("access url renewal failed")
		err = fmt.Errorf("%w: photo %s: %w", ErrRenewalFailed, p.ID, err)
		return nil, false, err
	}

	if err = s.repo.UpdateAccessURL(ctx, p.ID, signed, expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Debug().Str("photo_id", p.ID).Msg("photo deleted during renewal")
			err = fmt.Errorf("%w: photo %s deleted during renewal", ErrNotFound, p.ID)
			return nil, false, err
		}
		s.metrics.RecordRenewal(metrics.StatusFailed)
		log.Warn().Err(err).Str("photo_id", p.ID).Msg("renewed access url not persisted")
		err = fmt.Errorf("%w: photo %s: %w", ErrRenewalFailed, p.ID, err)
		return nil, false, err
	}

	updated := *p
	updated.AccessURL = signed
	updated.AccessURLExpiresAt = expiresAt

	s.metrics.RecordRenewal(metrics.StatusSuccess)
	log.Debug().
		Str("photo_id", p.ID).
		Time("previous_expires_at", p.AccessURLExpiresAt).
		Time("access_url_expires_at", expiresAt).
		Msg("access url renewed")
	return &updated, true, nil
}

// RenewExpired returns an error only when the scan fails or ctx is done mid-batch;
// in the latter case the report covers the records processed so far.
func (s *photoService) RenewExpired(ctx context.Context) (_ RenewalReport, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.RenewExpired")
	defer func() { finishSpan(span, err) }()
	log := s.logger(ctx)

	items, err := s.repo.FindExpiresAtBefore(ctx, s.now())
	if err != nil {
		return RenewalReport{}, fmt.Errorf("scan expired photos: %w", err)
	}

	report := RenewalReport{Scanned: len(items)}
	for i := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		_, renewed, rerr := s.RenewIfExpired(ctx, &items[i])
		switch {
		case errors.Is(rerr, ErrNotFound):
			// Deleted since the scan; nothing left to renew.
		case rerr != nil:
			report.Failed++
			log.Warn().Err(rerr).Str("photo_id", items[i].ID).Msg("skipping photo in batch renewal")
		case renewed:
			report.Renewed++
		}
	}

	span.SetAttributes(
		attribute.Int("renewal.scanned", report.Scanned),
		attribute.Int("renewal.renewed", report.Renewed),
		attribute.Int("renewal.failed", report.Failed),
	)
	log.Info().
		Int("scanned", report.Scanned).
		Int("renewed", report.Renewed).
		Int("failed", report.Failed).
		Msg("batch renewal finished")
	return report, nil
}

func (s *photoService) ObjectStatus(ctx context.Context, id string) (_ *ObjectStatus, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.ObjectStatus", trace.WithAttributes(attribute.String("photo.id", id)))
	defer func() { finishSpan(span, err) }()

	if id == "" {
		return nil, ErrIDRequired
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find photo %s: %w", id, err)
	}
	st := &ObjectStatus{Photo: *p, ObjectExists: s.gateway.Exists(ctx, p.ObjectKey)}
	if !p.URLExpired(s.now()) {
		return st, nil
	}
	if st.ObjectExists {
		if renewed, _, rerr := s.RenewIfExpired(ctx, p); rerr == nil {
			st.Photo = *renewed
			return st, nil
		}
	}
	// A missing object cannot be re-signed; the stale URL is withheld instead.
	st.Photo.AccessURL = ""
	return st, nil
}
