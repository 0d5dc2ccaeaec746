package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"photoapi/internal/logging"
	"photoapi/internal/metrics"
)

// DefaultURLValidity is the signed URL lifetime used when none is configured.
const DefaultURLValidity = 48 * time.Hour

// Gateway wraps a Storage with the lifecycle's contract: atomic stores, signed URLs with an
// explicit expiry, idempotent deletes and an advisory existence check.
// Every failure it returns wraps ErrStoreUnavailable.
type Gateway struct {
	store    Storage
	validity time.Duration
	now      func() time.Time
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithClock overrides the time source used to compute expiries.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// WithLogger sets the logger used for advisory failures.
func WithLogger(log zerolog.Logger) GatewayOption {
	return func(g *Gateway) { g.log = logging.Component(log, "object_gateway") }
}

// WithMetrics records every store call.
func WithMetrics(m *metrics.Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway creates a Gateway. A non-positive validity selects DefaultURLValidity.
func NewGateway(store Storage, validity time.Duration, opts ...GatewayOption) *Gateway {
	if validity <= 0 {
		validity = DefaultURLValidity
	}
	g := &Gateway{
		store:    store,
		validity: validity,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// DefaultValidity returns the configured signed URL lifetime.
func (g *Gateway) DefaultValidity() time.Duration {
	return g.validity
}

// Store writes payload under key in one request, with metadata as object user metadata.
// A store that reports a different size than was sent gets the object removed, so a failed
// Store never leaves a truncated object behind.
func (g *Gateway) Store(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]string) error {
	start := time.Now()
	info, err := g.store.Put(ctx, key, bytes.NewReader(payload), PutObjectOptions{
		Size:        int64(len(payload)),
		ContentType: contentType,
		Metadata:    metadata,
	})
	if err == nil && info.Size != int64(len(payload)) {
		err = fmt.Errorf("stored %d of %d bytes", info.Size, len(payload))
		if delErr := g.store.Delete(ctx, key); delErr != nil {
			g.log.Error().Err(delErr).Str("object_key", key).Msg("failed to remove truncated object")
		}
	}
	g.metrics.RecordStoreOp("put", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrStoreUnavailable, key, err)
	}
	return nil
}

// IssueSignedURL verifies the object exists and presigns a GET valid for validity
// (the default when validity <= 0). expiresAt is now + validity.
func (g *Gateway) IssueSignedURL(ctx context.Context, key string, validity time.Duration) (string, time.Time, error) {
	if validity <= 0 {
		validity = g.validity
	}

	start := time.Now()
	_, err := g.store.Stat(ctx, key)
	g.metrics.RecordStoreOp("head", err, time.Since(start))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: head %s: %w", ErrStoreUnavailable, key, err)
	}

	expiresAt := g.now().Add(validity)
	start = time.Now()
	u, err := g.store.PresignGet(ctx, key, validity)
	g.metrics.RecordStoreOp("presign", err, time.Since(start))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: presign %s: %w", ErrStoreUnavailable, key, err)
	}
	return u, expiresAt, nil
}

// Delete removes the object. A missing key is not an error.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := g.store.Delete(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		err = nil
	}
	g.metrics.RecordStoreOp("delete", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrStoreUnavailable, key, err)
	}
	return nil
}

// Exists reports whether the object is confirmed present. It is advisory:
// any error is logged and reported as false.
func (g *Gateway) Exists(ctx context.Context, key string) bool {
	start := time.Now()
	_, err := g.store.Stat(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		g.metrics.RecordStoreOp("head", nil, time.Since(start))
		return false
	}
	g.metrics.RecordStoreOp("head", err, time.Since(start))
	if err != nil {
		g.log.Warn().Err(err).Str("object_key", key).Msg("object existence not confirmed")
		return false
	}
	return true
}
