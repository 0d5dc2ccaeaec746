package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"photoapi/internal/model"
	"photoapi/internal/repository"
)

// PhotoMemory is an in-process implementation of repository.PhotoRepository
// for local development and tests. Callers always receive copies.
type PhotoMemory struct {
	mu    sync.RWMutex
	items map[string]model.Photo
}

// NewPhotoMemory creates an empty PhotoMemory repository.
func NewPhotoMemory() *PhotoMemory {
	return &PhotoMemory{items: make(map[string]model.Photo)}
}

var _ repository.PhotoRepository = (*PhotoMemory)(nil)

// Save inserts p, or refreshes the access URL columns of an existing row with the same ID.
func (r *PhotoMemory) Save(ctx context.Context, p *model.Photo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.items[p.ID]; ok {
		cur.AccessURL = p.AccessURL
		cur.AccessURLExpiresAt = p.AccessURLExpiresAt
		r.items[p.ID] = cur
		return nil
	}
	for _, other := range r.items {
		if other.ObjectKey == p.ObjectKey {
			return fmt.Errorf("object key %q already bound to photo %s", p.ObjectKey, other.ID)
		}
	}
	r.items[p.ID] = *p
	return nil
}

func (r *PhotoMemory) UpdateAccessURL(ctx context.Context, id, accessURL string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	cur.AccessURL = accessURL
	cur.AccessURLExpiresAt = expiresAt
	r.items[id] = cur
	return nil
}

func (r *PhotoMemory) FindByID(ctx context.Context, id string) (*model.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *PhotoMemory) FindByObjectKey(ctx context.Context, key string) (*model.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.items {
		if p.ObjectKey == key {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *PhotoMemory) FindAllOrderByUploadedAtDesc(ctx context.Context) ([]model.Photo, error) {
	return r.filter(ctx, func(model.Photo) bool { return true })
}

// FindExpiresAtBefore includes rows expiring exactly at ts.
func (r *PhotoMemory) FindExpiresAtBefore(ctx context.Context, ts time.Time) ([]model.Photo, error) {
	return r.filter(ctx, func(p model.Photo) bool { return !p.AccessURLExpiresAt.After(ts) })
}

func (r *PhotoMemory) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}

func (r *PhotoMemory) filter(ctx context.Context, keep func(model.Photo) bool) ([]model.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	items := make([]model.Photo, 0, len(r.items))
	for _, p := range r.items {
		if keep(p) {
			items = append(items, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].UploadedAt.Equal(items[j].UploadedAt) {
			return items[i].UploadedAt.After(items[j].UploadedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}
