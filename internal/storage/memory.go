package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// memoryStorage keeps objects in process memory. It backs the "memory" driver for local
// development and the lifecycle tests; presigned URLs it issues are not dereferenceable.
type memoryStorage struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memoryObject
	signSeq uint64
	now     func() time.Time
}

type memoryObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

var _ Storage = (*memoryStorage)(nil)

// MemoryOption customizes the in-memory Storage.
type MemoryOption func(*memoryStorage)

// WithMemoryClock sets the time source for modification times and the expiry embedded
// in presigned URLs. Share it with the Gateway clock so both agree on expiresAt.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *memoryStorage) { m.now = now }
}

// NewMemory creates an empty in-memory Storage.
func NewMemory(bucket string, opts ...MemoryOption) Storage {
	if bucket == "" {
		bucket = "photos"
	}
	m := &memoryStorage{
		bucket:  bucket,
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *memoryStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, err
	}
	if opt.Size >= 0 && int64(len(data)) != opt.Size {
		return ObjectInfo{}, fmt.Errorf("short write: read %d of %d bytes", len(data), opt.Size)
	}

	obj := memoryObject{
		data:        data,
		contentType: opt.ContentType,
		metadata:    opt.Metadata,
		modified:    m.now(),
	}

	m.mu.Lock()
	m.objects[key] = obj
	m.mu.Unlock()

	return obj.info(key), nil
}

func (m *memoryStorage) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return obj.info(key), nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// PresignGet returns a memory:// URL. A per-call sequence number keeps every issued URL distinct.
func (m *memoryStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.signSeq++
	seq := m.signSeq
	m.mu.Unlock()

	expires := m.now().Add(expiry).Unix()
	sum := md5.Sum([]byte(fmt.Sprintf("%s/%s/%d/%d", m.bucket, key, expires, seq)))

	q := url.Values{}
	q.Set("expires", fmt.Sprintf("%d", expires))
	q.Set("signature", hex.EncodeToString(sum[:]))
	u := url.URL{Scheme: "memory", Host: m.bucket, Path: "/" + key, RawQuery: q.Encode()}
	return u.String(), nil
}

func (o memoryObject) info(key string) ObjectInfo {
	sum := md5.Sum(o.data)
	return ObjectInfo{
		Key:          key,
		Size:         int64(len(o.data)),
		ETag:         hex.EncodeToString(sum[:]),
		ContentType:  o.contentType,
		LastModified: o.modified,
		Metadata:     o.metadata,
	}
}
