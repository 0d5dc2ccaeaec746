package mocks

import (
	"context"
	"time"

	"photoapi/internal/model"
	"photoapi/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockPhotoRepository struct {
	mock.Mock
}

var _ repository.PhotoRepository = (*MockPhotoRepository)(nil)

func (m *MockPhotoRepository) Save(ctx context.Context, p *model.Photo) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPhotoRepository) UpdateAccessURL(ctx context.Context, id, accessURL string, expiresAt time.Time) error {
	args := m.Called(ctx, id, accessURL, expiresAt)
	return args.Error(0)
}

func (m *MockPhotoRepository) FindByID(ctx context.Context, id string) (*model.Photo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Photo), args.Error(1)
}

func (m *MockPhotoRepository) FindByObjectKey(ctx context.Context, key string) (*model.Photo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Photo), args.Error(1)
}

func (m *MockPhotoRepository) FindAllOrderByUploadedAtDesc(ctx context.Context) ([]model.Photo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Photo), args.Error(1)
}

func (m *MockPhotoRepository) FindExpiresAtBefore(ctx context.Context, ts time.Time) ([]model.Photo, error) {
	args := m.Called(ctx, ts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Photo), args.Error(1)
}

func (m *MockPhotoRepository) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
