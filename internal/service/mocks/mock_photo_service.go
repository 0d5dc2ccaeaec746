package mocks

import (
	"context"

	"photoapi/internal/model"
	"photoapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockPhotoService struct {
	mock.Mock
}

var _ service.PhotoService = (*MockPhotoService)(nil)

func (m *MockPhotoService) Upload(ctx context.Context, req service.UploadRequest) (*model.Photo, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Photo), args.Error(1)
}

func (m *MockPhotoService) List(ctx context.Context) ([]model.Photo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Photo), args.Error(1)
}

func (m *MockPhotoService) Get(ctx context.Context, id string) (*model.Photo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Photo), args.Error(1)
}

func (m *MockPhotoService) GetByObjectKey(ctx context.Context, key string) (*model.Photo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Photo), args.Error(1)
}

func (m *MockPhotoService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPhotoService) RenewIfExpired(ctx context.Context, p *model.Photo) (*model.Photo, bool, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Photo), args.Bool(1), args.Error(2)
}

func (m *MockPhotoService) RenewExpired(ctx context.Context) (service.RenewalReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.RenewalReport), args.Error(1)
}

func (m *MockPhotoService) ObjectStatus(ctx context.Context, id string) (*service.ObjectStatus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ObjectStatus), args.Error(1)
}
