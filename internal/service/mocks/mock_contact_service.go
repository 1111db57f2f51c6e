package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"cardapi/internal/model"
	"cardapi/internal/service"
)

type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Create(ctx context.Context, in service.ContactInput) (*model.Contact, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *MockContactService) List(ctx context.Context, limit, offset int) (*service.ContactListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ContactListResult), args.Error(1)
}

func (m *MockContactService) Get(ctx context.Context, id string) (*model.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *MockContactService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContactService) UploadPhoto(ctx context.Context, id string, r io.Reader, filename, contentType string, size int64) (*model.Contact, error) {
	args := m.Called(ctx, id, r, filename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *MockContactService) PhotoURL(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockContactService) Export(ctx context.Context, id string) (*model.ContactFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContactFile), args.Error(1)
}

func (m *MockContactService) ExportDefault(ctx context.Context) (*model.ContactFile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContactFile), args.Error(1)
}
