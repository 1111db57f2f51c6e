package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"cardapi/internal/model"
	"cardapi/internal/repository"
)

type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) Create(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *MockContactRepository) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *MockContactRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Contact], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Contact]), args.Error(1)
}

func (m *MockContactRepository) UpdatePhotoRef(ctx context.Context, id, ref string) error {
	args := m.Called(ctx, id, ref)
	return args.Error(0)
}

func (m *MockContactRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
