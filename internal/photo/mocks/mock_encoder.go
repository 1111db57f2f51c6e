package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"cardapi/internal/model"
)

type MockEncoder struct {
	mock.Mock
}

func (m *MockEncoder) Encode(ctx context.Context, ref string) (*model.EncodedPhoto, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EncodedPhoto), args.Error(1)
}
