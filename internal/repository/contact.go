package repository

import (
	"context"

	"cardapi/internal/model"
)

// ContactRepository defines data access for contacts. No business logic here.
type ContactRepository interface {
	// Create inserts a new contact and returns the stored row.
	Create(ctx context.Context, c *model.Contact) (*model.Contact, error)

	// FindByID returns a contact by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Contact, error)

	// List returns a page of contacts and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Contact], error)

	// UpdatePhotoRef replaces the photo reference of a contact.
	// It returns sql.ErrNoRows when the contact does not exist.
	UpdatePhotoRef(ctx context.Context, id, ref string) error

	// Delete removes a contact by ID. It returns nil if the row did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
