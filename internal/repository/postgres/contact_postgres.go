package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cardapi/internal/model"
	"cardapi/internal/repository"
)

// ContactPostgres is a PostgreSQL implementation of repository.ContactRepository.
// Profile URLs are kept as an ordered JSONB array on the contact row.
type ContactPostgres struct {
	db *sql.DB
}

// NewContactPostgres creates a new ContactPostgres repository.
func NewContactPostgres(db *sql.DB) *ContactPostgres {
	return &ContactPostgres{db: db}
}

var _ repository.ContactRepository = (*ContactPostgres)(nil)

const contactColumns = `id, full_name, given_name, family_name, title, phone, email, work_url, profile_urls, photo_ref, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(s scanner) (*model.Contact, error) {
	var (
		c    model.Contact
		urls []byte
	)
	if err := s.Scan(
		&c.ID,
		&c.FullName,
		&c.GivenName,
		&c.FamilyName,
		&c.Title,
		&c.Phone,
		&c.Email,
		&c.WorkURL,
		&urls,
		&c.PhotoRef,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	c.ProfileURLs = make([]model.ProfileURL, 0)
	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &c.ProfileURLs); err != nil {
			return nil, fmt.Errorf("decode profile_urls: %w", err)
		}
	}
	return &c, nil
}

// Create inserts a contact row and returns the stored record.
func (r *ContactPostgres) Create(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	urls := c.ProfileURLs
	if urls == nil {
		urls = []model.ProfileURL{}
	}
	rawURLs, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("encode profile_urls: %w", err)
	}

	const q = `
		INSERT INTO contacts (id, full_name, given_name, family_name, title, phone, email, work_url, profile_urls, photo_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + contactColumns
	row := r.db.QueryRowContext(ctx, q,
		c.ID,
		c.FullName,
		c.GivenName,
		c.FamilyName,
		c.Title,
		c.Phone,
		c.Email,
		c.WorkURL,
		string(rawURLs),
		c.PhotoRef,
		c.CreatedAt,
	)
	return scanContact(row)
}

// FindByID fetches a single contact by its ID.
func (r *ContactPostgres) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	const q = `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	return scanContact(r.db.QueryRowContext(ctx, q, id))
}

// List returns contacts using LIMIT/OFFSET pagination and a total count.
func (r *ContactPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Contact], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + contactColumns + `
		FROM contacts
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Contact]{Items: items, Total: total}, nil
}

// UpdatePhotoRef sets photo_ref for a contact.
func (r *ContactPostgres) UpdatePhotoRef(ctx context.Context, id, ref string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE contacts SET photo_ref = $2 WHERE id = $1`, id, ref)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a contact by ID. It does not return an error if the row does not exist.
func (r *ContactPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	return err
}
