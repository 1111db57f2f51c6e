package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardapi/internal/model"
	"cardapi/internal/repository"
)

var columns = []string{"id", "full_name", "given_name", "family_name", "title", "phone", "email", "work_url", "profile_urls", "photo_ref", "created_at"}

const urlsJSON = `[{"label":"Instagram","url":"https://www.instagram.com/habeeb.maryam"}]`

func sample(now time.Time) *model.Contact {
	return &model.Contact{
		ID:         "test-uuid",
		FullName:   "Maryam Habeeb",
		GivenName:  "Maryam",
		FamilyName: "Habeeb",
		Title:      "Real Estate Agent",
		Phone:      "2486172270",
		Email:      "Maryam@iconrex.com",
		WorkURL:    "https://www.zillow.com/profile/maryam690",
		ProfileURLs: []model.ProfileURL{
			{Label: "Instagram", URL: "https://www.instagram.com/habeeb.maryam"},
		},
		PhotoRef:  "s3://photos/a.jpeg",
		CreatedAt: now,
	}
}

func row(c *model.Contact) *sqlmock.Rows {
	return sqlmock.NewRows(columns).AddRow(c.ID, c.FullName, c.GivenName, c.FamilyName, c.Title,
		c.Phone, c.Email, c.WorkURL, []byte(urlsJSON), c.PhotoRef, c.CreatedAt)
}

func TestContactPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContactPostgres(db)
	c := sample(time.Now().UTC())

	mock.ExpectQuery("INSERT INTO contacts").
		WithArgs(c.ID, c.FullName, c.GivenName, c.FamilyName, c.Title, c.Phone, c.Email, c.WorkURL, urlsJSON, c.PhotoRef, c.CreatedAt).
		WillReturnRows(row(c))

	got, err := repo.Create(context.Background(), c)

	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactPostgres_Create_NilURLs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := sample(time.Now().UTC())
	c.ProfileURLs = nil

	mock.ExpectQuery("INSERT INTO contacts").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "[]", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("insert failed"))

	_, err = NewContactPostgres(db).Create(context.Background(), c)

	assert.EqualError(t, err, "insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContactPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		c := sample(time.Now().UTC())
		mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\$1").
			WithArgs(c.ID).
			WillReturnRows(row(c))

		got, err := repo.FindByID(ctx, c.ID)

		require.NoError(t, err)
		assert.Equal(t, c.ProfileURLs, got.ProfileURLs)
		assert.Equal(t, "Maryam Habeeb", got.FullName)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\$1").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.FindByID(ctx, "missing")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("corrupt profile urls", func(t *testing.T) {
		c := sample(time.Now().UTC())
		mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\$1").
			WithArgs(c.ID).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(c.ID, c.FullName, "", "", "", "", "", "", []byte("{"), "", c.CreatedAt))

		_, err := repo.FindByID(ctx, c.ID)

		assert.ErrorContains(t, err, "decode profile_urls")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContactPostgres(db)
	c := sample(time.Now().UTC())

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM contacts").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT (.+) FROM contacts ORDER BY").
		WithArgs(1, 2).
		WillReturnRows(row(c))

	got, err := repo.List(context.Background(), repository.PageQuery{Limit: 1, Offset: 2})

	require.NoError(t, err)
	assert.Equal(t, 3, got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, c.ID, got.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactPostgres_UpdatePhotoRef(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContactPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE contacts SET photo_ref").
		WithArgs("id-1", "s3://photos/new.jpeg").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UpdatePhotoRef(ctx, "id-1", "s3://photos/new.jpeg"))

	mock.ExpectExec("UPDATE contacts SET photo_ref").
		WithArgs("missing", "s3://photos/new.jpeg").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdatePhotoRef(ctx, "missing", "s3://photos/new.jpeg"), sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM contacts WHERE id = \\$1").
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, NewContactPostgres(db).Delete(context.Background(), "id-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
