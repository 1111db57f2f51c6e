package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardapi/internal/config"
)

func TestBuildPostgresDSN(t *testing.T) {
	base := config.DatabaseConfig{Host: "db", Port: "5432", User: "cards", Name: "contacts"}

	tests := []struct {
		name    string
		mutate  func(c *config.DatabaseConfig)
		want    string
		wantErr bool
	}{
		{
			name: "password and sslmode",
			mutate: func(c *config.DatabaseConfig) {
				c.Password = "s3cr:t"
				c.SSLMode = "disable"
			},
			want: "postgres://cards:s3cr%3At@db:5432/contacts?application_name=cardapi&sslmode=disable",
		},
		{
			name:   "no password no sslmode",
			mutate: func(c *config.DatabaseConfig) {},
			want:   "postgres://cards@db:5432/contacts?application_name=cardapi",
		},
		{name: "missing host", mutate: func(c *config.DatabaseConfig) { c.Host = "" }, wantErr: true},
		{name: "missing port", mutate: func(c *config.DatabaseConfig) { c.Port = "" }, wantErr: true},
		{name: "missing user", mutate: func(c *config.DatabaseConfig) { c.User = "" }, wantErr: true},
		{name: "missing name", mutate: func(c *config.DatabaseConfig) { c.Name = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)

			got, err := BuildPostgresDSN(c)
			if tt.wantErr {
				assert.ErrorIs(t, err, errIncompleteConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func stubOpen(t *testing.T, db *sql.DB, err error) {
	t.Helper()
	orig := sqlOpen
	sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
		return db, err
	}
	t.Cleanup(func() { sqlOpen = orig })
}

func TestNewPostgres(t *testing.T) {
	conf := config.DatabaseConfig{
		Host:               "localhost",
		Port:               "5432",
		User:               "user",
		Password:           "pass",
		Name:               "contacts",
		MaxOpenConns:       10,
		MaxIdleConns:       5,
		ConnMaxLifetimeSec: 300,
	}

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		stubOpen(t, db, nil)
		mock.ExpectPing()

		gotDB, err := NewPostgres(context.Background(), conf)

		require.NoError(t, err)
		assert.Equal(t, 10, gotDB.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open error", func(t *testing.T) {
		stubOpen(t, nil, errors.New("open error"))

		gotDB, err := NewPostgres(context.Background(), conf)

		assert.EqualError(t, err, "sql open: open error")
		assert.Nil(t, gotDB)
	})

	t.Run("ping error closes pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		mock.ExpectClose()

		gotDB, err := NewPostgres(context.Background(), conf)

		assert.EqualError(t, err, "db ping: ping failed")
		assert.Nil(t, gotDB)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("incomplete config", func(t *testing.T) {
		gotDB, err := NewPostgres(context.Background(), config.DatabaseConfig{})

		assert.ErrorIs(t, err, errIncompleteConfig)
		assert.Nil(t, gotDB)
	})
}
