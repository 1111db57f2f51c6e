package download

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardapi/internal/apperr"
	"cardapi/internal/model"
)

func TestSave(t *testing.T) {
	dir := t.TempDir()
	f := &model.ContactFile{Filename: "maryam_habeeb.vcf", Content: []byte("BEGIN:VCARD\r\nEND:VCARD\r\n")}

	path, err := Save(dir, f)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "maryam_habeeb.vcf"), path)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f.Content, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSave_Overwrites(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(dir, &model.ContactFile{Filename: "a.vcf", Content: []byte("old")})
	require.NoError(t, err)

	path, err := Save(dir, &model.ContactFile{Filename: "a.vcf", Content: []byte("new")})

	require.NoError(t, err)
	got, _ := os.ReadFile(path)
	assert.Equal(t, "new", string(got))
}

func TestSave_StripsDirectories(t *testing.T) {
	dir := t.TempDir()

	path, err := Save(dir, &model.ContactFile{Filename: "../../etc/card.vcf", Content: []byte("x")})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "card.vcf"), path)
}

func TestSave_Failures(t *testing.T) {
	_, err := Save(t.TempDir(), nil)
	assert.ErrorIs(t, err, apperr.ErrDownloadTrigger)

	_, err = Save(filepath.Join(t.TempDir(), "missing"), &model.ContactFile{Filename: "a.vcf", Content: []byte("x")})
	assert.ErrorIs(t, err, apperr.ErrDownloadTrigger)
}
