package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"cardapi/internal/apperr"
	"cardapi/internal/config"
	"cardapi/internal/jsonlog"
	"cardapi/internal/model"
	"cardapi/internal/photo"
	photoMocks "cardapi/internal/photo/mocks"
)

func maryam() model.Contact {
	return ContactFromConfig(config.Load().Contact)
}

func cardLines(f *model.ContactFile) []string {
	return strings.Split(strings.TrimSuffix(string(f.Content), "\r\n"), "\r\n")
}

func writeHeadshot(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 3), G: 90, B: uint8(y * 5), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "Headshot.jpeg"), buf.Bytes(), 0o600))
	return dir
}

func newMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestExporter_SampleContactWithPhoto(t *testing.T) {
	dir := writeHeadshot(t, 40, 30)
	enc := photo.NewEncoder(&photo.FileSource{Root: dir}, photo.Options{})
	m := newMetrics(t)
	exp := NewExporter(enc, ExportOptions{}, m, nil)

	file, err := exp.Export(context.Background(), maryam())
	require.NoError(t, err)

	assert.Equal(t, "maryam_habeeb.vcf", file.Filename)
	assert.Equal(t, "text/vcard", file.ContentType)
	assert.Empty(t, file.PhotoOmitted)

	lines := cardLines(file)
	require.Len(t, lines, 13)
	assert.Equal(t, "BEGIN:VCARD", lines[0])
	assert.Equal(t, "FN:Maryam Habeeb", lines[2])
	assert.Equal(t, "TEL;TYPE=CELL:2486172270", lines[5])
	assert.Equal(t, "EMAIL:Maryam@iconrex.com", lines[6])
	assert.Equal(t, "END:VCARD", lines[12])

	prefix := "PHOTO;ENCODING=b;TYPE=JPEG:"
	require.True(t, strings.HasPrefix(lines[11], prefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(lines[11], prefix))
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.exports.WithLabelValues(OutcomeOK)))
}

func TestExporter_FieldOrder(t *testing.T) {
	enc := new(photoMocks.MockEncoder)
	enc.On("Encode", mock.Anything, "assets/Headshot.jpeg").
		Return(&model.EncodedPhoto{Base64: "QUJD", Type: "JPEG"}, nil)

	file, err := NewExporter(enc, ExportOptions{}, nil, nil).Export(context.Background(), maryam())
	require.NoError(t, err)

	want := []string{"BEGIN:VCARD", "VERSION:", "FN:", "N:", "TITLE:", "TEL;", "EMAIL:", "URL;TYPE=WORK:",
		"URL;TYPE=Instagram:", "URL;TYPE=Facebook:", "URL;TYPE=TikTok:", "PHOTO;", "END:VCARD"}
	lines := cardLines(file)
	require.Len(t, lines, len(want))
	for i, prefix := range want {
		assert.True(t, strings.HasPrefix(lines[i], prefix), "line %d: %q", i, lines[i])
	}
	enc.AssertExpectations(t)
}

func TestExporter_OmitPolicy(t *testing.T) {
	var logs bytes.Buffer
	enc := new(photoMocks.MockEncoder)
	enc.On("Encode", mock.Anything, mock.Anything).
		Return(nil, apperr.Wrap(context.DeadlineExceeded, apperr.CodeAssetLoad, "open photo"))
	m := newMetrics(t)
	exp := NewExporter(enc, ExportOptions{PhotoPolicy: config.PhotoPolicyOmit}, m, jsonlog.New(&logs, time.UTC))

	file, err := exp.Export(context.Background(), maryam())
	require.NoError(t, err)

	assert.NotContains(t, string(file.Content), "PHOTO")
	assert.Nil(t, file.Photo)
	assert.Contains(t, file.PhotoOmitted, "deadline exceeded")
	assert.Len(t, cardLines(file), 12)
	assert.Contains(t, logs.String(), `"msg":"vcard_photo_omitted"`)
	assert.Contains(t, logs.String(), `"error_code":"asset_load"`)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.exports.WithLabelValues(OutcomePhotoOmitted)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.photoFetch))
}

func TestExporter_FailPolicy(t *testing.T) {
	enc := new(photoMocks.MockEncoder)
	enc.On("Encode", mock.Anything, mock.Anything).
		Return(nil, apperr.New(apperr.CodeEncoding, "encode photo as jpeg"))
	m := newMetrics(t)
	exp := NewExporter(enc, ExportOptions{PhotoPolicy: config.PhotoPolicyFail}, m, nil)

	file, err := exp.Export(context.Background(), maryam())

	assert.Nil(t, file)
	assert.ErrorIs(t, err, apperr.ErrEncoding)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.exports.WithLabelValues(OutcomeFailed)))
}

func TestExporter_UnreachablePhotoTerminates(t *testing.T) {
	enc := photo.NewEncoder(&photo.Resolver{HTTP: photo.NewHTTPSource(photo.HTTPOptions{})}, photo.Options{Timeout: 200 * time.Millisecond})
	c := maryam()
	// Reserved TEST-NET-1 address: connections hang or fail, never succeed.
	c.PhotoRef = "http://192.0.2.1/assets/Headshot.jpeg"

	start := time.Now()
	file, err := NewExporter(enc, ExportOptions{}, nil, nil).Export(context.Background(), c)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.NotContains(t, string(file.Content), "PHOTO")
	assert.NotEmpty(t, file.PhotoOmitted)
	assert.True(t, strings.HasSuffix(string(file.Content), "END:VCARD\r\n"))
}

func TestExporter_NoPhotoRef(t *testing.T) {
	enc := new(photoMocks.MockEncoder)
	c := maryam()
	c.PhotoRef = ""

	file, err := NewExporter(enc, ExportOptions{}, nil, nil).Export(context.Background(), c)

	require.NoError(t, err)
	assert.NotContains(t, string(file.Content), "PHOTO")
	assert.Empty(t, file.PhotoOmitted)
	enc.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)
}

func TestExporter_FilenameOverride(t *testing.T) {
	c := maryam()
	c.PhotoRef = ""

	file, err := NewExporter(nil, ExportOptions{Filename: "agent_card"}, nil, nil).Export(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "agent_card.vcf", file.Filename)

	file, err = NewExporter(nil, ExportOptions{Filename: "card.VCF"}, nil, nil).Export(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "card.VCF", file.Filename)
}

func TestExporter_MissingName(t *testing.T) {
	_, err := NewExporter(nil, ExportOptions{}, nil, nil).Export(context.Background(), model.Contact{FullName: "  "})

	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestExporter_ConcurrentExportsAreIndependent(t *testing.T) {
	dir := writeHeadshot(t, 24, 24)
	enc := photo.NewEncoder(&photo.FileSource{Root: dir}, photo.Options{})
	exp := NewExporter(enc, ExportOptions{}, newMetrics(t), nil)

	const n = 8
	files := make([]*model.ContactFile, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			f, err := exp.Export(ctx, maryam())
			files[i] = f
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i := 1; i < n; i++ {
		assert.Equal(t, files[0].Content, files[i].Content)
		assert.NotSame(t, files[0], files[i])
	}
	assert.Equal(t, 1, strings.Count(string(files[0].Content), "BEGIN:VCARD"))
	assert.Contains(t, string(files[0].Content), "PHOTO;ENCODING=b;TYPE=JPEG:")
}
