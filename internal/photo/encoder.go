// Package photo loads a contact's headshot and re-encodes it as a base64 JPEG
// payload suitable for a vCard PHOTO field.
package photo

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cardapi/internal/apperr"
	"cardapi/internal/model"
)

const (
	DefaultTimeout  = 5 * time.Second
	DefaultMaxBytes = 10 << 20
	DefaultQuality  = 92
	// DefaultMaxPixels bounds width*height before any pixel is decoded.
	DefaultMaxPixels = 25_000_000
)

var tracer = otel.Tracer("cardapi/photo")

// Options tune an Encoder. Zero values fall back to the defaults above.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	Quality  int
	// MaxPixels caps the declared width*height of the image.
	MaxPixels int64
}

// Encoder turns photo references into EncodedPhoto values. It keeps no state
// between calls and is safe for concurrent use.
type Encoder struct {
	src      Source
	timeout  time.Duration
	maxBytes  int64
	maxPixels int64
	quality   int
}

// NewEncoder creates an Encoder reading through src.
func NewEncoder(src Source, opt Options) *Encoder {
	e := &Encoder{src: src, timeout: opt.Timeout, maxBytes: opt.MaxBytes, maxPixels: opt.MaxPixels, quality: opt.Quality}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.maxBytes <= 0 {
		e.maxBytes = DefaultMaxBytes
	}
	if e.maxPixels <= 0 {
		e.maxPixels = DefaultMaxPixels
	}
	if e.quality < 1 || e.quality > 100 {
		e.quality = DefaultQuality
	}
	return e
}

// Encode loads ref, decodes it as JPEG or PNG, redraws it on an RGBA surface of
// its natural size and re-encodes that surface as JPEG. The whole call is bounded
// by the encoder timeout.
//
// The image header is checked against the pixel limit before decoding.
// Load, size and decode failures (timeouts included) carry apperr.CodeAssetLoad;
// a failed JPEG encode carries apperr.CodeEncoding.
func (e *Encoder) Encode(ctx context.Context, ref string) (*model.EncodedPhoto, error) {
	ctx, span := tracer.Start(ctx, "photo.Encode")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	img, format, err := e.load(ctx, ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("photo.source_format", format))

	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: e.quality}); err != nil {
		err = apperr.Wrap(err, apperr.CodeEncoding, "encode photo as jpeg")
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return nil, err
	}

	out := &model.EncodedPhoto{
		Base64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Type:   "JPEG",
		Width:  b.Dx(),
		Height: b.Dy(),
	}
	span.SetAttributes(
		attribute.Int("photo.width", out.Width),
		attribute.Int("photo.height", out.Height),
		attribute.Int("photo.jpeg_bytes", buf.Len()),
	)
	return out, nil
}

func (e *Encoder) load(ctx context.Context, ref string) (image.Image, string, error) {
	if ref == "" {
		return nil, "", apperr.New(apperr.CodeAssetLoad, "photo reference is empty")
	}

	rc, err := e.src.Open(ctx, ref)
	if err != nil {
		return nil, "", apperr.Wrap(err, apperr.CodeAssetLoad, "open photo")
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, e.maxBytes+1))
	if err != nil {
		return nil, "", apperr.Wrap(err, apperr.CodeAssetLoad, "read photo")
	}
	if int64(len(data)) > e.maxBytes {
		return nil, "", apperr.New(apperr.CodeAssetLoad, fmt.Sprintf("photo exceeds %d bytes", e.maxBytes))
	}
	if err := ctx.Err(); err != nil {
		return nil, "", apperr.Wrap(err, apperr.CodeAssetLoad, "read photo")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.Wrap(err, apperr.CodeAssetLoad, "decode photo header")
	}
	if format != "jpeg" && format != "png" {
		return nil, "", apperr.New(apperr.CodeAssetLoad, fmt.Sprintf("unsupported photo format %q", format))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", apperr.New(apperr.CodeAssetLoad, "photo has no pixels")
	}
	if int64(cfg.Width)*int64(cfg.Height) > e.maxPixels {
		return nil, "", apperr.New(apperr.CodeAssetLoad,
			fmt.Sprintf("photo is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, e.maxPixels))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.Wrap(err, apperr.CodeAssetLoad, "decode photo")
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", apperr.New(apperr.CodeAssetLoad, "photo has no pixels")
	}
	return img, format, nil
}
