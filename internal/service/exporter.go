package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cardapi/internal/apperr"
	"cardapi/internal/config"
	"cardapi/internal/jsonlog"
	"cardapi/internal/model"
	"cardapi/internal/vcard"
)

var tracer = otel.Tracer("cardapi/service")

// PhotoEncoder turns a photo reference into a base64 JPEG payload.
type PhotoEncoder interface {
	Encode(ctx context.Context, ref string) (*model.EncodedPhoto, error)
}

// ExportOptions configure an Exporter.
type ExportOptions struct {
	// PhotoPolicy is config.PhotoPolicyOmit (default) or config.PhotoPolicyFail.
	PhotoPolicy string
	// Filename replaces the name derived from the contact when set.
	Filename string
}

// Exporter builds contact cards: fetch photo, encode, render, package.
// It holds no per-export state, so concurrent exports never interfere.
type Exporter struct {
	photos   PhotoEncoder
	policy   string
	filename string
	metrics  *Metrics
	log      *jsonlog.Logger
}

// NewExporter creates an Exporter. metrics and log may be nil.
func NewExporter(photos PhotoEncoder, opt ExportOptions, metrics *Metrics, log *jsonlog.Logger) *Exporter {
	policy := opt.PhotoPolicy
	if policy != config.PhotoPolicyFail {
		policy = config.PhotoPolicyOmit
	}
	filename := opt.Filename
	if filename != "" && !strings.HasSuffix(strings.ToLower(filename), vcard.Extension) {
		filename += vcard.Extension
	}
	return &Exporter{photos: photos, policy: policy, filename: filename, metrics: metrics, log: log}
}

// Export renders c as a downloadable vCard.
//
// A contact without PhotoRef gets a card without PHOTO. When the photo cannot be
// loaded or encoded, the omit policy still returns a card, with PhotoOmitted set;
// the fail policy returns the apperr error instead.
func (e *Exporter) Export(ctx context.Context, c model.Contact) (*model.ContactFile, error) {
	ctx, span := tracer.Start(ctx, "contact.Export")
	defer span.End()

	if strings.TrimSpace(c.FullName) == "" {
		e.metrics.export(OutcomeFailed)
		return nil, apperr.New(apperr.CodeInvalidInput, "contact has no full name")
	}

	var (
		photo   *model.EncodedPhoto
		omitted string
	)
	if c.PhotoRef != "" {
		start := time.Now()
		p, err := e.photos.Encode(ctx, c.PhotoRef)
		e.metrics.photo(start, err)
		if err != nil {
			span.RecordError(err)
			if e.policy == config.PhotoPolicyFail {
				span.SetStatus(codes.Error, "photo failed")
				e.metrics.export(OutcomeFailed)
				e.log.Error("vcard_export_failed", map[string]any{
					"component":  "exporter",
					"contact_id": c.ID,
					"error_code": string(apperr.CodeOf(err)),
					"error":      err.Error(),
				})
				return nil, err
			}
			omitted = err.Error()
			e.log.Warn("vcard_photo_omitted", map[string]any{
				"component":  "exporter",
				"contact_id": c.ID,
				"error_code": string(apperr.CodeOf(err)),
				"error":      omitted,
			})
		} else {
			photo = p
		}
	}

	filename := e.filename
	if filename == "" {
		filename = vcard.Filename(c.FullName)
	}

	file := &model.ContactFile{
		Filename:     filename,
		ContentType:  vcard.ContentType,
		Content:      vcard.Render(c, photo),
		Photo:        photo,
		PhotoOmitted: omitted,
	}

	outcome := OutcomeOK
	if omitted != "" {
		outcome = OutcomePhotoOmitted
	}
	e.metrics.export(outcome)
	span.SetAttributes(
		attribute.String("vcard.outcome", outcome),
		attribute.Bool("vcard.has_photo", photo != nil),
		attribute.Int("vcard.bytes", len(file.Content)),
	)
	return file, nil
}
