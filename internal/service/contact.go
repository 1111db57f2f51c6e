package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"cardapi/internal/apperr"
	"cardapi/internal/config"
	"cardapi/internal/jsonlog"
	"cardapi/internal/model"
	"cardapi/internal/repository"
	"cardapi/internal/storage"
)

// PresignExpiry bounds how long a photo link handed to clients stays valid.
const PresignExpiry = 15 * time.Minute

// MaxPageSize caps the limit accepted by List.
const MaxPageSize = 100

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// ContactInput carries the fields a client may set when creating a contact.
type ContactInput struct {
	FullName    string             `json:"full_name"`
	GivenName   string             `json:"given_name"`
	FamilyName  string             `json:"family_name"`
	Title       string             `json:"title"`
	Phone       string             `json:"phone"`
	Email       string             `json:"email"`
	WorkURL     string             `json:"work_url"`
	ProfileURLs []model.ProfileURL `json:"profile_urls"`
	// PhotoRef may only be an http(s) URL; uploaded photos use UploadPhoto.
	PhotoRef string `json:"photo_ref"`
}

// ContactListResult is the service-level DTO for paginated contacts.
type ContactListResult struct {
	Items []model.Contact `json:"data"`
	Total int             `json:"total"`
}

// ContactService defines the use cases around contacts and their cards.
type ContactService interface {
	Create(ctx context.Context, in ContactInput) (*model.Contact, error)
	List(ctx context.Context, limit, offset int) (*ContactListResult, error)
	Get(ctx context.Context, id string) (*model.Contact, error)
	// Delete removes the contact and its uploaded photo.
	Delete(ctx context.Context, id string) error
	// UploadPhoto stores a JPEG or PNG headshot, typed by its content rather than
	// the declared contentType, and points the contact at it.
	UploadPhoto(ctx context.Context, id string, r io.Reader, filename, contentType string, size int64) (*model.Contact, error)
	// PhotoURL returns a URL the client can fetch the contact's photo from.
	PhotoURL(ctx context.Context, id string) (string, error)
	// Export builds the vCard of a stored contact.
	Export(ctx context.Context, id string) (*model.ContactFile, error)
	// ExportDefault builds the vCard of the configured profile contact.
	ExportDefault(ctx context.Context) (*model.ContactFile, error)
}

type contactService struct {
	store    storage.Storage
	repo     repository.ContactRepository
	exporter *Exporter
	defaults model.Contact
	log      *jsonlog.Logger
}

// NewContactService constructs a ContactService. defaults is the contact served by ExportDefault.
func NewContactService(store storage.Storage, repo repository.ContactRepository, exporter *Exporter, defaults model.Contact, log *jsonlog.Logger) ContactService {
	return &contactService{store: store, repo: repo, exporter: exporter, defaults: defaults, log: log}
}

func (s *contactService) Create(ctx context.Context, in ContactInput) (*model.Contact, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	c := &model.Contact{
		ID:          uuid.New().String(),
		FullName:    in.FullName,
		GivenName:   in.GivenName,
		FamilyName:  in.FamilyName,
		Title:       in.Title,
		Phone:       in.Phone,
		Email:       in.Email,
		WorkURL:     in.WorkURL,
		ProfileURLs: in.ProfileURLs,
		PhotoRef:    in.PhotoRef,
		CreatedAt:   time.Now().UTC(),
	}
	if c.ProfileURLs == nil {
		c.ProfileURLs = []model.ProfileURL{}
	}
	stored, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("save contact: %w", err)
	}
	return stored, nil
}

func (s *contactService) List(ctx context.Context, limit, offset int) (*ContactListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ContactListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *contactService) Get(ctx context.Context, id string) (*model.Contact, error) {
	if id == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "id is required")
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "contact not found")
		}
		return nil, err
	}
	return c, nil
}

// Delete removes the uploaded photo first; if that fails the row stays so the
// object is not orphaned.
func (s *contactService) Delete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if key, ok := storage.KeyFromRef(c.PhotoRef); ok {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("delete photo: %w", err)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *contactService) UploadPhoto(ctx context.Context, id string, r io.Reader, filename, contentType string, size int64) (*model.Contact, error) {
	if r == nil {
		return nil, apperr.New(apperr.CodeInvalidInput, "photo is required")
	}
	body, sniffed, err := sniffImage(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	ext, ok := photoExtensions[sniffed]
	if !ok {
		return nil, apperr.New(apperr.CodeInvalidInput, "photo must be a JPEG or PNG image")
	}
	if contentType != sniffed {
		s.log.Warn("photo_content_type_mismatch", map[string]any{
			"component":  "contacts",
			"contact_id": id,
			"declared":   contentType,
			"detected":   sniffed,
		})
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := path.Join("photos", uuid.New().String()+ext)
	if _, err := s.store.Put(ctx, key, body, storage.PutObjectOptions{
		Size:        size,
		ContentType: sniffed,
		Metadata: map[string]string{
			"original-filename": filename,
			"contact-id":        id,
		},
	}); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	ref := storage.Ref(key)
	if err := s.repo.UpdatePhotoRef(ctx, id, ref); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "contact not found")
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	if oldKey, ok := storage.KeyFromRef(c.PhotoRef); ok {
		if err := s.store.Delete(ctx, oldKey); err != nil {
			s.log.Warn("old_photo_delete_failed", map[string]any{
				"component":  "contacts",
				"contact_id": id,
				"key":        oldKey,
				"error":      err.Error(),
			})
		}
	}

	updated := *c
	updated.PhotoRef = ref
	return &updated, nil
}

func (s *contactService) PhotoURL(ctx context.Context, id string) (string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if key, ok := storage.KeyFromRef(c.PhotoRef); ok {
		return s.store.PresignGet(ctx, key, PresignExpiry)
	}
	if isWebURL(c.PhotoRef) {
		return c.PhotoRef, nil
	}
	return "", apperr.New(apperr.CodeNotFound, "contact has no photo")
}

func (s *contactService) Export(ctx context.Context, id string) (*model.ContactFile, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, *c)
}

func (s *contactService) ExportDefault(ctx context.Context) (*model.ContactFile, error) {
	return s.exporter.Export(ctx, s.defaults)
}

func validateInput(in *ContactInput) error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	if in.FullName == "" {
		return apperr.New(apperr.CodeInvalidInput, "full_name is required")
	}
	for _, v := range []string{in.FullName, in.GivenName, in.FamilyName, in.Title, in.Phone} {
		if hasControl(v) {
			return apperr.New(apperr.CodeInvalidInput, "text fields must not contain control characters")
		}
	}
	if hasControl(in.Email) {
		return apperr.New(apperr.CodeInvalidInput, "email is invalid")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return apperr.New(apperr.CodeInvalidInput, "email is invalid")
	}
	if in.WorkURL != "" && !isWebURL(in.WorkURL) {
		return apperr.New(apperr.CodeInvalidInput, "work_url must be an absolute http(s) URL")
	}
	for _, u := range in.ProfileURLs {
		if strings.TrimSpace(u.Label) == "" || hasControl(u.Label) || !isWebURL(u.URL) {
			return apperr.New(apperr.CodeInvalidInput, "profile_urls need a label and an absolute http(s) URL")
		}
	}
	if in.PhotoRef != "" && !isWebURL(in.PhotoRef) {
		return apperr.New(apperr.CodeInvalidInput, "photo_ref must be an absolute http(s) URL")
	}
	return nil
}

// sniffImage detects the type of an upload from its first bytes and returns a
// reader that still yields the whole upload.
func sniffImage(r io.Reader) (io.Reader, string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]
	return io.MultiReader(bytes.NewReader(head), r), http.DetectContentType(head), nil
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ContactFromConfig converts the configured profile into a Contact.
func ContactFromConfig(c config.ContactConfig) model.Contact {
	urls := make([]model.ProfileURL, 0, len(c.ProfileURLs))
	for _, u := range c.ProfileURLs {
		urls = append(urls, model.ProfileURL{Label: u.Label, URL: u.URL})
	}
	return model.Contact{
		ID:          "default",
		FullName:    c.FullName,
		GivenName:   c.GivenName,
		FamilyName:  c.FamilyName,
		Title:       c.Title,
		Phone:       c.Phone,
		Email:       c.Email,
		WorkURL:     c.WorkURL,
		ProfileURLs: urls,
		PhotoRef:    c.PhotoRef,
	}
}
