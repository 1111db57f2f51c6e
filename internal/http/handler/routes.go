package handler

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cardapi/internal/apperr"
	"cardapi/internal/http/middleware"
	"cardapi/internal/model"
	"cardapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.ContactService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", Liveness())

	app.Get("/vcard", ExportDefaultContact(svc))

	app.Get("/contacts", ListContacts(svc))
	app.Post("/contacts", CreateContact(svc))
	app.Get("/contacts/:id", GetContact(svc))
	app.Delete("/contacts/:id", DeleteContact(svc))
	app.Put("/contacts/:id/photo", UploadPhoto(svc))
	app.Get("/contacts/:id/photo", RedirectPhoto(svc))
	app.Get("/contacts/:id/vcard", ExportContact(svc))
}

// HealthCheck godoc
// @Summary Readiness check
// @Description Checks database connectivity
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// Liveness is a dependency-free liveness check.
func Liveness() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ExportDefaultContact godoc
// @Summary Download the profile contact card
// @Tags vcard
// @Produce text/vcard
// @Success 200 {file} file
// @Failure 502 {object} errorPayload
// @Router /vcard [get]
func ExportDefaultContact(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, err := svc.ExportDefault(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return sendContactFile(c, file)
	}
}

// ExportContact godoc
// @Summary Download a stored contact's card
// @Tags vcard
// @Produce text/vcard
// @Param id path string true "Contact ID"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /contacts/{id}/vcard [get]
func ExportContact(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := contactID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		file, err := svc.Export(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return sendContactFile(c, file)
	}
}

// ListContacts godoc
// @Summary List contacts
// @Tags contacts
// @Produce json
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} service.ContactListResult
// @Router /contacts [get]
func ListContacts(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// CreateContact godoc
// @Summary Create a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param contact body service.ContactInput true "Contact"
// @Success 201 {object} model.Contact
// @Failure 400 {object} errorPayload
// @Router /contacts [post]
func CreateContact(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.ContactInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		contact, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(contact)
	}
}

// GetContact godoc
// @Summary Get a contact
// @Tags contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} model.Contact
// @Failure 404 {object} errorPayload
// @Router /contacts/{id} [get]
func GetContact(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := contactID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		contact, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(contact)
	}
}

// DeleteContact godoc
// @Summary Delete a contact and its uploaded photo
// @Tags contacts
// @Param id path string true "Contact ID"
// @Success 204 "No Content"
// @Failure 404 {object} errorPayload
// @Router /contacts/{id} [delete]
func DeleteContact(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := contactID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// UploadPhoto godoc
// @Summary Upload a contact headshot
// @Tags contacts
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Contact ID"
// @Param file formData file true "JPEG or PNG image"
// @Success 200 {object} model.Contact
// @Failure 400 {object} errorPayload
// @Router /contacts/{id}/photo [put]
func UploadPhoto(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := contactID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		contact, err := svc.UploadPhoto(c.UserContext(), id, f, fh.Filename, fh.Header.Get("Content-Type"), fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(contact)
	}
}

// RedirectPhoto godoc
// @Summary Redirect to a contact's photo
// @Tags contacts
// @Param id path string true "Contact ID"
// @Success 307 "Temporary Redirect"
// @Failure 404 {object} errorPayload
// @Router /contacts/{id}/photo [get]
func RedirectPhoto(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := contactID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := svc.PhotoURL(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Redirect(u, fiber.StatusTemporaryRedirect)
	}
}

func contactID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// sendContactFile answers with the card as an attachment download.
func sendContactFile(c *fiber.Ctx, file *model.ContactFile) error {
	if file == nil || len(file.Content) == 0 {
		return writeServiceError(c, apperr.New(apperr.CodeDownloadTrigger, "empty contact file"))
	}
	// Attachment sets Content-Type from the extension, so ours goes after it.
	c.Attachment(file.Filename)
	c.Set(fiber.HeaderContentType, file.ContentType+"; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-store")
	if file.PhotoOmitted != "" {
		c.Set(middleware.PhotoOmittedHeader, "true")
	}
	return c.Send(file.Content)
}
