package model

import "time"

// ProfileURL is a labeled link to one of the contact's profiles (e.g. Instagram).
type ProfileURL struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Contact is the record a contact card is rendered from.
// PhotoRef points at the headshot: an http(s) URL, an object key ("s3://photos/x.jpg")
// or a local path.
type Contact struct {
	ID          string       `json:"id"`
	FullName    string       `json:"full_name"`
	GivenName   string       `json:"given_name"`
	FamilyName  string       `json:"family_name"`
	Title       string       `json:"title"`
	Phone       string       `json:"phone"`
	Email       string       `json:"email"`
	WorkURL     string       `json:"work_url"`
	ProfileURLs []ProfileURL `json:"profile_urls"`
	PhotoRef    string       `json:"photo_ref,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// EncodedPhoto is a headshot re-encoded as base64 JPEG. It lives for one export only.
type EncodedPhoto struct {
	Base64 string
	// Type is the vCard image subtype, always "JPEG".
	Type   string
	Width  int
	Height int
}

// ContactFile is a rendered vCard ready for delivery.
type ContactFile struct {
	Filename    string
	ContentType string
	Content     []byte
	Photo       *EncodedPhoto
	// PhotoOmitted holds the reason the PHOTO field is missing, if it is.
	PhotoOmitted string
}
