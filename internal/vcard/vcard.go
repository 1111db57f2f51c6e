// Package vcard renders contacts as vCard 3.0 documents (RFC 2426).
package vcard

import (
	"strings"
	"unicode"

	"cardapi/internal/model"
)

const (
	// ContentType is the MIME type of a rendered card.
	ContentType = "text/vcard"
	// Extension is the file extension of a rendered card.
	Extension = ".vcf"

	crlf = "\r\n"
)

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`,`, `\,`,
	`;`, `\;`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

// Render writes c as a vCard 3.0 document. Fields always appear in the same order:
// FN, N, TITLE, TEL, EMAIL, the work URL, the labeled profile URLs, PHOTO.
// PHOTO is emitted only when photo carries a payload, and is never line-folded.
// Every value stays on its own line: text values are escaped, the rest lose
// any control characters.
func Render(c model.Contact, photo *model.EncodedPhoto) []byte {
	family, given := Names(c)

	var b strings.Builder
	line := func(parts ...string) {
		for _, p := range parts {
			b.WriteString(p)
		}
		b.WriteString(crlf)
	}

	line("BEGIN:VCARD")
	line("VERSION:3.0")
	line("FN:", escape(c.FullName))
	line("N:", escape(family), ";", escape(given), ";;;")
	line("TITLE:", escape(c.Title))
	line("TEL;TYPE=CELL:", Digits(c.Phone))
	line("EMAIL:", raw(c.Email))
	line("URL;TYPE=WORK:", raw(c.WorkURL))
	for _, u := range c.ProfileURLs {
		line("URL;TYPE=", paramValue(u.Label), ":", raw(u.URL))
	}
	if photo != nil && photo.Base64 != "" {
		typ := photo.Type
		if typ == "" {
			typ = "JPEG"
		}
		line("PHOTO;ENCODING=b;TYPE=", paramValue(typ), ":", raw(photo.Base64))
	}
	line("END:VCARD")

	return []byte(b.String())
}

// Names returns the family and given name of c. When either is unset both are
// derived from FullName: the last word is the family name, the rest the given name.
func Names(c model.Contact) (family, given string) {
	if c.FamilyName != "" || c.GivenName != "" {
		return c.FamilyName, c.GivenName
	}
	words := strings.Fields(c.FullName)
	switch len(words) {
	case 0:
		return "", ""
	case 1:
		return words[0], ""
	default:
		return words[len(words)-1], strings.Join(words[:len(words)-1], " ")
	}
}

// Digits strips everything but decimal digits from a phone number.
func Digits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// Filename derives the download name: lowercase, runs of anything other than
// letters and digits collapsed to "_", ".vcf" appended. "Maryam Habeeb" gives
// "maryam_habeeb.vcf"; an empty name gives "contact.vcf".
func Filename(fullName string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(fullName) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "contact" + Extension
	}
	return b.String() + Extension
}

func escape(s string) string {
	return textEscaper.Replace(s)
}

// raw drops control characters from values written without escaping
// (EMAIL, URL, PHOTO), so no value can end its line early.
func raw(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// paramValue drops characters that would break a TYPE parameter.
func paramValue(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ';', ':', ',', '"', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
