// Package download delivers rendered contact cards to the local filesystem.
package download

import (
	"fmt"
	"os"
	"path/filepath"

	"cardapi/internal/apperr"
	"cardapi/internal/model"
)

// Save writes f into dir under f.Filename and returns the final path.
//
// The card is written to a temporary file in dir and renamed into place, so a
// failed save never leaves a partial .vcf behind. Failures carry
// apperr.CodeDownloadTrigger.
func Save(dir string, f *model.ContactFile) (string, error) {
	if f == nil || len(f.Content) == 0 {
		return "", apperr.New(apperr.CodeDownloadTrigger, "nothing to save")
	}
	name := filepath.Base(f.Filename)
	if name == "." || name == string(filepath.Separator) {
		return "", apperr.New(apperr.CodeDownloadTrigger, fmt.Sprintf("invalid filename %q", f.Filename))
	}
	dest := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeDownloadTrigger, "create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(f.Content); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return "", apperr.Wrap(err, apperr.CodeDownloadTrigger, "write "+tmpPath)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", apperr.Wrap(err, apperr.CodeDownloadTrigger, "close "+tmpPath)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", apperr.Wrap(err, apperr.CodeDownloadTrigger, "chmod "+tmpPath)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return "", apperr.Wrap(err, apperr.CodeDownloadTrigger, "install "+dest)
	}
	return dest, nil
}
