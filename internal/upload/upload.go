// Package upload is the contract for files pasted or dropped into the
// editor. A file is inserted as a placeholder link right away; once the
// Uploader returns a URL the placeholder is patched in place, and when the
// upload fails the placeholder is removed again.
package upload

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNoUploader is returned when files arrive and no Uploader is set.
var ErrNoUploader = errors.New("no uploader configured")

// Scheme prefixes placeholder destinations.
const Scheme = "upload:"

// File is a pasted or dropped file.
type File struct {
	Name string
	// Type is the MIME type. When empty it is guessed from Name and Data.
	Type string
	Data []byte
}

// MediaType returns the MIME type of f.
func (f File) MediaType() string {
	if f.Type != "" {
		return f.Type
	}
	if t := mime.TypeByExtension(filepath.Ext(f.Name)); t != "" {
		return t
	}
	return http.DetectContentType(f.Data)
}

// IsImage reports whether f is an image.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.MediaType(), "image/")
}

// Uploader stores a file and returns the URL it can be linked with.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// Func adapts a function to an Uploader.
type Func func(ctx context.Context, f File) (string, error)

// Upload implements Uploader.
func (fn Func) Upload(ctx context.Context, f File) (string, error) { return fn(ctx, f) }

// Placeholder is the link that stands in for a file while it uploads.
type Placeholder struct {
	ID    string
	Name  string
	Image bool
}

// NewPlaceholder returns a placeholder with a fresh id for f.
func NewPlaceholder(f File) Placeholder {
	name := f.Name
	if name == "" {
		name = "file"
	}
	return Placeholder{ID: uuid.NewString(), Name: name, Image: f.IsImage()}
}

// URL returns the temporary destination.
func (p Placeholder) URL() string { return Scheme + p.ID }

// Markdown returns the link inserted into the document.
func (p Placeholder) Markdown() string {
	label := strings.NewReplacer(`\`, `\\`, "[", `\[`, "]", `\]`).Replace(p.Name)
	link := "[" + label + "](" + p.URL() + ")"
	if p.Image {
		return "!" + link
	}
	return link
}
