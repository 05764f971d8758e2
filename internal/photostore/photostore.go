package photostore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Upload limits applied before a photo reaches a store.
const (
	MaxPhotoBytes           = 5 * 1024 * 1024
	MaxPhotosPerObservation = 10
)

// ErrNotFound is returned by Get and Delete for unknown keys.
var ErrNotFound = errors.New("photo not found")

type PhotoStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// DetectMIME sniffs the image type from the first bytes of a photo. The
// second result is false for anything that is not an accepted image.
func DetectMIME(head []byte) (string, bool) {
	if isWebP(head) {
		return "image/webp", true
	}
	mimeType := http.DetectContentType(head)
	_, ok := allowedTypes[mimeType]
	return mimeType, ok
}

// NewKey builds a unique storage key below prefix for a photo of mimeType.
func NewKey(prefix, mimeType string) string {
	return path.Join(prefix, uuid.NewString()+ExtForMIME(mimeType))
}

func ExtForMIME(mimeType string) string {
	if ext, ok := allowedTypes[mimeType]; ok {
		return ext
	}
	return ".jpg"
}

// MIMEForKey guesses the content type of a stored photo from its extension.
func MIMEForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8). The stdlib sniffer only knows the VP8 variants.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}
