// Package form contains helpers for reading uploaded images.
package form

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	// MaxImageSize caps uploads at 5 MB.
	MaxImageSize = 5 << 20

	magicNumberSeek = 512
)

// allowedImageTypes lists the MIME types we accept.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var mimeTypeSuffix = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var (
	ErrUnsupportedMimeType = errors.New("unsupported mime type")
	ErrNoImageUploaded     = errors.New("image not uploaded")
	ErrImageTooLarge       = errors.New("image exceeds size limit")
)

type Image struct {
	Size     int64
	Data     []byte
	Suffix   string
	MimeType string
}

// ReadImage pulls the named file out of a multipart form, sniffing the
// content type from the magic bytes rather than trusting the client.
func ReadImage(r *http.Request, field string) (*Image, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, errors.Join(ErrNoImageUploaded, err)
	} else if err != nil {
		return nil, fmt.Errorf("getting file from form: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadImageData(f)
}

// ReadImageData validates raw image bytes from any reader.
func ReadImageData(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	contentType := http.DetectContentType(data[:min(len(data), magicNumberSeek)])
	if !allowedImageTypes[contentType] {
		return nil, fmt.Errorf("mime type %q: %w", contentType, ErrUnsupportedMimeType)
	}

	return &Image{
		Size:     int64(len(data)),
		Data:     data,
		Suffix:   mimeTypeSuffix[contentType],
		MimeType: contentType,
	}, nil
}
