package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"inspection-service/internal/domain/inspection"
)

var (
	ErrEmptyImage        = errors.New("image is empty")
	ErrImageTooLarge     = errors.New("image exceeds upload limit")
	ErrUnsupportedFormat = errors.New("only JPEG and PNG images are supported")
	ErrUnreadableImage   = errors.New("image cannot be decoded")
)

// Decoder turns raw uploads into inspection images. Only JPEG and PNG are
// accepted; the dimensions are taken from the encoded header.
type Decoder struct {
	maxBytes int64
	now      func() time.Time
}

func NewDecoder(maxBytes int64) *Decoder {
	return &Decoder{maxBytes: maxBytes, now: time.Now}
}

// FromReader reads at most the configured limit from r.
func (d *Decoder) FromReader(r io.Reader) (inspection.Image, error) {
	if d.maxBytes > 0 {
		r = io.LimitReader(r, d.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return inspection.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return d.Decode(data)
}

// FromDataURI accepts a canvas snapshot such as "data:image/jpeg;base64,...".
func (d *Decoder) FromDataURI(uri string) (inspection.Image, error) {
	_, data, err := inspection.ParseDataURI(uri)
	if err != nil {
		return inspection.Image{}, err
	}
	return d.Decode(data)
}

// Decode validates data and wraps it in an Image with a fresh ID. The declared
// content type of the source is ignored in favour of the sniffed one.
func (d *Decoder) Decode(data []byte) (inspection.Image, error) {
	if len(data) == 0 {
		return inspection.Image{}, ErrEmptyImage
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return inspection.Image{}, fmt.Errorf("%w (%d bytes)", ErrImageTooLarge, d.maxBytes)
	}

	mt := mimetype.Detect(data)
	var contentType string
	switch {
	case mt.Is(inspection.ContentTypeJPEG):
		contentType = inspection.ContentTypeJPEG
	case mt.Is(inspection.ContentTypePNG):
		contentType = inspection.ContentTypePNG
	default:
		return inspection.Image{}, fmt.Errorf("%w: got %s", ErrUnsupportedFormat, mt.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return inspection.Image{}, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	return inspection.Image{
		ID:          uuid.New(),
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Size:        len(data),
		CapturedAt:  d.now(),
		Data:        data,
	}, nil
}
