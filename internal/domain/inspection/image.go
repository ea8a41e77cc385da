package inspection

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

var ErrMalformedDataURI = errors.New("malformed data uri")

// Image is an encoded photo held in memory. Data is never modified after
// construction, so copies of an Image may share it.
type Image struct {
	ID          uuid.UUID `json:"id"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Size        int       `json:"size"`
	CapturedAt  time.Time `json:"captured_at"`
	Data        []byte    `json:"-"`
}

// DataURI renders the image the way a browser would embed it.
func (i Image) DataURI() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// IsZero reports whether the image carries no payload.
func (i Image) IsZero() bool {
	return len(i.Data) == 0
}

// ParseDataURI splits a base64 data URI into its media type and payload.
// A missing media type defaults to JPEG.
func ParseDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, ErrMalformedDataURI
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return "", nil, ErrMalformedDataURI
	}
	if !strings.HasSuffix(header, ";base64") {
		return "", nil, ErrMalformedDataURI
	}
	mediaType, _, _ := strings.Cut(header, ";")
	if mediaType == "" {
		mediaType = ContentTypeJPEG
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrMalformedDataURI
	}
	if len(data) == 0 {
		return "", nil, ErrMalformedDataURI
	}
	return mediaType, data, nil
}
