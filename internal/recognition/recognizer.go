package recognition

import (
	"context"
	"errors"

	"inspection-service/internal/domain/inspection"
)

var ErrDisabled = errors.New("plate recognition is not configured")

// Recognizer returns candidate plate strings for an image, best first. An
// image without a readable plate yields an empty slice and no error.
type Recognizer interface {
	Recognize(ctx context.Context, img inspection.Image) ([]string, error)
}

// Disabled is used when no recognition provider is configured.
type Disabled struct{}

func (Disabled) Recognize(context.Context, inspection.Image) ([]string, error) {
	return nil, ErrDisabled
}
