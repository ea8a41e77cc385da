package capture

import (
	"context"
	"errors"
	"fmt"

	"inspection-service/internal/domain/inspection"
)

var (
	ErrNoCamera       = errors.New("no camera available")
	ErrCameraDenied   = errors.New("camera access denied")
	ErrStreamReleased = errors.New("camera stream already released")
)

// Camera grants exclusive access to a live frame source.
type Camera interface {
	Open(ctx context.Context, site inspection.Site, facing inspection.Facing) (Stream, error)
}

// Stream yields frames until it is closed. The capture flow that opened a
// stream owns it and must close it.
type Stream interface {
	Snapshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Snapshot opens a stream on cam, grabs one frame and releases the stream on
// every path out, including cancellation while the stream is being opened.
func Snapshot(ctx context.Context, cam Camera, dec *Decoder, site inspection.Site, facing inspection.Facing) (inspection.Image, error) {
	stream, err := cam.Open(ctx, site, facing)
	if stream != nil {
		defer stream.Close()
	}
	if err != nil {
		return inspection.Image{}, err
	}
	if stream == nil {
		return inspection.Image{}, ErrNoCamera
	}
	if err := ctx.Err(); err != nil {
		return inspection.Image{}, fmt.Errorf("capture dismissed: %w", err)
	}

	frame, err := stream.Snapshot(ctx)
	if err != nil {
		return inspection.Image{}, fmt.Errorf("failed to take snapshot: %w", err)
	}
	return dec.Decode(frame)
}
