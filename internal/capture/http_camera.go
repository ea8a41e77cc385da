package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"inspection-service/internal/domain/inspection"
)

// HTTPCamera reaches site-mounted cameras that serve a still frame on a
// snapshot URL, the way gate ANPR cameras usually do.
type HTTPCamera struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPCamera(timeout time.Duration, maxBytes int64) *HTTPCamera {
	return &HTTPCamera{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Open checks that the camera answers before handing out a stream.
func (c *HTTPCamera) Open(ctx context.Context, site inspection.Site, facing inspection.Facing) (Stream, error) {
	url := site.Cameras[facing]
	if url == "" {
		return nil, fmt.Errorf("%w: site %s has no %s camera", ErrNoCamera, site.ID, facing)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCamera, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCamera, err)
	}
	resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrCameraDenied, resp.Status)
	case resp.StatusCode >= 400 && resp.StatusCode != http.StatusMethodNotAllowed:
		return nil, fmt.Errorf("%w: %s", ErrNoCamera, resp.Status)
	}

	return &httpStream{client: c.client, url: url, maxBytes: c.maxBytes}, nil
}

type httpStream struct {
	client   *http.Client
	url      string
	maxBytes int64

	mu     sync.Mutex
	closed bool
}

func (s *httpStream) Snapshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStreamReleased
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned %s", resp.Status)
	}
	var body io.Reader = resp.Body
	if s.maxBytes > 0 {
		body = io.LimitReader(resp.Body, s.maxBytes+1)
	}
	return io.ReadAll(body)
}

func (s *httpStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
