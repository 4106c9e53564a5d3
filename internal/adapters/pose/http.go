package pose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/okian/fitmeasure/internal/domain/model"
	"github.com/okian/fitmeasure/pkg/logger"
)

// maxReplyBytes caps the sidecar reply; a full detection is a few KB.
const maxReplyBytes = 1 << 20

// HTTPDetector sends PNG-encoded images to a pose-estimation sidecar.
type HTTPDetector struct {
	endpoint string
	client   *http.Client
	closed   atomic.Bool
}

func newHTTPDetector(o options) (*HTTPDetector, error) {
	if o.endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	client := o.client
	if client == nil {
		client = &http.Client{Timeout: o.timeout}
	}
	return &HTTPDetector{endpoint: o.endpoint, client: client}, nil
}

// Detect posts img to the sidecar and decodes the landmark reply.
func (d *HTTPDetector) Detect(ctx context.Context, img image.Image) (model.Landmarks, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}

	var body bytes.Buffer
	if err := png.Encode(&body, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var payload detectionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	lms, err := payload.toLandmarks()
	if err != nil {
		return nil, err
	}
	logger.Get().Debug(ctx, "pose detection received",
		logger.String("endpoint", d.endpoint),
		logger.Int("landmarks", len(lms)))
	return lms, nil
}

// Close marks the detector unusable and releases idle connections.
func (d *HTTPDetector) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.client.CloseIdleConnections()
	return nil
}
