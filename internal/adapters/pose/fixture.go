package pose

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"sync/atomic"

	"github.com/okian/fitmeasure/internal/domain/model"
)

// FixtureDetector returns the same landmarks for every image. It backs the
// offline CLI and demo deployments without a pose sidecar.
type FixtureDetector struct {
	landmarks model.Landmarks
	closed    atomic.Bool
}

// NewFixture returns a detector that always reports lms. A nil set makes
// every detection come back empty.
func NewFixture(lms model.Landmarks) *FixtureDetector {
	cp := make(model.Landmarks, len(lms))
	for k, v := range lms {
		cp[k] = v
	}
	return &FixtureDetector{landmarks: cp}
}

// LoadFixture reads a landmark file in the sidecar reply format.
func LoadFixture(path string) (*FixtureDetector, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: fixture path not configured", ErrBadPayload)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture decodes landmarks in the sidecar reply format.
func ParseFixture(raw []byte) (*FixtureDetector, error) {
	var payload detectionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	lms, err := payload.toLandmarks()
	if err != nil {
		return nil, err
	}
	return NewFixture(lms), nil
}

// Detect returns a copy of the fixture landmarks.
func (d *FixtureDetector) Detect(ctx context.Context, _ image.Image) (model.Landmarks, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.landmarks.Empty() {
		return nil, nil
	}
	out := make(model.Landmarks, len(d.landmarks))
	for k, v := range d.landmarks {
		out[k] = v
	}
	return out, nil
}

// MarshalJSON encodes the fixture in the sidecar reply format.
func (d *FixtureDetector) MarshalJSON() ([]byte, error) {
	return json.Marshal(fromLandmarks(d.landmarks))
}

// Close marks the detector unusable.
func (d *FixtureDetector) Close() error {
	d.closed.Store(true)
	return nil
}
