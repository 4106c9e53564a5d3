// Package pose provides pose-estimation detectors that turn an image into
// named body landmarks.
package pose

import (
	"context"
	"fmt"
	"image"

	"github.com/okian/fitmeasure/internal/domain/model"
)

// Detector finds body landmarks in an image. A nil or empty result with a
// nil error means no body was detected.
//
// A Detector is a long-lived resource: create it once with New and release
// it with Close.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (model.Landmarks, error)
	Close() error
}

// New builds the detector selected by the options.
func New(_ context.Context, opts ...Option) (Detector, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	switch o.provider {
	case ProviderHTTP:
		d, err := newHTTPDetector(o)
		if err != nil {
			return nil, err
		}
		return d, nil
	case ProviderFixture:
		d, err := LoadFixture(o.fixturePath)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, o.provider)
	}
}
