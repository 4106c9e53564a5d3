// Package cache stores successful measurement outcomes keyed by image
// content and garment type, so resubmitting the same photo skips detection.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/fitmeasure/internal/domain/model"
)

const keyPrefix = "fitmeasure:result:"

// Cache stores successful outcomes. Failures are never cached.
type Cache interface {
	// Get returns the cached outcome and whether it was found.
	Get(ctx context.Context, key string) (model.Outcome, bool, error)
	Set(ctx context.Context, key string, o model.Outcome) error
	Close() error
}

// Key derives the cache key for an image digest and garment.
func Key(digest string, g model.GarmentType) string {
	return keyPrefix + string(g) + ":" + digest
}

// entry is the stored form of a successful outcome.
type entry struct {
	Garment       model.GarmentType  `json:"garment"`
	Measurements  map[string]float64 `json:"measurements"`
	Confidence    map[string]float64 `json:"confidence"`
	ScaleFactor   float64            `json:"scale_factor"`
	ScaleFallback bool               `json:"scale_fallback,omitempty"`
	Size          model.Size         `json:"size"`
	Visualization string             `json:"visualization"`
}

func encode(o model.Outcome) ([]byte, error) {
	return json.Marshal(entry{
		Garment:       o.Result.Garment,
		Measurements:  o.Result.Measurements,
		Confidence:    o.Result.Confidence,
		ScaleFactor:   o.Result.ScaleFactor,
		ScaleFallback: o.Result.ScaleFallback,
		Size:          o.Result.Size,
		Visualization: o.Visualization,
	})
}

func decode(data []byte) (model.Outcome, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return model.Outcome{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if len(e.Measurements) == 0 || len(e.Measurements) != len(e.Confidence) {
		return model.Outcome{}, fmt.Errorf("%w: incomplete result", ErrCorrupt)
	}
	o := model.Succeeded(model.Result{
		Garment:       e.Garment,
		Measurements:  e.Measurements,
		Confidence:    e.Confidence,
		ScaleFactor:   e.ScaleFactor,
		ScaleFallback: e.ScaleFallback,
		Size:          e.Size,
	}, e.Visualization)
	o.Cached = true
	return o, nil
}

// Noop is a cache that never stores anything.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string) (model.Outcome, bool, error) {
	return model.Outcome{}, false, nil
}

// Set discards the outcome.
func (Noop) Set(context.Context, string, model.Outcome) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }
