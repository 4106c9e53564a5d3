package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/fitmeasure/internal/adapters/cache"
	"github.com/okian/fitmeasure/internal/adapters/imaging"
	"github.com/okian/fitmeasure/internal/adapters/pose"
	"github.com/okian/fitmeasure/internal/domain/measurement"
	"github.com/okian/fitmeasure/internal/domain/model"
	"github.com/okian/fitmeasure/pkg/logger"
	"github.com/okian/fitmeasure/pkg/metrics"
)

const defaultMaxImageBytes = 10 << 20

// Pipeline turns one job input into an outcome:
// decode, cache lookup, detect, extract, render, cache store.
type Pipeline struct {
	detector      pose.Detector
	cache         cache.Cache
	renderer      *imaging.Renderer
	maxImageBytes int
	logger        logger.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCache sets the result cache. The default never hits.
func WithCache(c cache.Cache) PipelineOption {
	return func(p *Pipeline) {
		if c != nil {
			p.cache = c
		}
	}
}

// WithRenderer sets the preview renderer.
func WithRenderer(r *imaging.Renderer) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithMaxImageBytes bounds the decoded image size.
func WithMaxImageBytes(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxImageBytes = n
		}
	}
}

// WithPipelineLogger sets a custom logger for the pipeline.
func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline builds a pipeline around detector. The pipeline does not own
// the detector; callers close it.
func NewPipeline(detector pose.Detector, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		detector:      detector,
		cache:         cache.Noop{},
		renderer:      imaging.NewRenderer(),
		maxImageBytes: defaultMaxImageBytes,
		logger:        logger.Get().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs a job. It never panics and never returns an error: every
// failure becomes a failure outcome.
func (p *Pipeline) Process(ctx context.Context, j model.Job) (o model.Outcome) { //nolint:gocritic // hugeParam: matches worker.Processor
	start := time.Now()
	garment := model.ParseGarmentType(j.Input.GarmentType)

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("pipeline", "panic")
			p.logger.Error(ctx, "measurement panicked", logger.Any("panic", r))
			o = model.Failed(model.FailureUnhandled, fmt.Sprint(r))
		}
		o.Duration = time.Since(start)
		p.record(ctx, garment, o)
	}()

	res, err := p.run(ctx, j.Input.Image, garment)
	if err != nil {
		return failure(err)
	}
	return res
}

func (p *Pipeline) run(ctx context.Context, payload string, garment model.GarmentType) (model.Outcome, error) {
	decoded, err := imaging.Decode(payload, p.maxImageBytes)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("decode image: %w", err)
	}

	key := cache.Key(decoded.Digest, garment)
	if cached, ok := p.lookup(ctx, key); ok {
		return cached, nil
	}

	detectStart := time.Now()
	lms, err := p.detector.Detect(ctx, decoded.Image)
	metrics.RecordDetectionLatency(float64(time.Since(detectStart).Milliseconds()))
	if err != nil {
		return model.Outcome{}, fmt.Errorf("detect pose: %w", err)
	}

	res, err := measurement.Extract(lms, garment, decoded.Size)
	if err != nil {
		return model.Outcome{}, err
	}

	preview, err := p.renderer.Visualize(decoded.Image, lms)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("render preview: %w", err)
	}

	out := model.Succeeded(res, preview)
	if err := p.cache.Set(ctx, key, out); err != nil {
		metrics.RecordCacheError()
		p.logger.Warn(ctx, "cache store failed", logger.Error(err))
	}
	return out, nil
}

func (p *Pipeline) lookup(ctx context.Context, key string) (model.Outcome, bool) {
	cached, found, err := p.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordCacheError()
		p.logger.Warn(ctx, "cache lookup failed", logger.Error(err))
		return model.Outcome{}, false
	case !found:
		metrics.RecordCacheMiss()
		return model.Outcome{}, false
	default:
		metrics.RecordCacheHit()
		return cached, true
	}
}

func (p *Pipeline) record(ctx context.Context, garment model.GarmentType, o model.Outcome) { //nolint:gocritic // hugeParam: read-only
	outcome := "success"
	if !o.Success {
		outcome = string(o.FailureKind)
	}
	metrics.RecordJob(string(garment), outcome)
	metrics.RecordJobLatency(string(garment), float64(o.Duration.Milliseconds()))

	if !o.Success {
		metrics.RecordErrorByComponent("pipeline", outcome)
		p.logger.Info(ctx, "measurement failed",
			logger.String("garment", string(garment)),
			logger.String("kind", outcome),
			logger.String("reason", o.Error),
		)
		return
	}
	if o.Cached {
		return
	}
	if o.Result.ScaleFallback {
		metrics.RecordScaleFallback(string(garment))
	}
	metrics.RecordEstimatedSize(string(garment), string(o.Result.Size))
	for name, c := range o.Result.Confidence {
		metrics.RecordMeasurementConfidence(name, c)
	}
}

// failure classifies err. An absent body is a detection failure; anything
// else is reported with its message.
func failure(err error) model.Outcome {
	if errors.Is(err, measurement.ErrNoLandmarks) {
		return model.Failed(model.FailureDetection, err.Error())
	}
	return model.Failed(model.FailureUnhandled, err.Error())
}
