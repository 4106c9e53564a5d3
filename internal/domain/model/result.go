package model

import "time"

// Unit is the unit all measurements are reported in.
const Unit = "cm"

// Result is the output of a successful measurement run.
// Measurements and Confidence always carry the same keys.
type Result struct {
	Garment       GarmentType
	Measurements  map[string]float64
	Confidence    map[string]float64
	ScaleFactor   float64 // cm per pixel
	ScaleFallback bool    // anchor was degenerate; scale derived from image width
	Size          Size
}

// FailureKind classifies why a run produced no measurements.
type FailureKind string

// Failure kinds.
const (
	// FailureDetection means the pose model found no body in the image.
	FailureDetection FailureKind = "detection"
	// FailureUnhandled covers every other error (input, decoding, transport, arithmetic).
	FailureUnhandled FailureKind = "unhandled"
)

// Outcome is the result of one processing attempt: either a success carrying
// a Result and its rendered preview, or a failure carrying its kind and message.
type Outcome struct {
	Success       bool
	Result        Result
	Visualization string // PNG data URI, success only
	FailureKind   FailureKind
	Error         string
	Cached        bool
	Duration      time.Duration
}

// Succeeded builds the success variant.
func Succeeded(res Result, visualization string) Outcome {
	return Outcome{Success: true, Result: res, Visualization: visualization}
}

// Failed builds the failure variant.
func Failed(kind FailureKind, msg string) Outcome {
	return Outcome{Success: false, FailureKind: kind, Error: msg}
}
