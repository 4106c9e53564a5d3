// Package types contains the wire types shared by the HTTP API and its clients.
package types

import (
	"github.com/okian/fitmeasure/internal/domain/model"
)

// NoLandmarksMessage is the error text reported when no body was detected.
const NoLandmarksMessage = "No pose landmarks detected"

// MeasureRequest is a single measurement job.
type MeasureRequest struct {
	Image       string `json:"image" validate:"required"`
	GarmentType string `json:"garment_type,omitempty" validate:"omitempty,max=32"`
}

// Input converts the request into a job input.
func (r MeasureRequest) Input() model.JobInput {
	return model.JobInput{Image: r.Image, GarmentType: r.GarmentType}
}

// RunRequest is the envelope accepted by the asynchronous endpoint.
type RunRequest struct {
	Input MeasureRequest `json:"input" validate:"required"`
}

// MeasureResponse is the job output. On failure only Success, Error and
// the two (empty) maps are set.
type MeasureResponse struct {
	Success          bool               `json:"success"`
	Error            string             `json:"error,omitempty"`
	Measurements     map[string]float64 `json:"measurements"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	Visualization    string             `json:"visualization,omitempty"`
	Unit             string             `json:"unit,omitempty"`
	ScaleFactor      float64            `json:"scale_factor,omitempty"`
	GarmentType      string             `json:"garment_type,omitempty"`
	Size             string             `json:"size,omitempty"`
}

// Failure builds a failure response carrying msg.
func Failure(msg string) MeasureResponse {
	return MeasureResponse{
		Success:          false,
		Error:            msg,
		Measurements:     map[string]float64{},
		ConfidenceScores: map[string]float64{},
	}
}

// FromOutcome renders an outcome in wire form.
func FromOutcome(o model.Outcome) MeasureResponse {
	if !o.Success {
		msg := o.Error
		if o.FailureKind == model.FailureDetection {
			msg = NoLandmarksMessage
		}
		return Failure(msg)
	}
	resp := MeasureResponse{
		Success:          true,
		Measurements:     o.Result.Measurements,
		ConfidenceScores: o.Result.Confidence,
		Visualization:    o.Visualization,
		Unit:             model.Unit,
		ScaleFactor:      o.Result.ScaleFactor,
		GarmentType:      string(o.Result.Garment),
		Size:             string(o.Result.Size),
	}
	if resp.Measurements == nil {
		resp.Measurements = map[string]float64{}
	}
	if resp.ConfidenceScores == nil {
		resp.ConfidenceScores = map[string]float64{}
	}
	return resp
}

// JobResponse reports the state of an asynchronous job.
type JobResponse struct {
	ID     string           `json:"id"`
	Status string           `json:"status"`
	Output *MeasureResponse `json:"output,omitempty"`
}

// FromJob renders a job in wire form. Output is only set for terminal jobs.
func FromJob(j model.Job) JobResponse {
	resp := JobResponse{ID: j.ID, Status: string(j.Status)}
	if j.Status.Terminal() && j.Output != nil {
		out := FromOutcome(*j.Output)
		resp.Output = &out
	}
	return resp
}
