// Package measurement converts pose landmarks into garment measurements.
//
// Landmark pixel distances are turned into centimeters with a scale factor
// anchored on a standard body width for the garment (shoulders for upper-body
// garments, hips for pants). Each measurement carries a confidence equal to
// the mean visibility of the landmarks it was derived from.
package measurement

import (
	"fmt"
	"math"

	"github.com/okian/fitmeasure/internal/domain/garment"
	"github.com/okian/fitmeasure/internal/domain/model"
)

// riseHeuristicFactor approximates the hip-to-crotch span as a fraction of
// the vertical hip-to-knee span. It is a placeholder estimate, not a derived
// anthropometric ratio.
const riseHeuristicFactor = 0.4

// fallbackScaleDivisor derives a scale from the image width when the anchor
// distance is degenerate.
const fallbackScaleDivisor = 100.0

// definition describes how one measurement is derived from landmarks.
type definition struct {
	name      string
	landmarks []model.LandmarkName
	pixels    func(lms model.Landmarks, size model.ImageSize) float64
}

var upperBodyDefinitions = []definition{
	{
		name:      model.ChestWidth,
		landmarks: []model.LandmarkName{model.LeftShoulder, model.RightShoulder},
		pixels: func(lms model.Landmarks, size model.ImageSize) float64 {
			return PixelDistance(lms[model.LeftShoulder], lms[model.RightShoulder], size)
		},
	},
	{
		// Nose approximates the neck.
		name:      model.BodyLength,
		landmarks: []model.LandmarkName{model.Nose, model.LeftHip, model.RightHip},
		pixels: func(lms model.Landmarks, size model.ImageSize) float64 {
			hips := model.Midpoint(lms[model.LeftHip], lms[model.RightHip])
			return verticalDistance(lms[model.Nose], hips, size)
		},
	},
	{
		name:      model.SleeveLength,
		landmarks: []model.LandmarkName{model.LeftShoulder, model.LeftWrist},
		pixels: func(lms model.Landmarks, size model.ImageSize) float64 {
			return PixelDistance(lms[model.LeftShoulder], lms[model.LeftWrist], size)
		},
	},
}

var lowerBodyDefinitions = []definition{
	{
		name:      model.WaistWidth,
		landmarks: []model.LandmarkName{model.LeftHip, model.RightHip},
		pixels: func(lms model.Landmarks, size model.ImageSize) float64 {
			return PixelDistance(lms[model.LeftHip], lms[model.RightHip], size)
		},
	},
	{
		name:      model.Inseam,
		landmarks: []model.LandmarkName{model.LeftHip, model.LeftAnkle},
		pixels: func(lms model.Landmarks, size model.ImageSize) float64 {
			return PixelDistance(lms[model.LeftHip], lms[model.LeftAnkle], size)
		},
	},
	{
		name:      model.Rise,
		landmarks: []model.LandmarkName{model.LeftHip, model.LeftKnee},
		pixels: func(lms model.Landmarks, size model.ImageSize) float64 {
			return riseHeuristicFactor * verticalDistance(lms[model.LeftHip], lms[model.LeftKnee], size)
		},
	},
}

func definitionsFor(g model.GarmentType) []definition {
	if g == model.Pants {
		return lowerBodyDefinitions
	}
	return upperBodyDefinitions
}

// MeasurementNames lists the measurements produced for g, in output order.
// Unknown garments resolve to the default profile.
func MeasurementNames(g model.GarmentType) []string {
	defs := definitionsFor(garment.ProfileFor(g).Garment)
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.name)
	}
	return names
}

// EstimateScaleFactor returns the cm-per-pixel ratio for the garment's anchor.
// A non-positive anchor distance falls back to width/100.
func EstimateScaleFactor(lms model.Landmarks, g model.GarmentType, size model.ImageSize) (float64, error) {
	if lms.Empty() {
		return 0, ErrNoLandmarks
	}
	if !size.Valid() {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidImageSize, size.Width, size.Height)
	}
	p := garment.ProfileFor(g)
	if err := requireLandmarks(lms, p.Anchor.From, p.Anchor.To); err != nil {
		return 0, err
	}
	scale, _ := scaleFactor(lms, p, size)
	return scale, nil
}

func scaleFactor(lms model.Landmarks, p garment.Profile, size model.ImageSize) (scale float64, fallback bool) {
	anchor := PixelDistance(lms[p.Anchor.From], lms[p.Anchor.To], size)
	if anchor <= 0 || math.IsNaN(anchor) {
		return float64(size.Width) / fallbackScaleDivisor, true
	}
	return p.Anchor.ReferenceCM / anchor, false
}

// Extract computes every measurement of the garment's profile. It fails as a
// whole: either all measurements are produced or an error is returned.
func Extract(lms model.Landmarks, g model.GarmentType, size model.ImageSize) (model.Result, error) {
	if lms.Empty() {
		return model.Result{}, ErrNoLandmarks
	}
	if !size.Valid() {
		return model.Result{}, fmt.Errorf("%w: %dx%d", ErrInvalidImageSize, size.Width, size.Height)
	}

	p := garment.ProfileFor(g)
	defs := definitionsFor(p.Garment)
	if err := requireLandmarks(lms, usedLandmarks(p, defs)...); err != nil {
		return model.Result{}, err
	}

	scale, fallback := scaleFactor(lms, p, size)

	res := model.Result{
		Garment:       p.Garment,
		Measurements:  make(map[string]float64, len(defs)),
		Confidence:    make(map[string]float64, len(defs)),
		ScaleFactor:   scale,
		ScaleFallback: fallback,
	}
	for _, d := range defs {
		used := make([]model.Landmark, 0, len(d.landmarks))
		for _, n := range d.landmarks {
			used = append(used, lms[n])
		}
		res.Measurements[d.name] = round(d.pixels(lms, size)*scale, 1)
		res.Confidence[d.name] = round(meanVisibility(used...), 2)
	}
	res.Size = EstimateGarmentSize(res.Measurements, p.Garment)
	return res, nil
}

// EstimateGarmentSize picks the standard size whose primary dimension is
// closest to the measured value. Ties go to the size listed first in the
// table. Unknown garments and absent measurements yield the default size.
func EstimateGarmentSize(measurements map[string]float64, g model.GarmentType) model.Size {
	p, ok := garment.Lookup(g)
	if !ok {
		return model.DefaultSize
	}
	value, ok := measurements[p.Primary]
	if !ok {
		return model.DefaultSize
	}

	best := model.DefaultSize
	bestDiff := math.Inf(1)
	for _, row := range p.Sizes {
		ref, ok := row.Values[p.Primary]
		if !ok {
			continue
		}
		if diff := math.Abs(value - ref); diff < bestDiff {
			best, bestDiff = row.Size, diff
		}
	}
	return best
}

// usedLandmarks lists the anchor pair followed by every landmark a
// measurement reads. Profile landmarks nothing reads are not required.
func usedLandmarks(p garment.Profile, defs []definition) []model.LandmarkName {
	names := []model.LandmarkName{p.Anchor.From, p.Anchor.To}
	for _, d := range defs {
		names = append(names, d.landmarks...)
	}
	return names
}

func requireLandmarks(lms model.Landmarks, names ...model.LandmarkName) error {
	for _, n := range names {
		if _, ok := lms.Get(n); !ok {
			return fmt.Errorf("%w: %s", ErrMissingLandmark, n)
		}
	}
	return nil
}
