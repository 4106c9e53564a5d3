package pose

import (
	"fmt"

	"github.com/okian/fitmeasure/internal/domain/model"
)

// landmarkPayload is one landmark on the wire. Entries without a name are
// identified by their position in the list.
type landmarkPayload struct {
	Name       string  `json:"name,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// detectionPayload is the body returned by the pose sidecar and the format
// of fixture files. A null landmark list means no detection.
type detectionPayload struct {
	Landmarks []landmarkPayload `json:"landmarks"`
}

func (p detectionPayload) toLandmarks() (model.Landmarks, error) {
	if len(p.Landmarks) == 0 {
		return nil, nil
	}
	out := make(model.Landmarks, len(p.Landmarks))
	for i, lp := range p.Landmarks {
		name := model.LandmarkName(i)
		if lp.Name != "" {
			n, ok := model.ParseLandmarkName(lp.Name)
			if !ok {
				return nil, fmt.Errorf("%w: unknown landmark %q", ErrBadPayload, lp.Name)
			}
			name = n
		} else if !name.Valid() {
			return nil, fmt.Errorf("%w: landmark index %d out of range", ErrBadPayload, i)
		}
		out[name] = model.Landmark{X: lp.X, Y: lp.Y, Visibility: lp.Visibility}
	}
	return out, nil
}

func fromLandmarks(lms model.Landmarks) detectionPayload {
	if lms.Empty() {
		return detectionPayload{}
	}
	p := detectionPayload{Landmarks: make([]landmarkPayload, 0, len(lms))}
	for i := 0; i < model.LandmarkCount; i++ {
		name := model.LandmarkName(i)
		lm, ok := lms[name]
		if !ok {
			continue
		}
		p.Landmarks = append(p.Landmarks, landmarkPayload{
			Name:       name.String(),
			X:          lm.X,
			Y:          lm.Y,
			Visibility: lm.Visibility,
		})
	}
	return p
}
