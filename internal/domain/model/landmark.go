// Package model contains domain models passed between layers.
package model

import "strings"

// LandmarkName identifies one of the skeletal points reported by the pose model.
// Values follow the pose model's output order so index-only payloads can be mapped.
type LandmarkName int

// Pose landmarks in model output order.
const (
	Nose LandmarkName = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// LandmarkCount is the fixed size of a full detection.
	LandmarkCount int = iota
)

var landmarkNames = [LandmarkCount]string{
	"nose",
	"left_eye_inner",
	"left_eye",
	"left_eye_outer",
	"right_eye_inner",
	"right_eye",
	"right_eye_outer",
	"left_ear",
	"right_ear",
	"mouth_left",
	"mouth_right",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_pinky",
	"right_pinky",
	"left_index",
	"right_index",
	"left_thumb",
	"right_thumb",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
	"left_heel",
	"right_heel",
	"left_foot_index",
	"right_foot_index",
}

// String returns the snake_case name of the landmark.
func (n LandmarkName) String() string {
	if !n.Valid() {
		return "unknown"
	}
	return landmarkNames[n]
}

// Valid reports whether n is one of the known landmarks.
func (n LandmarkName) Valid() bool {
	return n >= 0 && int(n) < LandmarkCount
}

// ParseLandmarkName resolves a snake_case (or upper-case) landmark name.
func ParseLandmarkName(s string) (LandmarkName, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range landmarkNames {
		if name == s {
			return LandmarkName(i), true
		}
	}
	return 0, false
}

// Landmark is a skeletal point with normalized (0-1) image coordinates and
// the model's visibility score in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// Midpoint returns the point halfway between a and b. Its visibility is the
// lower of the two.
func Midpoint(a, b Landmark) Landmark {
	v := a.Visibility
	if b.Visibility < v {
		v = b.Visibility
	}
	return Landmark{
		X:          (a.X + b.X) / 2,
		Y:          (a.Y + b.Y) / 2,
		Visibility: v,
	}
}

// Landmarks is one detection keyed by landmark name. A nil or empty set
// means the model found no body.
type Landmarks map[LandmarkName]Landmark

// Empty reports whether the detection carries no landmarks.
func (l Landmarks) Empty() bool { return len(l) == 0 }

// Get returns the landmark for name and whether it was detected.
func (l Landmarks) Get(name LandmarkName) (Landmark, bool) {
	lm, ok := l[name]
	return lm, ok
}

// ImageSize is the pixel size of the analysed image.
type ImageSize struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (s ImageSize) Valid() bool { return s.Width > 0 && s.Height > 0 }
