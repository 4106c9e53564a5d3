package measurement

import "errors"

var (
	// ErrNoLandmarks indicates the pose model found no body in the image.
	ErrNoLandmarks = errors.New("no pose landmarks detected")
	// ErrMissingLandmark indicates a landmark the garment needs was not detected.
	ErrMissingLandmark = errors.New("required landmark missing")
	// ErrInvalidImageSize indicates a non-positive image dimension.
	ErrInvalidImageSize = errors.New("invalid image size")
)
