package imaging

import "errors"

// Sentinel kinds for image handling errors.
var (
	ErrEmptyImage        = errors.New("image payload is empty")
	ErrInvalidBase64     = errors.New("image payload is not valid base64")
	ErrImageTooLarge     = errors.New("image exceeds size limit")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrDecode            = errors.New("failed to decode image")
)
