// Package imaging decodes request images and renders annotated previews.
package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"strings"

	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/okian/fitmeasure/internal/domain/model"
)

// Format is a supported input image format.
type Format string

// Supported formats.
const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
	WEBP Format = "webp"
)

// maxPixels rejects images whose header announces more pixels than any
// phone camera produces, before the pixel data is decoded.
const maxPixels = 64 << 20

// Decoded is a request image after base64 and format decoding.
type Decoded struct {
	Image  image.Image
	Format Format
	Size   model.ImageSize
	// Digest is the hex SHA-256 of the raw image bytes.
	Digest string
}

// Decode parses a base64 payload (optionally a data URI) into an image.
// maxBytes bounds the decoded byte length; zero disables the check.
func Decode(payload string, maxBytes int) (Decoded, error) {
	raw, err := DecodeBase64(payload)
	if err != nil {
		return Decoded{}, err
	}
	if maxBytes > 0 && len(raw) > maxBytes {
		return Decoded{}, fmt.Errorf("%w: %d bytes > %d", ErrImageTooLarge, len(raw), maxBytes)
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	format, err := formatOf(name)
	if err != nil {
		return Decoded{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Decoded{}, fmt.Errorf("%w: empty %dx%d image", ErrDecode, cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return Decoded{}, fmt.Errorf("%w: %dx%d pixels", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	b := img.Bounds()
	sum := sha256.Sum256(raw)
	return Decoded{
		Image:  img,
		Format: format,
		Size:   model.ImageSize{Width: b.Dx(), Height: b.Dy()},
		Digest: hex.EncodeToString(sum[:]),
	}, nil
}

// DecodeBase64 strips an optional data URI prefix and decodes the payload.
// Both padded and unpadded standard encodings are accepted.
func DecodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		i := strings.Index(payload, ",")
		if i < 0 {
			return nil, fmt.Errorf("%w: malformed data URI", ErrInvalidBase64)
		}
		payload = payload[i+1:]
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, ErrEmptyImage
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		if raw, rawErr = base64.RawStdEncoding.DecodeString(payload); rawErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBase64, err)
		}
	}
	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}
	return raw, nil
}

func formatOf(name string) (Format, error) {
	switch name {
	case "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "gif":
		return GIF, nil
	case "webp":
		return WEBP, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}
