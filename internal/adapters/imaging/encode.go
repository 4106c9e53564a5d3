package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
)

const pngDataURIPrefix = "data:image/png;base64,"

// PNGDataURI encodes img as a base64 PNG data URI.
func PNGDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodeBase64 is the inverse of DecodeBase64 for a plain payload.
func EncodeBase64(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
