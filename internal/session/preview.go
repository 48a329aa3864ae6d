package session

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// renderPreview decodes an uploaded image and re-encodes it as a PNG whose
// longest side is at most maxDim (0 keeps the original size).
func renderPreview(data []byte, maxDim int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			img = resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode %s preview: %w", format, err)
	}
	return buf.Bytes(), nil
}
