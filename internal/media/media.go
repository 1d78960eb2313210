// Package media re-encodes images before upload so staged files never
// exceed a sane dimension, and sniffs content types for
// transcript-referenced files whose extension is absent or wrong.
package media

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/disintegration/imaging"
)

// DefaultMaxDimension bounds the longer edge of a re-encoded image, in
// pixels. Matches the Telegram Bot API's practical photo-upload limit
// with headroom.
const DefaultMaxDimension = 1600

// Reencode decodes data, downscales it to fit within maxDimension on its
// longer edge (images already within bounds pass through unscaled), and
// re-encodes as JPEG. Returns the encoded bytes and "image/jpeg".
func Reencode(data []byte, maxDimension int) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("media: decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("media: encode image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// SniffMIME reports the content type of data's first bytes, for
// transcript-referenced files whose extension is missing or untrusted.
func SniffMIME(data []byte) string {
	n := 512
	if len(data) < n {
		n = len(data)
	}
	return http.DetectContentType(data[:n])
}
