package media

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestReencodeDownscalesOversizedImage(t *testing.T) {
	data := makePNG(t, 3000, 1000)
	out, mime, err := Reencode(data, 1600)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	decoded, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	b := decoded.Bounds()
	assert.LessOrEqual(t, b.Dx(), 1600)
	assert.LessOrEqual(t, b.Dy(), 1600)
}

func TestReencodeLeavesSmallImageDimensionsUnscaled(t *testing.T) {
	data := makePNG(t, 100, 50)
	out, _, err := Reencode(data, 1600)
	require.NoError(t, err)

	decoded, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	b := decoded.Bounds()
	assert.Equal(t, 100, b.Dx())
	assert.Equal(t, 50, b.Dy())
}

func TestSniffMIMEDetectsPNG(t *testing.T) {
	data := makePNG(t, 10, 10)
	assert.Equal(t, "image/png", SniffMIME(data))
}
