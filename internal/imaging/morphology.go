package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// Morph applies erosion or dilation to an image before edge detection.
//
// A positive level erodes (light regions shrink, dark dots grow) with a
// neighborhood radius equal to the level; a negative level dilates by the
// absolute value. Zero returns the image unchanged.
func Morph(img image.Image, level int) image.Image {
	switch {
	case level > 0:
		return effect.Erode(img, float64(level))
	case level < 0:
		return effect.Dilate(img, float64(-level))
	default:
		return img
	}
}

// MorphBuffer is Morph for pixel buffers.
func MorphBuffer(buf *Buffer, level int) *Buffer {
	if level == 0 {
		return buf
	}
	return FromImage(Morph(buf.Image(), level))
}
