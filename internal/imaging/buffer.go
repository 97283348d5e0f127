package imaging

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// ITU-R BT.601 luminance weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Buffer is a row-major pixel buffer with either 3 bytes per pixel (RGB) or
// 1 byte per pixel (luminance). It is the interchange format between image
// files and the calibration algorithms.
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(width, height, channels int) *Buffer {
	return &Buffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]byte, width*height*channels),
	}
}

// FromImage copies any image into a 3-channel RGB buffer. Alpha is dropped.
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	buf := NewBuffer(bounds.Dx(), bounds.Dy(), 3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			buf.Pix[i] = uint8(r >> 8)
			buf.Pix[i+1] = uint8(g >> 8)
			buf.Pix[i+2] = uint8(b >> 8)
			i += 3
		}
	}
	return buf
}

// Validate checks that the pixel slice matches the declared geometry.
func (b *Buffer) Validate() error {
	if b == nil {
		return errors.New("nil pixel buffer")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return errors.Errorf("invalid buffer size %dx%d", b.Width, b.Height)
	}
	if b.Channels != 1 && b.Channels != 3 {
		return errors.Errorf("unsupported channel count %d", b.Channels)
	}
	if len(b.Pix) != b.Width*b.Height*b.Channels {
		return errors.Errorf("pixel buffer has %d bytes, want %d", len(b.Pix), b.Width*b.Height*b.Channels)
	}
	return nil
}

// RGB returns the color at (x, y). Mono buffers report gray.
func (b *Buffer) RGB(x, y int) (uint8, uint8, uint8) {
	i := (y*b.Width + x) * b.Channels
	if b.Channels == 1 {
		return b.Pix[i], b.Pix[i], b.Pix[i]
	}
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// In reports whether (x, y) lies inside the buffer.
func (b *Buffer) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// Image converts the buffer to an NRGBA image.
func (b *Buffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			r, g, bl := b.RGB(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: bl, A: 255})
		}
	}
	return img
}

// Luminance returns a single-channel copy of the buffer.
func (b *Buffer) Luminance() []byte {
	return Luminance(b.Pix, b.Width, b.Height)
}

// Luminance converts a packed pixel slice to luminance. Slices holding three
// bytes per pixel are weighted with the BT.601 coefficients; anything else is
// treated as already single-channel and copied.
func Luminance(pix []byte, width, height int) []byte {
	n := width * height
	out := make([]byte, n)
	if len(pix) == n*3 {
		for i, j := 0, 0; i < n; i, j = i+1, j+3 {
			v := lumaR*float64(pix[j]) + lumaG*float64(pix[j+1]) + lumaB*float64(pix[j+2])
			out[i] = uint8(v + 0.5)
		}
		return out
	}
	copy(out, pix)
	return out
}
