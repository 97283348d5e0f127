package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"
)

var overlayFont *truetype.Font

func init() {
	var err error
	overlayFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Common overlay colors.
var (
	ColorDot     = color.RGBA{0, 200, 0, 255}
	ColorCenter  = color.RGBA{255, 0, 255, 255}
	ColorLink    = color.RGBA{0, 120, 255, 255}
	ColorLine    = color.RGBA{255, 0, 0, 255}
	ColorSquare  = color.RGBA{255, 200, 0, 255}
	ColorLabel   = color.RGBA{255, 255, 255, 255}
	ColorLabelBg = color.RGBA{0, 0, 0, 180}
)

// EncodedImage is a PNG rendering ready to be returned by the tool server.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Overlay is a drawing surface over a copy of a source image. Drawing never
// touches the source.
type Overlay struct {
	dc *gg.Context
}

// NewOverlay copies img onto a new canvas.
func NewOverlay(img image.Image) *Overlay {
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	return &Overlay{dc: dc}
}

// Circle outlines a circle.
func (o *Overlay) Circle(center r2.Point, radius float64, c color.Color, width float64) {
	o.dc.SetColor(c)
	o.dc.SetLineWidth(width)
	o.dc.DrawCircle(center.X, center.Y, radius)
	o.dc.Stroke()
}

// Disc fills a circle.
func (o *Overlay) Disc(center r2.Point, radius float64, c color.Color) {
	o.dc.SetColor(c)
	o.dc.DrawCircle(center.X, center.Y, radius)
	o.dc.Fill()
}

// Line draws a segment from a to b.
func (o *Overlay) Line(a, b r2.Point, c color.Color, width float64) {
	o.dc.SetColor(c)
	o.dc.SetLineWidth(width)
	o.dc.DrawLine(a.X, a.Y, b.X, b.Y)
	o.dc.Stroke()
}

// Polyline draws an open path through pts.
func (o *Overlay) Polyline(pts []r2.Point, c color.Color, width float64) {
	if len(pts) < 2 {
		return
	}
	o.dc.SetColor(c)
	o.dc.SetLineWidth(width)
	o.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		o.dc.LineTo(p.X, p.Y)
	}
	o.dc.Stroke()
}

// Polygon draws a closed outline through pts.
func (o *Overlay) Polygon(pts []r2.Point, c color.Color, width float64) {
	if len(pts) < 2 {
		return
	}
	o.dc.SetColor(c)
	o.dc.SetLineWidth(width)
	o.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		o.dc.LineTo(p.X, p.Y)
	}
	o.dc.ClosePath()
	o.dc.Stroke()
}

// Label writes text with its top-left corner at p over a translucent box.
func (o *Overlay) Label(p r2.Point, text string, size float64) {
	if text == "" {
		return
	}
	o.dc.SetFontFace(truetype.NewFace(overlayFont, &truetype.Options{Size: size}))
	w, h := o.dc.MeasureString(text)
	o.dc.SetColor(ColorLabelBg)
	o.dc.DrawRectangle(p.X-1, p.Y-1, w+2, h+2)
	o.dc.Fill()
	o.dc.SetColor(ColorLabel)
	o.dc.DrawStringAnchored(text, p.X, p.Y, 0, 1)
}

// Image returns the rendered canvas.
func (o *Overlay) Image() image.Image {
	return o.dc.Image()
}

// Save writes the canvas to path; the extension selects the format.
func (o *Overlay) Save(path string) error {
	return Save(o.dc.Image(), path)
}

// Encode renders the canvas as base64 PNG.
func (o *Overlay) Encode() (*EncodedImage, error) {
	return EncodePNG(o.dc.Image())
}

// EncodePNG renders any image as base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}
	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// ParseHexColor parses "#RGB", "#RRGGBB" or "#RRGGBBAA"; the leading '#' is
// optional.
func ParseHexColor(hex string) (color.RGBA, error) {
	hex = strings.TrimPrefix(hex, "#")
	alpha := uint8(255)
	if len(hex) == 8 {
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return color.RGBA{}, errors.Wrapf(err, "invalid alpha in %q", hex)
		}
		alpha, hex = uint8(a), hex[:6]
	}
	if len(hex) != 3 && len(hex) != 6 {
		return color.RGBA{}, errors.Errorf("invalid hex color %q", hex)
	}
	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(err, "invalid hex color %q", hex)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: alpha}, nil
}
