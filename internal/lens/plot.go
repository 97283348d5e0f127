package lens

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotCurve writes the rectified to original radius curve of m up to
// maxRadius, alongside the identity line, to path. The format follows the
// file extension (png, svg, pdf).
func PlotCurve(m *Model, maxRadius float64, path string) error {
	if maxRadius <= 0 {
		return errors.Errorf("invalid plot radius %v", maxRadius)
	}
	p := plot.New()
	p.Title.Text = "Radial distortion"
	p.X.Label.Text = "rectified radius (px)"
	p.Y.Label.Text = "original radius (px)"
	p.X.Min, p.X.Max = 0, maxRadius
	p.Add(plotter.NewGrid())

	curve := plotter.NewFunction(m.Curve.RegVal)
	curve.XMin, curve.XMax = 0, maxRadius
	curve.Samples = 100
	curve.Width = vg.Points(2)

	identity := plotter.NewFunction(func(r float64) float64 { return r })
	identity.XMin, identity.XMax = 0, maxRadius
	identity.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(curve, identity)
	p.Legend.Add("curve", curve)
	p.Legend.Add("identity", identity)
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save curve plot %s", path)
	}
	return nil
}
