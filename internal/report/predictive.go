package report

import (
	"fmt"
	"image/color"

	"github.com/banshee-data/adf/internal/fsutil"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Curve is a posterior predictive P(y=1 | x) evaluated along one feature,
// with the observations it was fitted to.
type Curve struct {
	X, P         []float64
	DataX, DataY []float64
	Feature      string
}

// WritePredictivePlot saves the predictive curve with the observed points
// overlaid at their labels. A nil fsys writes to the local filesystem.
func WritePredictivePlot(fsys fsutil.FileSystem, path string, c Curve, width, height vg.Length) error {
	if len(c.X) == 0 || len(c.X) != len(c.P) {
		return fmt.Errorf("report: predictive curve has %d points and %d probabilities", len(c.X), len(c.P))
	}
	if len(c.DataX) != len(c.DataY) {
		return fmt.Errorf("report: %d data points with %d labels", len(c.DataX), len(c.DataY))
	}
	if width == 0 {
		width = 8 * vg.Inch
	}
	if height == 0 {
		height = 5 * vg.Inch
	}

	p := plot.New()
	p.Title.Text = "ADF predictive distribution"
	p.X.Label.Text = c.Feature
	if p.X.Label.Text == "" {
		p.X.Label.Text = "x"
	}
	p.Y.Label.Text = "P(y = 1)"
	p.Y.Min, p.Y.Max = -0.05, 1.05

	curve := make(plotter.XYs, len(c.X))
	for i := range c.X {
		curve[i] = plotter.XY{X: c.X[i], Y: c.P[i]}
	}
	line, err := plotter.NewLine(curve)
	if err != nil {
		return fmt.Errorf("predictive line: %w", err)
	}
	line.Width = vg.Points(1.5)
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line)
	p.Legend.Add("posterior predictive", line)

	if len(c.DataX) > 0 {
		data := make(plotter.XYs, len(c.DataX))
		for i := range c.DataX {
			data[i] = plotter.XY{X: c.DataX[i], Y: c.DataY[i]}
		}
		sc, err := plotter.NewScatter(data)
		if err != nil {
			return fmt.Errorf("predictive data: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2.5)
		sc.GlyphStyle.Color = color.Black
		p.Add(sc)
		p.Legend.Add("observations", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = true
	if err := savePNG(fsys, p, width, height, path); err != nil {
		return fmt.Errorf("save predictive plot: %w", err)
	}
	return nil
}
