package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/banshee-data/adf/internal/adf"
	"github.com/banshee-data/adf/internal/fsutil"
	"github.com/banshee-data/adf/internal/security"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotOptions controls WriteWeightPlots.
type PlotOptions struct {
	// Names labels the weights; missing entries default to w0, w1, ...
	Names []string
	// Reference, when set, draws a dotted horizontal line per weight, for
	// example a batch estimate to compare the online path against.
	Reference []float64
	// Width and Height of every image. Zero means 8×5 inches.
	Width, Height vg.Length
	// FS receives the images. Nil writes to the local filesystem.
	FS fsutil.FileSystem
}

func (o PlotOptions) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w == 0 {
		w = 8 * vg.Inch
	}
	if h == 0 {
		h = 5 * vg.Inch
	}
	return w, h
}

// errorPoints pairs positions with symmetric error bars.
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// WriteWeightPlots writes one PNG per weight showing the posterior mean
// after each observation with ±1 standard deviation error bars, and a
// marginals.png with the final posterior density of every weight. It
// returns the paths written.
func WriteWeightPlots(dir string, res *adf.Result, opts PlotOptions) ([]string, error) {
	if err := checkResult(res); err != nil {
		return nil, err
	}
	if res.Steps() == 0 {
		return nil, fmt.Errorf("report: no observations to plot")
	}
	if opts.Reference != nil && len(opts.Reference) != res.Dims() {
		return nil, fmt.Errorf("report: %d reference values for %d weights", len(opts.Reference), res.Dims())
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	names := weightNames(res, opts.Names)
	colors := palette(res.Dims())
	w, h := opts.size()

	var written []string
	for i := 0; i < res.Dims(); i++ {
		p, err := weightPlot(res, i, names[i], colors[i], opts.Reference)
		if err != nil {
			return written, err
		}
		file := filepath.Join(dir, fmt.Sprintf("weight_%02d_%s.png", i, security.SanitizeFilename(names[i])))
		if err := savePNG(fsys, p, w, h, file); err != nil {
			return written, fmt.Errorf("save weight plot %d: %w", i, err)
		}
		written = append(written, file)
	}

	p, err := marginalsPlot(res.Final, names, colors)
	if err != nil {
		return written, err
	}
	file := filepath.Join(dir, "marginals.png")
	if err := savePNG(fsys, p, w, h, file); err != nil {
		return written, fmt.Errorf("save marginals plot: %w", err)
	}
	return append(written, file), nil
}

// weightPlot charts history states 1..N against the number of samples seen.
func weightPlot(res *adf.Result, i int, name string, c color.Color, reference []float64) (*plot.Plot, error) {
	n := res.Steps()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s online (ADF)", name)
	p.X.Label.Text = "Number of samples"
	p.Y.Label.Text = "Weight"

	pts := errorPoints{
		XYs:     make(plotter.XYs, n),
		YErrors: make(plotter.YErrors, n),
	}
	for k := 1; k <= n; k++ {
		st := res.History[k]
		sd := math.Sqrt(st.Variance[i])
		pts.XYs[k-1] = plotter.XY{X: float64(k), Y: st.Mean[i]}
		pts.YErrors[k-1].Low = sd
		pts.YErrors[k-1].High = sd
	}

	line, err := plotter.NewLine(pts.XYs)
	if err != nil {
		return nil, fmt.Errorf("weight %d line: %w", i, err)
	}
	line.Color = c
	line.Width = vg.Points(1)

	bars, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return nil, fmt.Errorf("weight %d error bars: %w", i, err)
	}
	bars.Color = c

	p.Add(line, bars)
	p.Legend.Add(fmt.Sprintf("%s (mean ± sd)", name), line)

	if reference != nil {
		ref := reference[i]
		fn := plotter.NewFunction(func(float64) float64 { return ref })
		fn.XMin, fn.XMax = 1, float64(n)
		fn.Color = c
		fn.Width = vg.Points(2)
		fn.Dashes = []vg.Length{vg.Points(2), vg.Points(3)}
		p.Add(fn)
		p.Legend.Add(fmt.Sprintf("%s reference", name), fn)
	}

	p.X.Min, p.X.Max = 1, math.Max(float64(n), 2)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// marginalsPlot draws N(μᵢ, τᵢ) for every weight over μᵢ ± 4σᵢ.
func marginalsPlot(st adf.State, names []string, colors []color.Color) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Posterior marginals (ADF)"
	p.X.Label.Text = "Weight"
	p.Y.Label.Text = "Density"

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range st.Mean {
		dist := st.Marginal(i)
		sd := dist.StdDev()
		fn := plotter.NewFunction(dist.Prob)
		fn.XMin, fn.XMax = dist.Mu-4*sd, dist.Mu+4*sd
		fn.Samples = 500
		fn.Color = colors[i]
		fn.Width = vg.Points(1.5)
		p.Add(fn)
		p.Legend.Add(names[i], fn)

		lo = math.Min(lo, fn.XMin)
		hi = math.Max(hi, fn.XMax)
	}
	p.X.Min, p.X.Max = lo, hi
	p.Y.Min = 0
	p.Legend.Top = true
	return p, nil
}
