// Package report renders filter histories as PNG plots, interactive HTML
// charts and CSV tables. It only reads an adf.Result; nothing here feeds
// back into the filter.
package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/banshee-data/adf/internal/adf"
	"github.com/banshee-data/adf/internal/fsutil"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// weightNames returns a display name per weight, falling back to w0, w1, ...
// for anything names does not cover.
func weightNames(res *adf.Result, names []string) []string {
	out := make([]string, res.Dims())
	for i := range out {
		if i < len(names) && names[i] != "" {
			out[i] = names[i]
		} else {
			out[i] = fmt.Sprintf("w%d", i)
		}
	}
	return out
}

func checkResult(res *adf.Result) error {
	if res == nil || len(res.History) == 0 || res.Dims() == 0 {
		return fmt.Errorf("report: empty result")
	}
	return nil
}

// savePNG renders p into path on fsys, creating the parent directory.
// A nil fsys writes to the local filesystem.
func savePNG(fsys fsutil.FileSystem, p *plot.Plot, width, height vg.Length, path string) (err error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = wt.WriteTo(f)
	return err
}

// palette returns n evenly spaced hues.
func palette(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := range colors {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.45)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	channel := func(t float64) uint8 {
		switch {
		case t < 0:
			t++
		case t > 1:
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(v * 255)
	}
	return channel(h + 1.0/3), channel(h), channel(h - 1.0/3)
}
