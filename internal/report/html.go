package report

import (
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/adf/internal/adf"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// AssetsHost is where the rendered page loads the echarts scripts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// WriteHTML renders an interactive page with one chart per weight: the
// posterior mean after each observation and the ±1 sd band around it.
func WriteHTML(w io.Writer, res *adf.Result, title string, names []string) error {
	if err := checkResult(res); err != nil {
		return err
	}
	names = weightNames(res, names)
	if title == "" {
		title = "ADF weight history"
	}

	steps := make([]int, len(res.History))
	for k := range steps {
		steps[k] = k
	}

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)

	for i := 0; i < res.Dims(); i++ {
		mean := make([]opts.LineData, len(res.History))
		lower := make([]opts.LineData, len(res.History))
		upper := make([]opts.LineData, len(res.History))
		for k, st := range res.History {
			sd := math.Sqrt(st.Variance[i])
			mean[k] = opts.LineData{Value: st.Mean[i]}
			lower[k] = opts.LineData{Value: st.Mean[i] - sd}
			upper[k] = opts.LineData{Value: st.Mean[i] + sd}
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "420px", AssetsHost: AssetsHost}),
			charts.WithTitleOpts(opts.Title{Title: names[i], Subtitle: fmt.Sprintf("%s: %d observations", title, res.Steps())}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "Number of samples", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: "Weight", NameLocation: "middle", NameGap: 40}),
		)
		line.SetXAxis(steps).
			AddSeries("mean", mean).
			AddSeries("mean - sd", lower, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"})).
			AddSeries("mean + sd", upper, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
