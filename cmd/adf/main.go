// Command adf fits an online Bayesian logistic regression to a CSV file by
// assumed density filtering, optionally storing the run in SQLite and
// rendering its weight history.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/adf/internal/adf"
	"github.com/banshee-data/adf/internal/config"
	"github.com/banshee-data/adf/internal/dataset"
	"github.com/banshee-data/adf/internal/fsutil"
	"github.com/banshee-data/adf/internal/monitoring"
	"github.com/banshee-data/adf/internal/report"
	"github.com/banshee-data/adf/internal/security"
	"github.com/banshee-data/adf/internal/store"
	"github.com/banshee-data/adf/internal/timeutil"
	"github.com/banshee-data/adf/internal/version"
)

type cliOptions struct {
	data       string
	configPath string
	dbPath     string
	plotsDir   string
	htmlPath   string
	csvPath    string
	predictive string
	reference  []float64
	label      string
	header     bool
	trace      bool
	list       bool
	replay     string
	version    bool
}

// parseCSVFloatSlice parses a comma-separated list of floats
func parseCSVFloatSlice(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFlags(args []string, output io.Writer) (*cliOptions, error) {
	fs := flag.NewFlagSet("adf", flag.ContinueOnError)
	fs.SetOutput(output)

	o := &cliOptions{}
	fs.StringVar(&o.data, "data", "", "CSV file of feature rows with the 0/1 label last (required unless -list or -replay)")
	fs.StringVar(&o.configPath, "config", "", "Filter configuration JSON (defaults built in)")
	fs.StringVar(&o.dbPath, "db", "", "SQLite file to store the run history in")
	fs.StringVar(&o.plotsDir, "plots", "", "Directory for per-weight PNG plots")
	fs.StringVar(&o.htmlPath, "html", "", "Interactive HTML chart output file")
	fs.StringVar(&o.csvPath, "csv", "", "Weight history CSV output file")
	fs.StringVar(&o.predictive, "predictive", "", "Predictive curve PNG (datasets with a single feature)")
	ref := fs.String("reference", "", "Comma-separated reference weights drawn on the plots")
	fs.StringVar(&o.label, "label", "", "Run label stored with the history")
	fs.BoolVar(&o.header, "header", false, "First CSV record names the columns")
	fs.BoolVar(&o.trace, "trace", false, "Log every update step")
	fs.BoolVar(&o.list, "list", false, "List stored runs in -db and exit")
	fs.StringVar(&o.replay, "replay", "", "Render reports for a stored run ID from -db instead of fitting")
	fs.BoolVar(&o.version, "version", false, "Print version information and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	var err error
	if o.reference, err = parseCSVFloatSlice(*ref); err != nil {
		return nil, fmt.Errorf("-reference: %w", err)
	}

	switch {
	case o.version:
	case o.list || o.replay != "":
		if o.dbPath == "" {
			return nil, errors.New("-list and -replay need -db")
		}
	case o.data == "":
		return nil, errors.New("-data is required")
	}
	return o, nil
}

// outputs returns every file or directory the run will write to.
func (o *cliOptions) outputs() []string {
	var out []string
	for _, p := range []string{o.dbPath, o.plotsDir, o.htmlPath, o.csvPath, o.predictive} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func run(o *cliOptions, stdout io.Writer, clock timeutil.Clock) error {
	if o.version {
		fmt.Fprintln(stdout, version.String("adf"))
		return nil
	}
	monitoring.SetTrace(o.trace)

	for _, p := range o.outputs() {
		if err := security.ValidateExportPath(p); err != nil {
			return fmt.Errorf("output %s: %w", p, err)
		}
	}

	var runs *store.RunStore
	if o.dbPath != "" {
		db, err := store.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		runs = store.NewRunStore(db.DB, clock)
	}

	switch {
	case o.list:
		return listRuns(runs, stdout)
	case o.replay != "":
		rec, err := runs.LoadResult(o.replay)
		if err != nil {
			return err
		}
		monitoring.Logf("replaying run %s (%d observations)", rec.RunID, rec.NObs)
		if o.label == "" {
			o.label = rec.Label
		}
		return writeReports(o, rec.Result, rec.Columns, nil, rec.Config)
	}

	start := clock.Now()

	cfg := config.DefaultFilterConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadFilterConfig(o.configPath); err != nil {
			return err
		}
	}
	opts, err := adf.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	ds, err := dataset.LoadFile(o.data, dataset.Options{Header: o.header, AddBias: cfg.GetAddBias()})
	if err != nil {
		return err
	}
	monitoring.Logf("loaded %d observations with columns %v from %s", ds.Len(), ds.Columns, o.data)

	res, err := adf.Run(ds.Features, ds.Labels, opts)
	if err != nil {
		return err
	}
	for i, name := range ds.Columns {
		monitoring.Logf("%s = %.6g ± %.3g", name, res.Final.Mean[i], math.Sqrt(res.Final.Variance[i]))
	}

	if runs != nil {
		rec := &store.RunRecord{
			Label:   o.label,
			NObs:    ds.Len(),
			Dims:    ds.Dims(),
			Columns: ds.Columns,
			Config:  cfg,
			Result:  res,
		}
		if err := runs.Save(rec); err != nil {
			return err
		}
		monitoring.Logf("stored run %s in %s", rec.RunID, o.dbPath)
		fmt.Fprintln(stdout, rec.RunID)
	}

	if err := writeReports(o, res, ds.Columns, ds, cfg); err != nil {
		return err
	}
	monitoring.Logf("done in %v", clock.Since(start).Round(time.Millisecond))
	return nil
}

func listRuns(runs *store.RunStore, stdout io.Writer) error {
	recs, err := runs.List(0)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tLABEL\tOBS\tDIMS\tCREATED")
	for _, r := range recs {
		created := time.Unix(0, r.CreatedAtNs).UTC().Format(time.RFC3339)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.RunID, r.Label, r.NObs, r.Dims, created)
	}
	return tw.Flush()
}

// writeReports renders every output requested on the command line. ds is
// nil when replaying a stored run, which rules out the predictive curve.
func writeReports(o *cliOptions, res *adf.Result, columns []string, ds *dataset.Dataset, cfg *config.FilterConfig) error {
	title := "ADF weight history"
	if o.label != "" {
		title = o.label
	}

	if o.plotsDir != "" {
		files, err := report.WriteWeightPlots(o.plotsDir, res, report.PlotOptions{Names: columns, Reference: o.reference, FS: outputFS})
		if err != nil {
			return err
		}
		monitoring.Logf("wrote %d plots to %s", len(files), o.plotsDir)
	}
	if o.htmlPath != "" {
		if err := writeFile(outputFS, o.htmlPath, func(w io.Writer) error {
			return report.WriteHTML(w, res, title, columns)
		}); err != nil {
			return err
		}
	}
	if o.csvPath != "" {
		if err := writeFile(outputFS, o.csvPath, func(w io.Writer) error {
			return report.WriteHistoryCSV(w, res, columns)
		}); err != nil {
			return err
		}
	}
	if o.predictive != "" {
		if ds == nil {
			return errors.New("-predictive needs -data")
		}
		if cfg == nil {
			cfg = config.DefaultFilterConfig()
		}
		opts, err := adf.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		curve, err := predictiveCurve(ds, res.Final, opts, 200)
		if err != nil {
			return err
		}
		if err := report.WritePredictivePlot(outputFS, o.predictive, curve, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

// predictiveCurve evaluates P(y=1 | x) over the range of the dataset's
// single non-bias feature, padded by one unit on each side.
func predictiveCurve(ds *dataset.Dataset, st adf.State, opts adf.Options, n int) (report.Curve, error) {
	col := -1
	for i, name := range ds.Columns {
		if name == dataset.BiasColumn && i == 0 {
			continue
		}
		if col >= 0 {
			return report.Curve{}, fmt.Errorf("predictive curve needs a single feature, got %v", ds.Columns)
		}
		col = i
	}
	if col < 0 {
		return report.Curve{}, errors.New("predictive curve needs a feature column")
	}

	c := report.Curve{Feature: ds.Columns[col], DataY: ds.Labels}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range ds.Features {
		x := row[col]
		c.DataX = append(c.DataX, x)
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	lo, hi = lo-1, hi+1

	grid := make([][]float64, n)
	c.X = make([]float64, n)
	for k := range grid {
		x := lo + (hi-lo)*float64(k)/float64(n-1)
		row := make([]float64, ds.Dims())
		if col == 1 {
			row[0] = 1
		}
		row[col] = x
		grid[k] = row
		c.X[k] = x
	}
	p, err := adf.PredictGrid(st, grid, opts)
	if err != nil {
		return report.Curve{}, err
	}
	c.P = p
	return c, nil
}

// outputFS receives every report file.
var outputFS fsutil.FileSystem = fsutil.OSFileSystem{}

func writeFile(fsys fsutil.FileSystem, path string, write func(io.Writer) error) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	monitoring.Logf("wrote %s", path)
	return nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("adf: %v", err)
	}
	if err := run(o, os.Stdout, timeutil.RealClock{}); err != nil {
		log.Fatalf("adf: %v", err)
	}
}
