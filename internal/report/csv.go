package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/adf/internal/adf"
)

// WriteHistoryCSV writes one row per history state: the step index, then
// mean and variance of every weight, then the diagnostics of the
// observation that produced the state (empty for the initial state).
func WriteHistoryCSV(w io.Writer, res *adf.Result, names []string) error {
	if err := checkResult(res); err != nil {
		return err
	}
	names = weightNames(res, names)

	cw := csv.NewWriter(w)
	header := []string{"step"}
	for _, n := range names {
		header = append(header, n+"_mean", n+"_variance")
	}
	header = append(header, "pred_mean", "pred_var", "log_z", "clamped")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for k, st := range res.History {
		row := []string{strconv.Itoa(k)}
		for i := range st.Mean {
			row = append(row, f(st.Mean[i]), f(st.Variance[i]))
		}
		if k == 0 {
			row = append(row, "", "", "", "")
		} else {
			d := res.Diagnostics[k-1]
			row = append(row, f(d.PredMean), f(d.PredVar), f(d.LogZ), strconv.Itoa(d.Clamped))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", k, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
