package monitor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// GlobalVariance computes the per-dimension variance of a trajectory
// across frames, the statistic the GV post-filter steers toward its
// target.
func GlobalVariance(seq [][]float64) []float64 {
	frames := len(seq)
	if frames == 0 {
		return nil
	}
	d := len(seq[0])

	mean := make([]float64, d)
	for _, frame := range seq {
		for j := 0; j < d; j++ {
			mean[j] += frame[j]
		}
	}
	for j := 0; j < d; j++ {
		mean[j] /= float64(frames)
	}

	variance := make([]float64, d)
	for _, frame := range seq {
		for j := 0; j < d; j++ {
			dv := frame[j] - mean[j]
			variance[j] += dv * dv
		}
	}
	for j := 0; j < d; j++ {
		variance[j] /= float64(frames)
	}
	return variance
}

// WriteGVReport renders an HTML bar chart comparing the per-dimension
// global variance of the plain and GV-refined trajectories against the
// model target. target may be nil when no GV model was configured.
func WriteGVReport(path string, converted, refined, target []float64) error {
	if len(converted) == 0 {
		return fmt.Errorf("no variance data to report")
	}

	x := make([]string, len(converted))
	for i := range x {
		x[i] = fmt.Sprintf("dim %d", i)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Global Variance", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Per-dimension global variance", Subtitle: "converted vs. GV-refined vs. target"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	bar.SetXAxis(x).AddSeries("converted", barData(converted))
	if refined != nil {
		bar.AddSeries("gv-refined", barData(refined))
	}
	if target != nil {
		bar.AddSeries("target", barData(target))
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	if err := bar.Render(f); err != nil {
		return fmt.Errorf("render gv report: %w", err)
	}
	return nil
}

func barData(values []float64) []opts.BarData {
	out := make([]opts.BarData, len(values))
	for i, v := range values {
		out[i] = opts.BarData{Value: v}
	}
	return out
}
