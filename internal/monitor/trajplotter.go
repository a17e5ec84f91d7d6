// Package monitor produces offline diagnostics for conversion runs:
// per-dimension trajectory plots (PNG) and a global-variance report
// (HTML). Nothing here is needed by the mapping engine itself.
package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// TrajectoryPlotter collects named feature trajectories and renders one
// PNG per feature dimension, with a line per trajectory. Typical use is
// two or three series: the source statics, the converted trajectory,
// and optionally the GV-refined trajectory.
type TrajectoryPlotter struct {
	mu        sync.Mutex
	outputDir string

	// series holds per-name trajectories, [T][D] each. All series must
	// share a feature order; frame counts may differ.
	series map[string][][]float64
	order  int
}

// NewTrajectoryPlotter creates a plotter writing into outputDir.
func NewTrajectoryPlotter(outputDir string) *TrajectoryPlotter {
	return &TrajectoryPlotter{
		outputDir: outputDir,
		series:    make(map[string][][]float64),
	}
}

// Add records a named trajectory. Returns an error if its feature order
// disagrees with previously added series.
func (tp *TrajectoryPlotter) Add(name string, seq [][]float64) error {
	if len(seq) == 0 {
		return fmt.Errorf("series %q is empty", name)
	}
	d := len(seq[0])

	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.order == 0 {
		tp.order = d
	} else if d != tp.order {
		return fmt.Errorf("series %q has order %d, want %d", name, d, tp.order)
	}
	tp.series[name] = seq
	return nil
}

// WritePlots renders one PNG per feature dimension into the output
// directory and returns the number of files written.
func (tp *TrajectoryPlotter) WritePlots() (int, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if len(tp.series) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(tp.outputDir, 0755); err != nil {
		return 0, fmt.Errorf("create plot dir: %w", err)
	}

	// Sort series names for a consistent legend
	var names []string
	for name := range tp.series {
		names = append(names, name)
	}
	sort.Strings(names)
	colors := generateColors(len(names))

	for dim := 0; dim < tp.order; dim++ {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Feature dimension %d", dim)
		p.X.Label.Text = "Frame"
		p.Y.Label.Text = "Value"

		for i, name := range names {
			seq := tp.series[name]
			pts := make(plotter.XYs, 0, len(seq))
			for t, frame := range seq {
				pts = append(pts, plotter.XY{X: float64(t), Y: frame[dim]})
			}

			line, err := plotter.NewLine(pts)
			if err != nil {
				return 0, fmt.Errorf("dimension %d series %q: %w", dim, name, err)
			}
			line.Color = colors[i]
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(name, line)
		}

		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10

		file := filepath.Join(tp.outputDir, fmt.Sprintf("dim_%02d.png", dim))
		if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
			return 0, fmt.Errorf("save plot for dimension %d: %w", dim, err)
		}
	}

	return tp.order, nil
}

// generateColors creates a palette of distinct colors for series lines
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.4)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var fr, fg, fb float64
	if s == 0 {
		fr, fg, fb = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		fr = hueToRGB(p, q, h+1.0/3.0)
		fg = hueToRGB(p, q, h)
		fb = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(math.Round(fr * 255)), uint8(math.Round(fg * 255)), uint8(math.Round(fb * 255))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
