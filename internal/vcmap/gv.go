package vcmap

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ConvertGV maps a sequence like Convert, then refines the trajectory
// for a fixed number of gradient-ascent epochs so its per-dimension
// global variance moves toward the configured target distribution. The
// objective combines the trajectory likelihood gradient W^T P (E - Wy),
// scaled by 1/(2T), with the global-variance gradient; there is no
// convergence check, by construction the epoch count is the stop rule.
//
// A zero learning rate leaves the Convert trajectory untouched.
func (t *TrajectoryGMMMap) ConvertGV(src [][]float64, epochs int, learningRate float64) ([][]float64, error) {
	if t.gvMean == nil {
		return nil, ErrMissingGVModel
	}
	if epochs <= 0 {
		return nil, fmt.Errorf("vcmap: epochs must be positive, got %d", epochs)
	}
	if learningRate < 0 {
		return nil, fmt.Errorf("vcmap: learning rate must be non-negative, got %v", learningRate)
	}

	y, e, prec, w, err := t.solve(src)
	if err != nil {
		return nil, err
	}

	frames := len(src)
	d := t.Order()
	omega := 1.0 / (2.0 * float64(frames))

	wy := make([]float64, 2*d*frames)
	pr := make([]float64, 2*d*frames)
	likGrad := make([]float64, d*frames)
	gvGrad := make([]float64, d*frames)

	for epoch := 0; epoch < epochs; epoch++ {
		// Likelihood gradient W^T P (E - W y).
		w.mulVec(wy, y)
		for i := range wy {
			wy[i] = e[i] - wy[i]
		}
		for f := 0; f < frames; f++ {
			p := prec[f]
			r := wy[2*d*f : 2*d*(f+1)]
			out := pr[2*d*f : 2*d*(f+1)]
			for i := 0; i < 2*d; i++ {
				s := 0.0
				for j := 0; j < 2*d; j++ {
					s += p.At(i, j) * r[j]
				}
				out[i] = s
			}
		}
		w.mulTransVec(likGrad, pr)

		t.gvGradient(gvGrad, y, frames, d)

		for i := range y {
			y[i] += learningRate * (omega*likGrad[i] + gvGrad[i])
		}
	}

	return reshape(y, frames, d), nil
}

// gvGradient fills dst with the gradient of the global-variance term:
// per frame, -(2/T) * Pv (gv(y) - gvMean) elementwise with (y_t - mean).
func (t *TrajectoryGMMMap) gvGradient(dst, y []float64, frames, d int) {
	mean := make([]float64, d)
	variance := make([]float64, d)
	for f := 0; f < frames; f++ {
		floats.Add(mean, y[f*d:(f+1)*d])
	}
	floats.Scale(1.0/float64(frames), mean)
	for f := 0; f < frames; f++ {
		for j := 0; j < d; j++ {
			dv := y[f*d+j] - mean[j]
			variance[j] += dv * dv
		}
	}
	floats.Scale(1.0/float64(frames), variance)

	// q = Pv (gv(y) - gvMean)
	q := make([]float64, d)
	for i := 0; i < d; i++ {
		s := 0.0
		for j := 0; j < d; j++ {
			s += t.gvPrec.At(i, j) * (variance[j] - t.gvMean[j])
		}
		q[i] = s
	}

	scale := -2.0 / float64(frames)
	for f := 0; f < frames; f++ {
		for j := 0; j < d; j++ {
			dst[f*d+j] = scale * q[j] * (y[f*d+j] - mean[j])
		}
	}
}
