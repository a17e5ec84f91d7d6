package vcmap

import (
	"fmt"
	"sync"

	"github.com/banshee-data/spectral.map/internal/mixture"
	"gonum.org/v1/gonum/mat"
)

// TrajectoryGMMMap maps whole sequences of source features to the
// maximum-likelihood target trajectory. The joint mixture is fitted
// over concatenated (static, delta) features on both sides, so the
// joint dimension is 4*D for static order D.
//
// Per sequence it assigns each frame its MAP mixture component, builds
// per-frame conditional estimates and precision blocks, and solves the
// banded normal equations that tie static and delta features together
// across the whole sequence.
//
// The only mutable state is the window-operator cache keyed by sequence
// length, guarded by a mutex; concurrent conversions of equal-length
// sequences share the cached operator.
type TrajectoryGMMMap struct {
	params *mixture.JointParams

	// prec[k] is the inverse residual covariance of component k, one
	// 2Dx2D block per component, computed once at construction so the
	// per-frame loop only indexes.
	prec []*mat.SymDense

	gvMean []float64     // nil when no GV model configured
	gvPrec *mat.SymDense // inverse GV covariance

	mu  sync.Mutex
	win *windowMatrix // cached for the last seen sequence length
}

// NewTrajectory builds a trajectory mapper from a joint mixture over
// static+delta source and target features. gv optionally supplies the
// target global-variance distribution (first component's mean and
// covariance) for ConvertGV; pass nil to disable GV post-filtering.
func NewTrajectory(m mixture.Model, gv mixture.Model, swap bool) (*TrajectoryGMMMap, error) {
	p, err := mixture.SplitJoint(m, swap)
	if err != nil {
		return nil, fmt.Errorf("split joint model: %w", err)
	}
	// Order() is the static+delta target width 2*D, so an odd value
	// means the joint dimension was not divisible by 4.
	if p.Order()%2 != 0 {
		return nil, fmt.Errorf("joint dimension %d not divisible by 4: %w",
			2*p.Order(), mixture.ErrInvalidModel)
	}

	t := &TrajectoryGMMMap{
		params: p,
		prec:   make([]*mat.SymDense, p.NumComponents()),
	}

	for k := 0; k < p.NumComponents(); k++ {
		var chol mat.Cholesky
		if !chol.Factorize(p.ResidualCovariance(k)) {
			return nil, fmt.Errorf("component %d: residual covariance not positive definite: %w",
				k, mixture.ErrInvalidModel)
		}
		inv := mat.NewSymDense(p.Order(), nil)
		if err := chol.InverseTo(inv); err != nil {
			return nil, fmt.Errorf("component %d: residual covariance inverse: %w",
				k, mixture.ErrInvalidModel)
		}
		t.prec[k] = inv
	}

	if gv != nil {
		if err := t.setGV(gv); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *TrajectoryGMMMap) setGV(gv mixture.Model) error {
	if gv.NumComponents() < 1 {
		return fmt.Errorf("gv model has no components: %w", mixture.ErrInvalidModel)
	}
	d := t.params.Order() / 2
	mean := gv.Mean(0)
	if len(mean) != d {
		return fmt.Errorf("gv mean width %d, static order %d: %w",
			len(mean), d, mixture.ErrDimensionMismatch)
	}
	cov := gv.Covariance(0)
	if cov.SymmetricDim() != d {
		return fmt.Errorf("gv covariance dim %d, static order %d: %w",
			cov.SymmetricDim(), d, mixture.ErrDimensionMismatch)
	}

	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		return fmt.Errorf("gv covariance not positive definite: %w", mixture.ErrInvalidModel)
	}
	prec := mat.NewSymDense(d, nil)
	if err := chol.InverseTo(prec); err != nil {
		return fmt.Errorf("gv covariance inverse: %w", mixture.ErrInvalidModel)
	}

	t.gvMean = append([]float64(nil), mean...)
	t.gvPrec = prec
	return nil
}

// Order returns the static feature order D of the output trajectory.
// Input frames carry static+delta features of width 2*D.
func (t *TrajectoryGMMMap) Order() int { return t.params.Order() / 2 }

// Convert maps a sequence of T source static+delta frames (width 2*D
// each) to the maximum-likelihood target static trajectory (T frames of
// width D).
func (t *TrajectoryGMMMap) Convert(src [][]float64) ([][]float64, error) {
	y, _, _, _, err := t.solve(src)
	if err != nil {
		return nil, err
	}
	return reshape(y, len(src), t.Order()), nil
}

// solve runs the trajectory estimation and returns the flat solution
// together with the intermediates the GV post-filter needs: the flat
// local-estimate vector, the per-frame precision block views, and the
// window operator. All returned values are local to the call; nothing
// is retained on the receiver beyond the window cache.
func (t *TrajectoryGMMMap) solve(src [][]float64) (y, e []float64, prec []*mat.SymDense, w *windowMatrix, err error) {
	frames := len(src)
	if frames == 0 {
		return nil, nil, nil, nil, fmt.Errorf("empty sequence: %w", mixture.ErrDimensionMismatch)
	}
	width := t.params.Order()
	d := width / 2

	e = make([]float64, width*frames)
	prec = make([]*mat.SymDense, frames)
	for i, x := range src {
		if len(x) != width {
			return nil, nil, nil, nil, fmt.Errorf("frame %d width %d, model width %d: %w",
				i, len(x), width, mixture.ErrDimensionMismatch)
		}
		k, err := t.params.MAPComponent(x)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		cond, err := t.params.CondMean(k, x)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		copy(e[i*width:(i+1)*width], cond)
		prec[i] = t.prec[k]
	}

	w = t.window(frames, d)
	a, b := w.normalEquations(prec, e)

	var chol mat.BandCholesky
	if !chol.Factorize(a) {
		return nil, nil, nil, nil, fmt.Errorf("sequence of %d frames: %w", frames, ErrSingularSystem)
	}
	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, b); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("sequence of %d frames: %w", frames, ErrSingularSystem)
	}

	return sol.RawVector().Data, e, prec, w, nil
}

// window returns the consistency operator for the given sequence
// length, rebuilding the cached one only when the length changes.
// Rebuild-and-replace: a caller never observes a partially built
// operator, and redundant rebuilds by racing callers are harmless.
func (t *TrajectoryGMMMap) window(frames, d int) *windowMatrix {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.win == nil || t.win.t != frames {
		t.win = newWindowMatrix(frames, d)
	}
	return t.win
}

func reshape(flat []float64, frames, d int) [][]float64 {
	out := make([][]float64, frames)
	for i := 0; i < frames; i++ {
		out[i] = flat[i*d : (i+1)*d]
	}
	return out
}
