package mixture

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// blockArena holds K square DxD matrix blocks in one contiguous backing
// slice, indexed by component id. Views returned by sym/dense share the
// backing array; callers must treat them as read-only after SplitJoint
// returns.
type blockArena struct {
	d    int
	data []float64
}

func newBlockArena(k, d int) *blockArena {
	return &blockArena{d: d, data: make([]float64, k*d*d)}
}

func (a *blockArena) dense(k int) *mat.Dense {
	return mat.NewDense(a.d, a.d, a.data[k*a.d*a.d:(k+1)*a.d*a.d])
}

func (a *blockArena) sym(k int) *mat.SymDense {
	return mat.NewSymDense(a.d, a.data[k*a.d*a.d:(k+1)*a.d*a.d])
}

// JointParams is a joint source/target mixture split into per-component
// parameter blocks, plus the source-marginal factorizations needed for
// posterior computation. Immutable once built.
type JointParams struct {
	k int // number of components
	d int // feature order per side (half the joint dimension)

	weights  []float64
	srcMeans []float64 // k*d, flattened
	tgtMeans []float64 // k*d, flattened

	xx, xy, yx, yy *blockArena
	schur          *blockArena // residual covariance of target given source

	// Source-marginal Cholesky factors and log-determinants of xx,
	// reused for every conditional-mean solve and posterior evaluation.
	xxChol   []mat.Cholesky
	xxLogDet []float64
}

// SplitJoint splits a fitted mixture over concatenated (source, target)
// vectors into per-component blocks and precomputes the source-marginal
// factorizations. If swap is true the source and target roles are
// exchanged, derived directly from the block layout: the two diagonal
// blocks trade places and the cross blocks are relabelled by transpose
// position.
func SplitJoint(m Model, swap bool) (*JointParams, error) {
	if v, ok := m.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	k := m.NumComponents()
	if k == 0 {
		return nil, fmt.Errorf("no components: %w", ErrInvalidModel)
	}
	joint := len(m.Mean(0))
	if joint == 0 || joint%2 != 0 {
		return nil, fmt.Errorf("joint dimension %d not divisible by 2: %w", joint, ErrInvalidModel)
	}
	d := joint / 2

	srcOff, tgtOff := 0, d
	if swap {
		srcOff, tgtOff = d, 0
	}

	p := &JointParams{
		k:        k,
		d:        d,
		weights:  make([]float64, k),
		srcMeans: make([]float64, k*d),
		tgtMeans: make([]float64, k*d),
		xx:       newBlockArena(k, d),
		xy:       newBlockArena(k, d),
		yx:       newBlockArena(k, d),
		yy:       newBlockArena(k, d),
		schur:    newBlockArena(k, d),
		xxChol:   make([]mat.Cholesky, k),
		xxLogDet: make([]float64, k),
	}

	for c := 0; c < k; c++ {
		p.weights[c] = m.Weight(c)

		mean := m.Mean(c)
		if len(mean) != joint {
			return nil, fmt.Errorf("component %d: mean length %d, want %d: %w",
				c, len(mean), joint, ErrInvalidModel)
		}
		copy(p.srcMeans[c*d:(c+1)*d], mean[srcOff:srcOff+d])
		copy(p.tgtMeans[c*d:(c+1)*d], mean[tgtOff:tgtOff+d])

		cov := m.Covariance(c)
		if cov.SymmetricDim() != joint {
			return nil, fmt.Errorf("component %d: covariance dim %d, want %d: %w",
				c, cov.SymmetricDim(), joint, ErrInvalidModel)
		}
		xx := p.xx.dense(c)
		xy := p.xy.dense(c)
		yx := p.yx.dense(c)
		yy := p.yy.dense(c)
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				xx.Set(i, j, cov.At(srcOff+i, srcOff+j))
				xy.Set(i, j, cov.At(srcOff+i, tgtOff+j))
				yx.Set(i, j, cov.At(tgtOff+i, srcOff+j))
				yy.Set(i, j, cov.At(tgtOff+i, tgtOff+j))
			}
		}

		if !p.xxChol[c].Factorize(p.xx.sym(c)) {
			return nil, fmt.Errorf("component %d: source covariance not positive definite: %w",
				c, ErrInvalidModel)
		}
		p.xxLogDet[c] = p.xxChol[c].LogDet()

		// Residual covariance of the target given the source,
		// yy - yx xx^-1 xy, via the cached factorization rather
		// than an explicit inverse. Symmetrized to wash out
		// round-off before it is factorized downstream.
		var sol, cross mat.Dense
		if err := p.xxChol[c].SolveTo(&sol, xy); err != nil {
			return nil, fmt.Errorf("component %d: source covariance solve: %w", c, ErrInvalidModel)
		}
		cross.Mul(yx, &sol)
		schur := p.schur.dense(c)
		schur.Sub(yy, &cross)
		for i := 0; i < d; i++ {
			for j := i + 1; j < d; j++ {
				v := 0.5 * (schur.At(i, j) + schur.At(j, i))
				schur.Set(i, j, v)
				schur.Set(j, i, v)
			}
		}
	}

	return p, nil
}

// NumComponents returns the number of mixture components.
func (p *JointParams) NumComponents() int { return p.k }

// Order returns the per-side feature order D (half the joint dimension).
func (p *JointParams) Order() int { return p.d }

// Weight returns the mixture weight of component k.
func (p *JointParams) Weight(k int) float64 { return p.weights[k] }

// SrcMean returns the source-side mean of component k as a shared view.
func (p *JointParams) SrcMean(k int) []float64 { return p.srcMeans[k*p.d : (k+1)*p.d] }

// TgtMean returns the target-side mean of component k as a shared view.
func (p *JointParams) TgtMean(k int) []float64 { return p.tgtMeans[k*p.d : (k+1)*p.d] }

// ResidualCovariance returns the conditional residual covariance of
// component k (the Schur complement of the source block) as a shared
// symmetric view.
func (p *JointParams) ResidualCovariance(k int) *mat.SymDense { return p.schur.sym(k) }

// CondMean computes the conditional mean of the target given source
// vector x under component k: tgtMean + yx xx^-1 (x - srcMean).
func (p *JointParams) CondMean(k int, x []float64) ([]float64, error) {
	if len(x) != p.d {
		return nil, fmt.Errorf("input width %d, model order %d: %w",
			len(x), p.d, ErrDimensionMismatch)
	}

	diff := mat.NewVecDense(p.d, nil)
	for i := 0; i < p.d; i++ {
		diff.SetVec(i, x[i]-p.srcMeans[k*p.d+i])
	}
	var sol mat.VecDense
	if err := p.xxChol[k].SolveVecTo(&sol, diff); err != nil {
		return nil, fmt.Errorf("component %d conditional mean: %w", k, err)
	}

	out := mat.NewVecDense(p.d, nil)
	out.MulVec(p.yx.dense(k), &sol)
	e := make([]float64, p.d)
	for i := 0; i < p.d; i++ {
		e[i] = p.tgtMeans[k*p.d+i] + out.AtVec(i)
	}
	return e, nil
}
