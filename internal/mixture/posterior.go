package mixture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const log2Pi = 1.8378770664093453

// logProb evaluates the log density of source vector x under the
// source-marginal Gaussian of component k, using the cached Cholesky
// factorization of its covariance block.
func (p *JointParams) logProb(k int, x []float64) (float64, error) {
	diff := mat.NewVecDense(p.d, nil)
	for i := 0; i < p.d; i++ {
		diff.SetVec(i, x[i]-p.srcMeans[k*p.d+i])
	}
	var sol mat.VecDense
	if err := p.xxChol[k].SolveVecTo(&sol, diff); err != nil {
		return 0, fmt.Errorf("component %d marginal: %w", k, err)
	}
	maha := mat.Dot(diff, &sol)
	return -0.5 * (maha + p.xxLogDet[k] + float64(p.d)*log2Pi), nil
}

// Posterior computes the responsibilities p(k|x) of each component for
// source vector x under the source-marginal mixture. The result sums to
// one. Computed in log space to survive widely separated densities.
func (p *JointParams) Posterior(x []float64) ([]float64, error) {
	if len(x) != p.d {
		return nil, fmt.Errorf("input width %d, model order %d: %w",
			len(x), p.d, ErrDimensionMismatch)
	}

	lw := make([]float64, p.k)
	for k := 0; k < p.k; k++ {
		if p.weights[k] == 0 {
			lw[k] = math.Inf(-1)
			continue
		}
		lp, err := p.logProb(k, x)
		if err != nil {
			return nil, err
		}
		lw[k] = math.Log(p.weights[k]) + lp
	}

	norm := floats.LogSumExp(lw)
	if math.IsNaN(norm) || math.IsInf(norm, -1) {
		return nil, fmt.Errorf("zero posterior mass at input: %w", ErrInvalidModel)
	}
	post := make([]float64, p.k)
	for k := 0; k < p.k; k++ {
		post[k] = math.Exp(lw[k] - norm)
	}
	return post, nil
}

// MAPComponent returns the component maximizing the posterior
// responsibility for source vector x. Weight and normalization factors
// shared across components cancel, so the argmax over weighted log
// densities suffices.
func (p *JointParams) MAPComponent(x []float64) (int, error) {
	if len(x) != p.d {
		return 0, fmt.Errorf("input width %d, model order %d: %w",
			len(x), p.d, ErrDimensionMismatch)
	}

	best, bestScore := -1, math.Inf(-1)
	for k := 0; k < p.k; k++ {
		if p.weights[k] == 0 {
			continue
		}
		lp, err := p.logProb(k, x)
		if err != nil {
			return 0, err
		}
		if score := math.Log(p.weights[k]) + lp; score > bestScore {
			best, bestScore = k, score
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("zero posterior mass at input: %w", ErrInvalidModel)
	}
	return best, nil
}
