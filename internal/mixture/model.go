package mixture

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidModel indicates a malformed fitted model: inconsistent
	// shapes, non-finite or non-normalized weights, or a source
	// covariance block that is not positive definite.
	ErrInvalidModel = errors.New("mixture: invalid model")

	// ErrDimensionMismatch indicates an input vector or sequence whose
	// width disagrees with the model's expected source dimension.
	ErrDimensionMismatch = errors.New("mixture: dimension mismatch")
)

// WeightSumTolerance is the allowed deviation of the mixture weight sum
// from 1.0 before a model is rejected.
const WeightSumTolerance = 1e-6

// Model is the read-only surface of an externally fitted Gaussian
// mixture. Any trainer that can expose per-component weights, means and
// full covariances can supply one; the mapping code never mutates it.
type Model interface {
	// NumComponents returns the number of mixture components.
	NumComponents() int
	// Weight returns the mixture weight of component k.
	Weight(k int) float64
	// Mean returns the mean vector of component k.
	Mean(k int) []float64
	// Covariance returns the full covariance matrix of component k.
	Covariance(k int) *mat.SymDense
}

// StaticModel is a plain in-memory Model, used by the modelio loaders
// and by tests that build small synthetic mixtures by hand.
type StaticModel struct {
	Weights []float64
	Means   [][]float64
	Covars  []*mat.SymDense
}

var _ Model = (*StaticModel)(nil)

// NumComponents returns the number of mixture components.
func (m *StaticModel) NumComponents() int { return len(m.Weights) }

// Weight returns the mixture weight of component k.
func (m *StaticModel) Weight(k int) float64 { return m.Weights[k] }

// Mean returns the mean vector of component k.
func (m *StaticModel) Mean(k int) []float64 { return m.Means[k] }

// Covariance returns the covariance matrix of component k.
func (m *StaticModel) Covariance(k int) *mat.SymDense { return m.Covars[k] }

// Validate checks the structural invariants of a fitted model: at least
// one component, consistent dimensions across components, finite
// non-negative weights summing to one, and finite means.
// Positive-definiteness of covariance blocks is checked where the
// blocks are factorized, in SplitJoint.
func (m *StaticModel) Validate() error {
	k := len(m.Weights)
	if k == 0 {
		return fmt.Errorf("no components: %w", ErrInvalidModel)
	}
	if len(m.Means) != k || len(m.Covars) != k {
		return fmt.Errorf("got %d weights, %d means, %d covariances: %w",
			k, len(m.Means), len(m.Covars), ErrInvalidModel)
	}

	dim := len(m.Means[0])
	if dim == 0 {
		return fmt.Errorf("zero-dimensional means: %w", ErrInvalidModel)
	}

	sum := 0.0
	for i := 0; i < k; i++ {
		w := m.Weights[i]
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("component %d: weight %v: %w", i, w, ErrInvalidModel)
		}
		sum += w

		if len(m.Means[i]) != dim {
			return fmt.Errorf("component %d: mean length %d, want %d: %w",
				i, len(m.Means[i]), dim, ErrInvalidModel)
		}
		for _, v := range m.Means[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("component %d: non-finite mean: %w", i, ErrInvalidModel)
			}
		}

		if m.Covars[i] == nil {
			return fmt.Errorf("component %d: nil covariance: %w", i, ErrInvalidModel)
		}
		if n := m.Covars[i].SymmetricDim(); n != dim {
			return fmt.Errorf("component %d: covariance is %dx%d, want %dx%d: %w",
				i, n, n, dim, dim, ErrInvalidModel)
		}
	}
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("weights sum to %v: %w", sum, ErrInvalidModel)
	}
	return nil
}
