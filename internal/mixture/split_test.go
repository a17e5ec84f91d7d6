package mixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// jointD1 is a one-component joint model over (source, target) scalars:
// mean (1, 2), covariance [[2, 0.6], [0.6, 1]].
func jointD1() *StaticModel {
	return &StaticModel{
		Weights: []float64{1.0},
		Means:   [][]float64{{1, 2}},
		Covars:  []*mat.SymDense{mat.NewSymDense(2, []float64{2, 0.6, 0.6, 1})},
	}
}

// twoComponentD1 is a two-component joint model over scalars with well
// separated source marginals at 0 and 10.
func twoComponentD1() *StaticModel {
	return &StaticModel{
		Weights: []float64{0.5, 0.5},
		Means:   [][]float64{{0, 0}, {10, 5}},
		Covars: []*mat.SymDense{
			mat.NewSymDense(2, []float64{1, 0.5, 0.5, 2}),
			mat.NewSymDense(2, []float64{1, -0.5, -0.5, 2}),
		},
	}
}

// TestSplitJoint tests block slicing, the Schur complement and the
// swap transform.
func TestSplitJoint(t *testing.T) {
	t.Parallel()

	t.Run("splits means and computes residual covariance", func(t *testing.T) {
		t.Parallel()
		p, err := SplitJoint(jointD1(), false)
		require.NoError(t, err)

		assert.Equal(t, 1, p.NumComponents())
		assert.Equal(t, 1, p.Order())
		assert.Equal(t, []float64{1}, p.SrcMean(0))
		assert.Equal(t, []float64{2}, p.TgtMean(0))
		// 1 - 0.6 * 0.6 / 2
		assert.InDelta(t, 0.82, p.ResidualCovariance(0).At(0, 0), 1e-12)
	})

	t.Run("conditional mean is the regression line", func(t *testing.T) {
		t.Parallel()
		p, err := SplitJoint(jointD1(), false)
		require.NoError(t, err)

		// 2 + 0.6/2 * (3 - 1)
		e, err := p.CondMean(0, []float64{3})
		require.NoError(t, err)
		assert.InDelta(t, 2.6, e[0], 1e-12)
	})

	t.Run("swap exchanges source and target roles", func(t *testing.T) {
		t.Parallel()
		p, err := SplitJoint(jointD1(), true)
		require.NoError(t, err)

		assert.Equal(t, []float64{2}, p.SrcMean(0))
		assert.Equal(t, []float64{1}, p.TgtMean(0))
		// 2 - 0.6 * 0.6 / 1
		assert.InDelta(t, 1.64, p.ResidualCovariance(0).At(0, 0), 1e-12)

		// 1 + 0.6/1 * (3 - 2)
		e, err := p.CondMean(0, []float64{3})
		require.NoError(t, err)
		assert.InDelta(t, 1.6, e[0], 1e-12)
	})

	t.Run("rejects odd joint dimension", func(t *testing.T) {
		t.Parallel()
		m := &StaticModel{
			Weights: []float64{1.0},
			Means:   [][]float64{{1, 2, 3}},
			Covars:  []*mat.SymDense{mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})},
		}
		_, err := SplitJoint(m, false)
		assert.ErrorIs(t, err, ErrInvalidModel)
	})

	t.Run("rejects singular source covariance", func(t *testing.T) {
		t.Parallel()
		m := &StaticModel{
			Weights: []float64{1.0},
			Means:   [][]float64{{0, 0}},
			Covars:  []*mat.SymDense{mat.NewSymDense(2, []float64{0, 0, 0, 1})},
		}
		_, err := SplitJoint(m, false)
		assert.ErrorIs(t, err, ErrInvalidModel)
	})
}

// TestPosterior tests responsibilities and MAP assignment under the
// source marginal.
func TestPosterior(t *testing.T) {
	t.Parallel()

	p, err := SplitJoint(twoComponentD1(), false)
	require.NoError(t, err)

	t.Run("responsibilities sum to one", func(t *testing.T) {
		t.Parallel()
		for _, x := range []float64{-3, 0, 5, 10, 42} {
			post, err := p.Posterior([]float64{x})
			require.NoError(t, err)
			assert.InDelta(t, 1.0, floats.Sum(post), 1e-9, "x=%v", x)
		}
	})

	t.Run("MAP picks the closer component", func(t *testing.T) {
		t.Parallel()
		k, err := p.MAPComponent([]float64{0.5})
		require.NoError(t, err)
		assert.Equal(t, 0, k)

		k, err = p.MAPComponent([]float64{9.5})
		require.NoError(t, err)
		assert.Equal(t, 1, k)
	})

	t.Run("rejects wrong input width", func(t *testing.T) {
		t.Parallel()
		_, err := p.Posterior([]float64{1, 2})
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		_, err = p.MAPComponent([]float64{1, 2})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}
