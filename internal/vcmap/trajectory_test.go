package vcmap

import (
	"testing"

	"github.com/banshee-data/spectral.map/internal/mixture"
	"github.com/banshee-data/spectral.map/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// blockDiagJoint is a one-component joint model over (static, delta)
// scalars on both sides with zero cross-covariance and identity
// residual covariance: every frame's local estimate is the target mean
// (1.0, 0.2) and every precision block is the identity.
func blockDiagJoint() *mixture.StaticModel {
	return testutil.SingleJoint(
		[]float64{0, 0, 1.0, 0.2},
		[][]float64{
			{1, 0.3, 0, 0},
			{0.3, 1, 0, 0},
			{0, 0, 1, 0},
			{0, 0, 0, 1},
		},
	)
}

// crossJoint is a one-component joint model with non-zero
// source/target cross-covariance, so local estimates vary with the
// input.
func crossJoint() *mixture.StaticModel {
	return testutil.SingleJoint(
		[]float64{0, 0, 0.5, 0},
		[][]float64{
			{1, 0.3, 0.4, 0},
			{0.3, 1, 0, 0.2},
			{0.4, 0, 1.5, 0.1},
			{0, 0.2, 0.1, 1.2},
		},
	)
}

func sampleFrames() [][]float64 {
	return [][]float64{
		{0.1, 0.0},
		{-0.2, 0.3},
		{0.5, -0.1},
	}
}

// TestTrajectoryLeastSquares tests the round-trip property: with a
// single component whose residual covariance is the identity, the
// solved trajectory must equal the unweighted least-squares fit of the
// local estimates under the window operator, verified against an
// independent dense solve.
func TestTrajectoryLeastSquares(t *testing.T) {
	t.Parallel()

	m, err := NewTrajectory(blockDiagJoint(), nil, false)
	require.NoError(t, err)
	require.Equal(t, 1, m.Order())

	src := sampleFrames()
	got, err := m.Convert(src)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Dense reference: solve (W^T W) y = W^T E with E stacking the
	// target mean (1.0, 0.2) per frame.
	w := newWindowMatrix(3, 1)
	rows, cols := w.dims()
	dense := materializeWindow(w)
	e := make([]float64, rows)
	for f := 0; f < 3; f++ {
		e[2*f] = 1.0
		e[2*f+1] = 0.2
	}

	var ata mat.Dense
	ata.Mul(dense.T(), dense)
	sym := mat.NewSymDense(cols, nil)
	for i := 0; i < cols; i++ {
		for j := i; j < cols; j++ {
			sym.SetSym(i, j, ata.At(i, j))
		}
	}
	var atb mat.VecDense
	atb.MulVec(dense.T(), mat.NewVecDense(rows, e))

	var chol mat.Cholesky
	require.True(t, chol.Factorize(sym))
	var want mat.VecDense
	require.NoError(t, chol.SolveVecTo(&want, &atb))

	for f := 0; f < 3; f++ {
		assert.InDelta(t, want.AtVec(f), got[f][0], 1e-10, "frame %d", f)
	}
}

// TestTrajectoryConvert tests general solver behavior: determinism,
// single-frame sequences, window cache reuse across lengths, and input
// validation.
func TestTrajectoryConvert(t *testing.T) {
	t.Parallel()

	t.Run("identical inputs give identical output", func(t *testing.T) {
		t.Parallel()
		m, err := NewTrajectory(crossJoint(), nil, false)
		require.NoError(t, err)

		first, err := m.Convert(sampleFrames())
		require.NoError(t, err)
		second, err := m.Convert(sampleFrames())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("single frame sequence stays solvable", func(t *testing.T) {
		t.Parallel()
		m, err := NewTrajectory(blockDiagJoint(), nil, false)
		require.NoError(t, err)

		got, err := m.Convert([][]float64{{0.4, 0.1}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		// With zero cross-covariance the single-frame solution is the
		// static target mean.
		assert.InDelta(t, 1.0, got[0][0], 1e-10)
	})

	t.Run("window cache follows sequence length changes", func(t *testing.T) {
		t.Parallel()
		m, err := NewTrajectory(crossJoint(), nil, false)
		require.NoError(t, err)

		for _, frames := range []int{3, 5, 3, 1} {
			src := make([][]float64, frames)
			for i := range src {
				src[i] = []float64{float64(i) * 0.1, 0.05}
			}
			got, err := m.Convert(src)
			require.NoError(t, err, "frames=%d", frames)
			assert.Len(t, got, frames)
		}
	})

	t.Run("rejects empty sequence", func(t *testing.T) {
		t.Parallel()
		m, err := NewTrajectory(crossJoint(), nil, false)
		require.NoError(t, err)

		_, err = m.Convert(nil)
		assert.ErrorIs(t, err, mixture.ErrDimensionMismatch)
	})

	t.Run("rejects wrong frame width", func(t *testing.T) {
		t.Parallel()
		m, err := NewTrajectory(crossJoint(), nil, false)
		require.NoError(t, err)

		_, err = m.Convert([][]float64{{0.1, 0.2, 0.3}})
		assert.ErrorIs(t, err, mixture.ErrDimensionMismatch)
	})

	t.Run("rejects joint dimension not divisible by four", func(t *testing.T) {
		t.Parallel()
		model := testutil.SingleJoint([]float64{1, 2}, [][]float64{{2, 0.6}, {0.6, 1}})
		_, err := NewTrajectory(model, nil, false)
		assert.ErrorIs(t, err, mixture.ErrInvalidModel)
	})
}

// TestConvertGV tests the global-variance post-filter.
func TestConvertGV(t *testing.T) {
	t.Parallel()

	gv := testutil.GVModel([]float64{0.5}, [][]float64{{1}})

	t.Run("requires a configured gv model", func(t *testing.T) {
		t.Parallel()
		m, err := NewTrajectory(crossJoint(), nil, false)
		require.NoError(t, err)

		_, err = m.ConvertGV(sampleFrames(), 10, 0.01)
		assert.ErrorIs(t, err, ErrMissingGVModel)
	})

	t.Run("rejects non-positive epochs", func(t *testing.T) {
		t.Parallel()
		m, err := NewTrajectory(crossJoint(), gv, false)
		require.NoError(t, err)

		_, err = m.ConvertGV(sampleFrames(), 0, 0.01)
		assert.Error(t, err)
	})

	t.Run("zero learning rate matches plain convert", func(t *testing.T) {
		t.Parallel()
		m, err := NewTrajectory(crossJoint(), gv, false)
		require.NoError(t, err)

		plain, err := m.Convert(sampleFrames())
		require.NoError(t, err)
		refined, err := m.ConvertGV(sampleFrames(), 25, 0)
		require.NoError(t, err)
		assert.Equal(t, plain, refined)
	})

	t.Run("one epoch moves variance toward the target", func(t *testing.T) {
		t.Parallel()
		m, err := NewTrajectory(crossJoint(), nil, false)
		require.NoError(t, err)
		plain, err := m.Convert(sampleFrames())
		require.NoError(t, err)

		before := variance(plain)
		require.Greater(t, before, 0.0)

		// Target variance well above the solved trajectory's. The
		// likelihood gradient vanishes at the plain solution, so the
		// first step is a pure variance inflation.
		wide := testutil.GVModel([]float64{4 * before}, [][]float64{{1}})
		mgv, err := NewTrajectory(crossJoint(), wide, false)
		require.NoError(t, err)

		refined, err := mgv.ConvertGV(sampleFrames(), 1, 1e-3)
		require.NoError(t, err)
		assert.Greater(t, variance(refined), before)
	})
}

// variance computes the scalar global variance of a width-1 trajectory.
func variance(seq [][]float64) float64 {
	mean := 0.0
	for _, f := range seq {
		mean += f[0]
	}
	mean /= float64(len(seq))
	v := 0.0
	for _, f := range seq {
		dv := f[0] - mean
		v += dv * dv
	}
	return v / float64(len(seq))
}
