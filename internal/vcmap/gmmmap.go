package vcmap

import (
	"errors"
	"fmt"

	"github.com/banshee-data/spectral.map/internal/mixture"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrSingularSystem indicates that the assembled trajectory system
	// was not positive definite. Valid mixture parameters never produce
	// this; it points at an upstream model or data problem.
	ErrSingularSystem = errors.New("vcmap: trajectory system not positive definite")

	// ErrMissingGVModel indicates a global-variance conversion was
	// requested on a mapper constructed without a GV model.
	ErrMissingGVModel = errors.New("vcmap: no global variance model configured")
)

// GMMMap maps single source feature vectors to the target domain using
// a jointly fitted mixture over concatenated (source, target) features.
// The output is the MMSE estimate: per-component conditional means
// weighted by posterior responsibilities.
//
// A GMMMap is immutable after construction and safe for concurrent use.
type GMMMap struct {
	params *mixture.JointParams
}

// New splits the joint mixture and builds a frame-by-frame mapper.
// With swap set, the mapping direction is reversed (target to source).
func New(m mixture.Model, swap bool) (*GMMMap, error) {
	p, err := mixture.SplitJoint(m, swap)
	if err != nil {
		return nil, fmt.Errorf("split joint model: %w", err)
	}
	return &GMMMap{params: p}, nil
}

// Order returns the feature order D expected of inputs.
func (g *GMMMap) Order() int { return g.params.Order() }

// Convert maps one source feature vector to the target domain.
func (g *GMMMap) Convert(x []float64) ([]float64, error) {
	if len(x) != g.params.Order() {
		return nil, fmt.Errorf("frame width %d, model order %d: %w",
			len(x), g.params.Order(), mixture.ErrDimensionMismatch)
	}

	post, err := g.params.Posterior(x)
	if err != nil {
		return nil, err
	}

	y := make([]float64, g.params.Order())
	for k := 0; k < g.params.NumComponents(); k++ {
		if post[k] == 0 {
			continue
		}
		e, err := g.params.CondMean(k, x)
		if err != nil {
			return nil, err
		}
		floats.AddScaled(y, post[k], e)
	}
	return y, nil
}
