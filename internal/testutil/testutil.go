// Package testutil provides shared test fixtures: small synthetic
// mixture models built by hand, so tests across packages agree on how
// joint models are constructed.
package testutil

import (
	"github.com/banshee-data/spectral.map/internal/mixture"
	"gonum.org/v1/gonum/mat"
)

// Sym builds a SymDense from full rows. Rows must form a square,
// symmetric matrix; only the upper triangle is read.
func Sym(rows [][]float64) *mat.SymDense {
	n := len(rows)
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, rows[i][j])
		}
	}
	return s
}

// JointModel builds a StaticModel from parallel weight/mean/covariance
// rows.
func JointModel(weights []float64, means [][]float64, covs [][][]float64) *mixture.StaticModel {
	m := &mixture.StaticModel{
		Weights: weights,
		Means:   means,
		Covars:  make([]*mat.SymDense, len(covs)),
	}
	for i, rows := range covs {
		m.Covars[i] = Sym(rows)
	}
	return m
}

// SingleJoint builds a one-component joint model with unit weight.
func SingleJoint(mean []float64, cov [][]float64) *mixture.StaticModel {
	return JointModel([]float64{1.0}, [][]float64{mean}, [][][]float64{cov})
}

// GVModel builds a single-component global-variance model.
func GVModel(mean []float64, cov [][]float64) *mixture.StaticModel {
	return SingleJoint(mean, cov)
}
