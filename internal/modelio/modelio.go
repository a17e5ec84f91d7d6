// Package modelio loads externally fitted mixture parameters from JSON
// artifacts. The trainer itself is out of scope; any tool that emits
// per-component weights, means and full covariances can supply a model.
package modelio

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/spectral.map/internal/mixture"
	"gonum.org/v1/gonum/mat"
)

// SymmetryTolerance is the allowed absolute asymmetry in a covariance
// entry before the file is rejected.
const SymmetryTolerance = 1e-8

// maxModelFileSize caps model files; fitted mixtures are small, so a
// large file is almost certainly the wrong artifact.
const maxModelFileSize = 64 * 1024 * 1024

// modelFile is the on-disk JSON schema of a fitted mixture.
type modelFile struct {
	Weights     []float64     `json:"weights"`
	Means       [][]float64   `json:"means"`
	Covariances [][][]float64 `json:"covariances"`
}

// LoadGMM reads a fitted mixture from a JSON file and validates it.
func LoadGMM(path string) (*mixture.StaticModel, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("model file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat model file: %w", err)
	}
	if fileInfo.Size() > maxModelFileSize {
		return nil, fmt.Errorf("model file too large: %d bytes (max %d)", fileInfo.Size(), maxModelFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}

	model, err := buildModel(&mf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return model, nil
}

// LoadGV reads a target global-variance model: a fitted mixture whose
// first (and usually only) component carries the GV mean and
// covariance.
func LoadGV(path string) (*mixture.StaticModel, error) {
	model, err := LoadGMM(path)
	if err != nil {
		return nil, err
	}
	if model.NumComponents() != 1 {
		return nil, fmt.Errorf("gv model has %d components, want 1: %w",
			model.NumComponents(), mixture.ErrInvalidModel)
	}
	return model, nil
}

func buildModel(mf *modelFile) (*mixture.StaticModel, error) {
	k := len(mf.Weights)
	if k == 0 {
		return nil, fmt.Errorf("no components in model file: %w", mixture.ErrInvalidModel)
	}
	if len(mf.Means) != k || len(mf.Covariances) != k {
		return nil, fmt.Errorf("got %d weights, %d means, %d covariances: %w",
			k, len(mf.Means), len(mf.Covariances), mixture.ErrInvalidModel)
	}

	model := &mixture.StaticModel{
		Weights: mf.Weights,
		Means:   mf.Means,
		Covars:  make([]*mat.SymDense, k),
	}
	for c := 0; c < k; c++ {
		cov, err := parseCovariance(mf.Covariances[c], len(mf.Means[c]))
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", c, err)
		}
		model.Covars[c] = cov
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

func parseCovariance(rows [][]float64, dim int) (*mat.SymDense, error) {
	if len(rows) != dim {
		return nil, fmt.Errorf("covariance has %d rows, want %d: %w",
			len(rows), dim, mixture.ErrInvalidModel)
	}
	cov := mat.NewSymDense(dim, nil)
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("covariance row %d has %d entries, want %d: %w",
				i, len(row), dim, mixture.ErrInvalidModel)
		}
		for j := i; j < dim; j++ {
			if math.Abs(row[j]-rows[j][i]) > SymmetryTolerance {
				return nil, fmt.Errorf("covariance not symmetric at (%d,%d): %w",
					i, j, mixture.ErrInvalidModel)
			}
			cov.SetSym(i, j, row[j])
		}
	}
	return cov, nil
}
