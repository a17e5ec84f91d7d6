package modelio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/spectral.map/internal/mixture"
)

// LoadSequence reads a feature sequence from a JSON file: an array of
// frames, each an array of float values. All frames must share one
// width.
func LoadSequence(path string) ([][]float64, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("sequence file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence file: %w", err)
	}

	var seq [][]float64
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("failed to parse sequence JSON: %w", err)
	}
	if len(seq) == 0 {
		return nil, fmt.Errorf("%s: empty sequence: %w", cleanPath, mixture.ErrDimensionMismatch)
	}
	width := len(seq[0])
	for i, frame := range seq {
		if len(frame) != width {
			return nil, fmt.Errorf("%s: frame %d has width %d, frame 0 has %d: %w",
				cleanPath, i, len(frame), width, mixture.ErrDimensionMismatch)
		}
	}
	return seq, nil
}

// SaveSequence writes a feature sequence as JSON, one array per frame.
func SaveSequence(path string, seq [][]float64) error {
	data, err := json.MarshalIndent(seq, "", " ")
	if err != nil {
		return fmt.Errorf("failed to marshal sequence: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, 0644); err != nil {
		return fmt.Errorf("failed to write sequence file: %w", err)
	}
	return nil
}
