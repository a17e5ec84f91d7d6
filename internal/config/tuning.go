package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig represents the tunable parameters of a conversion run.
// All fields are optional pointers so a partial JSON file only
// overrides what it names; the Get* methods supply defaults for
// everything else.
type TuningConfig struct {
	// Mapping direction: true converts target-domain features back to
	// the source domain.
	Swap *bool `json:"swap,omitempty"`

	// Global-variance post-filter params
	UseGV          *bool    `json:"use_gv,omitempty"`
	GVEpochs       *int     `json:"gv_epochs,omitempty"`
	GVLearningRate *float64 `json:"gv_learning_rate,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.GVEpochs != nil {
		if *c.GVEpochs <= 0 {
			return fmt.Errorf("gv_epochs must be positive, got %d", *c.GVEpochs)
		}
	}

	if c.GVLearningRate != nil {
		if *c.GVLearningRate < 0 {
			return fmt.Errorf("gv_learning_rate must be non-negative, got %f", *c.GVLearningRate)
		}
	}

	return nil
}

// GetSwap returns the swap value or the default.
func (c *TuningConfig) GetSwap() bool {
	if c.Swap == nil {
		return false // default
	}
	return *c.Swap
}

// GetUseGV returns the use_gv value or the default.
func (c *TuningConfig) GetUseGV() bool {
	if c.UseGV == nil {
		return false // default
	}
	return *c.UseGV
}

// GetGVEpochs returns the gv_epochs value or the default.
func (c *TuningConfig) GetGVEpochs() int {
	if c.GVEpochs == nil {
		return 1000 // default
	}
	return *c.GVEpochs
}

// GetGVLearningRate returns the gv_learning_rate value or the default.
func (c *TuningConfig) GetGVLearningRate() float64 {
	if c.GVLearningRate == nil {
		return 0.0045 // default
	}
	return *c.GVLearningRate
}
