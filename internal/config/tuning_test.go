package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTuningDefaults tests that an empty config falls back to defaults.
func TestTuningDefaults(t *testing.T) {
	t.Parallel()

	cfg := EmptyTuningConfig()
	assert.False(t, cfg.GetSwap())
	assert.False(t, cfg.GetUseGV())
	assert.Equal(t, 1000, cfg.GetGVEpochs())
	assert.InDelta(t, 0.0045, cfg.GetGVLearningRate(), 1e-12)
}

// TestTuningValidate tests value validation.
func TestTuningValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts empty config", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, EmptyTuningConfig().Validate())
	})

	t.Run("rejects non-positive epochs", func(t *testing.T) {
		t.Parallel()
		cfg := &TuningConfig{GVEpochs: ptrInt(0)}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects negative learning rate", func(t *testing.T) {
		t.Parallel()
		cfg := &TuningConfig{GVLearningRate: ptrFloat64(-0.1)}
		assert.Error(t, cfg.Validate())
	})

	t.Run("accepts zero learning rate", func(t *testing.T) {
		t.Parallel()
		cfg := &TuningConfig{GVLearningRate: ptrFloat64(0)}
		assert.NoError(t, cfg.Validate())
	})
}

// TestLoadTuningConfig tests loading partial configs from disk.
func TestLoadTuningConfig(t *testing.T) {
	t.Parallel()

	t.Run("partial file keeps defaults for omitted fields", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "tuning.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"gv_epochs": 50, "use_gv": true}`), 0644))

		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.GetGVEpochs())
		assert.True(t, cfg.GetUseGV())
		assert.InDelta(t, 0.0045, cfg.GetGVLearningRate(), 1e-12)
		assert.False(t, cfg.GetSwap())
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "tuning.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

		_, err := LoadTuningConfig(path)
		assert.Error(t, err)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "tuning.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"gv_epochs": -3}`), 0644))

		_, err := LoadTuningConfig(path)
		assert.Error(t, err)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}
