package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func providerConfig(t *testing.T) ProviderConfig {
	t.Helper()
	dir := t.TempDir()
	return ProviderConfig{
		ModelType:   ModelTypeRandomForest,
		ModelPath:   filepath.Join(dir, "models", "model.json"),
		DatasetPath: writeDataset(t, dir, 20),
		TestRatio:   0.2,
		Seed:        DefaultSeed,
	}
}

func TestLoadOrTrainMissingArtifact(t *testing.T) {
	cfg := providerConfig(t)
	core, logs := observer.New(zap.InfoLevel)

	model, err := LoadOrTrain(cfg, zap.New(core))
	require.NoError(t, err)
	assert.FileExists(t, cfg.ModelPath)
	assert.Equal(t, 1, logs.FilterMessage("model file not found, training a new one").Len())
	assert.Equal(t, 1, logs.FilterMessage("model trained").Len())

	reloaded, err := LoadOrTrain(cfg, zap.NewNop())
	require.NoError(t, err)

	// held-out style sample: centres plus points between classes
	sample := []FeatureVector{
		cropCentres["rice"], cropCentres["chickpea"], cropCentres["apple"],
		{60, 55, 60, 21, 50, 6.8, 150},
		{30, 100, 140, 20, 55, 6.5, 95},
	}
	for _, f := range sample {
		want, err := model.Predict(f)
		require.NoError(t, err)
		got, err := reloaded.Predict(f)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLoadOrTrainExistingArtifactSkipsTraining(t *testing.T) {
	cfg := providerConfig(t)
	_, err := LoadOrTrain(cfg, zap.NewNop())
	require.NoError(t, err)

	// dataset no longer needed once the artifact exists
	require.NoError(t, os.Remove(cfg.DatasetPath))
	before, err := os.ReadFile(cfg.ModelPath)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	_, err = LoadOrTrain(cfg, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 0, logs.FilterMessage("model trained").Len())

	after, err := os.ReadFile(cfg.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLoadOrTrainRecoversFromCorruptArtifact(t *testing.T) {
	cfg := providerConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.ModelPath), 0o755))
	require.NoError(t, os.WriteFile(cfg.ModelPath, []byte("not a model"), 0o600))

	core, logs := observer.New(zap.InfoLevel)
	model, err := LoadOrTrain(cfg, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("failed to load model, training a new one").Len())

	got, err := model.Predict(cropCentres["rice"])
	require.NoError(t, err)
	assert.Equal(t, "rice", got)

	_, err = LoadModel(ModelTypeRandomForest, cfg.ModelPath)
	assert.NoError(t, err, "corrupt artifact should have been replaced")
}

func TestLoadOrTrainDatasetFailureIsFatal(t *testing.T) {
	cfg := providerConfig(t)
	cfg.DatasetPath = filepath.Join(t.TempDir(), "missing.csv")

	_, err := LoadOrTrain(cfg, zap.NewNop())
	assert.Error(t, err)
	assert.NoFileExists(t, cfg.ModelPath)
}

func TestLoadOrTrainRequiresPaths(t *testing.T) {
	_, err := LoadOrTrain(ProviderConfig{}, zap.NewNop())
	assert.Error(t, err)

	cfg := providerConfig(t)
	cfg.ModelType = "svm"
	_, err = LoadOrTrain(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestTrainAndSaveReport(t *testing.T) {
	cfg := providerConfig(t)
	model, err := NewModel(cfg.ModelType, cfg.Seed)
	require.NoError(t, err)

	report, err := TrainAndSave(model, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 48, report.TrainSize)
	assert.Equal(t, 12, report.TestSize)
	assert.Equal(t, 3, report.Classes)
	assert.InDelta(t, 1.0, report.Accuracy, 1e-9)
}
