package ml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ProviderConfig locates the model artifact and the dataset used to rebuild it.
type ProviderConfig struct {
	ModelType   string
	ModelPath   string
	DatasetPath string
	TestRatio   float64
	Seed        int64
}

// TrainingReport summarizes a training run.
type TrainingReport struct {
	Accuracy  float64
	TrainSize int
	TestSize  int
	Classes   int
}

// LoadOrTrain returns the model saved at cfg.ModelPath. When the artifact is
// missing or cannot be loaded, a new model is trained from cfg.DatasetPath and
// saved in its place. Load failures are logged, not returned; only a failure to
// train or save is an error.
func LoadOrTrain(cfg ProviderConfig, logger *zap.Logger) (MLModel, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	logger = logger.With(zap.String("model_path", cfg.ModelPath))

	model, err := NewModel(cfg.ModelType, cfg.Seed)
	if err != nil {
		return nil, err
	}

	_, statErr := os.Stat(cfg.ModelPath)
	switch {
	case statErr == nil:
		logger.Info("loading model")
		loadErr := model.Load(cfg.ModelPath)
		if loadErr == nil {
			return model, nil
		}
		logger.Error("failed to load model, training a new one", zap.Error(loadErr))
	case errors.Is(statErr, fs.ErrNotExist):
		logger.Info("model file not found, training a new one")
	default:
		logger.Error("cannot access model file, training a new one", zap.Error(statErr))
	}

	if _, err := TrainAndSave(model, cfg, logger); err != nil {
		return nil, err
	}
	return model, nil
}

// TrainAndSave trains model on the configured dataset, logs its held-out
// accuracy and writes it to cfg.ModelPath.
func TrainAndSave(model MLModel, cfg ProviderConfig, logger *zap.Logger) (TrainingReport, error) {
	if cfg.DatasetPath == "" {
		return TrainingReport{}, errors.New("dataset path is required")
	}
	if cfg.ModelPath == "" {
		return TrainingReport{}, errors.New("model path is required")
	}

	logger.Info("training model", zap.String("dataset", cfg.DatasetPath))
	ds, err := LoadDataset(cfg.DatasetPath)
	if err != nil {
		return TrainingReport{}, err
	}

	trainX, trainY, testX, testY := splitDataset(ds.Features, ds.Labels, cfg.TestRatio, cfg.Seed)
	if err := model.Train(trainX, trainY); err != nil {
		return TrainingReport{}, fmt.Errorf("train model: %w", err)
	}

	report := TrainingReport{
		Accuracy:  Accuracy(model, testX, testY),
		TrainSize: len(trainX),
		TestSize:  len(testX),
		Classes:   countDistinct(trainY),
	}
	logger.Info("model trained",
		zap.Float64("accuracy", report.Accuracy),
		zap.Int("train_size", report.TrainSize),
		zap.Int("test_size", report.TestSize),
		zap.Int("classes", report.Classes))

	if err := os.MkdirAll(filepath.Dir(cfg.ModelPath), 0o755); err != nil {
		return TrainingReport{}, fmt.Errorf("create model dir: %w", err)
	}
	if err := model.Save(cfg.ModelPath); err != nil {
		return TrainingReport{}, fmt.Errorf("save model: %w", err)
	}
	logger.Info("model saved")
	return report, nil
}

func countDistinct(labels []string) int {
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		seen[label] = struct{}{}
	}
	return len(seen)
}
