package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cropadvisor/ml"
)

var (
	trainDataset   string
	trainModelPath string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Retrain the classifier from the dataset and overwrite the artifact",
	RunE:  runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainDataset, "dataset", "", "training CSV (overrides config)")
	trainCmd.Flags().StringVar(&trainModelPath, "model-path", "", "artifact output path (overrides config)")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	provider := cfg.ML.Provider()
	if trainDataset != "" {
		provider.DatasetPath = trainDataset
	}
	if trainModelPath != "" {
		provider.ModelPath = trainModelPath
	}

	model, err := ml.NewModel(provider.ModelType, provider.Seed)
	if err != nil {
		return err
	}
	report, err := ml.TrainAndSave(model, provider, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "model saved to %s\naccuracy=%.4f train=%d test=%d classes=%d\n",
		provider.ModelPath, report.Accuracy, report.TrainSize, report.TestSize, report.Classes)
	return nil
}
