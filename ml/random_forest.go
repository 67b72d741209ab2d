package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

const (
	ModelTypeRandomForest = "random_forest"
	ModelTypeDecisionTree = "decision_tree"

	// DefaultSeed keeps training reproducible across runs.
	DefaultSeed int64 = 42

	artifactVersion = 1
)

// ForestConfig controls how a Forest is grown.
type ForestConfig struct {
	Trees       int
	MaxDepth    int
	MaxFeatures int
	Bootstrap   bool
	Seed        int64
}

// Forest is a majority-vote ensemble of decision trees over string labels.
// A single-tree forest without bootstrap is a plain CART classifier. A trained
// Forest is read-only and safe for concurrent Predict calls.
type Forest struct {
	modelType string
	config    ForestConfig
	classes   []string
	trees     []*DecisionTree
}

// NewModel returns an untrained model of the given type. An empty type
// selects a random forest.
func NewModel(modelType string, seed int64) (*Forest, error) {
	switch modelType {
	case "", ModelTypeRandomForest:
		return &Forest{
			modelType: ModelTypeRandomForest,
			config: ForestConfig{
				Trees:       100,
				MaxFeatures: int(math.Sqrt(NumFeatures)),
				Bootstrap:   true,
				Seed:        seed,
			},
		}, nil
	case ModelTypeDecisionTree:
		return &Forest{
			modelType: ModelTypeDecisionTree,
			config:    ForestConfig{Trees: 1, Seed: seed},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

// Type returns the model type recorded in saved artifacts.
func (f *Forest) Type() string { return f.modelType }

// Classes returns the sorted class labels seen during training.
func (f *Forest) Classes() []string { return slices.Clone(f.classes) }

func (f *Forest) Train(features []FeatureVector, labels []string) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if f.config.Trees <= 0 {
		return errors.New("forest needs at least one tree")
	}

	classes, encoded := encodeLabels(labels)
	rng := rand.New(rand.NewSource(f.config.Seed))
	trees := make([]*DecisionTree, f.config.Trees)
	for i := range trees {
		treeRng := rand.New(rand.NewSource(rng.Int63()))
		samples := make([]int, len(features))
		for j := range samples {
			if f.config.Bootstrap {
				samples[j] = treeRng.Intn(len(features))
			} else {
				samples[j] = j
			}
		}
		tree := newDecisionTree(len(classes), f.config.MaxDepth, f.config.MaxFeatures, treeRng)
		if err := tree.train(features, encoded, samples); err != nil {
			return fmt.Errorf("train tree %d: %w", i, err)
		}
		trees[i] = tree
	}

	f.classes = classes
	f.trees = trees
	return nil
}

func (f *Forest) Predict(features FeatureVector) (string, error) {
	if len(f.trees) == 0 {
		return "", errors.New("model not trained")
	}
	votes := make([]int, len(f.classes))
	for _, tree := range f.trees {
		idx, err := tree.predictIndex(features)
		if err != nil {
			return "", err
		}
		votes[idx]++
	}
	return f.classes[majorityLabel(votes)], nil
}

type artifact struct {
	Type     string       `json:"type"`
	Version  int          `json:"version"`
	Features []string     `json:"features"`
	Classes  []string     `json:"classes"`
	Trees    [][]TreeNode `json:"trees"`
}

// Save writes the model to path through a temporary file so that readers
// never observe a partial artifact.
func (f *Forest) Save(path string) error {
	if len(f.trees) == 0 {
		return errors.New("model not trained")
	}
	a := artifact{
		Type:     f.modelType,
		Version:  artifactVersion,
		Features: FeatureNames(),
		Classes:  f.classes,
		Trees:    make([][]TreeNode, len(f.trees)),
	}
	for i, tree := range f.trees {
		a.Trees[i] = tree.nodes
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load replaces the model with the artifact at path. The model is left
// untouched when the artifact is unreadable or invalid.
func (f *Forest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var a artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	if a.Type != f.modelType {
		return fmt.Errorf("model type %q does not match %q", a.Type, f.modelType)
	}
	if a.Version != artifactVersion {
		return fmt.Errorf("unsupported model version %d", a.Version)
	}
	if !slices.Equal(a.Features, FeatureNames()) {
		return fmt.Errorf("model features %v do not match %v", a.Features, FeatureNames())
	}
	if len(a.Classes) == 0 {
		return errors.New("model has no classes")
	}
	if len(a.Trees) == 0 {
		return errors.New("model has no trees")
	}

	trees := make([]*DecisionTree, len(a.Trees))
	for i, nodes := range a.Trees {
		tree := &DecisionTree{nodes: nodes, numClasses: len(a.Classes)}
		if err := tree.validate(len(a.Classes)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = tree
	}
	f.classes = a.Classes
	f.trees = trees
	return nil
}

// LoadModel reads a saved model of the given type.
func LoadModel(modelType, path string) (MLModel, error) {
	model, err := NewModel(modelType, DefaultSeed)
	if err != nil {
		return nil, err
	}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}

// encodeLabels maps labels to indices into the sorted set of distinct labels.
func encodeLabels(labels []string) ([]string, []int) {
	index := make(map[string]int)
	for _, label := range labels {
		index[label] = 0
	}
	classes := make([]string, 0, len(index))
	for label := range index {
		classes = append(classes, label)
	}
	sort.Strings(classes)
	for i, label := range classes {
		index[label] = i
	}
	encoded := make([]int, len(labels))
	for i, label := range labels {
		encoded[i] = index[label]
	}
	return classes, encoded
}
