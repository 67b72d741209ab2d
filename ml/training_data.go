package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// LabelColumn is the dataset column holding the crop label.
const LabelColumn = "label"

// Dataset is a labelled set of feature vectors.
type Dataset struct {
	Features []FeatureVector
	Labels   []string
}

// LoadDataset reads a CSV file with a header row. Columns are matched by name,
// so their order does not matter and extra columns are ignored.
func LoadDataset(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()
	return ReadDataset(file)
}

func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	featureCols := make([]int, NumFeatures)
	for i, name := range FeatureNames() {
		col, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("dataset is missing column %q", name)
		}
		featureCols[i] = col
	}
	labelCol, ok := columns[LabelColumn]
	if !ok {
		return nil, fmt.Errorf("dataset is missing column %q", LabelColumn)
	}

	ds := &Dataset{}
	names := FeatureNames()
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset row %d: %w", row, err)
		}

		var vector FeatureVector
		for i, col := range featureCols {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil || math.IsNaN(value) {
				return nil, fmt.Errorf("dataset row %d: column %q is not numeric: %q", row, names[i], record[col])
			}
			vector[i] = value
		}
		label := strings.TrimSpace(record[labelCol])
		if label == "" {
			return nil, fmt.Errorf("dataset row %d: empty label", row)
		}
		ds.Features = append(ds.Features, vector)
		ds.Labels = append(ds.Labels, label)
	}

	if len(ds.Features) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}

// splitDataset shuffles rows with a fixed seed and holds out testRatio of them.
func splitDataset(features []FeatureVector, labels []string, testRatio float64, seed int64) (trainX []FeatureVector, trainY []string, testX []FeatureVector, testY []string) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	testSize := int(math.Ceil(float64(len(features))*testRatio - 1e-9))
	split := len(features) - testSize
	if split < 1 {
		split = len(features)
	}
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}
