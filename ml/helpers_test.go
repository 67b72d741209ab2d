package ml

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// cropCentres places three crops in ranges that are disjoint on every feature.
var cropCentres = map[string]FeatureVector{
	"rice":     {80, 45, 40, 24, 82, 6.4, 220},
	"chickpea": {40, 65, 80, 18, 17, 7.3, 80},
	"apple":    {20, 130, 200, 22, 92, 5.9, 110},
}

func syntheticRows(perClass int) ([]FeatureVector, []string) {
	var features []FeatureVector
	var labels []string
	for _, label := range []string{"apple", "chickpea", "rice"} {
		centre := cropCentres[label]
		for i := 0; i < perClass; i++ {
			var v FeatureVector
			for f := range v {
				// +/- 2% jitter keeps classes separated on every feature
				v[f] = centre[f] * (1 + float64(i%5-2)*0.01)
			}
			features = append(features, v)
			labels = append(labels, label)
		}
	}
	return features, labels
}

func writeDataset(t *testing.T, dir string, perClass int) string {
	t.Helper()
	features, labels := syntheticRows(perClass)

	var b strings.Builder
	b.WriteString("N,P,K,temperature,humidity,ph,rainfall,label\n")
	for i, v := range features {
		for _, x := range v {
			fmt.Fprintf(&b, "%g,", x)
		}
		b.WriteString(labels[i])
		b.WriteString("\n")
	}
	path := filepath.Join(dir, "crops.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}
