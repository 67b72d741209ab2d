package ml

// NumFeatures is the length of a FeatureVector.
const NumFeatures = 7

// FeatureVector holds one set of soil and climate measurements in the order
// given by FeatureNames.
type FeatureVector [NumFeatures]float64

// FeatureNames returns the dataset column names in vector order.
func FeatureNames() []string {
	return []string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall"}
}

// Classifier maps a feature vector to a crop label.
type Classifier interface {
	Predict(features FeatureVector) (string, error)
}

type MLModel interface {
	Classifier
	Train(features []FeatureVector, labels []string) error
	Save(path string) error
	Load(path string) error
}

// Accuracy returns the share of rows the classifier labels correctly.
func Accuracy(model Classifier, features []FeatureVector, labels []string) float64 {
	if len(features) == 0 {
		return 0
	}
	var correct int
	for i, feature := range features {
		label, err := model.Predict(feature)
		if err != nil {
			continue
		}
		if label == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(features))
}
