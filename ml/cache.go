package ml

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClassifier memoizes predictions of a deterministic classifier.
type CachedClassifier struct {
	next  Classifier
	cache *lru.Cache[FeatureVector, string]
}

// Cached wraps next with an LRU memo of the given size. A size <= 0 returns
// next unchanged.
func Cached(next Classifier, size int) (Classifier, error) {
	if size <= 0 {
		return next, nil
	}
	cache, err := lru.New[FeatureVector, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedClassifier{next: next, cache: cache}, nil
}

func (c *CachedClassifier) Predict(features FeatureVector) (string, error) {
	if label, ok := c.cache.Get(features); ok {
		return label, nil
	}
	label, err := c.next.Predict(features)
	if err != nil {
		return "", err
	}
	c.cache.Add(features, label)
	return label, nil
}
