// Package crops holds the static reference data served alongside crop
// predictions.
package crops

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// NotAvailable is the value of every field in the default record.
const NotAvailable = "Information not available"

// DefaultType is used in advisory prompts when a crop has no known type.
const DefaultType = "crop"

//go:embed crops.yaml
var embedded []byte

// Record describes one crop.
type Record struct {
	Description string `yaml:"description" json:"description"`
	Types       string `yaml:"types" json:"types"`
	Disease     string `yaml:"disease" json:"disease"`
	Companion   string `yaml:"companion" json:"companion"`
	Pests       string `yaml:"pests" json:"pests"`
	Fertilizer  string `yaml:"fertilizer" json:"fertilizer"`
	Tips        string `yaml:"tips" json:"tips"`
	Spacing     string `yaml:"spacing" json:"spacing"`
	Watering    string `yaml:"watering" json:"watering"`
	Storage     string `yaml:"storage" json:"storage"`
}

// DefaultRecord returns the record served for labels missing from the
// knowledge base.
func DefaultRecord() Record {
	return Record{
		Description: NotAvailable,
		Types:       NotAvailable,
		Disease:     NotAvailable,
		Companion:   NotAvailable,
		Pests:       NotAvailable,
		Fertilizer:  NotAvailable,
		Tips:        NotAvailable,
		Spacing:     NotAvailable,
		Watering:    NotAvailable,
		Storage:     NotAvailable,
	}
}

// fillMissing replaces empty fields with NotAvailable.
func (r Record) fillMissing() Record {
	fields := []*string{
		&r.Description, &r.Types, &r.Disease, &r.Companion, &r.Pests,
		&r.Fertilizer, &r.Tips, &r.Spacing, &r.Watering, &r.Storage,
	}
	for _, f := range fields {
		if strings.TrimSpace(*f) == "" {
			*f = NotAvailable
		}
	}
	return r
}

// KnowledgeBase maps lowercase crop labels to records. It is immutable once
// built and safe for concurrent use.
type KnowledgeBase struct {
	records map[string]Record
}

// Load parses the knowledge base compiled into the binary.
func Load() (*KnowledgeBase, error) {
	return Parse(embedded)
}

// Parse builds a knowledge base from a YAML mapping of label to record.
func Parse(data []byte) (*KnowledgeBase, error) {
	var raw map[string]Record
	if err := yaml.UnmarshalStrict(data, &raw); err != nil {
		return nil, fmt.Errorf("parse crop knowledge base: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("crop knowledge base is empty")
	}

	records := make(map[string]Record, len(raw))
	for label, record := range raw {
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" {
			return nil, errors.New("crop knowledge base has an empty label")
		}
		if _, dup := records[key]; dup {
			return nil, fmt.Errorf("crop knowledge base has duplicate label %q", key)
		}
		records[key] = record.fillMissing()
	}
	return &KnowledgeBase{records: records}, nil
}

// Get returns the record for label as given, without case folding.
func (kb *KnowledgeBase) Get(label string) (Record, bool) {
	record, ok := kb.records[label]
	return record, ok
}

// Lookup returns the record for label, or DefaultRecord when it is unknown.
func (kb *KnowledgeBase) Lookup(label string) Record {
	if record, ok := kb.Get(label); ok {
		return record
	}
	return DefaultRecord()
}

// TypeOf returns the crop type for label, or DefaultType.
func (kb *KnowledgeBase) TypeOf(label string) string {
	record, ok := kb.Get(label)
	if !ok || record.Types == NotAvailable {
		return DefaultType
	}
	return record.Types
}

// Labels returns all known labels in sorted order.
func (kb *KnowledgeBase) Labels() []string {
	labels := make([]string, 0, len(kb.records))
	for label := range kb.records {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
