package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"cropadvisor/llm"
	"cropadvisor/ml"
)

// predictFields are the request keys in FeatureVector order.
var predictFields = [ml.NumFeatures]string{
	"nitrogen", "phosphorous", "potassium", "temperature", "humidity", "pH", "rainfall",
}

// validationError is a client mistake reported verbatim with a 400.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func invalid(msg string) error { return &validationError{msg: msg} }

var (
	errNoData      = invalid(msgNoData)
	errNotNumeric  = invalid("All values must be numeric")
	errNegative    = invalid("All values must be non-negative")
	errMissingCrop = invalid(msgMissingCrop)
	errMissingQn   = invalid(msgMissingQuestion)
)

// decodeObject reads a single JSON object. ok is false when the body is empty
// or holds only whitespace.
func decodeObject(body io.Reader) (fields map[string]any, ok bool, err error) {
	if body == nil {
		return nil, false, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, true, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, true, errors.New("unexpected data after JSON object")
	}
	return fields, true, nil
}

func isMaxBytes(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// parsePredictRequest validates a predict body. Checks run in a fixed order
// and the first failure wins: presence, then each field by name, then
// numeric parsing, then the sign.
func parsePredictRequest(body io.Reader) (ml.FeatureVector, error) {
	var features ml.FeatureVector

	fields, _, err := decodeObject(body)
	if err != nil {
		if isMaxBytes(err) {
			return features, err
		}
		return features, errNoData
	}
	if len(fields) == 0 {
		return features, errNoData
	}

	for _, name := range predictFields {
		if _, ok := fields[name]; !ok {
			return features, invalid("Missing required field: " + name)
		}
	}

	for i, name := range predictFields {
		v, ok := parseNumber(fields[name])
		if !ok {
			return features, errNotNumeric
		}
		features[i] = v
	}

	for _, v := range features {
		if v < 0 || math.IsNaN(v) {
			return features, errNegative
		}
	}
	return features, nil
}

// parseNumber accepts JSON numbers and strings holding a float. Values too
// large for float64 become ±Inf rather than an error.
func parseNumber(v any) (float64, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

type askRequest struct {
	Crop     string
	Question string
	Language string
}

// parseAskRequest validates an ask body. A body that is not a JSON object, or
// a field of the wrong type, is returned as a plain error rather than a
// validationError.
func parseAskRequest(body io.Reader) (askRequest, error) {
	var req askRequest

	fields, present, err := decodeObject(body)
	if err != nil {
		if isMaxBytes(err) {
			return req, err
		}
		return req, fmt.Errorf("decode request: %w", err)
	}
	if !present || len(fields) == 0 {
		return req, errNoData
	}

	// Presence is checked for both fields before any type check, so a body
	// without a question is a 400 whatever the crop holds.
	if !truthy(fields["crop"]) {
		return req, errMissingCrop
	}
	if !truthy(fields["question"]) {
		return req, errMissingQn
	}
	if req.Crop, err = stringField(fields, "crop"); err != nil {
		return req, err
	}
	if req.Question, err = stringField(fields, "question"); err != nil {
		return req, err
	}
	if req.Language, err = stringField(fields, "language"); err != nil {
		return req, err
	}
	if req.Language == "" {
		req.Language = llm.DefaultLanguage
	}
	return req, nil
}

// truthy reports whether a decoded JSON value counts as given: not null,
// false, zero, or an empty string, array or object.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		return err != nil || f != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// stringField returns "" for an absent or null field.
func stringField(fields map[string]any, name string) (string, error) {
	switch v := fields[name].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("field %q must be a string, got %T", name, v)
	}
}
