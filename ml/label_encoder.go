package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// LabelEncoder maps class names to dense integer ids in sorted order.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

func (e *LabelEncoder) Fit(labels []string) []int {
	seen := make(map[string]bool)
	for _, label := range labels {
		seen[label] = true
	}
	e.Classes = make([]string, 0, len(seen))
	for label := range seen {
		e.Classes = append(e.Classes, label)
	}
	sort.Strings(e.Classes)

	encoded := make([]int, len(labels))
	for i, label := range labels {
		encoded[i] = sort.SearchStrings(e.Classes, label)
	}
	return encoded
}

func (e *LabelEncoder) Encode(label string) (int, error) {
	for i, class := range e.Classes {
		if class == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
}

func (e *LabelEncoder) Decode(encoded int) (string, error) {
	if encoded < 0 || encoded >= len(e.Classes) {
		return "", fmt.Errorf("%w: %d", ErrUnknownLabel, encoded)
	}
	return e.Classes[encoded], nil
}

func (e *LabelEncoder) Save(path string) error {
	if len(e.Classes) == 0 {
		return errors.New("label encoder not fitted")
	}
	payload, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var encoder LabelEncoder
	if err := json.Unmarshal(payload, &encoder); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(encoder.Classes) == 0 {
		return nil, fmt.Errorf("%s: no classes", path)
	}
	return &encoder, nil
}
