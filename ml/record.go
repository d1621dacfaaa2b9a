package ml

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type ColumnKind string

const (
	Numeric     ColumnKind = "numeric"
	Categorical ColumnKind = "categorical"
)

// Column describes one input column of a model. Categorical columns are
// encoded to the index of their value in Categories.
type Column struct {
	Name       string     `json:"name"`
	Kind       ColumnKind `json:"kind"`
	Categories []string   `json:"categories,omitempty"`
}

type Cell struct {
	Name  string
	Value any
}

// Record is a single row in model column order.
type Record []Cell

func (r Record) Get(name string) (any, bool) {
	for _, cell := range r {
		if cell.Name == name {
			return cell.Value, true
		}
	}
	return nil, false
}

// ObesityColumns is the column layout of the obesity dataset, in file order.
// Categorical columns carry every value the questionnaire can send, so a
// model trained on a sample that misses one still encodes it.
func ObesityColumns() []Column {
	yesNo := []string{"no", "yes"}
	frequency := []string{"Always", "Frequently", "Sometimes", "no"}
	return []Column{
		{Name: "Gender", Kind: Categorical, Categories: []string{"Female", "Male"}},
		{Name: "Age", Kind: Numeric},
		{Name: "Height", Kind: Numeric},
		{Name: "Weight", Kind: Numeric},
		{Name: "family_history_with_overweight", Kind: Categorical, Categories: yesNo},
		{Name: "FAVC", Kind: Categorical, Categories: yesNo},
		{Name: "FCVC", Kind: Numeric},
		{Name: "NCP", Kind: Numeric},
		{Name: "CAEC", Kind: Categorical, Categories: frequency},
		{Name: "SMOKE", Kind: Categorical, Categories: yesNo},
		{Name: "CH2O", Kind: Numeric},
		{Name: "SCC", Kind: Categorical, Categories: yesNo},
		{Name: "FAF", Kind: Numeric},
		{Name: "TUE", Kind: Numeric},
		{Name: "CALC", Kind: Categorical, Categories: frequency},
		{Name: "MTRANS", Kind: Categorical, Categories: []string{"Automobile", "Bike", "Motorbike", "Public_Transportation", "Walking"}},
	}
}

func encodeRecord(columns []Column, record Record) ([]float64, error) {
	if len(record) != len(columns) {
		return nil, fmt.Errorf("%w: got %d cells, want %d", ErrColumnMismatch, len(record), len(columns))
	}
	vector := make([]float64, len(columns))
	for i, column := range columns {
		cell := record[i]
		if cell.Name != column.Name {
			return nil, fmt.Errorf("%w: position %d is %q, want %q", ErrColumnMismatch, i, cell.Name, column.Name)
		}
		value, err := encodeCell(column, cell.Value)
		if err != nil {
			return nil, err
		}
		vector[i] = value
	}
	return vector, nil
}

func encodeCell(column Column, value any) (float64, error) {
	switch column.Kind {
	case Numeric:
		return numericValue(column.Name, value)
	case Categorical:
		text, ok := value.(string)
		if !ok {
			return 0, fmt.Errorf("%w: %s expects a string, got %T", ErrBadValue, column.Name, value)
		}
		for i, category := range column.Categories {
			if strings.EqualFold(category, text) {
				return float64(i), nil
			}
		}
		return 0, fmt.Errorf("%w: %s=%q", ErrUnknownCategory, column.Name, text)
	default:
		return 0, fmt.Errorf("%w: column %s has kind %q", ErrColumnMismatch, column.Name, column.Kind)
	}
}

func numericValue(name string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q is not a number", ErrBadValue, name, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s expects a number, got %T", ErrBadValue, name, value)
	}
}

// fitCategories merges the declared categories of every categorical column
// with the values seen in records and sorts them, the same ordering an
// ordinal encoder learns. A value matching a declared one case-insensitively
// is not added twice.
func fitCategories(columns []Column, records []Record) ([]Column, error) {
	fitted := make([]Column, len(columns))
	for i, column := range columns {
		fitted[i] = Column{Name: column.Name, Kind: column.Kind}
		if column.Kind != Categorical {
			continue
		}
		categories := append([]string(nil), column.Categories...)
		known := make(map[string]bool, len(categories))
		for _, category := range categories {
			known[strings.ToLower(category)] = true
		}
		for _, record := range records {
			value, ok := record.Get(column.Name)
			if !ok {
				return nil, fmt.Errorf("%w: missing %s", ErrColumnMismatch, column.Name)
			}
			text, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s expects a string, got %T", ErrBadValue, column.Name, value)
			}
			if key := strings.ToLower(text); !known[key] {
				known[key] = true
				categories = append(categories, text)
			}
		}
		sort.Strings(categories)
		fitted[i].Categories = categories
	}
	return fitted, nil
}
