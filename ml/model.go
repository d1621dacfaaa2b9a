package ml

import "errors"

var (
	ErrModelNotTrained  = errors.New("model not trained")
	ErrColumnMismatch   = errors.New("record does not match model columns")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrBadValue         = errors.New("bad cell value")
	ErrUnknownLabel     = errors.New("unknown label")
	ErrUnsupportedModel = errors.New("unsupported model type")
)

// Classifier is the inference side of a loaded model artifact.
type Classifier interface {
	Columns() []Column
	Predict(record Record) (int, float64, error)
}

type MLModel interface {
	Classifier
	Fit(records []Record, labels []int) error
	Save(path string) error
	Load(path string) error
}
