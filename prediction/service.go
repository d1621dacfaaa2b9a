// Package prediction turns a completed questionnaire into an obesity class
// using the shared model and label codec artifacts.
package prediction

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"obesityrisk/ml"
	"obesityrisk/wizard"
)

type Service struct {
	artifacts *ml.ArtifactStore
	logger    *zap.Logger
}

func NewService(artifacts *ml.ArtifactStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{artifacts: artifacts, logger: logger}
}

var _ wizard.Predictor = (*Service)(nil)

// Warm loads the artifacts now instead of on the first prediction.
func (s *Service) Warm() error {
	if _, err := s.load(); err != nil {
		return err
	}
	return nil
}

// Classes lists every label the codec can produce.
func (s *Service) Classes() ([]string, error) {
	artifacts, err := s.load()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), artifacts.Codec.Classes...), nil
}

func (s *Service) Predict(ctx context.Context, fields wizard.FieldMap) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(InferenceFailed, err, "request cancelled")
	}
	artifacts, err := s.load()
	if err != nil {
		return "", err
	}

	record, err := BuildRecord(artifacts.Model.Columns(), fields)
	if err != nil {
		return "", err
	}

	start := time.Now()
	encoded, confidence, err := artifacts.Model.Predict(record)
	if err != nil {
		if errors.Is(err, ml.ErrUnknownCategory) || errors.Is(err, ml.ErrBadValue) {
			return "", newError(InvalidInput, err, "record rejected by model")
		}
		return "", newError(InferenceFailed, err, "model predict")
	}
	label, err := artifacts.Codec.Decode(encoded)
	if err != nil {
		return "", newError(InferenceFailed, err, "decode label %d", encoded)
	}

	s.logger.Debug("prediction",
		zap.String("label", label),
		zap.Int("encoded", encoded),
		zap.Float64("confidence", confidence),
		zap.Duration("elapsed", time.Since(start)),
	)
	return label, nil
}

func (s *Service) load() (*ml.Artifacts, error) {
	artifacts, err := s.artifacts.Get()
	if err != nil {
		s.logger.Warn("artifacts unavailable", zap.Error(err))
		return nil, newError(ArtifactUnavailable, err, "")
	}
	return artifacts, nil
}

// BuildRecord lays fields out in the model's column order. Every column
// must be present; nothing is defaulted.
func BuildRecord(columns []ml.Column, fields wizard.FieldMap) (ml.Record, error) {
	record := make(ml.Record, 0, len(columns))
	var missing []string
	for _, column := range columns {
		value, ok := fields[column.Name]
		if !ok || value == nil {
			missing = append(missing, column.Name)
			continue
		}
		record = append(record, ml.Cell{Name: column.Name, Value: value})
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, newError(InvalidInput, nil, "missing fields %v", missing)
	}
	return record, nil
}
