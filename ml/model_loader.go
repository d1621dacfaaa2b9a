package ml

import (
	"fmt"
	"sync"
)

func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case DecisionTreeType, "":
		model := &Pipeline{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
}

// Artifacts is a loaded model and its label codec. Neither is mutated
// after loading, so one value is shared by every session.
type Artifacts struct {
	Model Classifier
	Codec *LabelEncoder
}

type ArtifactLoader func() (*Artifacts, error)

// FileLoader loads both artifacts from disk.
func FileLoader(modelType, modelPath, encoderPath string) ArtifactLoader {
	return func() (*Artifacts, error) {
		model, err := LoadModel(modelType, modelPath)
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", modelPath, err)
		}
		codec, err := LoadLabelEncoder(encoderPath)
		if err != nil {
			return nil, fmt.Errorf("load label encoder %s: %w", encoderPath, err)
		}
		return &Artifacts{Model: model, Codec: codec}, nil
	}
}

// ArtifactStore loads artifacts on first use and hands out the same value
// afterwards. A failed load is retried on the next call.
type ArtifactStore struct {
	load      ArtifactLoader
	mu        sync.Mutex
	artifacts *Artifacts
}

func NewArtifactStore(load ArtifactLoader) *ArtifactStore {
	return &ArtifactStore{load: load}
}

func (s *ArtifactStore) Get() (*Artifacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifacts != nil {
		return s.artifacts, nil
	}
	artifacts, err := s.load()
	if err != nil {
		return nil, err
	}
	s.artifacts = artifacts
	return artifacts, nil
}

func (s *ArtifactStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifacts != nil
}
