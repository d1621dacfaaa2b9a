package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const DecisionTreeType = "decision_tree"

// Pipeline is a column encoder followed by a decision tree. It is the
// model artifact the prediction service loads.
type Pipeline struct {
	columns []Column
	tree    *DecisionTree
}

type pipelineFile struct {
	ModelType string     `json:"model_type"`
	Columns   []Column   `json:"columns"`
	Nodes     []TreeNode `json:"nodes"`
}

func NewPipeline(columns []Column, maxDepth int) *Pipeline {
	return &Pipeline{
		columns: append([]Column(nil), columns...),
		tree:    NewDecisionTree(maxDepth),
	}
}

func (p *Pipeline) Columns() []Column {
	return append([]Column(nil), p.columns...)
}

// Fit learns the categorical encodings from records and trains the tree.
func (p *Pipeline) Fit(records []Record, labels []int) error {
	if len(records) == 0 {
		return errors.New("records empty")
	}
	columns, err := fitCategories(p.columns, records)
	if err != nil {
		return err
	}
	features := make([][]float64, len(records))
	for i, record := range records {
		vector, err := encodeRecord(columns, record)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		features[i] = vector
	}
	if p.tree == nil {
		p.tree = NewDecisionTree(0)
	}
	if err := p.tree.Train(features, labels); err != nil {
		return err
	}
	p.columns = columns
	return nil
}

func (p *Pipeline) Predict(record Record) (int, float64, error) {
	if p.tree == nil {
		return 0, 0, ErrModelNotTrained
	}
	vector, err := encodeRecord(p.columns, record)
	if err != nil {
		return 0, 0, err
	}
	return p.tree.Predict(vector)
}

func (p *Pipeline) Save(path string) error {
	if p.tree == nil || len(p.tree.nodes) == 0 {
		return ErrModelNotTrained
	}
	payload, err := json.MarshalIndent(pipelineFile{
		ModelType: DecisionTreeType,
		Columns:   p.columns,
		Nodes:     p.tree.nodes,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (p *Pipeline) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file pipelineFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if file.ModelType != DecisionTreeType {
		return fmt.Errorf("%w: %q", ErrUnsupportedModel, file.ModelType)
	}
	if len(file.Columns) == 0 || len(file.Nodes) == 0 {
		return fmt.Errorf("%s: %w", path, ErrModelNotTrained)
	}
	p.columns = file.Columns
	p.tree = &DecisionTree{nodes: file.Nodes}
	return nil
}

var _ MLModel = (*Pipeline)(nil)
