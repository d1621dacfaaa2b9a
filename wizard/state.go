package wizard

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldMap holds the answers collected so far, keyed by canonical field name.
type FieldMap map[string]any

func (m FieldMap) Clone() FieldMap {
	clone := make(FieldMap, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

type Prediction struct {
	Label        string `json:"label"`
	DisplayLabel string `json:"display_label"`
}

func NewPrediction(label string) Prediction {
	return Prediction{Label: label, DisplayLabel: DisplayLabel(label)}
}

// DisplayLabel turns a class name such as "Overweight_Level_II" into
// "Overweight Level II".
func DisplayLabel(label string) string {
	caser := cases.Title(language.English, cases.NoLower)
	return caser.String(strings.ReplaceAll(label, "_", " "))
}

// State is everything one session knows. CurrentPage is 1-based.
type State struct {
	CurrentPage    int
	Fields         FieldMap
	LastPrediction *Prediction
	LastError      string
}

func NewState() *State {
	return &State{CurrentPage: 1, Fields: FieldMap{}}
}

// Snapshot is a read-only copy of the state plus what a renderer needs to
// draw the current page.
type Snapshot struct {
	CurrentPage    int         `json:"current_page"`
	TotalPages     int         `json:"total_pages"`
	Page           Page        `json:"page"`
	Fields         FieldMap    `json:"fields"`
	MissingFields  []string    `json:"missing_fields"`
	LastPrediction *Prediction `json:"last_prediction"`
	LastError      string      `json:"last_error,omitempty"`
	Progress       float64     `json:"progress"`
	CanRetreat     bool        `json:"can_retreat"`
	CanAdvance     bool        `json:"can_advance"`
	CanSubmit      bool        `json:"can_submit"`
}
