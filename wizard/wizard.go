package wizard

import (
	"context"
	"fmt"
)

// Predictor turns a complete field map into a class label.
type Predictor interface {
	Predict(ctx context.Context, fields FieldMap) (string, error)
}

type Options struct {
	// RequirePageComplete blocks Advance while the current page has unset fields.
	RequirePageComplete bool
	// ClearStalePrediction drops the last prediction when any field changes.
	ClearStalePrediction bool
	// PrefillDefaults writes widget defaults for unset fields when a page is entered.
	PrefillDefaults bool
}

// Wizard drives one session through the form. It is not safe for
// concurrent use; callers serialize access per session.
type Wizard struct {
	form      *Form
	predictor Predictor
	opts      Options
	state     *State
}

func New(form *Form, predictor Predictor, opts Options) *Wizard {
	return Resume(form, predictor, opts, NewState())
}

// Resume wraps an existing state. Out of range pages are clamped.
func Resume(form *Form, predictor Predictor, opts Options, state *State) *Wizard {
	if state.Fields == nil {
		state.Fields = FieldMap{}
	}
	w := &Wizard{form: form, predictor: predictor, opts: opts, state: state}
	w.state.CurrentPage = w.clamp(w.state.CurrentPage)
	w.enterPage()
	return w
}

func (w *Wizard) Form() *Form {
	return w.form
}

func (w *Wizard) SetField(name string, value any) error {
	field, ok := w.form.Lookup(name)
	if !ok {
		return &ValidationError{
			Field:      name,
			Value:      value,
			Reason:     "unknown field",
			Suggestion: suggest(name, w.form.FieldNames()),
		}
	}
	normalized, err := field.Normalize(value)
	if err != nil {
		return err
	}
	previous, had := w.state.Fields[field.Name]
	w.state.Fields[field.Name] = normalized
	if w.opts.ClearStalePrediction && (!had || previous != normalized) {
		w.state.LastPrediction = nil
	}
	return nil
}

func (w *Wizard) Field(name string) (any, bool) {
	field, ok := w.form.Lookup(name)
	if !ok {
		return nil, false
	}
	value, ok := w.state.Fields[field.Name]
	return value, ok
}

// Advance moves to the next page. On the last page it does nothing.
func (w *Wizard) Advance() error {
	if w.state.CurrentPage >= w.form.PageCount() {
		return nil
	}
	if w.opts.RequirePageComplete {
		if missing := w.missingOn(w.state.CurrentPage); len(missing) > 0 {
			return fmt.Errorf("%w: %v", ErrPageIncomplete, missing)
		}
	}
	w.state.CurrentPage++
	w.enterPage()
	return nil
}

// Retreat moves to the previous page. On the first page it does nothing.
func (w *Wizard) Retreat() {
	if w.state.CurrentPage <= 1 {
		return
	}
	w.state.CurrentPage--
	w.enterPage()
}

func (w *Wizard) CurrentPage() Page {
	page, _ := w.form.Page(w.state.CurrentPage)
	return page
}

// Submit runs the prediction from the last page. A failure is recorded in
// LastError and returned; fields and the previous prediction are kept.
func (w *Wizard) Submit(ctx context.Context) (Prediction, error) {
	if w.state.CurrentPage != w.form.PageCount() {
		return Prediction{}, ErrNotTerminalPage
	}
	label, err := w.predictor.Predict(ctx, w.state.Fields.Clone())
	if err != nil {
		w.state.LastError = err.Error()
		return Prediction{}, err
	}
	prediction := NewPrediction(label)
	w.state.LastPrediction = &prediction
	w.state.LastError = ""
	return prediction, nil
}

// Reset returns to the first page with no answers.
func (w *Wizard) Reset() {
	w.state.CurrentPage = 1
	w.state.Fields = FieldMap{}
	w.state.LastPrediction = nil
	w.state.LastError = ""
	w.enterPage()
}

func (w *Wizard) Snapshot() Snapshot {
	total := w.form.PageCount()
	snapshot := Snapshot{
		CurrentPage:   w.state.CurrentPage,
		TotalPages:    total,
		Page:          w.CurrentPage(),
		Fields:        w.state.Fields.Clone(),
		MissingFields: w.missing(),
		LastError:     w.state.LastError,
		CanRetreat:    w.state.CurrentPage > 1,
		CanAdvance:    w.state.CurrentPage < total,
		CanSubmit:     w.state.CurrentPage == total,
	}
	if total > 1 {
		snapshot.Progress = float64(w.state.CurrentPage-1) / float64(total-1)
	}
	if w.state.LastPrediction != nil {
		prediction := *w.state.LastPrediction
		snapshot.LastPrediction = &prediction
	}
	return snapshot
}

func (w *Wizard) enterPage() {
	if !w.opts.PrefillDefaults {
		return
	}
	for _, field := range w.CurrentPage().Fields {
		if _, ok := w.state.Fields[field.Name]; !ok && field.Default != nil {
			w.state.Fields[field.Name] = field.Default
		}
	}
}

func (w *Wizard) missing() []string {
	missing := make([]string, 0)
	for _, name := range w.form.FieldNames() {
		if _, ok := w.state.Fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (w *Wizard) missingOn(ordinal int) []string {
	page, _ := w.form.Page(ordinal)
	missing := make([]string, 0)
	for _, field := range page.Fields {
		if _, ok := w.state.Fields[field.Name]; !ok {
			missing = append(missing, field.Name)
		}
	}
	return missing
}

func (w *Wizard) clamp(page int) int {
	if page < 1 {
		return 1
	}
	if page > w.form.PageCount() {
		return w.form.PageCount()
	}
	return page
}
