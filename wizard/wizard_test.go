package wizard

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakePredictor struct {
	label string
	err   error
	calls int
	last  FieldMap
}

func (f *fakePredictor) Predict(ctx context.Context, fields FieldMap) (string, error) {
	f.calls++
	f.last = fields
	return f.label, f.err
}

func newWizard(opts Options) (*Wizard, *fakePredictor) {
	predictor := &fakePredictor{label: "Normal_Weight"}
	return New(ObesityForm(), predictor, opts), predictor
}

func TestNewWizardStartsOnFirstPageEmpty(t *testing.T) {
	w, _ := newWizard(Options{})
	snap := w.Snapshot()
	if snap.CurrentPage != 1 || snap.TotalPages != 4 {
		t.Fatalf("expected page 1 of 4, got %d of %d", snap.CurrentPage, snap.TotalPages)
	}
	if len(snap.Fields) != 0 {
		t.Fatalf("expected empty fields, got %v", snap.Fields)
	}
	if snap.LastPrediction != nil {
		t.Fatal("expected no prediction")
	}
	if len(snap.MissingFields) != 16 {
		t.Fatalf("expected 16 missing fields, got %d", len(snap.MissingFields))
	}
}

func TestRetreatOnFirstPageIsNoop(t *testing.T) {
	w, _ := newWizard(Options{})
	w.Retreat()
	if got := w.CurrentPage().Ordinal; got != 1 {
		t.Fatalf("expected page 1, got %d", got)
	}
}

func TestAdvanceOnLastPageIsNoop(t *testing.T) {
	w, _ := newWizard(Options{})
	for i := 0; i < 3; i++ {
		if err := w.Advance(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := w.Advance(); err != nil {
		t.Fatalf("unexpected error on last page: %v", err)
	}
	if got := w.CurrentPage().Ordinal; got != 4 {
		t.Fatalf("expected page 4, got %d", got)
	}
}

func TestNavigationStaysInBounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	w, _ := newWizard(Options{})
	for i := 0; i < 1000; i++ {
		if rnd.Intn(2) == 0 {
			if err := w.Advance(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		} else {
			w.Retreat()
		}
		page := w.Snapshot().CurrentPage
		if page < 1 || page > 4 {
			t.Fatalf("step %d: page %d out of range", i, page)
		}
	}
}

func TestFieldsPersistAcrossNavigation(t *testing.T) {
	w, _ := newWizard(Options{})
	if err := w.SetField("Age", 25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.SetField("Gender", "Male"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := w.Snapshot().Fields

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		if rnd.Intn(2) == 0 {
			_ = w.Advance()
		} else {
			w.Retreat()
		}
	}
	if diff := cmp.Diff(before, w.Snapshot().Fields); diff != "" {
		t.Fatalf("fields changed by navigation (-before +after):\n%s", diff)
	}

	if err := w.SetField("Age", 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = w.Advance()
	w.Retreat()
	if v, _ := w.Field("Age"); v != 30 {
		t.Fatalf("expected most recent value 30, got %v", v)
	}
}

func TestSetFieldNormalizes(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
		want  any
	}{
		{name: "categorical case folded", field: "Gender", value: "female", want: "Female"},
		{name: "categorical by label", field: "MTRANS", value: "Public Transportation", want: "Public_Transportation"},
		{name: "integer from whole float", field: "Age", value: 25.0, want: 25},
		{name: "integer from string", field: "NCP", value: " 3 ", want: 3},
		{name: "float from int", field: "Weight", value: 60, want: 60.0},
		{name: "float from string", field: "Height", value: "1.65", want: 1.65},
		{name: "alias", field: "family_history", value: "Yes", want: "Yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newWizard(Options{})
			if err := w.SetField(tt.field, tt.value); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, ok := w.Field(tt.field)
			if !ok {
				t.Fatalf("field %s not set", tt.field)
			}
			if got != tt.want {
				t.Fatalf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestSetFieldRejectsOutOfDomain(t *testing.T) {
	tests := []struct {
		name           string
		field          string
		value          any
		wantSuggestion string
	}{
		{name: "unknown field", field: "Wieght", value: 60, wantSuggestion: "Weight"},
		{name: "unknown option", field: "MTRANS", value: "Walkng", wantSuggestion: "Walking"},
		{name: "unrelated option", field: "Gender", value: "Spaceship"},
		{name: "integer not whole", field: "FCVC", value: 2.5},
		{name: "integer above range", field: "NCP", value: 5},
		{name: "float below range", field: "CH2O", value: 0.5},
		{name: "not a number", field: "Age", value: "old"},
		{name: "wrong type", field: "Gender", value: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newWizard(Options{})
			if err := w.SetField("Age", 40); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			before := w.Snapshot()

			err := w.SetField(tt.field, tt.value)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Suggestion != tt.wantSuggestion {
				t.Errorf("suggestion: got %q, want %q", verr.Suggestion, tt.wantSuggestion)
			}
			if diff := cmp.Diff(before, w.Snapshot()); diff != "" {
				t.Fatalf("rejected update mutated state (-before +after):\n%s", diff)
			}
		})
	}
}

func TestSubmitOnlyFromLastPage(t *testing.T) {
	w, predictor := newWizard(Options{})
	if _, err := w.Submit(context.Background()); !errors.Is(err, ErrNotTerminalPage) {
		t.Fatalf("expected ErrNotTerminalPage, got %v", err)
	}
	if predictor.calls != 0 {
		t.Fatal("predictor must not be called off the last page")
	}
}

func TestSubmitStoresPredictionAndKeepsPage(t *testing.T) {
	w, predictor := newWizard(Options{})
	if err := w.SetField("Age", 25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		_ = w.Advance()
	}
	prediction, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Prediction{Label: "Normal_Weight", DisplayLabel: "Normal Weight"}
	if prediction != want {
		t.Fatalf("got %+v, want %+v", prediction, want)
	}
	snap := w.Snapshot()
	if snap.CurrentPage != 4 {
		t.Fatalf("submit changed page to %d", snap.CurrentPage)
	}
	if snap.LastPrediction == nil || *snap.LastPrediction != want {
		t.Fatalf("prediction not stored: %+v", snap.LastPrediction)
	}

	predictor.last["Age"] = 99
	if v, _ := w.Field("Age"); v != 25 {
		t.Fatal("predictor received the live field map instead of a copy")
	}
}

func TestSubmitFailureKeepsPreviousPrediction(t *testing.T) {
	w, predictor := newWizard(Options{})
	for i := 0; i < 3; i++ {
		_ = w.Advance()
	}
	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	predictor.err = errors.New("model exploded")
	if _, err := w.Submit(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	snap := w.Snapshot()
	if snap.LastPrediction == nil || snap.LastPrediction.Label != "Normal_Weight" {
		t.Fatalf("previous prediction lost: %+v", snap.LastPrediction)
	}
	if snap.LastError == "" {
		t.Fatal("expected the failure to be recorded for display")
	}

	predictor.err = nil
	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Snapshot().LastError != "" {
		t.Fatal("expected successful submit to clear the error")
	}
}

func TestStalePredictionKeptByDefault(t *testing.T) {
	w, _ := newWizard(Options{})
	for i := 0; i < 3; i++ {
		_ = w.Advance()
	}
	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.SetField("CH2O", 2.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Snapshot().LastPrediction == nil {
		t.Fatal("prediction cleared although ClearStalePrediction is off")
	}
}

func TestClearStalePrediction(t *testing.T) {
	w, _ := newWizard(Options{ClearStalePrediction: true})
	for i := 0; i < 3; i++ {
		_ = w.Advance()
	}
	if err := w.SetField("CH2O", 2.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.SetField("CH2O", 2.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Snapshot().LastPrediction == nil {
		t.Fatal("rewriting the same value must not clear the prediction")
	}
	if err := w.SetField("CH2O", 2.7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Snapshot().LastPrediction != nil {
		t.Fatal("expected the changed field to clear the prediction")
	}
}

func TestRequirePageComplete(t *testing.T) {
	w, _ := newWizard(Options{RequirePageComplete: true})
	if err := w.Advance(); !errors.Is(err, ErrPageIncomplete) {
		t.Fatalf("expected ErrPageIncomplete, got %v", err)
	}
	if w.CurrentPage().Ordinal != 1 {
		t.Fatal("incomplete page must not advance")
	}
	for name, value := range map[string]any{
		"Gender": "Female", "Age": 25, "Height": 1.65, "Weight": 60, "family_history": "No",
	} {
		if err := w.SetField(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	if err := w.Advance(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.CurrentPage().Ordinal != 2 {
		t.Fatalf("expected page 2, got %d", w.CurrentPage().Ordinal)
	}
}

func TestPrefillDefaults(t *testing.T) {
	w, _ := newWizard(Options{PrefillDefaults: true})
	want := FieldMap{"Gender": "Female", "family_history_with_overweight": "No"}
	if diff := cmp.Diff(want, w.Snapshot().Fields); diff != "" {
		t.Fatalf("page 1 defaults mismatch (-want +got):\n%s", diff)
	}

	if err := w.SetField("FCVC", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = w.Advance()
	if v, _ := w.Field("FCVC"); v != 3 {
		t.Fatalf("prefill overwrote a user value: %v", v)
	}
	if v, _ := w.Field("NCP"); v != 3 {
		t.Fatalf("expected NCP default 3, got %v", v)
	}
}

func TestSnapshotProgressAndFlags(t *testing.T) {
	w, _ := newWizard(Options{})
	_ = w.Advance()
	snap := w.Snapshot()
	if snap.Page.Title != "Eating Habits" {
		t.Fatalf("unexpected page %q", snap.Page.Title)
	}
	if snap.Progress < 0.33 || snap.Progress > 0.34 {
		t.Fatalf("expected progress 1/3, got %f", snap.Progress)
	}
	if !snap.CanRetreat || !snap.CanAdvance || snap.CanSubmit {
		t.Fatalf("unexpected flags: %+v", snap)
	}
}

func TestResumeClampsPage(t *testing.T) {
	w := Resume(ObesityForm(), &fakePredictor{}, Options{}, &State{CurrentPage: 9})
	if w.CurrentPage().Ordinal != 4 {
		t.Fatalf("expected clamp to 4, got %d", w.CurrentPage().Ordinal)
	}
}

func TestReset(t *testing.T) {
	w, _ := newWizard(Options{})
	_ = w.SetField("Age", 25)
	_ = w.Advance()
	w.Reset()
	snap := w.Snapshot()
	if snap.CurrentPage != 1 || len(snap.Fields) != 0 {
		t.Fatalf("reset left state behind: %+v", snap)
	}
}

func TestDisplayLabel(t *testing.T) {
	tests := map[string]string{
		"Normal_Weight":       "Normal Weight",
		"Overweight_Level_II": "Overweight Level II",
		"Obesity_Type_I":      "Obesity Type I",
		"Insufficient_Weight": "Insufficient Weight",
	}
	for in, want := range tests {
		if got := DisplayLabel(in); got != want {
			t.Errorf("DisplayLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormPagesAreCopies(t *testing.T) {
	form := ObesityForm()
	before, _ := form.Page(1)
	first := New(form, &fakePredictor{}, Options{})
	second := New(form, &fakePredictor{}, Options{})

	page := first.CurrentPage()
	page.Fields[0].Label = "changed"
	page.Fields[0].Options[0].Value = "changed"
	form.Pages()[0].Fields[0].Options[1].Value = "changed"
	field, _ := form.Lookup("Gender")
	field.Options[0].Value = "changed"

	after, _ := form.Page(1)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("form page changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(before, second.CurrentPage()); diff != "" {
		t.Fatalf("other session sees the edit (-before +after):\n%s", diff)
	}
	if err := second.SetField("Gender", "Female"); err != nil {
		t.Fatalf("set Gender after edit: %v", err)
	}
}
