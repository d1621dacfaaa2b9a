package wizard_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"obesityrisk/ml"
	"obesityrisk/prediction"
	"obesityrisk/wizard"
)

func shippedPredictor() *prediction.Service {
	loader := ml.FileLoader(ml.DecisionTreeType,
		filepath.Join("..", "models", "obesity_model.json"),
		filepath.Join("..", "models", "target_encoder.json"))
	return prediction.NewService(ml.NewArtifactStore(loader), nil)
}

func fillScenario(t *testing.T, w *wizard.Wizard) {
	t.Helper()
	pages := []map[string]any{
		{"Gender": "Female", "Age": 25, "Height": 1.65, "Weight": 60, "family_history": "Yes"},
		{"FAVC": "No", "FCVC": 2, "NCP": 3, "CAEC": "Sometimes"},
		{"FAF": 1, "TUE": 1, "SMOKE": "No"},
		{"CH2O": 2.0, "SCC": "No", "CALC": "No", "MTRANS": "Walking"},
	}
	for i, fields := range pages {
		for name, value := range fields {
			if err := w.SetField(name, value); err != nil {
				t.Fatalf("page %d: set %s: %v", i+1, name, err)
			}
		}
		if err := w.Advance(); err != nil {
			t.Fatalf("advance from page %d: %v", i+1, err)
		}
	}
}

func TestSubmitScenarioReturnsKnownClass(t *testing.T) {
	service := shippedPredictor()
	w := wizard.New(wizard.ObesityForm(), service, wizard.Options{})
	fillScenario(t, w)

	result, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	classes, err := service.Classes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	known := false
	for _, class := range classes {
		known = known || class == result.Label
	}
	if !known {
		t.Fatalf("%q is not one of %v", result.Label, classes)
	}
	if result.Label != "Normal_Weight" {
		t.Fatalf("expected Normal_Weight, got %s", result.Label)
	}
}

func TestSubmitMissingFieldIsInvalidInput(t *testing.T) {
	earlier := wizard.NewPrediction("Overweight_Level_I")
	state := &wizard.State{
		CurrentPage:    4,
		Fields:         wizard.FieldMap{"Gender": "Female", "Age": 25},
		LastPrediction: &earlier,
	}
	w := wizard.Resume(wizard.ObesityForm(), shippedPredictor(), wizard.Options{}, state)

	_, err := w.Submit(context.Background())
	if !errors.Is(err, prediction.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	snap := w.Snapshot()
	if snap.LastPrediction == nil || *snap.LastPrediction != earlier {
		t.Fatalf("last prediction changed: %+v", snap.LastPrediction)
	}
	if snap.LastError == "" {
		t.Fatal("expected the error to be kept for display")
	}
	if snap.CurrentPage != 4 {
		t.Fatalf("submit moved to page %d", snap.CurrentPage)
	}
}
