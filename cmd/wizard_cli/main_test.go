package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"obesityrisk/wizard"
)

type stubPredictor struct {
	fields wizard.FieldMap
	err    error
}

func (s *stubPredictor) Predict(ctx context.Context, fields wizard.FieldMap) (string, error) {
	s.fields = fields
	if s.err != nil {
		return "", s.err
	}
	return "Normal_Weight", nil
}

// scriptedPrompter answers field prompts from a map and menu prompts from
// a queue.
type scriptedPrompter struct {
	answers map[string]string
	actions []string
	menus   [][]string
}

func (s *scriptedPrompter) Select(message string, options []string, def string) (string, error) {
	if message == "What next?" {
		s.menus = append(s.menus, options)
		if len(s.actions) == 0 {
			return "", ErrAborted
		}
		action := s.actions[0]
		s.actions = s.actions[1:]
		return action, nil
	}
	return s.answer(message)
}

func (s *scriptedPrompter) Input(message, def string, validate func(string) error) (string, error) {
	answer, err := s.answer(message)
	if err != nil {
		return "", err
	}
	if err := validate(answer); err != nil {
		return "", err
	}
	return answer, nil
}

func (s *scriptedPrompter) answer(message string) (string, error) {
	key := message
	if i := strings.Index(message, " ["); i >= 0 {
		key = message[:i]
	}
	answer, ok := s.answers[key]
	if !ok {
		return "", errors.New("unexpected prompt " + message)
	}
	return answer, nil
}

func scenarioAnswers() map[string]string {
	return map[string]string{
		"Gender":                            "Female",
		"Age":                               "25",
		"Height (m)":                        "1.65",
		"Weight (kg)":                       "60",
		"Family History with Overweight":    "Yes",
		"High Caloric Food Consumption":     "No",
		"Vegetable Consumption Frequency":   "2",
		"Number of Main Meals":              "3",
		"Consumption of Food Between Meals": "Sometimes",
		"Physical Activity Frequency":       "1",
		"Technology Usage Time":             "1",
		"Do You Smoke?":                     "No",
		"Daily Water Consumption (L)":       "2.0",
		"Calories Consumption Monitoring":   "No",
		"Alcohol Consumption Frequency":     "No",
		"Transportation":                    "Public Transportation",
	}
}

func TestRunWalksFormAndPredicts(t *testing.T) {
	predictor := &stubPredictor{}
	w := wizard.New(wizard.ObesityForm(), predictor, wizard.Options{})
	prompter := &scriptedPrompter{
		answers: scenarioAnswers(),
		actions: []string{actionNext, actionNext, actionNext, actionSubmit, actionQuit},
	}
	var out bytes.Buffer

	if err := run(context.Background(), w, prompter, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Predicted obesity risk: Normal Weight") {
		t.Fatalf("prediction not printed:\n%s", out.String())
	}
	if len(predictor.fields) != 16 {
		t.Fatalf("predictor got %d fields", len(predictor.fields))
	}
	if predictor.fields["MTRANS"] != "Public_Transportation" {
		t.Errorf("MTRANS = %v", predictor.fields["MTRANS"])
	}
	if predictor.fields["Age"] != 25 {
		t.Errorf("Age = %v (%T)", predictor.fields["Age"], predictor.fields["Age"])
	}

	first := prompter.menus[0]
	if indexOf(first, actionBack) >= 0 || indexOf(first, actionSubmit) >= 0 {
		t.Errorf("first page menu offers %v", first)
	}
	last := prompter.menus[3]
	if indexOf(last, actionNext) >= 0 || indexOf(last, actionSubmit) < 0 {
		t.Errorf("last page menu offers %v", last)
	}
}

func TestRunReportsPredictionFailure(t *testing.T) {
	predictor := &stubPredictor{err: errors.New("model artifact unavailable")}
	w := wizard.New(wizard.ObesityForm(), predictor, wizard.Options{})
	prompter := &scriptedPrompter{
		answers: scenarioAnswers(),
		actions: []string{actionNext, actionNext, actionNext, actionSubmit, actionBack, actionQuit},
	}
	var out bytes.Buffer

	if err := run(context.Background(), w, prompter, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Prediction failed: model artifact unavailable") {
		t.Fatalf("failure not printed:\n%s", out.String())
	}
	if w.Snapshot().CurrentPage != 3 {
		t.Errorf("back after failure left page %d", w.Snapshot().CurrentPage)
	}
}

func TestRunStopsOnAbort(t *testing.T) {
	w := wizard.New(wizard.ObesityForm(), &stubPredictor{}, wizard.Options{})
	prompter := &scriptedPrompter{answers: scenarioAnswers()}
	if err := run(context.Background(), w, prompter, &bytes.Buffer{}); !errors.Is(err, ErrAborted) {
		t.Fatalf("got %v want ErrAborted", err)
	}
}
