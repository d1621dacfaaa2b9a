package metrics

import (
	"strings"
	"sync"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	c := NewCollector()
	c.IncrCounter(Predictions, 1, map[string]string{"label": "Normal_Weight"})
	c.IncrCounter(Predictions, 2, map[string]string{"label": "Normal_Weight"})
	c.IncrCounter(Predictions, 1, map[string]string{"label": "Obesity_Type_I"})
	c.SetGauge(SessionsLive, 5, nil)
	c.SetGauge(SessionsLive, 3, nil)

	if got := c.Value(Predictions, map[string]string{"label": "Normal_Weight"}); got != 3 {
		t.Fatalf("counter = %v want 3", got)
	}
	if got := c.Value(SessionsLive, nil); got != 3 {
		t.Fatalf("gauge = %v want 3", got)
	}
	if got := c.Value("missing", nil); got != 0 {
		t.Fatalf("missing = %v", got)
	}
}

func TestExportPrometheus(t *testing.T) {
	c := NewCollector()
	c.IncrCounter(PredictionErrors, 1, map[string]string{"kind": "invalid_input"})
	c.IncrCounter(SessionsCreated, 2, nil)

	out := c.ExportPrometheus()
	for _, want := range []string{
		"# TYPE wizard_prediction_errors_total counter\n",
		`wizard_prediction_errors_total{kind="invalid_input"} 1` + "\n",
		"# HELP wizard_sessions_created_total Wizard sessions created\n",
		"wizard_sessions_created_total 2\n",
		"# TYPE go_goroutines gauge\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, PredictionErrors) > strings.Index(out, SessionsCreated) {
		t.Error("families are not sorted by name")
	}
}

func TestNilCollectorIgnoresWrites(t *testing.T) {
	var c *Collector
	c.IncrCounter(FieldUpdates, 1, nil)
	c.SetGauge(SessionsLive, 1, nil)
}

func TestConcurrentIncrements(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncrCounter(FieldUpdates, 1, nil)
		}()
	}
	wg.Wait()
	if got := c.Value(FieldUpdates, nil); got != 50 {
		t.Fatalf("counter = %v want 50", got)
	}
}
