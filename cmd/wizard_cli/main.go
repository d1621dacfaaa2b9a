// Command wizard_cli walks the obesity questionnaire in the terminal and
// prints the predicted class.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"obesityrisk/config"
	"obesityrisk/logging"
	"obesityrisk/ml"
	"obesityrisk/prediction"
	"obesityrisk/wizard"
)

const (
	actionNext   = "Next"
	actionBack   = "Back"
	actionSubmit = "Get Prediction"
	actionQuit   = "Quit"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, _, err := logging.New(config.LogConfig{Level: "warn"})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	artifacts := ml.NewArtifactStore(ml.FileLoader(cfg.ML.ModelType, cfg.ML.ModelPath, cfg.ML.EncoderPath))
	predictor := prediction.NewService(artifacts, logger)
	w := wizard.New(wizard.ObesityForm(), predictor, wizard.Options{
		RequirePageComplete:  cfg.Wizard.RequirePageComplete,
		ClearStalePrediction: cfg.Wizard.ClearStalePrediction,
		PrefillDefaults:      cfg.Wizard.PrefillDefaults,
	})

	if err := run(context.Background(), w, surveyPrompter{}, os.Stdout); err != nil && !errors.Is(err, ErrAborted) {
		log.Fatal(err)
	}
}

// run renders the current page, collects its answers and then asks where
// to go next, until the user quits.
func run(ctx context.Context, w *wizard.Wizard, p Prompter, out io.Writer) error {
	for {
		page := w.CurrentPage()
		snapshot := w.Snapshot()
		fmt.Fprintf(out, "\n== %s (%d/%d) ==\n", page.Title, snapshot.CurrentPage, snapshot.TotalPages)

		for _, field := range page.Fields {
			if err := ask(w, p, field); err != nil {
				return err
			}
		}

		snapshot = w.Snapshot()
		action, err := p.Select("What next?", actions(snapshot), defaultAction(snapshot))
		if err != nil {
			return err
		}
		switch action {
		case actionBack:
			w.Retreat()
		case actionNext:
			if err := w.Advance(); err != nil {
				fmt.Fprintln(out, err)
			}
		case actionSubmit:
			result, err := w.Submit(ctx)
			if err != nil {
				fmt.Fprintf(out, "Prediction failed: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "Predicted obesity risk: %s\n", result.DisplayLabel)
		case actionQuit:
			return nil
		}
	}
}

func ask(w *wizard.Wizard, p Prompter, field wizard.Field) error {
	current, ok := w.Field(field.Name)
	if !ok {
		current = field.Default
	}

	var answer string
	var err error
	if field.Kind == wizard.KindCategorical {
		labels := make([]string, len(field.Options))
		def := ""
		for i, option := range field.Options {
			labels[i] = option.Label
			if option.Value == current {
				def = option.Label
			}
		}
		answer, err = p.Select(field.Label, labels, def)
	} else {
		def := ""
		if current != nil {
			def = fmt.Sprint(current)
		}
		message := fmt.Sprintf("%s [%v-%v]", field.Label, field.Min, field.Max)
		answer, err = p.Input(message, def, func(text string) error {
			_, err := field.Normalize(text)
			return err
		})
	}
	if err != nil {
		return err
	}
	return w.SetField(field.Name, answer)
}

func actions(s wizard.Snapshot) []string {
	var out []string
	if s.CanAdvance {
		out = append(out, actionNext)
	}
	if s.CanRetreat {
		out = append(out, actionBack)
	}
	if s.CanSubmit {
		out = append(out, actionSubmit)
	}
	return append(out, actionQuit)
}

func defaultAction(s wizard.Snapshot) string {
	if s.CanSubmit {
		return actionSubmit
	}
	return actionNext
}
