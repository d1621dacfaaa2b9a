package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"obesityrisk/ml"
)

func main() {
	dataPath := flag.String("data", "", "training CSV with a NObeyesdad column")
	modelPath := flag.String("model_path", "./models/obesity_model.json", "model output path")
	encoderPath := flag.String("encoder_path", "./models/target_encoder.json", "target encoder output path")
	maxDepth := flag.Int("max_depth", 10, "max tree depth")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	seed := flag.Int64("seed", 42, "shuffle seed")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("data is required")
	}

	file, err := os.Open(*dataPath)
	if err != nil {
		log.Fatalf("failed to open dataset: %v", err)
	}
	columns := ml.ObesityColumns()
	records, targets, err := ml.ReadDataset(file, columns, ml.TargetColumn)
	file.Close()
	if err != nil {
		log.Fatalf("failed to read dataset: %v", err)
	}
	log.Printf("read %d rows from %s", len(records), *dataPath)

	encoder := &ml.LabelEncoder{}
	labels := encoder.Fit(targets)
	log.Printf("classes: %v", encoder.Classes)

	trainX, trainY, testX, testY := ml.SplitDataset(records, labels, *testRatio, rand.New(rand.NewSource(*seed)))

	model := ml.NewPipeline(columns, *maxDepth)
	if err := model.Fit(trainX, trainY); err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	log.Printf("train accuracy=%.3f", ml.Accuracy(model, trainX, trainY))
	if len(testX) > 0 {
		log.Printf("test accuracy=%.3f (%d rows)", ml.Accuracy(model, testX, testY), len(testX))
	}

	for _, path := range []string{*modelPath, *encoderPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Fatalf("failed to create model dir: %v", err)
		}
	}
	if err := model.Save(*modelPath); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}
	if err := encoder.Save(*encoderPath); err != nil {
		log.Fatalf("failed to save encoder: %v", err)
	}

	fmt.Printf("model saved to %s\nencoder saved to %s\n", *modelPath, *encoderPath)
}
