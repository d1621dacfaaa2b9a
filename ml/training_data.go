package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// TargetColumn is the class column of the obesity dataset.
const TargetColumn = "NObeyesdad"

// ReadDataset reads a CSV with a header row into records laid out as
// columns, plus the raw class label of every row.
func ReadDataset(r io.Reader, columns []Column, target string) ([]Record, []string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	targetIdx, ok := index[target]
	if !ok {
		return nil, nil, fmt.Errorf("target column %q not in header", target)
	}
	for _, column := range columns {
		if _, ok := index[column.Name]; !ok {
			return nil, nil, fmt.Errorf("column %q not in header", column.Name)
		}
	}

	var records []Record
	var labels []string
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		record := make(Record, len(columns))
		for i, column := range columns {
			raw := strings.TrimSpace(row[index[column.Name]])
			var value any = raw
			if column.Kind == Numeric {
				f, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, nil, fmt.Errorf("line %d: %w: %s=%q", line, ErrBadValue, column.Name, raw)
				}
				value = f
			}
			record[i] = Cell{Name: column.Name, Value: value}
		}
		records = append(records, record)
		labels = append(labels, strings.TrimSpace(row[targetIdx]))
	}
	if len(records) == 0 {
		return nil, nil, errors.New("dataset has no rows")
	}
	return records, labels, nil
}

func SplitDataset(records []Record, labels []int, testRatio float64, rnd *rand.Rand) (trainX []Record, trainY []int, testX []Record, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	indices := rnd.Perm(len(records))

	split := int(math.Round(float64(len(records)) * (1 - testRatio)))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, records[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, records[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}

// Accuracy is the share of records the model labels correctly. Records
// that fail to encode count as misses.
func Accuracy(model Classifier, records []Record, labels []int) float64 {
	if len(records) == 0 {
		return 0
	}
	var correct int
	for i, record := range records {
		label, _, err := model.Predict(record)
		if err == nil && label == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(records))
}
