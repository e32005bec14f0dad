package sentiment

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	"github.com/jbrukh/bayesian"

	"github.com/almightycouch/twittex/errors"
)

const (
	classPositive bayesian.Class = "positive"
	classNegative bayesian.Class = "negative"
)

// BayesClassifier is a naive Bayes sentiment classifier trained on labeled
// samples. It is safe for concurrent use once training has finished.
type BayesClassifier struct {
	mu         sync.RWMutex
	classifier *bayesian.Classifier
	trained    int
}

// NewBayesClassifier creates an untrained classifier.
func NewBayesClassifier() *BayesClassifier {
	return &BayesClassifier{
		classifier: bayesian.NewClassifier(classPositive, classNegative),
	}
}

// Train adds one labeled sample to the model.
func (b *BayesClassifier) Train(label Label, text string) error {
	class, err := classOf(label)
	if err != nil {
		return err
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	b.mu.Lock()
	b.classifier.Learn(tokens, class)
	b.trained++
	b.mu.Unlock()
	return nil
}

// TrainCSV reads `label,text` rows and trains on each. Labels are the Label
// strings, or sentiment140-style "0" (negative) and "4" (positive).
func (b *BayesClassifier) TrainCSV(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, errors.WrapInvalid(err, "BayesClassifier", "TrainCSV", "read corpus row")
		}
		if len(record) < 2 {
			return count, errors.WrapInvalid(errors.ErrInvalidData,
				"BayesClassifier", "TrainCSV",
				fmt.Sprintf("row %d has %d fields, want 2", count+1, len(record)))
		}

		label, err := parseLabel(record[0])
		if err != nil {
			return count, err
		}
		if err := b.Train(label, record[1]); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Trained returns the number of samples learned so far.
func (b *BayesClassifier) Trained() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trained
}

// Classify returns the most likely label for the text.
func (b *BayesClassifier) Classify(_ context.Context, text string) (Label, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.trained == 0 {
		return "", errors.WrapInvalid(errors.ErrInvalidData,
			"BayesClassifier", "Classify", "classifier has no training data")
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return "", errors.WrapInvalid(errors.ErrInvalidData,
			"BayesClassifier", "Classify", "text contains no classifiable words")
	}

	_, likely, _ := b.classifier.LogScores(tokens)
	if likely == 0 {
		return Positive, nil
	}
	return Negative, nil
}

func classOf(label Label) (bayesian.Class, error) {
	switch label {
	case Positive:
		return classPositive, nil
	case Negative:
		return classNegative, nil
	default:
		return "", errors.WrapInvalid(errors.ErrInvalidData,
			"BayesClassifier", "Train", fmt.Sprintf("unknown label %q", label))
	}
}

func parseLabel(raw string) (Label, error) {
	switch raw {
	case string(Positive), "4":
		return Positive, nil
	case string(Negative), "0":
		return Negative, nil
	default:
		return "", errors.WrapInvalid(errors.ErrInvalidData,
			"BayesClassifier", "TrainCSV", fmt.Sprintf("unknown label %q", raw))
	}
}
