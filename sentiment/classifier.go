// Package sentiment classifies tweet text as positive or negative.
package sentiment

import (
	"context"
	"strings"
	"unicode"
)

// Label is a sentiment class.
type Label string

// Supported labels.
const (
	Positive Label = "positive"
	Negative Label = "negative"
)

// Classifier assigns a sentiment label to a piece of text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Label, error)
}

// Tokenize normalizes tweet text into a bag of words: lowercased, with URLs
// and @mentions removed, split on anything that is not a letter.
func Tokenize(text string) []string {
	var tokens []string
	for _, field := range strings.Fields(strings.ToLower(text)) {
		if strings.HasPrefix(field, "http://") ||
			strings.HasPrefix(field, "https://") ||
			strings.HasPrefix(field, "@") {
			continue
		}
		start := -1
		for i, r := range field {
			if unicode.IsLetter(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				tokens = append(tokens, field[start:i])
				start = -1
			}
		}
		if start >= 0 {
			tokens = append(tokens, field[start:])
		}
	}
	return tokens
}
