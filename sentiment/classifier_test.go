package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "lowercases and splits",
			in:   "Go Is GREAT",
			want: []string{"go", "is", "great"},
		},
		{
			name: "strips urls and mentions",
			in:   "@alice check https://example.com wow",
			want: []string{"check", "wow"},
		},
		{
			name: "splits on punctuation and digits",
			in:   "love it!!! 100% can't-wait",
			want: []string{"love", "it", "can", "t", "wait"},
		},
		{
			name: "hashtag keeps the word",
			in:   "#golang rocks",
			want: []string{"golang", "rocks"},
		},
		{
			name: "empty after stripping",
			in:   "@bob https://t.co/x 42",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}
