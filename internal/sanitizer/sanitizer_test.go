package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/briefly/internal/sanitizer"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text untouched",
			input:    "Stay hungry, stay foolish.",
			expected: "Stay hungry, stay foolish.",
		},
		{
			name:     "script stripped",
			input:    `<script>alert("x")</script>Be yourself`,
			expected: "Be yourself",
		},
		{
			name:     "formatting tags stripped",
			input:    "<b>Bold</b> statement",
			expected: "Bold statement",
		},
		{
			name:     "whitespace trimmed",
			input:    "  padded  ",
			expected: "padded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizer.Text(tt.input))
		})
	}
}
