package chunker

import (
	"slices"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{
			name:     "empty string",
			text:     "",
			expected: 0,
		},
		{
			name:     "short text",
			text:     "Hi",
			expected: 1, // 2/4 = 0, min 1
		},
		{
			name:     "typical sentence",
			text:     "The river flows to the sea.",
			expected: 6, // 27/4
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EstimateTokens(tt.text)
			if result != tt.expected {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, result, tt.expected)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"single", "Hello world", []string{"Hello world"}},
		{"three", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"decimal kept", "Pi is 3.14 exactly. Yes.", []string{"Pi is 3.14 exactly.", "Yes."}},
		{"newline boundary", "First.\nSecond.", []string{"First.", "Second."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if !slices.Equal(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		maxTokens      int
		expectedChunks int
	}{
		{
			name:           "empty input",
			text:           "   ",
			maxTokens:      100,
			expectedChunks: 0,
		},
		{
			name:           "fits in one chunk",
			text:           "Short text. Another short sentence.",
			maxTokens:      100,
			expectedChunks: 1,
		},
		{
			name:           "sentences split",
			text:           "Aaaa aaaa aaaa. Bbbb bbbb bbbb. Cccc cccc cccc.",
			maxTokens:      4,
			expectedChunks: 3,
		},
		{
			name:           "paragraphs split",
			text:           "First paragraph here.\n\nSecond paragraph here.",
			maxTokens:      8,
			expectedChunks: 2,
		},
		{
			name:           "oversized sentence kept whole",
			text:           strings.Repeat("word ", 100) + "end.\n\nTail.",
			maxTokens:      10,
			expectedChunks: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, tt.maxTokens)
			if len(chunks) != tt.expectedChunks {
				t.Errorf("Split() returned %d chunks, want %d: %+v", len(chunks), tt.expectedChunks, chunks)
			}
		})
	}
}

func TestSplitRespectsLimit(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	const maxTokens = 30

	chunks := Split(text, maxTokens)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if got := EstimateTokens(c.Text); got > maxTokens {
			t.Errorf("chunk %d has %d tokens, limit %d", i, got, maxTokens)
		}
	}
}

func TestSplitJoinRoundTrip(t *testing.T) {
	text := "One sentence. Two sentence.\n\nThree sentence. Four sentence."

	chunks := Split(text, 5)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	if got := Join(chunks, texts); got != text {
		t.Errorf("Join(Split()) = %q, want %q", got, text)
	}
}
