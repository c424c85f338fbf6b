// Package chunker splits long text into pieces a local model can take in one pass.
package chunker

import (
	"strings"
	"unicode"
)

// DefaultMaxTokens keeps chunks under the 256-token input window of the local
// models with room for special tokens and language tags.
const DefaultMaxTokens = 200

// Chunk is one piece of the source text.
type Chunk struct {
	Text string
	// Separator followed the chunk in the source and should follow its translation.
	Separator string
}

// EstimateTokens estimates the token count for a text.
// Uses a simple heuristic: ~4 characters per token for Latin languages.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len(text) / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

// Split splits text into chunks of at most maxTokens estimated tokens,
// breaking at paragraph boundaries first, then at sentence boundaries. A
// single sentence longer than the limit is kept whole.
func Split(text string, maxTokens int) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if EstimateTokens(text) <= maxTokens {
		return []Chunk{{Text: text}}
	}

	var chunks []Chunk
	var current []string
	currentTokens := 0

	flush := func(sep string) {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, Chunk{Text: strings.Join(current, " "), Separator: sep})
		current = nil
		currentTokens = 0
	}

	paragraphs := splitParagraphs(text)
	for i, para := range paragraphs {
		for _, sentence := range SplitSentences(para) {
			tokens := EstimateTokens(sentence)
			if currentTokens+tokens > maxTokens && len(current) > 0 {
				flush(" ")
			}
			current = append(current, sentence)
			currentTokens += tokens
		}
		if i < len(paragraphs)-1 {
			flush("\n\n")
		}
	}
	flush("")

	return chunks
}

// Join reassembles translated chunk texts with the separators of the source.
func Join(chunks []Chunk, translated []string) string {
	var b strings.Builder
	for i, t := range translated {
		b.WriteString(t)
		if i < len(chunks) {
			b.WriteString(chunks[i].Separator)
		}
	}
	return strings.TrimSpace(b.String())
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// SplitSentences splits text after '.', '!' or '?' followed by whitespace.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
