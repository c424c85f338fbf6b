package translate

import (
	"context"
	"fmt"
)

// Method identifies a translation backend.
type Method string

const (
	// MethodAPI translates through the hosted generative model.
	MethodAPI Method = "api"
	// MethodLocal runs the fine-tuned mBART model (modelv2).
	MethodLocal Method = "local"
	// MethodModelV3 runs the IndicTrans2 model (modelv3).
	MethodModelV3 Method = "modelv3"
)

// Fixed language pair served by every backend.
const (
	SourceLanguage = "English"
	TargetLanguage = "Sanskrit"
)

// AllMethods lists every method in presentation order.
var AllMethods = []Method{MethodAPI, MethodLocal, MethodModelV3}

// ParseMethod parses a method name. Names match exactly; callers that treat
// an absent method as MethodAPI must default before parsing.
func ParseMethod(s string) (Method, error) {
	switch s {
	case string(MethodAPI):
		return MethodAPI, nil
	case string(MethodLocal):
		return MethodLocal, nil
	case string(MethodModelV3):
		return MethodModelV3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
	}
}

func (m Method) String() string {
	return string(m)
}

// Result is the outcome of one successful translation.
type Result struct {
	TranslatedText string `json:"translatedText"`
	Method         Method `json:"method"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

func newResult(text string, method Method) *Result {
	return &Result{
		TranslatedText: text,
		Method:         method,
		SourceLanguage: SourceLanguage,
		TargetLanguage: TargetLanguage,
	}
}

// MethodInfo describes a method for clients choosing a backend.
type MethodInfo struct {
	Value       Method `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}

// Translator is the surface transports depend on.
// Service is the production implementation.
type Translator interface {
	// Translate translates English text to Sanskrit with the given method.
	Translate(ctx context.Context, text string, method Method) (*Result, error)

	// Available reports whether the method can currently serve requests.
	Available(method Method) bool

	// Methods describes every method and its current availability.
	Methods() []MethodInfo
}

// Attachment is an inline file sent along with a chat prompt.
type Attachment struct {
	Data     []byte
	MIMEType string
}

// Generator is the hosted generative model.
type Generator interface {
	// GenerateContent returns the full text answer for a prompt.
	GenerateContent(ctx context.Context, prompt string) (string, error)

	// GenerateContentStream calls fn for each chunk of the answer, in order.
	// Returning an error from fn stops the stream.
	GenerateContentStream(ctx context.Context, prompt string, fn func(chunk string) error) error

	// Chat sends a prompt, optionally with an attachment, in a tutor conversation.
	Chat(ctx context.Context, prompt string, attachment *Attachment) (string, error)

	// GenerateJSON returns an answer constrained to the JSON document shape
	// of kind.
	GenerateJSON(ctx context.Context, kind DocumentKind, prompt string) (string, error)
}

// DocumentKind names a JSON study document the generator can produce.
type DocumentKind string

const (
	// DocumentFlashcards is an array of {front, back} cards, each side keyed
	// by language.
	DocumentFlashcards DocumentKind = "flashcards"
	// DocumentGrammar maps each language to a list of multiple choice
	// grammar questions.
	DocumentGrammar DocumentKind = "grammar"
)
