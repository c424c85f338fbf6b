package gemini

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/dasmlab/vakya/pkg/translate"
)

// studyLanguages are the languages a study document can be written in.
var studyLanguages = []string{"English", "Hindi", "Sanskrit"}

type documentFormat struct {
	instruction string
	schema      *genai.Schema
}

var documentFormats = map[translate.DocumentKind]documentFormat{
	translate.DocumentFlashcards: {
		instruction: `Produce vocabulary flashcards as a JSON array.
Each card has a "front" and a "back" object keyed by English, Hindi and Sanskrit.
Fill only the languages the request asks for on each side and set every other language to null.`,
		schema: &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"front": languageSides(),
					"back":  languageSides(),
				},
				Required:         []string{"front", "back"},
				PropertyOrdering: []string{"front", "back"},
			},
		},
	},
	translate.DocumentGrammar: {
		instruction: `Produce Sanskrit grammar exercises as a JSON object keyed by the language the request names (English, Hindi or Sanskrit).
Each value is an array of multiple choice questions. A question has four options with exactly one marked isCorrect,
an explanation of the answer, the grammaticalConcept it tests and its difficulty.`,
		schema: grammarSchema(),
	},
}

// languageSides is one flashcard side: a nullable string per language.
func languageSides() *genai.Schema {
	nullable := true
	props := make(map[string]*genai.Schema, len(studyLanguages))
	for _, lang := range studyLanguages {
		props[lang] = &genai.Schema{Type: genai.TypeString, Nullable: &nullable}
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		Required:         studyLanguages,
		PropertyOrdering: studyLanguages,
	}
}

func grammarSchema() *genai.Schema {
	question := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"question": {Type: genai.TypeString},
			"options": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text":      {Type: genai.TypeString},
						"isCorrect": {Type: genai.TypeBoolean},
					},
					Required: []string{"text", "isCorrect"},
				},
			},
			"explanation":        {Type: genai.TypeString},
			"grammaticalConcept": {Type: genai.TypeString},
			"difficulty":         {Type: genai.TypeString},
		},
		Required:         []string{"question", "options", "explanation", "grammaticalConcept", "difficulty"},
		PropertyOrdering: []string{"question", "options", "explanation", "grammaticalConcept", "difficulty"},
	}

	props := make(map[string]*genai.Schema, len(studyLanguages))
	for _, lang := range studyLanguages {
		props[lang] = &genai.Schema{Type: genai.TypeArray, Items: question}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
	}
}

// documentConfig builds the JSON mode request config for kind.
func documentConfig(kind translate.DocumentKind) (*genai.GenerateContentConfig, error) {
	format, ok := documentFormats[kind]
	if !ok {
		return nil, fmt.Errorf("gemini: unknown document kind %q", kind)
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(tutorInstruction+"\n"+format.instruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    format.schema,
	}, nil
}
