package gemini

import "google.golang.org/genai"

const tutorInstruction = `You are a patient Sanskrit tutor for English speakers.
Answer in English unless asked to translate. Write Sanskrit in Devanagari and add an IAST transliteration in parentheses.
When given an image, identify the objects in it and give their Sanskrit names.`

// defaultHistory seeds every chat so answers keep the tutor format.
func defaultHistory() []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromText("How do I say \"water\" in Sanskrit?", genai.RoleUser),
		genai.NewContentFromText("जलम् (jalam). Another common word is उदकम् (udakam).", genai.RoleModel),
	}
}
