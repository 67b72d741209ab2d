package llm

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLanguage is used when a request names no language.
const DefaultLanguage = "English"

const cropPromptTemplate = `You are a concise agricultural expert for Indian farmers.

CROP: %s (%s)

QUESTION: %s

INSTRUCTIONS:
- Provide a direct, practical answer in 3-5 sentences maximum
- Focus only on Indian farming conditions and practices
- Use simple, clear language that farmers would understand
- Include precise measurements and specific timeframes when relevant
- If you're unsure about specifics for this crop, be honest but brief
- RESPOND IN %s LANGUAGE

FORMAT YOUR ANSWER LIKE THIS:
[Brief, direct answer with the most important information first in %s]
`

// BuildPrompt renders the advisory prompt. The output depends only on its
// arguments.
func BuildPrompt(crop, cropType, question, lang string) string {
	return fmt.Sprintf(cropPromptTemplate, crop, cropType, question, UpperCase(lang), lang)
}

// UpperCase applies full Unicode case mapping, so "ß" becomes "SS".
func UpperCase(s string) string {
	return cases.Upper(language.Und).String(s)
}

// LowerCase is the lower-case counterpart of UpperCase.
func LowerCase(s string) string {
	return cases.Lower(language.Und).String(s)
}
