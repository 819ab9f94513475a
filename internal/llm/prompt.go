package llm

import "fmt"

// BuildCardsPrompt asks the model for question/answer pairs in a strict JSON
// envelope so the response can be machine-parsed.
func BuildCardsPrompt(text string) string {
	return fmt.Sprintf(`You are a study assistant. Read the following document text and create concise question/answer flashcards covering its key facts.

Respond with ONLY a JSON object of this exact shape, no other commentary:
{"cards": [{"q": "question text", "a": "answer text"}]}

Document text:
%s`, text)
}
