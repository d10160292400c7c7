package prompt

import (
	"strings"
)

// CitationLine must close every answer.
const CitationLine = "Source: Provided Document"

const contextDelimiter = "---"

// GroundingBuilder builds the context-only prompt for one question.
type GroundingBuilder struct {
	context  string
	question string
}

func NewGroundingBuilder(context, question string) *GroundingBuilder {
	return &GroundingBuilder{
		context:  context,
		question: question,
	}
}

// Build renders the prompt. The document and question are embedded verbatim.
func (b *GroundingBuilder) Build() string {
	var prompt strings.Builder

	b.writeRole(&prompt)
	b.writeContext(&prompt)
	b.writeQuestion(&prompt)
	b.writeTask(&prompt)

	return prompt.String()
}

func (b *GroundingBuilder) writeRole(prompt *strings.Builder) {
	prompt.WriteString("You are an expert AI Learning Assistant. ")
	prompt.WriteString("Your goal is to answer questions based ONLY on the provided context. ")
	prompt.WriteString("Do not use any external knowledge. ")
	prompt.WriteString("If the answer is not found in the context, state that clearly.\n\n")
}

func (b *GroundingBuilder) writeContext(prompt *strings.Builder) {
	prompt.WriteString("Context:\n")
	prompt.WriteString(contextDelimiter)
	prompt.WriteString("\n")
	prompt.WriteString(b.context)
	prompt.WriteString("\n")
	prompt.WriteString(contextDelimiter)
	prompt.WriteString("\n\n")
}

func (b *GroundingBuilder) writeQuestion(prompt *strings.Builder) {
	prompt.WriteString("Question: ")
	prompt.WriteString(b.question)
	prompt.WriteString("\n\n")
}

func (b *GroundingBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("Your task is to provide a clear and concise answer to the question above using only the provided context. ")
	prompt.WriteString("After the answer, you MUST cite the source as \"")
	prompt.WriteString(CitationLine)
	prompt.WriteString("\".")
}

// BuildGroundingPrompt is shorthand for NewGroundingBuilder(...).Build().
func BuildGroundingPrompt(context, question string) string {
	return NewGroundingBuilder(context, question).Build()
}

// HasCitation reports whether the answer ends with the citation line.
// Only used for diagnostics; answers are never rewritten.
func HasCitation(answer string) bool {
	return strings.HasSuffix(strings.TrimSpace(answer), CitationLine)
}
