package teaching

import (
	"sort"
	"strings"

	"github.com/studyhall-ai/studyhall/pkg/models"
)

// promptHistoryTurns is how many trailing history messages make it into
// the prompt. The full (capped) history is kept on the request for
// persistence; the prompt only needs recent context.
const promptHistoryTurns = 5

// BuildPrompt renders a tutoring request into the prompt sent to the
// model. Section order is fixed and map iteration is sorted, so the same
// request always produces the same prompt.
func BuildPrompt(req *models.TeachRequest) string {
	var b strings.Builder

	if n := len(req.ConversationHistory); n > 0 {
		history := req.ConversationHistory
		if n > promptHistoryTurns {
			history = history[n-promptHistoryTurns:]
		}
		b.WriteString("Previous conversation:\n")
		for _, msg := range history {
			b.WriteString(capitalize(msg.Role))
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Subject: ")
	b.WriteString(titleCase(string(req.Subject)))
	b.WriteString("\nGrade Level: ")
	b.WriteString(titleCase(string(req.GradeLevel)))
	b.WriteString("\n\n")

	if len(req.AdditionalContext) > 0 {
		keys := make([]string, 0, len(req.AdditionalContext))
		for k := range req.AdditionalContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("Additional Context:\n")
		for _, k := range keys {
			b.WriteString("- ")
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(req.AdditionalContext[k])
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Teaching Guidelines:\n")
	b.WriteString("- Use Socratic questioning to guide learning\n")
	b.WriteString("- Encourage critical thinking and problem-solving\n")
	b.WriteString("- Provide clear explanations with examples\n")
	b.WriteString("- Adapt language to the student's grade level\n")
	b.WriteString("- Be encouraging and supportive\n\n")

	b.WriteString("Student Question: ")
	b.WriteString(req.Question)
	b.WriteString("\n\nPlease provide a helpful, educational response:")

	return b.String()
}

// titleCase turns an enum value like "computer_science" into
// "Computer Science".
func titleCase(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
