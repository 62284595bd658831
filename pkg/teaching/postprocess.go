package teaching

import (
	"strings"

	"github.com/studyhall-ai/studyhall/pkg/models"
)

// maxAnswerLength caps answers at response shaping. Longer content is cut
// and marked with a trailing ellipsis.
const maxAnswerLength = 2000

// maxFollowUps caps the follow-up suggestion list.
const maxFollowUps = 3

func truncateAnswer(raw string) string {
	answer := strings.TrimSpace(raw)
	if len(answer) > maxAnswerLength {
		answer = answer[:maxAnswerLength] + "..."
	}
	return answer
}

// confidence scores an answer from its length alone. Base 0.7, dinged for
// very short answers and nudged up for detailed ones, clamped to [0, 1].
func confidence(answer string) float64 {
	score := 0.7
	switch n := len(answer); {
	case n < 50:
		score -= 0.2
	case n > 200:
		score += 0.1
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// universalFollowUp always closes the suggestion list.
const universalFollowUp = "Can you explain this in simpler terms?"

var subjectFollowUps = map[models.Subject][]string{
	models.SubjectMath: {
		"Can you show me another example?",
		"How would this apply to a real-world problem?",
	},
	models.SubjectScience: {
		"Can you explain the underlying principle?",
		"What are some real-world applications?",
	},
	models.SubjectPhysics: {
		"Can you explain the underlying principle?",
		"What are some real-world applications?",
	},
	models.SubjectChemistry: {
		"Can you explain the underlying principle?",
		"What are some real-world applications?",
	},
	models.SubjectBiology: {
		"Can you explain the underlying principle?",
		"What are some real-world applications?",
	},
	models.SubjectHistory: {
		"What was the historical context?",
		"How does this relate to other events?",
	},
	models.SubjectLiterature: {
		"What was the historical context?",
		"How does this relate to other events?",
	},
}

func followUps(subject models.Subject) []string {
	suggestions := append([]string{}, subjectFollowUps[subject]...)
	suggestions = append(suggestions, universalFollowUp)
	if len(suggestions) > maxFollowUps {
		suggestions = suggestions[:maxFollowUps]
	}
	return suggestions
}

var subjectResources = map[models.Subject][]string{
	models.SubjectMath: {
		"Khan Academy - Math",
		"Brilliant.org - Interactive Math",
	},
	models.SubjectScience: {
		"PhET Interactive Simulations",
		"Khan Academy - Physics",
	},
	models.SubjectPhysics: {
		"PhET Interactive Simulations",
		"Khan Academy - Physics",
	},
}

func learningResources(subject models.Subject) []string {
	return append([]string{}, subjectResources[subject]...)
}
