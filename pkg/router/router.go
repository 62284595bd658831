// Package router picks which model configuration serves a request.
// Selection is a pure function of the request and the registry view it is
// handed; it performs no I/O, which keeps the policy unit-testable.
package router

import (
	"github.com/studyhall-ai/studyhall/pkg/models"
)

const (
	// complexQuestionLength is the question size beyond which a request
	// counts as complex.
	complexQuestionLength = 500

	// upgradeModelID is routed to for complex questions in quantitative
	// subjects when the registry carries it.
	// TODO: make routing rules configurable in models.yaml.
	upgradeModelID = "llama3-8b-advanced"
)

// advancedSubjects are the subjects worth a stronger model when the
// question is also complex.
var advancedSubjects = map[models.Subject]bool{
	models.SubjectPhysics:         true,
	models.SubjectChemistry:       true,
	models.SubjectComputerScience: true,
}

// Select returns the model id serving the request. Decision order:
//
//  1. An explicit preference that exists in the registry wins verbatim.
//  2. Complex questions (long text, extra context, or college level) in an
//     advanced subject route to the upgrade model when available.
//  3. Everything else gets the default model.
func Select(req *models.TeachRequest, available []string, defaultModel string) string {
	if req.ModelPreference != "" && contains(available, req.ModelPreference) {
		return req.ModelPreference
	}

	isComplex := len(req.Question) > complexQuestionLength ||
		len(req.AdditionalContext) > 0 ||
		req.GradeLevel == models.GradeCollege

	if isComplex && advancedSubjects[req.Subject] && contains(available, upgradeModelID) {
		return upgradeModelID
	}

	return defaultModel
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
