package models

import (
	"fmt"
	"time"
)

// Subject identifies the academic subject of a question.
type Subject string

const (
	SubjectMath            Subject = "math"
	SubjectScience         Subject = "science"
	SubjectPhysics         Subject = "physics"
	SubjectChemistry       Subject = "chemistry"
	SubjectBiology         Subject = "biology"
	SubjectHistory         Subject = "history"
	SubjectLiterature      Subject = "literature"
	SubjectEnglish         Subject = "english"
	SubjectComputerScience Subject = "computer_science"
	SubjectOther           Subject = "other"
)

var subjects = map[Subject]bool{
	SubjectMath: true, SubjectScience: true, SubjectPhysics: true,
	SubjectChemistry: true, SubjectBiology: true, SubjectHistory: true,
	SubjectLiterature: true, SubjectEnglish: true,
	SubjectComputerScience: true, SubjectOther: true,
}

// Valid reports whether s is a known subject.
func (s Subject) Valid() bool { return subjects[s] }

// GradeLevel identifies the student's grade tier.
type GradeLevel string

const (
	GradeElementary   GradeLevel = "elementary"
	GradeMiddleSchool GradeLevel = "middle_school"
	GradeHighSchool   GradeLevel = "high_school"
	GradeCollege      GradeLevel = "college"
)

var gradeLevels = map[GradeLevel]bool{
	GradeElementary: true, GradeMiddleSchool: true,
	GradeHighSchool: true, GradeCollege: true,
}

// Valid reports whether g is a known grade level.
func (g GradeLevel) Valid() bool { return gradeLevels[g] }

// ConversationMessage is a single prior turn in a student's conversation.
type ConversationMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// MaxHistoryMessages caps conversation history at ingestion. Older turns
// are dropped, keeping the most recent.
const MaxHistoryMessages = 20

// TeachRequest is an inbound tutoring question with its context.
type TeachRequest struct {
	StudentID           string                `json:"student_id"`
	Question            string                `json:"question"`
	Subject             Subject               `json:"subject"`
	GradeLevel          GradeLevel            `json:"grade_level"`
	ConversationHistory []ConversationMessage `json:"conversation_history,omitempty"`
	ModelPreference     string                `json:"model_preference,omitempty"`
	AdditionalContext   map[string]string     `json:"additional_context,omitempty"`
}

// ValidationError reports a malformed or missing request field. Validation
// failures are surfaced before the request touches the limiter or cache.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// Validate checks required fields and trims oversized history in place.
func (r *TeachRequest) Validate() error {
	if r.StudentID == "" {
		return &ValidationError{Field: "student_id", Reason: "is required"}
	}
	if r.Question == "" {
		return &ValidationError{Field: "question", Reason: "is required"}
	}
	if !r.Subject.Valid() {
		return &ValidationError{Field: "subject", Reason: fmt.Sprintf("%q is not a known subject", r.Subject)}
	}
	if !r.GradeLevel.Valid() {
		return &ValidationError{Field: "grade_level", Reason: fmt.Sprintf("%q is not a known grade level", r.GradeLevel)}
	}
	if n := len(r.ConversationHistory); n > MaxHistoryMessages {
		r.ConversationHistory = r.ConversationHistory[n-MaxHistoryMessages:]
	}
	return nil
}
