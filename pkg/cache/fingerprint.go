package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/studyhall-ai/studyhall/pkg/models"
)

// DefaultModelToken is the fingerprint component used when the caller did
// not request a specific model.
const DefaultModelToken = "default"

// Fingerprint derives the deterministic cache key for a request:
// teaching:{subject}:{grade}:{model}:{hash}. The hash is the first 16 hex
// characters of the SHA-256 digest of the question text.
//
// The model component is the caller's literal preference, or "default"
// when none was given. It is deliberately not the resolved model id: a
// request naming the default model explicitly and one omitting the field
// get distinct entries.
func Fingerprint(req *models.TeachRequest) string {
	sum := sha256.Sum256([]byte(req.Question))
	questionHash := hex.EncodeToString(sum[:])[:16]

	model := req.ModelPreference
	if model == "" {
		model = DefaultModelToken
	}

	return fmt.Sprintf("teaching:%s:%s:%s:%s", req.Subject, req.GradeLevel, model, questionHash)
}
