package llm

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abdelatifsd/Adjacent/internal/domain"
)

const (
	SystemPromptID = "edge_infer.system.v1"
	UserPromptID   = "edge_infer.user.v1"

	// SchemaName is the structured-output schema name sent with each request.
	SchemaName = "RecommendationEdgePatch"
)

//go:embed prompts/*.md
var promptFS embed.FS

//go:embed edge_patch.schema.json
var patchSchemaJSON []byte

// Prompts is one versioned system prompt and user template pair.
type Prompts struct {
	SystemID     string
	UserID       string
	System       string
	UserTemplate string
}

// LoadPrompts reads a prompt pair by id from the embedded prompt set.
func LoadPrompts(systemID, userID string) (Prompts, error) {
	sys, err := promptFS.ReadFile("prompts/" + systemID + ".md")
	if err != nil {
		return Prompts{}, fmt.Errorf("llm: unknown system prompt %q: %w", systemID, err)
	}
	usr, err := promptFS.ReadFile("prompts/" + userID + ".md")
	if err != nil {
		return Prompts{}, fmt.Errorf("llm: unknown user prompt %q: %w", userID, err)
	}
	return Prompts{
		SystemID:     systemID,
		UserID:       userID,
		System:       strings.TrimSpace(string(sys)),
		UserTemplate: strings.TrimSpace(string(usr)),
	}, nil
}

func DefaultPrompts() (Prompts, error) {
	return LoadPrompts(SystemPromptID, UserPromptID)
}

// Render fills the anchor and candidate placeholders with compact JSON.
func (p Prompts) Render(anchor domain.LLMProductView, candidates []domain.LLMProductView) (string, error) {
	a, err := json.Marshal(anchor)
	if err != nil {
		return "", err
	}
	if candidates == nil {
		candidates = []domain.LLMProductView{}
	}
	c, err := json.Marshal(candidates)
	if err != nil {
		return "", err
	}
	r := strings.NewReplacer("{ANCHOR_JSON}", string(a), "{CANDIDATES_JSON}", string(c))
	return r.Replace(p.UserTemplate), nil
}

// HashPrompt is a short stable fingerprint used to track prompt versions.
func HashPrompt(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
