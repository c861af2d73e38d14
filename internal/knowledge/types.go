// Package knowledge provides the methodology store abstraction.
//
// Two backends implement the same Store contract: a local PostgreSQL +
// pgvector index and the Dify cloud retrieval API. The backend is selected
// once from configuration and never changes for the lifetime of a process.
//
// The extractor hands this package raw, unvalidated LLM output; the typed
// decode boundary lives here (DecodeMethodologies) so payload failures are
// attributable to the storage stage.
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPayload indicates the raw methodology payload is not a
	// well-formed JSON array of {title, description, methodology} objects.
	// This is the error surfaced when the LLM returned malformed JSON or
	// its no-methodology fallback text.
	ErrInvalidPayload = errors.New("invalid methodology payload")

	// ErrMissingConfig indicates a backend is missing required settings.
	// Raised at construction, before any network call.
	ErrMissingConfig = errors.New("missing configuration")

	// ErrRetrieval indicates a search failed due to backend unavailability.
	ErrRetrieval = errors.New("retrieval failed")
)

// Methodology is a structured, actionable technique extracted from source
// text.
type Methodology struct {
	// Title is a short identifier.
	Title string `json:"title"`

	// Description is the usage scenario produced at extraction time. It is
	// not persisted by either backend; it only aids human readability of
	// the extraction output.
	Description string `json:"description,omitempty"`

	// Content is the methodology body, the unit that gets embedded and
	// stored. The JSON key matches the extraction schema.
	Content string `json:"methodology"`

	// Score is the backend relevance value, populated only on retrieval.
	// Local scores are cosine similarities, cloud scores are Dify relevance
	// values; they are not comparable across backends.
	Score float32 `json:"score,omitempty"`
}

// StoreResult reports the outcome of a Store call.
type StoreResult struct {
	StoredCount int          `json:"stored_count"`
	Items       []ItemStatus `json:"results"`
}

// ItemStatus reports the storage outcome of a single methodology.
type ItemStatus struct {
	Title  string `json:"title"`
	ID     string `json:"id,omitempty"` // backend-issued id
	Status string `json:"status"`
}

// DecodeMethodologies parses the extractor's raw output into methodology
// records. All records are validated before any of them is stored, so a
// malformed payload never causes a partial write.
//
// Markdown code fences are stripped first; models wrap JSON in them often
// enough that rejecting fenced output would surface spurious failures.
func DecodeMethodologies(raw []byte) ([]Methodology, error) {
	text := stripCodeFences(strings.TrimSpace(string(raw)))
	if text == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}

	var records []Methodology
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %q)", ErrInvalidPayload, err, truncate(text, 200))
	}

	for i, r := range records {
		if strings.TrimSpace(r.Content) == "" {
			return nil, fmt.Errorf("%w: record %d (%q) has empty methodology content",
				ErrInvalidPayload, i, r.Title)
		}
	}

	return records, nil
}

// stripCodeFences removes ```json ... ``` wrapping from LLM output.
func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// truncate shortens s for inclusion in error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
