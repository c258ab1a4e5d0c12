package verdict

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Verdict is the tri-state outcome of one reference/candidate comparison.
type Verdict int

const (
	// Unknown means the model response was empty, error-marked, or too
	// ambiguous to classify.
	Unknown Verdict = iota
	// Match means the model affirmed the candidate matches the reference.
	Match
	// NoMatch means the model explicitly rejected the candidate.
	NoMatch
)

// ErrorMarker prefixes result text recorded for failed work units. Hydrated
// rows carrying it always parse as Unknown.
const ErrorMarker = "Error:"

// Negation phrases are checked strictly before affirmation phrases: "no
// match" contains the token "match", so any response carrying both kinds of
// phrase must resolve to NoMatch.
var (
	negativePhrases = []string{"no match", "not a match", "does not match", "non-match"}
	positivePhrases = []string{"is a match", "matches", "match for"}
)

var fold = cases.Fold()

// Parse extracts a verdict from raw model output.
func Parse(raw string) Verdict {
	if strings.TrimSpace(raw) == "" || strings.Contains(raw, ErrorMarker) {
		return Unknown
	}

	folded := fold.String(raw)
	if !strings.Contains(folded, "match") {
		return Unknown
	}
	for _, phrase := range negativePhrases {
		if strings.Contains(folded, phrase) {
			return NoMatch
		}
	}
	for _, phrase := range positivePhrases {
		if strings.Contains(folded, phrase) {
			return Match
		}
	}
	return Unknown
}

// String implements fmt.Stringer for log output.
func (v Verdict) String() string {
	switch v {
	case Match:
		return "match"
	case NoMatch:
		return "no-match"
	default:
		return "unknown"
	}
}

// Serialize renders the verdict for the results table: true, false, or empty.
func (v Verdict) Serialize() string {
	switch v {
	case Match:
		return "true"
	case NoMatch:
		return "false"
	default:
		return ""
	}
}

// Deserialize parses a results-table cell back into a verdict.
func Deserialize(cell string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "true":
		return Match, nil
	case "false":
		return NoMatch, nil
	case "":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("verdict cell: unrecognized value %q", cell)
	}
}
