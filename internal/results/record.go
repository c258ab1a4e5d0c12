package results

import (
	"strings"

	"herpid/internal/verdict"
)

// Key uniquely identifies one comparison across the whole result set. No two
// persisted rows may share a key.
type Key struct {
	Reference  string
	Species    string
	QueryImage string
}

// Record is one persisted comparison outcome.
type Record struct {
	Reference  string
	Species    string
	QueryImage string
	Verdict    verdict.Verdict
	ResultText string
}

// Key returns the record's identity triple.
func (r Record) Key() Key {
	return Key{Reference: r.Reference, Species: r.Species, QueryImage: r.QueryImage}
}

// Failed reports whether the record was written for a failed work unit
// rather than a genuine model response.
func (r Record) Failed() bool {
	return strings.HasPrefix(strings.TrimSpace(r.ResultText), verdict.ErrorMarker)
}

// NormalizeText flattens model output to a single line so it survives the
// tabular format round trip.
func NormalizeText(text string) string {
	replacer := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
	return strings.TrimSpace(replacer.Replace(text))
}
