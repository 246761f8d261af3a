package query

import (
	"fmt"
	"strings"

	"github.com/BaSui01/queryflow/types"
)

// Token grammar delimiters. Field order is fixed: type, id, name.
// Values may contain spaces and most punctuation, but never `,` or `}` —
// the grammar defines no escaping for them.
const (
	tokenPrefix = "@{type="
	fieldID     = "id="
	fieldName   = "name="
)

// Match is one well-formed mention token found in a query string.
type Match struct {
	// Raw is the full matched text, e.g. `@{type=var,id=v1,name=count}`.
	Raw string
	// Start and End are byte offsets of Raw within the scanned string.
	Start int
	End   int

	// Parsed fields.
	Type types.MentionType
	ID   string
	Name string
}

// Scanner yields mention matches left to right, non-overlapping.
// Malformed tokens (missing field, wrong field order, unterminated brace)
// are not matched and remain literal text for the caller.
//
// A Scanner is single-use; create a new one to restart.
type Scanner struct {
	src     string
	pos     int
	skipped int
}

// NewScanner creates a scanner over src.
func NewScanner(src string) *Scanner {
	return &Scanner{src: src}
}

// Next returns the next match, or ok=false when the input is exhausted.
func (s *Scanner) Next() (Match, bool) {
	for s.pos < len(s.src) {
		i := strings.Index(s.src[s.pos:], tokenPrefix)
		if i < 0 {
			s.pos = len(s.src)
			return Match{}, false
		}
		start := s.pos + i

		m, ok := parseToken(s.src, start)
		if ok {
			s.pos = m.End
			return m, true
		}
		// Not a well-formed token. Resume one byte past the sigil so a
		// later token is still found.
		s.skipped++
		s.pos = start + 1
	}
	return Match{}, false
}

// Skipped reports how many `@{type=` candidates were visited but did not
// parse as tokens. Prefix text inside a matched token's values is never
// visited, so the count covers only genuinely malformed candidates.
func (s *Scanner) Skipped() int {
	return s.skipped
}

// ScanAll returns every match in src. Convenience for tests and callers
// that do not need lazy iteration.
func ScanAll(src string) []Match {
	matches, _ := ScanAllWithSkipped(src)
	return matches
}

// ScanAllWithSkipped returns every match in src plus the number of
// malformed candidates the scanner skipped over.
func ScanAllWithSkipped(src string) ([]Match, int) {
	var out []Match
	sc := NewScanner(src)
	for {
		m, ok := sc.Next()
		if !ok {
			return out, sc.Skipped()
		}
		out = append(out, m)
	}
}

// parseToken attempts to parse a token whose `@{type=` prefix begins at
// start. Returns ok=false for any grammar violation.
func parseToken(src string, start int) (Match, bool) {
	// Body runs to the first closing brace; values cannot contain `}`.
	rel := strings.IndexByte(src[start:], '}')
	if rel < 0 {
		return Match{}, false
	}
	end := start + rel + 1
	body := src[start+len("@{") : end-1]

	// Values cannot contain `,` either, so the body splits into exactly
	// three fields in fixed order.
	parts := strings.Split(body, ",")
	if len(parts) != 3 {
		return Match{}, false
	}
	typ, ok0 := strings.CutPrefix(parts[0], "type=")
	id, ok1 := strings.CutPrefix(parts[1], fieldID)
	name, ok2 := strings.CutPrefix(parts[2], fieldName)
	if !ok0 || !ok1 || !ok2 || typ == "" {
		return Match{}, false
	}

	return Match{
		Raw:   src[start:end],
		Start: start,
		End:   end,
		Type:  types.MentionType(typ),
		ID:    id,
		Name:  name,
	}, true
}

// FormatToken renders a mention token in canonical wire form.
func FormatToken(typ types.MentionType, id, name string) string {
	return fmt.Sprintf("@{type=%s,%s%s,%s%s}", typ, fieldID, id, fieldName, name)
}
