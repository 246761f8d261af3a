package query

import (
	"strings"

	"github.com/BaSui01/queryflow/types"
)

// ProcessResult is the output of ProcessQueryWithMentions.
type ProcessResult struct {
	// ProcessedQuery is the display/substitution-ready form: every mention
	// replaced by `@`+display name, or by the raw variable value on the
	// var-substitution path.
	ProcessedQuery string `json:"processed_query"`

	// UpdatedQuery is the canonical form: token structure preserved, with
	// resource mention names refreshed to their resolved values.
	UpdatedQuery string `json:"updated_query"`

	// ResourceVars are the resource-typed variables used during
	// resolution, in first-seen order, one entry per resolved mention.
	ResourceVars []*types.WorkflowVariable `json:"resource_vars,omitempty"`
}

// ProcessQueryWithMentions rewrites a query string containing mention tokens
// into a processed (display or substituted) form and an updated (canonical,
// name-refreshed) form, and collects the resource variables referenced.
//
// The function is pure: it does not mutate query, opts.Variables, or
// opts.Resources, and it never fails — unresolvable or malformed mentions
// degrade to literal pass-through. A query with no mentions is returned
// unchanged in both forms.
func ProcessQueryWithMentions(query string, opts *ProcessOptions) *ProcessResult {
	var (
		processed    strings.Builder
		updated      strings.Builder
		resourceVars []*types.WorkflowVariable
		last         int
	)

	sc := NewScanner(query)
	for {
		m, ok := sc.Next()
		if !ok {
			break
		}

		processed.WriteString(query[last:m.Start])
		updated.WriteString(query[last:m.Start])
		last = m.End

		res := resolveMention(m, opts)

		if res.raw {
			processed.WriteString(res.display)
		} else {
			processed.WriteByte('@')
			processed.WriteString(res.display)
		}

		if m.Type == types.MentionResource && res.updatedName != m.Name {
			updated.WriteString(FormatToken(m.Type, m.ID, res.updatedName))
		} else {
			updated.WriteString(m.Raw)
		}

		if res.collected != nil {
			resourceVars = append(resourceVars, res.collected)
		}
	}

	processed.WriteString(query[last:])
	updated.WriteString(query[last:])

	return &ProcessResult{
		ProcessedQuery: processed.String(),
		UpdatedQuery:   updated.String(),
		ResourceVars:   resourceVars,
	}
}

// ReplaceResourceMentionsInQuery rewrites only resource mentions, for
// canonical-form persistence (e.g. storing a query after duplicating a
// resource). For each resource token:
//
//   - id= is remapped through entityIDMap when an entry exists for the
//     token's original ID; the map takes precedence over any variable match
//   - name= is refreshed from a matching variable's resource name when
//     found, otherwise left as the original token's name
//
// Non-resource tokens, malformed tokens, and unmatched text pass through
// verbatim.
func ReplaceResourceMentionsInQuery(query string, variables []*types.WorkflowVariable, entityIDMap map[string]string) string {
	var (
		out  strings.Builder
		last int
	)

	sc := NewScanner(query)
	for {
		m, ok := sc.Next()
		if !ok {
			break
		}

		out.WriteString(query[last:m.Start])
		last = m.End

		if m.Type != types.MentionResource {
			out.WriteString(m.Raw)
			continue
		}

		id := m.ID
		if mapped, ok := entityIDMap[m.ID]; ok {
			id = mapped
		}
		name := m.Name
		if _, r := findResourceVariable(variables, m.ID); r != nil {
			name = r.Name
		}

		if id == m.ID && name == m.Name {
			out.WriteString(m.Raw)
		} else {
			out.WriteString(FormatToken(m.Type, id, name))
		}
	}

	out.WriteString(query[last:])
	return out.String()
}
