package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/queryflow/types"
)

func textVariable(id, name, text string) *types.WorkflowVariable {
	return &types.WorkflowVariable{
		VariableID:   id,
		Name:         name,
		VariableType: types.VariableString,
		Value:        []types.VariableValue{{Type: types.ValueText, Text: text}},
	}
}

func resourceVariable(id, name, entityID, resourceName string) *types.WorkflowVariable {
	return &types.WorkflowVariable{
		VariableID:   id,
		Name:         name,
		VariableType: types.VariableResource,
		Value: []types.VariableValue{{
			Type: types.ValueResource,
			Resource: &types.Resource{
				EntityID:   entityID,
				Name:       resourceName,
				FileType:   "pdf",
				StorageKey: "static/" + entityID,
			},
		}},
	}
}

// TestProcessNoMentions: a mention-free query passes through unchanged in
// both forms, with no resource vars.
func TestProcessNoMentions(t *testing.T) {
	for _, q := range []string{"", "hello world", "ping @alice about {things}"} {
		res := ProcessQueryWithMentions(q, nil)
		assert.Equal(t, q, res.ProcessedQuery)
		assert.Equal(t, q, res.UpdatedQuery)
		assert.Empty(t, res.ResourceVars)
	}
}

// TestProcessVarSubstitution: with ReplaceVars and a matching string
// variable, the var mention is replaced by the variable's text value.
func TestProcessVarSubstitution(t *testing.T) {
	res := ProcessQueryWithMentions("@{type=var,id=var-1,name=testVar}", &ProcessOptions{
		ReplaceVars: true,
		Variables:   []*types.WorkflowVariable{textVariable("var-1", "testVar", "hello world")},
	})

	assert.Equal(t, "hello world", res.ProcessedQuery)
	// Var mentions are never rewritten in the canonical form.
	assert.Equal(t, "@{type=var,id=var-1,name=testVar}", res.UpdatedQuery)
	assert.Empty(t, res.ResourceVars)
}

// TestProcessVarFallbacks covers the paths where a var mention renders as
// its literal name.
func TestProcessVarFallbacks(t *testing.T) {
	token := "@{type=var,id=var-1,name=testVar}"
	variable := textVariable("var-1", "testVar", "hello")

	tests := []struct {
		name string
		opts *ProcessOptions
	}{
		{"nil options", nil},
		{"replaceVars disabled", &ProcessOptions{Variables: []*types.WorkflowVariable{variable}}},
		{"no matching variable", &ProcessOptions{ReplaceVars: true, Variables: []*types.WorkflowVariable{textVariable("var-2", "other", "x")}}},
		{"variable without text part", &ProcessOptions{ReplaceVars: true, Variables: []*types.WorkflowVariable{{
			VariableID:   "var-1",
			Name:         "testVar",
			VariableType: types.VariableString,
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ProcessQueryWithMentions(token, tt.opts)
			assert.Equal(t, "@testVar", res.ProcessedQuery)
			assert.Equal(t, token, res.UpdatedQuery)
			assert.Empty(t, res.ResourceVars)
		})
	}
}

// TestProcessResourceViaVariable: the round-trip property. A resource
// mention resolved through a variable gets its display and canonical name
// refreshed, and the variable is collected.
func TestProcessResourceViaVariable(t *testing.T) {
	v := resourceVariable("wv-1", "doc", "entity-123", "newResourceName")

	res := ProcessQueryWithMentions("@{type=resource,id=entity-123,name=oldResourceName}", &ProcessOptions{
		Variables: []*types.WorkflowVariable{v},
	})

	assert.Equal(t, "@newResourceName", res.ProcessedQuery)
	assert.Equal(t, "@{type=resource,id=entity-123,name=newResourceName}", res.UpdatedQuery)
	require.Len(t, res.ResourceVars, 1)
	assert.Same(t, v, res.ResourceVars[0])
}

// TestProcessResourcePrecedence: an explicit resources entry wins over a
// matching resource variable, and suppresses collection.
func TestProcessResourcePrecedence(t *testing.T) {
	v := resourceVariable("wv-1", "doc", "entity-123", "variableName")

	res := ProcessQueryWithMentions("@{type=resource,id=entity-123,name=oldName}", &ProcessOptions{
		Variables: []*types.WorkflowVariable{v},
		Resources: []types.ResourceRef{{ResourceID: "entity-123", Title: "explicitTitle", ResourceType: "document"}},
	})

	assert.Equal(t, "@explicitTitle", res.ProcessedQuery)
	assert.Equal(t, "@{type=resource,id=entity-123,name=explicitTitle}", res.UpdatedQuery)
	assert.Empty(t, res.ResourceVars, "explicit resource matches are not variables and must not be collected")
}

// TestProcessResourceFallback: an unresolvable resource mention echoes its
// literal name and collects nothing.
func TestProcessResourceFallback(t *testing.T) {
	token := "@{type=resource,id=entity-404,name=missing.pdf}"
	res := ProcessQueryWithMentions(token, &ProcessOptions{
		Variables: []*types.WorkflowVariable{resourceVariable("wv-1", "doc", "entity-123", "other")},
	})

	assert.Equal(t, "@missing.pdf", res.ProcessedQuery)
	assert.Equal(t, token, res.UpdatedQuery)
	assert.Empty(t, res.ResourceVars)
}

// TestProcessPassthroughTypes: step/toolset/tool and unknown types always
// render their literal name, regardless of supplied data.
func TestProcessPassthroughTypes(t *testing.T) {
	for _, typ := range []string{"step", "toolset", "tool", "widget"} {
		token := "@{type=" + typ + ",id=x-1,name=Fetch Data}"
		res := ProcessQueryWithMentions(token, &ProcessOptions{
			ReplaceVars: true,
			Variables:   []*types.WorkflowVariable{textVariable("x-1", "Fetch Data", "should not appear")},
		})
		assert.Equal(t, "@Fetch Data", res.ProcessedQuery, "type %s", typ)
		assert.Equal(t, token, res.UpdatedQuery, "type %s", typ)
		assert.Empty(t, res.ResourceVars)
	}
}

// TestProcessMultiMentionIndependence: mentions of different types in one
// query resolve independently, with surrounding text preserved.
func TestProcessMultiMentionIndependence(t *testing.T) {
	v := textVariable("var-1", "city", "Paris")
	rv := resourceVariable("wv-1", "doc", "entity-1", "guide.pdf")

	q := "plan a trip to @{type=var,id=var-1,name=city} using @{type=resource,id=entity-1,name=old.pdf} via @{type=step,id=s1,name=search}"
	res := ProcessQueryWithMentions(q, &ProcessOptions{
		ReplaceVars: true,
		Variables:   []*types.WorkflowVariable{v, rv},
	})

	assert.Equal(t, "plan a trip to Paris using @guide.pdf via @search", res.ProcessedQuery)
	assert.Equal(t,
		"plan a trip to @{type=var,id=var-1,name=city} using @{type=resource,id=entity-1,name=guide.pdf} via @{type=step,id=s1,name=search}",
		res.UpdatedQuery)
	require.Len(t, res.ResourceVars, 1)
	assert.Same(t, rv, res.ResourceVars[0])
}

// TestProcessEmptyDisplayName: a mention resolving to the empty string still
// prints the sigil.
func TestProcessEmptyDisplayName(t *testing.T) {
	res := ProcessQueryWithMentions("x @{type=step,id=s1,name=} y", nil)
	assert.Equal(t, "x @ y", res.ProcessedQuery)
	assert.Equal(t, "x @{type=step,id=s1,name=} y", res.UpdatedQuery)
}

// TestProcessDuplicateResourceMentions: the same variable matched by two
// mentions is appended twice — no dedup at this layer.
func TestProcessDuplicateResourceMentions(t *testing.T) {
	v := resourceVariable("wv-1", "doc", "entity-1", "guide.pdf")
	q := "@{type=resource,id=entity-1,name=a} @{type=resource,id=entity-1,name=b}"

	res := ProcessQueryWithMentions(q, &ProcessOptions{Variables: []*types.WorkflowVariable{v}})

	require.Len(t, res.ResourceVars, 2)
	assert.Same(t, v, res.ResourceVars[0])
	assert.Same(t, v, res.ResourceVars[1])
	assert.Equal(t, "@guide.pdf @guide.pdf", res.ProcessedQuery)
}

// TestProcessMalformedTokenPassthrough: malformed tokens are literal text in
// both outputs.
func TestProcessMalformedTokenPassthrough(t *testing.T) {
	q := "broken @{type=var,id=a and fine @{type=var,id=v1,name=ok}"
	res := ProcessQueryWithMentions(q, nil)
	assert.Equal(t, "broken @{type=var,id=a and fine @ok", res.ProcessedQuery)
	assert.Equal(t, q, res.UpdatedQuery)
}

// TestProcessDoesNotMutateInputs guards the purity contract.
func TestProcessDoesNotMutateInputs(t *testing.T) {
	v := resourceVariable("wv-1", "doc", "entity-1", "guide.pdf")
	vars := []*types.WorkflowVariable{v}
	refs := []types.ResourceRef{{ResourceID: "entity-2", Title: "t"}}
	q := "@{type=resource,id=entity-1,name=old}"

	ProcessQueryWithMentions(q, &ProcessOptions{Variables: vars, Resources: refs})

	assert.Equal(t, "doc", v.Name)
	r, ok := v.FirstResource()
	require.True(t, ok)
	assert.Equal(t, "guide.pdf", r.Name)
	assert.Equal(t, "t", refs[0].Title)
}

// =============================================================================
// ReplaceResourceMentionsInQuery
// =============================================================================

// TestReplaceNoMapNoVariable: nothing to resolve means literal pass-through.
func TestReplaceNoMapNoVariable(t *testing.T) {
	q := "@{type=resource,id=entity-123,name=oldName}"
	got := ReplaceResourceMentionsInQuery(q, nil, nil)
	assert.Equal(t, q, got)
}

// TestReplaceEntityIDRemapPrecedence: the explicit map always wins for id=,
// even when a variable also matches the original ID.
func TestReplaceEntityIDRemapPrecedence(t *testing.T) {
	v := resourceVariable("wv-1", "doc", "entity-123", "renamed.pdf")
	got := ReplaceResourceMentionsInQuery(
		"@{type=resource,id=entity-123,name=old.pdf}",
		[]*types.WorkflowVariable{v},
		map[string]string{"entity-123": "entity-999"},
	)
	assert.Equal(t, "@{type=resource,id=entity-999,name=renamed.pdf}", got)
}

// TestReplaceNameRefreshOnly: a variable match refreshes name= while id=
// stays put without a map entry.
func TestReplaceNameRefreshOnly(t *testing.T) {
	v := resourceVariable("wv-1", "doc", "entity-123", "renamed.pdf")
	got := ReplaceResourceMentionsInQuery(
		"see @{type=resource,id=entity-123,name=old.pdf} above",
		[]*types.WorkflowVariable{v},
		nil,
	)
	assert.Equal(t, "see @{type=resource,id=entity-123,name=renamed.pdf} above", got)
}

// TestReplaceIgnoresNonResourceTokens: var/step/tool tokens and free text
// pass through verbatim.
func TestReplaceIgnoresNonResourceTokens(t *testing.T) {
	q := "@{type=var,id=entity-123,name=v} and @{type=step,id=s,name=n} plus text"
	got := ReplaceResourceMentionsInQuery(q, nil, map[string]string{"entity-123": "entity-999"})
	assert.Equal(t, q, got)
}

// TestReplaceMalformedPassthrough: malformed tokens pass through verbatim.
func TestReplaceMalformedPassthrough(t *testing.T) {
	q := "@{type=resource,id=a,name=b"
	got := ReplaceResourceMentionsInQuery(q, nil, map[string]string{"a": "z"})
	assert.Equal(t, q, got)
}
