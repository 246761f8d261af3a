package query

import "github.com/BaSui01/queryflow/types"

// ProcessOptions configure mention resolution for ProcessQueryWithMentions.
// All fields are optional; a nil options value means no resolution data and
// every mention falls back to its literal name.
type ProcessOptions struct {
	// ReplaceVars enables substituting var mentions with their variable's
	// text value. When false, var mentions render as their literal name.
	ReplaceVars bool

	// Variables are the workflow variables available for resolution.
	Variables []*types.WorkflowVariable

	// Resources are explicit resource references. A matching entry wins
	// over variable-derived resource names and suppresses collection.
	Resources []types.ResourceRef
}

// resolution is the outcome of resolving a single mention.
type resolution struct {
	// display is the text rendered into the processed query. Unless raw
	// is set, the `@` sigil is prepended.
	display string
	// raw marks a var substitution: the variable's text value is injected
	// verbatim, without the sigil.
	raw bool
	// updatedName is the name written back into the updated query for
	// resource mentions.
	updatedName string
	// collected is the resource variable to append to ResourceVars, when
	// resolution went through a resource-typed variable.
	collected *types.WorkflowVariable
}

// resolveMention resolves one match against the supplied data. It never
// fails: absence of a match degrades to the token's literal name at every
// step.
func resolveMention(m Match, opts *ProcessOptions) resolution {
	res := resolution{display: m.Name, updatedName: m.Name}
	if opts == nil {
		return res
	}

	switch m.Type {
	case types.MentionVar:
		if !opts.ReplaceVars {
			return res
		}
		if v := findVariableByID(opts.Variables, m.ID); v != nil {
			if text, ok := v.FirstText(); ok {
				res.display = text
				res.raw = true
			}
		}
		// Var mentions are never renamed in the updated query.
		return res

	case types.MentionResource:
		// Explicit resource entries win and are not collected.
		for _, ref := range opts.Resources {
			if ref.ResourceID == m.ID {
				res.display = ref.Title
				res.updatedName = ref.Title
				return res
			}
		}
		if v, r := findResourceVariable(opts.Variables, m.ID); v != nil {
			res.display = r.Name
			res.updatedName = r.Name
			res.collected = v
		}
		return res

	default:
		// step, toolset, tool, and unknown types pass through.
		return res
	}
}

// findVariableByID returns the variable with the given variable ID.
func findVariableByID(vars []*types.WorkflowVariable, id string) *types.WorkflowVariable {
	for _, v := range vars {
		if v != nil && v.VariableID == id {
			return v
		}
	}
	return nil
}

// findResourceVariable returns the resource-typed variable whose nested
// resource entity ID matches id, along with that resource record.
func findResourceVariable(vars []*types.WorkflowVariable, id string) (*types.WorkflowVariable, *types.Resource) {
	for _, v := range vars {
		if v == nil || v.VariableType != types.VariableResource {
			continue
		}
		if r, ok := v.FirstResource(); ok && r.EntityID == id {
			return v, r
		}
	}
	return nil, nil
}
