package types

// VariableType classifies a workflow variable's value kind.
type VariableType string

// Known variable types.
const (
	VariableString   VariableType = "string"
	VariableResource VariableType = "resource"
	VariableOption   VariableType = "option"
)

// Value part kinds inside VariableValue.
const (
	ValueText     = "text"
	ValueResource = "resource"
)

// VariableValue is one typed part of a workflow variable's value.
// Exactly one of Text or Resource is meaningful, selected by Type.
type VariableValue struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	Resource *Resource `json:"resource,omitempty"`
}

// WorkflowVariable is a named, typed value slot within a workflow.
// Its value is an ordered sequence of typed parts.
type WorkflowVariable struct {
	VariableID   string          `json:"variableId"`
	Name         string          `json:"name"`
	VariableType VariableType    `json:"variableType"`
	Value        []VariableValue `json:"value,omitempty"`
}

// FirstText returns the first text-typed value part, if any.
// For string-like variables this is the substitution text.
func (v *WorkflowVariable) FirstText() (string, bool) {
	if v == nil {
		return "", false
	}
	for _, part := range v.Value {
		if part.Type == ValueText {
			return part.Text, true
		}
	}
	return "", false
}

// FirstResource returns the first resource-typed value part's resource
// record, if any. For resource variables this carries the referenced entity.
func (v *WorkflowVariable) FirstResource() (*Resource, bool) {
	if v == nil {
		return nil, false
	}
	for _, part := range v.Value {
		if part.Type == ValueResource && part.Resource != nil {
			return part.Resource, true
		}
	}
	return nil, false
}
