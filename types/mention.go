package types

// MentionType identifies what a mention token points at.
//
// The set is open-ended: editors may serialize types this package has never
// seen, and unknown types pass through resolution using the token's literal
// name.
type MentionType string

// Known mention types.
const (
	MentionVar      MentionType = "var"
	MentionResource MentionType = "resource"
	MentionStep     MentionType = "step"
	MentionToolset  MentionType = "toolset"
	MentionTool     MentionType = "tool"
)

// Resolvable reports whether mentions of this type are resolved against
// caller-supplied data. Only var and resource mentions are; every other type
// passes through with its literal name.
func (t MentionType) Resolvable() bool {
	return t == MentionVar || t == MentionResource
}
