// Package queryflow provides a top-level convenience entry point for
// mention-aware query processing with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/queryflow"
//
//	result := queryflow.Process(q, &queryflow.Options{
//		Variables:   vars,
//		ReplaceVars: true,
//	})
//	fmt.Println(result.ProcessedQuery)
//
// This is a thin wrapper around [query.ProcessQueryWithMentions]; both
// produce identical results. Use this package when you prefer the shorter
// import path. For the HTTP service, see cmd/queryflow.
package queryflow

import (
	"github.com/BaSui01/queryflow/query"
	"github.com/BaSui01/queryflow/types"
)

// Options configures a single processing pass.
type Options = query.ProcessOptions

// Result holds the display string, the canonical string, and the
// resource-typed variables collected during processing.
type Result = query.ProcessResult

// Process rewrites @{type=...,id=...,name=...} tokens in q according to opts.
func Process(q string, opts *Options) *Result {
	return query.ProcessQueryWithMentions(q, opts)
}

// Rewrite refreshes resource mention names from variables and remaps entity
// IDs via entityIDMap, leaving all other text untouched.
func Rewrite(q string, variables []*types.WorkflowVariable, entityIDMap map[string]string) string {
	return query.ReplaceResourceMentionsInQuery(q, variables, entityIDMap)
}
