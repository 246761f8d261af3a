// Package api provides the request/response types for the QueryFlow HTTP API.
//
// This package contains the DTOs exchanged over the HTTP surface and related
// documentation for the QueryFlow API.
//
// # API Overview
//
// QueryFlow provides a RESTful API for:
//   - Mention-aware query processing (display and canonical rewriting)
//   - Batch query processing with order-preserving results
//   - Canonical resource-mention rewriting after duplication or rename
//   - Health monitoring and metrics
//
// # Authentication
//
// When auth is enabled, API endpoints require a bearer token:
//
//	Authorization: Bearer <jwt>
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
package api
