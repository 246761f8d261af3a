// Package cache provides the Redis-backed resource reference cache.
// This package is internal and should not be imported by external projects.
package cache
