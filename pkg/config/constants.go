// Package config provides configuration constants and loading for pgcompat.
package config

import "time"

// Execution defaults.
const (
	DefaultMaxAttempts          = 3
	DefaultMaxRewriteIterations = 100
)

// Diagnostic preview sizes.
const (
	DefaultExcerptLen    = 300
	DefaultPreviewBefore = 50
	DefaultPreviewAfter  = 100
	DefaultMaxPositions  = 10

	// Fatal-failure records carry longer excerpts than residual reports.
	FailureExcerptLen = 1000
	ParamsPreviewLen  = 500
	RetryExcerptLen   = 500
)

// Server and storage defaults.
const (
	DefaultDriver        = "postgres"
	DefaultListenAddr    = ":8080"
	DefaultDiagnosticTTL = 1 * time.Hour
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// IterationLimitPolicy decides what happens when the conditional rewriter
// stops at its iteration bound with occurrences left.
type IterationLimitPolicy string

// Iteration limit policies.
const (
	// PolicyPartial leaves the remaining occurrences unconverted.
	PolicyPartial IterationLimitPolicy = "partial"
	// PolicyStrict refuses to execute a statement whose rewrite was cut short.
	PolicyStrict IterationLimitPolicy = "strict"
)

// Valid reports whether p is a known policy.
func (p IterationLimitPolicy) Valid() bool {
	return p == PolicyPartial || p == PolicyStrict
}
