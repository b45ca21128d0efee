// Package arionlog holds Arion's package-level diagnostic logger, used
// for anything that cannot be represented in the structured result
// document (spec.md §6: "stderr is used only for diagnostics that
// cannot be represented in the structured result"). Mirrors the
// transformimgs/img package's `var Log glogi.Logger` convention.
package arionlog

import "github.com/dooman87/glogi"

// Log is overridable by an embedder; defaults to glogi's simple logger.
var Log glogi.Logger = glogi.NewSimpleLogger()
