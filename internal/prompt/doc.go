// Package prompt integrates dspy-go prompt programs with the rest of
// the system: parsed signatures, predict modules with tracing hooks,
// rubric-driven LLM judge metrics, adapters for the GEPA optimizer, and
// compiled program artifacts that can be saved and re-run without
// re-optimizing.
package prompt
