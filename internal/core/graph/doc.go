// Package graph builds the service dependency graph from the normalized
// compose model. It produces deterministic startup ordering hints via
// topological sort and detects dependency cycles without failing the
// pipeline: cycles are reported as warnings so manifest generation can
// still complete.
package graph
