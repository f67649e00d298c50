// Package pipeline wires the transformation stages into a single run:
// normalize, graph, classify, resolve, scan, estimate, synthesize,
// validate. Per-service stages fan out across goroutines with indexed
// result slots so concurrency never changes output order; the pipeline
// performs no I/O of its own.
package pipeline
