// Package pattern classifies services and whole applications into
// deployment archetypes (web workload, database, cache, message queue,
// microservices stack, ...) using weighted indicator scoring.
//
// Every pattern is a data record: a list of indicators with weights and a
// confidence threshold, evaluated by one generic scoring routine. Custom
// patterns supplied as YAML merge with the built-ins at load time; there
// is no code-level extension mechanism.
package pattern
