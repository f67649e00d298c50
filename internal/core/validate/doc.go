// Package validate checks a synthesized resource set for structural
// consistency before it is persisted: selector/label equality,
// secret reference resolution, request/limit sanity and required
// fields, plus the stricter image and volume rules of strict mode.
// Validation never mutates the set; a failed report blocks persistence
// but is always returned in full.
package validate
