// Package manifest synthesizes typed Kubernetes resources from the
// normalized model, the dependency graph and the resolved policies.
//
// Every resource owned by a service carries the same identity labels,
// so selector/template-label equality is structural. Names follow
// {service-id}-{kind-suffix}; a collision anywhere in the output set is
// a fatal GenerationError. Rendering goes through sigs.k8s.io/yaml so
// a given input always produces byte-identical output.
package manifest
