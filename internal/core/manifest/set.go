package manifest

import (
	"bytes"

	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/yaml"
)

// =============================================================================
// Manifest Set
// =============================================================================

// Resource is one generated cluster resource document.
type Resource struct {
	Kind      string
	Name      string
	ServiceID string
	Object    runtime.Object
}

// Set is the complete ordered output of a run. Resources are ordered
// by service id (startup order applied upstream), then by a fixed kind
// order within each service, so rendering is byte-stable.
type Set struct {
	Namespace string
	Resources []Resource
}

// ForService returns the resources owned by one service.
func (s *Set) ForService(id string) []Resource {
	var out []Resource
	for _, r := range s.Resources {
		if r.ServiceID == id {
			out = append(out, r)
		}
	}
	return out
}

// Kinds returns the distinct kinds present, in output order.
func (s *Set) Kinds() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.Resources {
		if !seen[r.Kind] {
			seen[r.Kind] = true
			out = append(out, r.Kind)
		}
	}
	return out
}

// Render serializes every resource to a single multi-document YAML
// stream. Serialization is deterministic: sigs.k8s.io/yaml emits map
// keys sorted, and the resource order is fixed by construction.
func (s *Set) Render() ([]byte, error) {
	var buf bytes.Buffer
	for i, r := range s.Resources {
		data, err := yaml.Marshal(r.Object)
		if err != nil {
			return nil, NewGenerationError(r.Kind+"/"+r.Name, "marshal failed: "+err.Error(), err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// RenderEach returns one YAML document per resource keyed by
// "{name}.yaml", for writing a manifest directory.
func (s *Set) RenderEach() (map[string][]byte, error) {
	out := make(map[string][]byte, len(s.Resources))
	for _, r := range s.Resources {
		data, err := yaml.Marshal(r.Object)
		if err != nil {
			return nil, NewGenerationError(r.Kind+"/"+r.Name, "marshal failed: "+err.Error(), err)
		}
		out[r.Name+".yaml"] = data
	}
	return out, nil
}
