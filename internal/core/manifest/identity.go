package manifest

import (
	"fmt"
)

// =============================================================================
// Resource Identity
// =============================================================================

// managedByValue is the provenance marker stamped on every generated
// resource.
const managedByValue = "stackform"

// Name suffixes per resource kind.
const (
	suffixDeployment    = "deployment"
	suffixStatefulSet   = "statefulset"
	suffixService       = "service"
	suffixIngress       = "ingress"
	suffixHPA           = "hpa"
	suffixSecret        = "secret"
	suffixNetworkPolicy = "network-policy"
	suffixPVC           = "pvc"
	suffixTLS           = "tls"
)

// Identity is the shared identity of every resource one service owns.
// Labels returns a fresh map each call so builders can extend their
// copy without aliasing.
type Identity struct {
	ServiceID string
}

// Labels are stamped on the resource metadata, the pod template and
// every selector, guaranteeing structural equality.
func (id Identity) Labels() map[string]string {
	return map[string]string{
		"app":                          id.ServiceID,
		"app.kubernetes.io/managed-by": managedByValue,
	}
}

// Selector returns the label subset used for workload and service
// selectors.
func (id Identity) Selector() map[string]string {
	return map[string]string{"app": id.ServiceID}
}

// Name derives the resource name for a kind suffix.
func (id Identity) Name(suffix string) string {
	return id.ServiceID + "-" + suffix
}

// VolumeName derives the claim name for a named volume.
func (id Identity) VolumeName(volume string) string {
	return fmt.Sprintf("%s-%s-%s", id.ServiceID, volume, suffixPVC)
}

// nameRegistry enforces cross-set name uniqueness per kind.
type nameRegistry struct {
	seen map[string]string // "kind/name" -> owning service
}

func newNameRegistry() *nameRegistry {
	return &nameRegistry{seen: make(map[string]string)}
}

// claim records a name and fails on a collision across the whole set.
func (r *nameRegistry) claim(kind, name, serviceID string) error {
	key := kind + "/" + name
	if owner, ok := r.seen[key]; ok {
		return NewGenerationError(key,
			fmt.Sprintf("already generated for service %q, requested again by %q", owner, serviceID),
			ErrNameCollision)
	}
	r.seen[key] = serviceID
	return nil
}
