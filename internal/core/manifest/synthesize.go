package manifest

import (
	"github.com/stackform/stackform/internal/core/compose"
	"github.com/stackform/stackform/internal/core/graph"
	"github.com/stackform/stackform/internal/core/policy"
	"github.com/stackform/stackform/internal/core/security"
)

// =============================================================================
// Synthesis
// =============================================================================

// Options configures output-level knobs of the synthesizer.
type Options struct {
	Namespace string
	// Domain forms ingress hosts as {service-id}.{Domain}.
	Domain string
}

const defaultDomain = "example.com"

// Synthesize builds the complete resource set. This is a pure function
// over its inputs - no I/O, no side effects.
//
// Services are emitted in dependency order (the graph's startup hint)
// so the rendered stream applies dependencies first. Per service:
// workload, networking, routing, autoscaling, claims, secret, network
// isolation, as policy and security directives dictate. Any name
// collision across the whole set aborts with a GenerationError.
func Synthesize(model *compose.Model, g *graph.Graph, policies map[string]*policy.GenerationPolicy, sec *security.Report, opts Options) (*Set, error) {
	if opts.Namespace == "" {
		opts.Namespace = "default"
	}
	if opts.Domain == "" {
		opts.Domain = defaultDomain
	}

	set := &Set{Namespace: opts.Namespace}
	registry := newNameRegistry()

	for _, serviceID := range g.Order {
		svc := model.Service(serviceID)
		if svc == nil {
			continue
		}
		pol := policies[serviceID]
		if pol == nil {
			continue
		}
		id := Identity{ServiceID: serviceID}

		directives := directiveSet(sec, serviceID)

		// Secret first: the workload references it by name.
		secretName := ""
		if secret := BuildSecret(svc, id, opts.Namespace); secret != nil {
			secretName = secret.Name
			if err := registry.claim("Secret", secret.Name, serviceID); err != nil {
				return nil, err
			}
			set.Resources = append(set.Resources, Resource{
				Kind: "Secret", Name: secret.Name, ServiceID: serviceID, Object: secret,
			})
		}

		// Security directives can tighten the policy beyond its level.
		pol = applyDirectives(pol, directives)

		if pol.Workload == policy.WorkloadStateful {
			w := BuildStatefulSet(svc, pol, id, opts.Namespace, secretName)
			if err := registry.claim("StatefulSet", w.Name, serviceID); err != nil {
				return nil, err
			}
			set.Resources = append(set.Resources, Resource{
				Kind: "StatefulSet", Name: w.Name, ServiceID: serviceID, Object: w,
			})
		} else {
			w := BuildDeployment(svc, pol, id, opts.Namespace, secretName)
			if err := registry.claim("Deployment", w.Name, serviceID); err != nil {
				return nil, err
			}
			set.Resources = append(set.Resources, Resource{
				Kind: "Deployment", Name: w.Name, ServiceID: serviceID, Object: w,
			})
		}

		if len(svc.Ports) > 0 {
			s := BuildService(svc, id, opts.Namespace)
			if err := registry.claim("Service", s.Name, serviceID); err != nil {
				return nil, err
			}
			set.Resources = append(set.Resources, Resource{
				Kind: "Service", Name: s.Name, ServiceID: serviceID, Object: s,
			})
		}

		if pol.ExposeExternally && len(svc.Ports) > 0 {
			ing := BuildIngress(svc, id, opts.Namespace, opts.Domain)
			if err := registry.claim("Ingress", ing.Name, serviceID); err != nil {
				return nil, err
			}
			set.Resources = append(set.Resources, Resource{
				Kind: "Ingress", Name: ing.Name, ServiceID: serviceID, Object: ing,
			})
		}

		if pol.Autoscaling.Enabled && pol.Workload == policy.WorkloadStateless {
			hpa := BuildHPA(pol, id, opts.Namespace)
			if err := registry.claim("HorizontalPodAutoscaler", hpa.Name, serviceID); err != nil {
				return nil, err
			}
			set.Resources = append(set.Resources, Resource{
				Kind: "HorizontalPodAutoscaler", Name: hpa.Name, ServiceID: serviceID, Object: hpa,
			})
		}

		for _, claim := range pol.VolumeClaims {
			sizeGi := claim.SizeGi
			if sizeGi <= 0 {
				sizeGi = 10
			}
			pvc := BuildPVC(claim.Volume, sizeGi, id, opts.Namespace)
			if err := registry.claim("PersistentVolumeClaim", pvc.Name, serviceID); err != nil {
				return nil, err
			}
			set.Resources = append(set.Resources, Resource{
				Kind: "PersistentVolumeClaim", Name: pvc.Name, ServiceID: serviceID, Object: pvc,
			})
		}

		if pol.NeedsNetworkPolicy || directives[security.DirectiveAddNetworkPolicy] {
			np := BuildNetworkPolicy(svc, g.Dependents(serviceID), id, opts.Namespace)
			if err := registry.claim("NetworkPolicy", np.Name, serviceID); err != nil {
				return nil, err
			}
			set.Resources = append(set.Resources, Resource{
				Kind: "NetworkPolicy", Name: np.Name, ServiceID: serviceID, Object: np,
			})
		}
	}

	return set, nil
}

// directiveSet flattens the scan findings for one service into a
// directive lookup. The full (unfiltered) finding list is used, so the
// report filter never changes what gets applied.
func directiveSet(sec *security.Report, serviceID string) map[security.Directive]bool {
	out := make(map[security.Directive]bool)
	if sec == nil {
		return out
	}
	for _, d := range sec.Directives(serviceID) {
		out[d] = true
	}
	return out
}

// applyDirectives returns a policy copy tightened by the advisory
// directives the synthesizer honors at build time. Flag-only
// directives (insecure tag, insecure port, host path) change nothing
// here; the validator enforces them in strict mode.
func applyDirectives(pol *policy.GenerationPolicy, directives map[security.Directive]bool) *policy.GenerationPolicy {
	if !directives[security.DirectiveSetPodSecurityContext] || pol.SecurityContext != nil {
		return pol
	}
	clone := *pol
	clone.SecurityContext = &policy.SecurityContext{
		RunAsNonRoot:             true,
		AllowPrivilegeEscalation: false,
	}
	return &clone
}
