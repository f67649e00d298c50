package security

import (
	"fmt"
	"strings"

	"github.com/stackform/stackform/internal/core/compose"
	"github.com/stackform/stackform/internal/core/policy"
)

// =============================================================================
// Rule Catalog
// =============================================================================

// target is what one rule evaluates: a service together with its
// resolved policy.
type target struct {
	Service *compose.ServiceSpec
	Policy  *policy.GenerationPolicy
}

// Rule is one security check as data: a predicate plus fixed severity,
// category and remediation directive. Check returns one finding per
// occurrence (a service can trip a port rule several times).
type Rule struct {
	ID        string
	Severity  Severity
	Category  Category
	Directive Directive
	Check     func(t target) []Finding
}

// dangerousPorts are container ports commonly targeted by attackers.
var dangerousPorts = map[uint32]bool{
	22: true, 23: true, 25: true, 53: true,
	135: true, 139: true, 445: true, 3389: true,
}

// defaultPasswords are trivially guessable values flagged when used for
// a sensitive environment entry.
var defaultPasswords = map[string]bool{
	"password": true, "admin": true, "root": true,
	"123456": true, "password123": true, "admin123": true,
}

// insecureProtocols in environment values indicate unencrypted
// transport to a dependency.
var insecureProtocols = []string{"ftp://", "telnet://", "ldap://"}

// sensitiveHostPaths expose host internals when mounted.
var sensitiveHostPaths = []string{"/etc", "/var/run/docker.sock", "/proc", "/sys"}

// Rules returns the rule catalog in declaration order. Declaration
// order is the tie-breaker for findings of equal severity.
func Rules() []Rule {
	return []Rule{
		{
			ID:        "SEC-001",
			Severity:  SeverityCritical,
			Category:  CategorySecrets,
			Directive: DirectiveExtractSecret,
			Check: func(t target) []Finding {
				var out []Finding
				for _, env := range t.Service.Environment {
					if env.Sensitive && defaultPasswords[strings.ToLower(env.Value)] {
						out = append(out, Finding{
							Title:       fmt.Sprintf("Default password in %s", env.Key),
							Description: "Default passwords are trivially guessable and must be rotated before deployment.",
							Field:       "environment." + env.Key,
						})
					}
				}
				return out
			},
		},
		{
			ID:        "SEC-002",
			Severity:  SeverityHigh,
			Category:  CategorySecrets,
			Directive: DirectiveExtractSecret,
			Check: func(t target) []Finding {
				var out []Finding
				for _, env := range t.Service.Environment {
					if env.Sensitive && env.Value != "" {
						out = append(out, Finding{
							Title:       fmt.Sprintf("Sensitive value in plain environment: %s", env.Key),
							Description: "Sensitive values belong in a Secret resource referenced by key, not in the workload spec.",
							Field:       "environment." + env.Key,
						})
					}
				}
				return out
			},
		},
		{
			ID:        "PORT-001",
			Severity:  SeverityHigh,
			Category:  CategoryNetwork,
			Directive: DirectiveFlagInsecurePort,
			Check: func(t target) []Finding {
				var out []Finding
				for i, p := range t.Service.Ports {
					if p.Published != 0 && dangerousPorts[p.Target] {
						out = append(out, Finding{
							Title:       fmt.Sprintf("Dangerous port exposed: %d", p.Target),
							Description: fmt.Sprintf("Port %d is commonly targeted by attackers and should not be published directly.", p.Target),
							Field:       fmt.Sprintf("ports[%d]", i),
						})
					}
				}
				return out
			},
		},
		{
			ID:        "PORT-002",
			Severity:  SeverityMedium,
			Category:  CategoryNetwork,
			Directive: DirectiveFlagInsecurePort,
			Check: func(t target) []Finding {
				var out []Finding
				for i, p := range t.Service.Ports {
					if p.Published != 0 && p.Target < 1024 && !dangerousPorts[p.Target] && p.Target != 80 && p.Target != 443 {
						out = append(out, Finding{
							Title:       fmt.Sprintf("Privileged port exposed: %d", p.Target),
							Description: "Publishing privileged ports (< 1024) may require elevated container permissions.",
							Field:       fmt.Sprintf("ports[%d]", i),
						})
					}
				}
				return out
			},
		},
		{
			ID:        "IMG-001",
			Severity:  SeverityMedium,
			Category:  CategoryImage,
			Directive: DirectiveFlagInsecureTag,
			Check: func(t target) []Finding {
				if t.Service.Image.Unpinned() {
					return []Finding{{
						Title:       "Unpinned image tag",
						Description: fmt.Sprintf("Image %q floats on its tag, making deployments unreproducible.", t.Service.Image.String()),
						Field:       "image",
					}}
				}
				return nil
			},
		},
		{
			ID:        "NET-001",
			Severity:  SeverityHigh,
			Category:  CategoryNetwork,
			Directive: DirectiveAddNetworkPolicy,
			Check: func(t target) []Finding {
				var out []Finding
				for _, env := range t.Service.Environment {
					for _, proto := range insecureProtocols {
						if strings.Contains(strings.ToLower(env.Value), proto) {
							out = append(out, Finding{
								Title:       fmt.Sprintf("Insecure protocol in %s", env.Key),
								Description: fmt.Sprintf("Value uses %s which transmits in cleartext.", strings.TrimSuffix(proto, "://")),
								Field:       "environment." + env.Key,
							})
						}
					}
				}
				return out
			},
		},
		{
			ID:        "VOL-001",
			Severity:  SeverityHigh,
			Category:  CategoryContainer,
			Directive: DirectiveDisallowHostPathVolume,
			Check: func(t target) []Finding {
				var out []Finding
				for i, v := range t.Service.Volumes {
					if v.Type != compose.VolumeMountTypeBind {
						continue
					}
					for _, p := range sensitiveHostPaths {
						if strings.HasPrefix(v.Source, p) || strings.HasPrefix(v.Target, p) {
							out = append(out, Finding{
								Title:       fmt.Sprintf("Sensitive host path mounted: %s", v.Source),
								Description: "Mounting host system paths exposes host internals to the container.",
								Field:       fmt.Sprintf("volumes[%d]", i),
							})
							break
						}
					}
				}
				return out
			},
		},
		{
			ID:        "VOL-002",
			Severity:  SeverityMedium,
			Category:  CategoryContainer,
			Directive: DirectiveDisallowHostPathVolume,
			Check: func(t target) []Finding {
				var out []Finding
				for i, v := range t.Service.Volumes {
					if v.Type == compose.VolumeMountTypeBind && !startsWithAny(v.Source, sensitiveHostPaths) {
						out = append(out, Finding{
							Title:       fmt.Sprintf("Host path volume: %s", v.Source),
							Description: "Bind mounts tie the workload to a node filesystem; prefer persistent volume claims.",
							Field:       fmt.Sprintf("volumes[%d]", i),
						})
					}
				}
				return out
			},
		},
		{
			ID:        "RES-001",
			Severity:  SeverityMedium,
			Category:  CategoryRuntime,
			Directive: DirectiveRequireResourceLimits,
			Check: func(t target) []Finding {
				if t.Service.Resources.CPULimit == "" && t.Service.Resources.MemoryLimit == "" {
					return []Finding{{
						Title:       "No declared resource limits",
						Description: "Without limits a container can exhaust node resources; table defaults will be applied.",
						Field:       "deploy.resources.limits",
					}}
				}
				return nil
			},
		},
		{
			ID:        "CTX-001",
			Severity:  SeverityLow,
			Category:  CategoryRuntime,
			Directive: DirectiveSetPodSecurityContext,
			Check: func(t target) []Finding {
				if t.Policy != nil && t.Policy.SecurityContext == nil {
					return []Finding{{
						Title:       "No pod security context",
						Description: "Workload runs with the runtime default security context; consider a hardened baseline.",
						Field:       "security_context",
					}}
				}
				return nil
			},
		},
	}
}

func startsWithAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
