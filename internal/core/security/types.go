package security

// =============================================================================
// Finding Types
// =============================================================================

// Severity ranks findings. Higher values sort first in reports.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSeverity maps a name to a Severity; unknown names map to
// SeverityLow so a bad filter value shows everything rather than
// hiding findings.
func ParseSeverity(name string) Severity {
	for sev, n := range severityNames {
		if n == name {
			return sev
		}
	}
	return SeverityLow
}

// Category groups findings in reports.
type Category string

const (
	CategorySecrets   Category = "secrets"
	CategoryImage     Category = "image"
	CategoryNetwork   Category = "network"
	CategoryContainer Category = "container"
	CategoryRuntime   Category = "runtime"
)

// Directive is an advisory remediation the synthesizer knows how to
// apply. The rule engine only attaches directives to findings; it
// never rewrites the model or the output itself.
type Directive string

const (
	DirectiveExtractSecret          Directive = "extract-secret"
	DirectiveAddNetworkPolicy       Directive = "add-network-policy"
	DirectiveSetPodSecurityContext  Directive = "set-pod-security-context"
	DirectiveRequireResourceLimits  Directive = "require-resource-limits"
	DirectiveDisallowHostPathVolume Directive = "disallow-host-path-volume"
	DirectiveFlagInsecureTag        Directive = "flag-insecure-tag"
	DirectiveFlagInsecurePort       Directive = "flag-insecure-port"
)

// Finding is one triggered rule occurrence.
type Finding struct {
	RuleID      string    `json:"rule_id"`
	ServiceID   string    `json:"service_id"`
	Severity    Severity  `json:"severity"`
	Category    Category  `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Directive   Directive `json:"directive"`

	// Field names the IR location that triggered the rule, for example
	// "environment.POSTGRES_PASSWORD" or "ports[0]".
	Field string `json:"field,omitempty"`
}

// Report is the outcome of a scan: all findings plus the filtered view.
type Report struct {
	// All findings ordered by severity descending, then rule
	// declaration order, then service id. The synthesizer consumes
	// this list; it is never filtered.
	All []Finding `json:"all"`

	// Reported is All trimmed to the minimum-severity filter. Only
	// this list is shown to the user.
	Reported []Finding `json:"reported"`

	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// ForService returns all (unfiltered) findings for one service.
func (r *Report) ForService(id string) []Finding {
	var out []Finding
	for _, f := range r.All {
		if f.ServiceID == id {
			out = append(out, f)
		}
	}
	return out
}

// Directives returns the distinct directives triggered for a service,
// in first-occurrence order.
func (r *Report) Directives(id string) []Directive {
	seen := make(map[Directive]bool)
	var out []Directive
	for _, f := range r.All {
		if f.ServiceID == id && !seen[f.Directive] {
			seen[f.Directive] = true
			out = append(out, f.Directive)
		}
	}
	return out
}
