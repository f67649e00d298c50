package pattern

import (
	"errors"
	"fmt"
)

// =============================================================================
// Pattern Definition Types
// =============================================================================

// Scope selects what a pattern definition is evaluated against.
type Scope string

const (
	// ScopeService patterns are scored per service.
	ScopeService Scope = "service"

	// ScopeApplication patterns are scored once over the whole model.
	ScopeApplication Scope = "application"
)

// IndicatorKind names a predicate the scoring engine knows how to
// evaluate. Service-scope and application-scope kinds are disjoint.
type IndicatorKind string

const (
	// Service scope.
	IndicatorImageContains    IndicatorKind = "image-contains"
	IndicatorPortEquals       IndicatorKind = "port-equals"
	IndicatorEnvKeyContains   IndicatorKind = "env-key-contains"
	IndicatorVolumeTargetHas  IndicatorKind = "volume-target-contains"
	IndicatorHasPublishedPort IndicatorKind = "has-published-port"
	IndicatorHasNamedVolume   IndicatorKind = "has-named-volume"

	// Application scope.
	IndicatorServiceCountAtLeast    IndicatorKind = "service-count-at-least"
	IndicatorServiceCountAtMost     IndicatorKind = "service-count-at-most"
	IndicatorMatchedPattern         IndicatorKind = "matched-pattern"
	IndicatorMatchedPatternExactly  IndicatorKind = "matched-pattern-exactly"
	IndicatorDistinctPatternsAtLeast IndicatorKind = "distinct-patterns-at-least"
	IndicatorHasDependencyLinks     IndicatorKind = "has-dependency-links"
	IndicatorDependsOnPattern       IndicatorKind = "depends-on-pattern"
)

// Indicator is one weighted predicate of a pattern definition. For kinds
// that take alternatives (image fragments, port numbers, env key
// fragments) the indicator matches when ANY value matches, and its
// weight counts once.
type Indicator struct {
	Kind   IndicatorKind `yaml:"kind" json:"kind"`
	Values []string      `yaml:"values" json:"values"`
	Weight float64       `yaml:"weight" json:"weight"`
}

// Definition is one pattern as data. Score is the sum of matched
// indicator weights clamped to [0,1]; the definition matches a scope
// iff score >= Threshold. A definition whose indicators carry zero
// total weight scores 0 and never matches.
type Definition struct {
	Name       string      `yaml:"name" json:"name"`
	Scope      Scope       `yaml:"scope" json:"scope"`
	Threshold  float64     `yaml:"threshold" json:"threshold"`
	Indicators []Indicator `yaml:"indicators" json:"indicators"`
}

// Match is one successful pattern classification.
type Match struct {
	Pattern    string   `json:"pattern"`
	Scope      Scope    `json:"scope"`
	Confidence float64  `json:"confidence"`
	Services   []string `json:"services"`
	Indicators []string `json:"indicators,omitempty"`
}

// Result holds every match for a model: per-service matches keyed by
// service id plus application-level matches, all in deterministic order.
type Result struct {
	ByService map[string][]Match `json:"by_service"`
	App       []Match            `json:"app,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
}

// Primary returns the primary pattern for a service: the match with the
// highest confidence, ties broken by definition declaration order (the
// match list already carries that order). Returns nil when nothing
// matched.
func (r *Result) Primary(serviceID string) *Match {
	matches := r.ByService[serviceID]
	if len(matches) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(matches); i++ {
		if matches[i].Confidence > matches[best].Confidence {
			best = i
		}
	}
	return &matches[best]
}

// =============================================================================
// Definition Errors
// =============================================================================

// ErrDefinitionInvalid is the sentinel for malformed custom pattern
// definitions. Malformed definitions are skipped with a warning; they
// never abort classification.
var ErrDefinitionInvalid = errors.New("invalid pattern definition")

// DefinitionError describes why one custom definition was rejected.
type DefinitionError struct {
	Pattern string
	Message string
}

func (e *DefinitionError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("pattern definition: %s", e.Message)
	}
	return fmt.Sprintf("pattern definition %q: %s", e.Pattern, e.Message)
}

func (e *DefinitionError) Unwrap() error {
	return ErrDefinitionInvalid
}

// Validate checks a definition for structural problems.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &DefinitionError{Message: "name is required"}
	}
	if d.Scope != ScopeService && d.Scope != ScopeApplication {
		return &DefinitionError{Pattern: d.Name, Message: fmt.Sprintf("unknown scope %q", d.Scope)}
	}
	if d.Threshold < 0 || d.Threshold > 1 {
		return &DefinitionError{Pattern: d.Name, Message: "threshold must be in [0,1]"}
	}
	if len(d.Indicators) == 0 {
		return &DefinitionError{Pattern: d.Name, Message: "at least one indicator is required"}
	}
	for i, ind := range d.Indicators {
		if !validKind(ind.Kind, d.Scope) {
			return &DefinitionError{Pattern: d.Name, Message: fmt.Sprintf("indicator %d: unknown kind %q for scope %q", i, ind.Kind, d.Scope)}
		}
		if ind.Weight < 0 {
			return &DefinitionError{Pattern: d.Name, Message: fmt.Sprintf("indicator %d: negative weight", i)}
		}
	}
	return nil
}

func validKind(kind IndicatorKind, scope Scope) bool {
	switch kind {
	case IndicatorImageContains, IndicatorPortEquals, IndicatorEnvKeyContains,
		IndicatorVolumeTargetHas, IndicatorHasPublishedPort, IndicatorHasNamedVolume:
		return scope == ScopeService
	case IndicatorServiceCountAtLeast, IndicatorServiceCountAtMost,
		IndicatorMatchedPattern, IndicatorMatchedPatternExactly,
		IndicatorDistinctPatternsAtLeast, IndicatorHasDependencyLinks,
		IndicatorDependsOnPattern:
		return scope == ScopeApplication
	}
	return false
}
