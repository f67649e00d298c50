package pattern

import (
	"strconv"
	"strings"

	"github.com/stackform/stackform/internal/core/compose"
)

// =============================================================================
// Classification Engine
// =============================================================================

// Classify scores every definition against the model. This is a pure
// function - no I/O, no side effects.
//
// Service-scope definitions are evaluated first; application-scope
// definitions may then reference the service-level outcomes (for
// example "some service matched the database pattern"). Custom
// definitions are appended after the built-ins: a failed custom
// definition is skipped with a warning and never aborts the run.
func Classify(model *compose.Model, custom []Definition) *Result {
	result := &Result{
		ByService: make(map[string][]Match, len(model.Services)),
	}

	defs := Builtins()
	for _, d := range custom {
		if err := d.Validate(); err != nil {
			result.Warnings = append(result.Warnings, err.Error())
			continue
		}
		defs = append(defs, d)
	}

	// Service scope, in model order then declaration order.
	for _, svc := range model.Services {
		for _, def := range defs {
			if def.Scope != ScopeService {
				continue
			}
			confidence, matched := scoreService(def, &svc)
			if confidence >= def.Threshold && confidence > 0 {
				result.ByService[svc.ID] = append(result.ByService[svc.ID], Match{
					Pattern:    def.Name,
					Scope:      ScopeService,
					Confidence: confidence,
					Services:   []string{svc.ID},
					Indicators: matched,
				})
			}
		}
	}

	// Application scope.
	for _, def := range defs {
		if def.Scope != ScopeApplication {
			continue
		}
		confidence, matched := scoreApplication(def, model, result)
		if confidence >= def.Threshold && confidence > 0 {
			allServices := make([]string, 0, len(model.Services))
			for _, svc := range model.Services {
				allServices = append(allServices, svc.ID)
			}
			result.App = append(result.App, Match{
				Pattern:    def.Name,
				Scope:      ScopeApplication,
				Confidence: confidence,
				Services:   allServices,
				Indicators: matched,
			})
		}
	}

	return result
}

// scoreService sums the weights of matched indicators, clamped to [0,1].
func scoreService(def Definition, svc *compose.ServiceSpec) (float64, []string) {
	var score float64
	var matched []string

	for _, ind := range def.Indicators {
		if serviceIndicatorMatches(ind, svc) {
			score += ind.Weight
			matched = append(matched, string(ind.Kind))
		}
	}
	return clamp(score), matched
}

func serviceIndicatorMatches(ind Indicator, svc *compose.ServiceSpec) bool {
	switch ind.Kind {
	case IndicatorImageContains:
		for _, fragment := range ind.Values {
			if svc.Image.Contains(fragment) {
				return true
			}
		}
	case IndicatorPortEquals:
		for _, value := range ind.Values {
			want, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				continue
			}
			for _, p := range svc.Ports {
				if p.Target == uint32(want) {
					return true
				}
			}
		}
	case IndicatorEnvKeyContains:
		for _, fragment := range ind.Values {
			for _, env := range svc.Environment {
				if strings.Contains(env.Key, fragment) {
					return true
				}
			}
		}
	case IndicatorVolumeTargetHas:
		for _, fragment := range ind.Values {
			for _, v := range svc.Volumes {
				if strings.Contains(v.Target, fragment) {
					return true
				}
			}
		}
	case IndicatorHasPublishedPort:
		return svc.Exposed()
	case IndicatorHasNamedVolume:
		return svc.HasNamedVolume()
	}
	return false
}

// scoreApplication evaluates application-scope indicators over the whole
// model and the already-computed service matches.
func scoreApplication(def Definition, model *compose.Model, svcResults *Result) (float64, []string) {
	var score float64
	var matched []string

	for _, ind := range def.Indicators {
		if applicationIndicatorMatches(ind, model, svcResults) {
			score += ind.Weight
			matched = append(matched, string(ind.Kind))
		}
	}
	return clamp(score), matched
}

func applicationIndicatorMatches(ind Indicator, model *compose.Model, res *Result) bool {
	switch ind.Kind {
	case IndicatorServiceCountAtLeast:
		n, err := firstInt(ind.Values)
		return err == nil && len(model.Services) >= n

	case IndicatorServiceCountAtMost:
		n, err := firstInt(ind.Values)
		return err == nil && len(model.Services) <= n

	case IndicatorMatchedPattern:
		for _, name := range ind.Values {
			if countServicesMatching(res, name) > 0 {
				return true
			}
		}

	case IndicatorMatchedPatternExactly:
		// Values: [pattern, count]
		if len(ind.Values) != 2 {
			return false
		}
		want, err := strconv.Atoi(ind.Values[1])
		if err != nil {
			return false
		}
		return countServicesMatching(res, ind.Values[0]) == want

	case IndicatorDistinctPatternsAtLeast:
		n, err := firstInt(ind.Values)
		if err != nil {
			return false
		}
		distinct := make(map[string]bool)
		for _, matches := range res.ByService {
			for _, m := range matches {
				distinct[m.Pattern] = true
			}
		}
		return len(distinct) >= n

	case IndicatorHasDependencyLinks:
		for _, svc := range model.Services {
			if len(svc.DependsOn) > 0 {
				return true
			}
		}

	case IndicatorDependsOnPattern:
		// Some service depends on a service matching the named pattern.
		for _, name := range ind.Values {
			for _, svc := range model.Services {
				for _, dep := range svc.DependsOn {
					if serviceMatches(res, dep, name) {
						return true
					}
				}
			}
		}
	}
	return false
}

// countServicesMatching counts services whose match list includes the
// named pattern.
func countServicesMatching(res *Result, pattern string) int {
	count := 0
	for _, matches := range res.ByService {
		if containsPattern(matches, pattern) {
			count++
		}
	}
	return count
}

func serviceMatches(res *Result, serviceID, pattern string) bool {
	return containsPattern(res.ByService[serviceID], pattern)
}

func containsPattern(matches []Match, pattern string) bool {
	for _, m := range matches {
		if m.Pattern == pattern {
			return true
		}
	}
	return false
}

func firstInt(values []string) (int, error) {
	if len(values) == 0 {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(values[0])
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
