package security

import (
	"sort"

	"github.com/stackform/stackform/internal/core/compose"
	"github.com/stackform/stackform/internal/core/policy"
)

// =============================================================================
// Scan
// =============================================================================

// Scan evaluates every rule against every service. This is a pure
// function - no I/O, no side effects.
//
// Findings are collected without short-circuiting, then ordered by
// severity descending, rule declaration order, service id. minSeverity
// trims only the Reported view; Report.All always carries everything
// so applied remediations never depend on the reporting filter.
func Scan(model *compose.Model, policies map[string]*policy.GenerationPolicy, minSeverity Severity) *Report {
	rules := Rules()
	ruleOrder := make(map[string]int, len(rules))
	for i, r := range rules {
		ruleOrder[r.ID] = i
	}

	report := &Report{}
	for _, svc := range model.Services {
		t := target{Service: &svc, Policy: policies[svc.ID]}
		for _, rule := range rules {
			for _, f := range rule.Check(t) {
				f.RuleID = rule.ID
				f.ServiceID = svc.ID
				f.Severity = rule.Severity
				f.Category = rule.Category
				f.Directive = rule.Directive
				report.All = append(report.All, f)
			}
		}
	}

	sort.SliceStable(report.All, func(i, j int) bool {
		a, b := report.All[i], report.All[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if ruleOrder[a.RuleID] != ruleOrder[b.RuleID] {
			return ruleOrder[a.RuleID] < ruleOrder[b.RuleID]
		}
		return a.ServiceID < b.ServiceID
	})

	for _, f := range report.All {
		switch f.Severity {
		case SeverityCritical:
			report.Critical++
		case SeverityHigh:
			report.High++
		case SeverityMedium:
			report.Medium++
		case SeverityLow:
			report.Low++
		}
		if f.Severity >= minSeverity {
			report.Reported = append(report.Reported, f)
		}
	}

	return report
}
