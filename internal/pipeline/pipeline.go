package pipeline

import (
	"fmt"
	"sync"

	"github.com/stackform/stackform/internal/core/compose"
	"github.com/stackform/stackform/internal/core/cost"
	"github.com/stackform/stackform/internal/core/graph"
	"github.com/stackform/stackform/internal/core/manifest"
	"github.com/stackform/stackform/internal/core/pattern"
	"github.com/stackform/stackform/internal/core/policy"
	"github.com/stackform/stackform/internal/core/security"
	"github.com/stackform/stackform/internal/core/validate"
)

// =============================================================================
// Options and Result
// =============================================================================

// Options is the full knob set consumed by one run. The host layer
// (CLI, wizard, config file) produces it; the pipeline only reads it.
type Options struct {
	Environment   policy.Environment
	Provider      string
	Region        string
	SecurityLevel policy.SecurityLevel
	Budget        policy.Budget

	Autoscale   bool
	MinReplicas int32
	MaxReplicas int32

	Namespace string
	Domain    string

	Strict            bool
	HostPathAllowlist []string

	// RefuseOnCycle aborts the run on a cyclic dependency graph
	// instead of degrading the cycle to a warning.
	RefuseOnCycle bool

	// MinSeverity trims the reported security findings; remediations
	// are applied regardless.
	MinSeverity security.Severity

	// EgressGiBPerService overrides the monthly egress volume assumed
	// per exposed service. Zero keeps the default heuristic.
	EgressGiBPerService float64

	// CustomPatterns is an optional YAML catalog merged with the
	// built-in pattern definitions.
	CustomPatterns []byte
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.Environment == "" {
		o.Environment = policy.EnvDevelopment
	}
	if o.SecurityLevel == "" {
		o.SecurityLevel = policy.SecurityBasic
	}
	if o.Budget == "" {
		o.Budget = policy.BudgetStandard
	}
	if o.Provider == "" {
		o.Provider = "aws"
	}
	if o.MinSeverity == 0 {
		o.MinSeverity = security.SeverityLow
	}
	return o
}

// Result is everything one run produces. The host layer decides how to
// present it and what exit code a failed validation maps to.
type Result struct {
	Model    *compose.Model
	Graph    *graph.Graph
	Patterns *pattern.Result
	Policies map[string]*policy.GenerationPolicy

	Security   *security.Report
	Cost       *cost.Breakdown
	Manifests  *manifest.Set
	Validation *validate.Report

	// Warnings aggregates non-fatal issues from every stage, in stage
	// order: pattern definitions, dependency cycles, cost fallbacks.
	Warnings []string
}

// =============================================================================
// Run
// =============================================================================

// Run executes the full transformation. Fatal errors (parse failures,
// unknown dependencies, naming collisions) abort and return the error;
// everything non-fatal lands in the result's warnings so a completed
// run always carries the fullest possible report.
func Run(doc []byte, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res := &Result{}

	model, err := compose.Parse(string(doc))
	if err != nil {
		return nil, err
	}
	res.Model = model

	g, err := graph.Build(model)
	if err != nil {
		return nil, err
	}
	res.Graph = g
	if opts.RefuseOnCycle && g.HasCycles() {
		return res, fmt.Errorf("%w: %s", graph.ErrDependencyCycle, joinIDs(g.Cycles[0]))
	}
	for _, cycle := range g.Cycles {
		res.Warnings = append(res.Warnings, "dependency cycle: "+joinIDs(cycle))
	}

	custom, customWarnings := pattern.LoadCustom(opts.CustomPatterns)
	res.Warnings = append(res.Warnings, customWarnings...)

	res.Patterns = pattern.Classify(model, custom)
	res.Warnings = append(res.Warnings, res.Patterns.Warnings...)

	res.Policies = resolvePolicies(model, res.Patterns, opts)

	res.Security = security.Scan(model, res.Policies, opts.MinSeverity)

	orderedPolicies := make([]*policy.GenerationPolicy, 0, len(model.Services))
	for _, svc := range model.Services {
		orderedPolicies = append(orderedPolicies, res.Policies[svc.ID])
	}
	if opts.EgressGiBPerService > 0 {
		res.Cost = cost.EstimateWithTransfer(orderedPolicies, opts.Provider, opts.Region, opts.EgressGiBPerService)
	} else {
		res.Cost = cost.Estimate(orderedPolicies, opts.Provider, opts.Region)
	}
	res.Warnings = append(res.Warnings, res.Cost.Warnings...)

	set, err := manifest.Synthesize(model, g, res.Policies, res.Security, manifest.Options{
		Namespace: opts.Namespace,
		Domain:    opts.Domain,
	})
	if err != nil {
		return res, err
	}
	res.Manifests = set

	requireLimits := false
	for _, p := range res.Policies {
		if p.RequireLimitsStrict {
			requireLimits = true
			break
		}
	}
	res.Validation = validate.Run(set, validate.Options{
		Strict:            opts.Strict,
		RequireLimits:     requireLimits,
		HostPathAllowlist: opts.HostPathAllowlist,
	})

	return res, nil
}

// resolvePolicies fans per-service resolution out across goroutines.
// Each goroutine writes only its own slot, so the merge is a plain
// indexed copy and output order never depends on scheduling.
func resolvePolicies(model *compose.Model, patterns *pattern.Result, opts Options) map[string]*policy.GenerationPolicy {
	in := policy.Inputs{
		Environment:        opts.Environment,
		Budget:             opts.Budget,
		SecurityLevel:      opts.SecurityLevel,
		AutoscaleRequested: opts.Autoscale,
		MinReplicas:        opts.MinReplicas,
		MaxReplicas:        opts.MaxReplicas,
	}

	slots := make([]policy.GenerationPolicy, len(model.Services))
	var wg sync.WaitGroup
	for i := range model.Services {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slots[i] = policy.Resolve(&model.Services[i], patterns.Primary(model.Services[i].ID), in)
		}(i)
	}
	wg.Wait()

	out := make(map[string]*policy.GenerationPolicy, len(slots))
	for i := range slots {
		out[slots[i].ServiceID] = &slots[i]
	}
	return out
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}
