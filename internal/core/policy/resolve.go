package policy

import (
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/stackform/stackform/internal/core/compose"
	"github.com/stackform/stackform/internal/core/pattern"
)

// =============================================================================
// Policy Resolution
// =============================================================================

// Inputs carries the run options the resolver consumes.
type Inputs struct {
	Environment   Environment
	Budget        Budget
	SecurityLevel SecurityLevel

	// AutoscaleRequested forces autoscaling on regardless of environment.
	AutoscaleRequested bool

	// MinReplicas/MaxReplicas override pattern-derived bounds when > 0.
	MinReplicas int32
	MaxReplicas int32
}

// statefulPatterns are the archetypes that become StatefulSets when the
// service also declares a named volume.
var statefulPatterns = map[string]bool{
	"database":      true,
	"cache":         true,
	"message-queue": true,
	"storage":       true,
}

// clusteringEnvFragments mark a stateful service as horizontally
// scalable (replicated/clustered datastore).
var clusteringEnvFragments = []string{"CLUSTER", "REPLICATION"}

// Resolve computes the generation policy for one service. This is a
// pure function - no I/O, no side effects.
//
// Precedence: declared hints in the compose document always win over
// table defaults; explicit replica bounds in the inputs win over
// pattern-derived bounds.
func Resolve(svc *compose.ServiceSpec, primary *pattern.Match, in Inputs) GenerationPolicy {
	patternName := ""
	if primary != nil {
		patternName = primary.Pattern
	}

	p := GenerationPolicy{
		ServiceID: svc.ID,
		Pattern:   patternName,
		Workload:  workloadKind(svc, patternName),
	}

	p.Resources = resolveResources(svc, patternName, in.Budget)
	minReplicas, maxReplicas := replicaBounds(svc, p.Workload, in)
	p.Replicas = minReplicas

	p.Autoscaling = Autoscaling{
		Enabled:          autoscalingEnabled(p.Workload, in),
		MinReplicas:      minReplicas,
		MaxReplicas:      maxReplicas,
		TargetCPUPercent: 70,
		TargetMemPercent: 80,
	}

	// One claim per distinct named volume: a volume mounted at several
	// targets is still a single claim.
	seenVolumes := make(map[string]bool)
	for _, v := range svc.Volumes {
		if v.Type != compose.VolumeMountTypeVolume || seenVolumes[v.Source] {
			continue
		}
		seenVolumes[v.Source] = true
		p.VolumeClaims = append(p.VolumeClaims, VolumeClaim{
			Volume: v.Source,
			SizeGi: volumeSizeGi(patternName),
		})
	}

	p.Liveness, p.Readiness = resolveProbes(svc, patternName)
	p.SecurityContext = securityContextFor(in.SecurityLevel)
	p.NeedsNetworkPolicy = in.SecurityLevel.RequiresNetworkPolicy()
	p.ExposeExternally = patternName == "web" && (in.Environment == EnvProduction || in.Environment == EnvStaging)
	p.RequireLimitsStrict = in.SecurityLevel == SecurityStrict

	return p
}

// workloadKind: stateful only when the service declares a named volume
// AND matches a stateful archetype. A web app with a scratch volume
// stays a Deployment.
func workloadKind(svc *compose.ServiceSpec, patternName string) WorkloadKind {
	if svc.HasNamedVolume() && statefulPatterns[patternName] {
		return WorkloadStateful
	}
	return WorkloadStateless
}

// resolveResources fills each request/limit from the declared hint if
// present, else from the sizing table.
func resolveResources(svc *compose.ServiceSpec, patternName string, budget Budget) Resources {
	res := tableResources(patternName, budget)
	if patternName == "" {
		res = tableResources(defaultPatternKey, budget)
	}

	if svc.Resources.CPURequest != "" {
		res.CPURequest = svc.Resources.CPURequest
	}
	if svc.Resources.CPULimit != "" {
		res.CPULimit = svc.Resources.CPULimit
	}
	if svc.Resources.MemoryRequest != "" {
		res.MemoryRequest = svc.Resources.MemoryRequest
	}
	if svc.Resources.MemoryLimit != "" {
		res.MemoryLimit = svc.Resources.MemoryLimit
	}

	// A declared request can exceed the table limit it merged with.
	// Raise the limit to the request so the pair stays valid; a
	// declared limit is never touched.
	if svc.Resources.CPURequest != "" && svc.Resources.CPULimit == "" {
		res.CPULimit = maxQuantity(res.CPURequest, res.CPULimit)
	}
	if svc.Resources.MemoryRequest != "" && svc.Resources.MemoryLimit == "" {
		res.MemoryLimit = maxQuantity(res.MemoryRequest, res.MemoryLimit)
	}
	return res
}

// maxQuantity returns the larger of two resource quantities, keeping
// the limit on any parse failure.
func maxQuantity(request, limit string) string {
	req, err := resource.ParseQuantity(request)
	if err != nil {
		return limit
	}
	lim, err := resource.ParseQuantity(limit)
	if err != nil {
		return limit
	}
	if req.Cmp(lim) > 0 {
		return request
	}
	return limit
}

// replicaBounds derives min/max replicas. Stateless tiers get wide
// bounds in production; stateful tiers stay at a single replica unless
// clustering indicators are present in the environment.
func replicaBounds(svc *compose.ServiceSpec, kind WorkloadKind, in Inputs) (int32, int32) {
	// Declared replica count pins the minimum.
	var declared int32
	if svc.Resources.Replicas != nil && *svc.Resources.Replicas > 0 {
		declared = int32(*svc.Resources.Replicas)
	}

	var minReplicas, maxReplicas int32
	switch {
	case kind == WorkloadStateful && hasClusteringIndicator(svc):
		minReplicas, maxReplicas = 3, 3
	case kind == WorkloadStateful:
		minReplicas, maxReplicas = 1, 1
	case in.Environment == EnvProduction:
		minReplicas, maxReplicas = 2, 10
	default:
		minReplicas, maxReplicas = 1, 3
	}

	if declared > 0 {
		minReplicas = declared
		if maxReplicas < declared {
			maxReplicas = declared
		}
	}
	if in.MinReplicas > 0 {
		minReplicas = in.MinReplicas
	}
	if in.MaxReplicas > 0 && in.MaxReplicas >= minReplicas {
		maxReplicas = in.MaxReplicas
	}
	if maxReplicas < minReplicas {
		maxReplicas = minReplicas
	}
	return minReplicas, maxReplicas
}

func hasClusteringIndicator(svc *compose.ServiceSpec) bool {
	for _, env := range svc.Environment {
		for _, fragment := range clusteringEnvFragments {
			if strings.Contains(strings.ToUpper(env.Key), fragment) {
				return true
			}
		}
	}
	return false
}

// volumeSizeGi picks the default claim size for a named volume.
// Datastores get a larger default than scratch or cache volumes.
func volumeSizeGi(patternName string) int {
	if patternName == "database" || patternName == "storage" {
		return 50
	}
	return 10
}

// autoscalingEnabled: on for stateless workloads in production, or when
// explicitly requested. Stateful workloads never autoscale.
func autoscalingEnabled(kind WorkloadKind, in Inputs) bool {
	if kind == WorkloadStateful {
		return false
	}
	return in.Environment == EnvProduction || in.AutoscaleRequested
}

// resolveProbes synthesizes liveness and readiness probes. A declared
// healthcheck becomes an exec probe; otherwise web workloads get an
// HTTP reachability probe and datastores a socket-level check on the
// primary port.
func resolveProbes(svc *compose.ServiceSpec, patternName string) (*Probe, *Probe) {
	if svc.HealthCheck != nil && len(svc.HealthCheck.Test) > 0 {
		command := execCommand(svc.HealthCheck.Test)
		if len(command) > 0 {
			failureThreshold := int32(3)
			if svc.HealthCheck.Retries > 0 {
				failureThreshold = int32(svc.HealthCheck.Retries)
			}
			liveness := &Probe{
				Kind:             ProbeExec,
				Command:          command,
				InitialDelaySecs: 30,
				PeriodSecs:       10,
				FailureThreshold: failureThreshold,
			}
			readiness := &Probe{
				Kind:             ProbeExec,
				Command:          command,
				InitialDelaySecs: 5,
				PeriodSecs:       5,
				FailureThreshold: failureThreshold,
			}
			return liveness, readiness
		}
	}

	port := svc.PrimaryPort()
	if port == 0 {
		return nil, nil
	}

	switch patternName {
	case "web", "load-balancer":
		return &Probe{Kind: ProbeHTTPGet, Path: "/", Port: port, InitialDelaySecs: 30, PeriodSecs: 10},
			&Probe{Kind: ProbeHTTPGet, Path: "/", Port: port, InitialDelaySecs: 5, PeriodSecs: 5}
	case "database", "cache", "message-queue":
		return &Probe{Kind: ProbeTCPSocket, Port: port, InitialDelaySecs: 30, PeriodSecs: 10},
			&Probe{Kind: ProbeTCPSocket, Port: port, InitialDelaySecs: 5, PeriodSecs: 5}
	}
	return nil, nil
}

// execCommand strips the compose healthcheck form marker. CMD-SHELL
// wraps the remainder in a shell invocation.
func execCommand(test []string) []string {
	if len(test) == 0 {
		return nil
	}
	switch test[0] {
	case "CMD":
		return test[1:]
	case "CMD-SHELL":
		if len(test) < 2 {
			return nil
		}
		return []string{"/bin/sh", "-c", strings.Join(test[1:], " ")}
	case "NONE":
		return nil
	}
	return test
}

// securityContextFor maps a security level to its baseline context.
// Basic gets none. Custom starts from the enhanced baseline; the
// security rule engine layers service-specific directives on top.
func securityContextFor(level SecurityLevel) *SecurityContext {
	switch level {
	case SecurityEnhanced, SecurityCustom:
		return &SecurityContext{
			RunAsNonRoot:             true,
			AllowPrivilegeEscalation: false,
		}
	case SecurityStrict:
		return &SecurityContext{
			RunAsNonRoot:             true,
			AllowPrivilegeEscalation: false,
			ReadOnlyRootFilesystem:   true,
			DropAllCapabilities:      true,
			SeccompRuntimeDefault:    true,
		}
	}
	return nil
}
