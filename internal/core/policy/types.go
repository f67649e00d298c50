package policy

// =============================================================================
// Run Option Enums
// =============================================================================

// Environment is the deployment target environment.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
)

// Valid reports whether the environment is a known value.
func (e Environment) Valid() bool {
	switch e {
	case EnvProduction, EnvStaging, EnvDevelopment, EnvTesting:
		return true
	}
	return false
}

// Budget selects a resource sizing tier.
type Budget string

const (
	BudgetMinimal     Budget = "minimal"
	BudgetStandard    Budget = "standard"
	BudgetPerformance Budget = "performance"
	BudgetEnterprise  Budget = "enterprise"
)

// Valid reports whether the budget is a known value.
func (b Budget) Valid() bool {
	switch b {
	case BudgetMinimal, BudgetStandard, BudgetPerformance, BudgetEnterprise:
		return true
	}
	return false
}

// SecurityLevel selects the baseline hardening applied to workloads.
type SecurityLevel string

const (
	SecurityBasic    SecurityLevel = "basic"
	SecurityEnhanced SecurityLevel = "enhanced"
	SecurityStrict   SecurityLevel = "strict"
	SecurityCustom   SecurityLevel = "custom"
)

// Valid reports whether the security level is a known value.
func (s SecurityLevel) Valid() bool {
	switch s {
	case SecurityBasic, SecurityEnhanced, SecurityStrict, SecurityCustom:
		return true
	}
	return false
}

// RequiresNetworkPolicy reports whether workloads at this level get a
// per-service network isolation resource.
func (s SecurityLevel) RequiresNetworkPolicy() bool {
	return s != SecurityBasic
}

// =============================================================================
// Resolved Policy Types
// =============================================================================

// WorkloadKind selects the workload resource variant.
type WorkloadKind string

const (
	WorkloadStateless WorkloadKind = "stateless"
	WorkloadStateful  WorkloadKind = "stateful"
)

// Resources holds request/limit pairs as Kubernetes quantity strings.
type Resources struct {
	CPURequest    string `json:"cpu_request"`
	CPULimit      string `json:"cpu_limit"`
	MemoryRequest string `json:"memory_request"`
	MemoryLimit   string `json:"memory_limit"`
}

// ProbeKind selects how a probe reaches the container.
type ProbeKind string

const (
	ProbeHTTPGet   ProbeKind = "httpGet"
	ProbeTCPSocket ProbeKind = "tcpSocket"
	ProbeExec      ProbeKind = "exec"
)

// Probe is a synthesized liveness or readiness check.
type Probe struct {
	Kind             ProbeKind `json:"kind"`
	Path             string    `json:"path,omitempty"`
	Port             uint32    `json:"port,omitempty"`
	Command          []string  `json:"command,omitempty"`
	InitialDelaySecs int32     `json:"initial_delay_secs"`
	PeriodSecs       int32     `json:"period_secs"`
	FailureThreshold int32     `json:"failure_threshold,omitempty"`
}

// Autoscaling holds horizontal scaling bounds and targets.
type Autoscaling struct {
	Enabled          bool  `json:"enabled"`
	MinReplicas      int32 `json:"min_replicas"`
	MaxReplicas      int32 `json:"max_replicas"`
	TargetCPUPercent int32 `json:"target_cpu_percent"`
	TargetMemPercent int32 `json:"target_mem_percent"`
}

// SecurityContext is the baseline pod hardening derived from the
// security level.
type SecurityContext struct {
	RunAsNonRoot             bool `json:"run_as_non_root"`
	AllowPrivilegeEscalation bool `json:"allow_privilege_escalation"`
	ReadOnlyRootFilesystem   bool `json:"read_only_root_filesystem"`
	DropAllCapabilities      bool `json:"drop_all_capabilities"`
	SeccompRuntimeDefault    bool `json:"seccomp_runtime_default"`
}

// GenerationPolicy is the fully resolved policy for one service.
type GenerationPolicy struct {
	ServiceID string       `json:"service_id"`
	Pattern   string       `json:"pattern,omitempty"`
	Workload  WorkloadKind `json:"workload"`

	Replicas  int32     `json:"replicas"`
	Resources Resources `json:"resources"`

	Autoscaling Autoscaling `json:"autoscaling"`

	Liveness  *Probe `json:"liveness,omitempty"`
	Readiness *Probe `json:"readiness,omitempty"`

	// VolumeClaims lists the persistent claims to provision, one per
	// distinct named volume the service mounts. Both the synthesizer
	// and the cost estimator consume this list, so priced storage
	// always matches what is provisioned.
	VolumeClaims []VolumeClaim `json:"volume_claims,omitempty"`

	SecurityContext     *SecurityContext `json:"security_context,omitempty"`
	NeedsNetworkPolicy  bool             `json:"needs_network_policy"`
	ExposeExternally    bool             `json:"expose_externally"`
	RequireLimitsStrict bool             `json:"require_limits_strict"`
}

// VolumeClaim is one persistent volume claim the policy provisions.
type VolumeClaim struct {
	// Volume is the named volume source from the compose document.
	Volume string `json:"volume"`
	SizeGi int    `json:"size_gi"`
}
