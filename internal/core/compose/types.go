package compose

import "strings"

// =============================================================================
// Model - Intermediate Representation
// =============================================================================

// Model is the normalized intermediate representation of a multi-service
// application description. It is built once by Parse and treated as
// immutable by every downstream stage.
type Model struct {
	Services []ServiceSpec `json:"services"`
	Volumes  []VolumeSpec  `json:"volumes,omitempty"`
	Networks []NetworkSpec `json:"networks,omitempty"`
}

// Service returns the service with the given id, or nil if not present.
func (m *Model) Service(id string) *ServiceSpec {
	for i := range m.Services {
		if m.Services[i].ID == id {
			return &m.Services[i]
		}
	}
	return nil
}

// Volume returns the named volume definition, or nil if not present.
func (m *Model) Volume(name string) *VolumeSpec {
	for i := range m.Volumes {
		if m.Volumes[i].Name == name {
			return &m.Volumes[i]
		}
	}
	return nil
}

// =============================================================================
// Service Types
// =============================================================================

// ServiceSpec represents a single normalized service definition.
type ServiceSpec struct {
	ID          string         `json:"id"`
	Image       ImageRef       `json:"image"`
	Command     []string       `json:"command,omitempty"`
	Ports       []Port         `json:"ports,omitempty"`
	Environment []EnvVar       `json:"environment,omitempty"`
	Volumes     []VolumeMount  `json:"volumes,omitempty"`
	Networks    []string       `json:"networks,omitempty"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Resources   ResourceHints  `json:"resources"`
	HealthCheck *HealthCheck   `json:"healthcheck,omitempty"`
	Extensions  map[string]any `json:"extensions,omitempty"` // x-* fields, retained opaquely
}

// PrimaryPort returns the first declared container port, or 0 if none.
func (s *ServiceSpec) PrimaryPort() uint32 {
	if len(s.Ports) == 0 {
		return 0
	}
	return s.Ports[0].Target
}

// Exposed reports whether the service publishes at least one host port.
func (s *ServiceSpec) Exposed() bool {
	for _, p := range s.Ports {
		if p.Published != 0 {
			return true
		}
	}
	return false
}

// HasSensitiveEnv reports whether any environment entry is classified
// sensitive.
func (s *ServiceSpec) HasSensitiveEnv() bool {
	for _, e := range s.Environment {
		if e.Sensitive {
			return true
		}
	}
	return false
}

// HasNamedVolume reports whether the service mounts at least one named
// (persistent) volume.
func (s *ServiceSpec) HasNamedVolume() bool {
	for _, v := range s.Volumes {
		if v.Type == VolumeMountTypeVolume {
			return true
		}
	}
	return false
}

// EnvKeys returns the environment keys in declaration (sorted) order.
func (s *ServiceSpec) EnvKeys() []string {
	keys := make([]string, 0, len(s.Environment))
	for _, e := range s.Environment {
		keys = append(keys, e.Key)
	}
	return keys
}

// =============================================================================
// Image References
// =============================================================================

// ImageRef is a normalized container image reference.
type ImageRef struct {
	Registry   string `json:"registry,omitempty"`
	Repository string `json:"repository"`
	Tag        string `json:"tag,omitempty"`
	Raw        string `json:"raw"`
}

// Unpinned reports whether the reference has no tag or the floating
// "latest" tag.
func (r ImageRef) Unpinned() bool {
	return r.Tag == "" || r.Tag == "latest"
}

// String returns the canonical registry/repository:tag form.
func (r ImageRef) String() string {
	out := r.Repository
	if r.Registry != "" {
		out = r.Registry + "/" + out
	}
	if r.Tag != "" {
		out = out + ":" + r.Tag
	}
	return out
}

// Contains reports whether the repository name contains the given fragment.
// Used by image-based pattern indicators.
func (r ImageRef) Contains(fragment string) bool {
	return strings.Contains(r.Repository, fragment)
}

// =============================================================================
// Ports, Environment, Volumes
// =============================================================================

// Port represents a normalized port mapping.
type Port struct {
	Target    uint32 `json:"target"`              // Container port
	Published uint32 `json:"published,omitempty"` // Host port (0 = not published)
	Protocol  string `json:"protocol,omitempty"`  // tcp, udp
}

// EnvVar is a single environment entry. Sensitive entries are extracted
// into Secret resources by the synthesizer and never embedded in plaintext
// in workload resources.
type EnvVar struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive"`
}

// VolumeMount represents a volume mount in a service.
type VolumeMount struct {
	Type     VolumeMountType `json:"type"`
	Source   string          `json:"source"` // Path or volume name
	Target   string          `json:"target"` // Container path
	ReadOnly bool            `json:"readonly"`
}

// VolumeMountType represents the type of volume mount.
type VolumeMountType string

const (
	VolumeMountTypeBind   VolumeMountType = "bind"
	VolumeMountTypeVolume VolumeMountType = "volume"
	VolumeMountTypeTmpfs  VolumeMountType = "tmpfs"
)

// ResourceHints carries explicitly declared resource amounts as Kubernetes
// quantity strings ("500m", "1Gi"). Empty fields mean "not declared";
// declared hints always take precedence over policy table defaults.
type ResourceHints struct {
	CPURequest    string `json:"cpu_request,omitempty"`
	CPULimit      string `json:"cpu_limit,omitempty"`
	MemoryRequest string `json:"memory_request,omitempty"`
	MemoryLimit   string `json:"memory_limit,omitempty"`
	Replicas      *int   `json:"replicas,omitempty"`
}

// Empty reports whether no resource amount was declared at all.
func (h ResourceHints) Empty() bool {
	return h.CPURequest == "" && h.CPULimit == "" &&
		h.MemoryRequest == "" && h.MemoryLimit == ""
}

// HealthCheck represents a declared health check.
type HealthCheck struct {
	Test        []string `json:"test"`
	Interval    string   `json:"interval,omitempty"`
	Timeout     string   `json:"timeout,omitempty"`
	Retries     int      `json:"retries,omitempty"`
	StartPeriod string   `json:"start_period,omitempty"`
}

// =============================================================================
// Volume / Network Definitions
// =============================================================================

// VolumeSpec represents a named volume definition.
type VolumeSpec struct {
	Name     string            `json:"name"`
	Driver   string            `json:"driver,omitempty"`
	External bool              `json:"external"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// NetworkSpec represents a network definition.
type NetworkSpec struct {
	Name     string            `json:"name"`
	Driver   string            `json:"driver,omitempty"`
	External bool              `json:"external"`
	Internal bool              `json:"internal"`
	Labels   map[string]string `json:"labels,omitempty"`
}
