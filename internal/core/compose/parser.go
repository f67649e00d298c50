package compose

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Parser Functions
// =============================================================================

// sensitiveKeyRegex classifies environment keys whose values must be moved
// into Secret resources.
var sensitiveKeyRegex = regexp.MustCompile(`(?i)(PASSWORD|SECRET|KEY|TOKEN)`)

// Parse parses a Docker Compose YAML document into the normalized Model.
// This is a pure function - no I/O, no side effects.
//
// Unknown x-* extension fields are retained opaquely on the service and
// ignored by all downstream stages. Circular depends_on declarations are
// NOT rejected here; the graph package reports them as warnings.
func Parse(yamlContent string) (*Model, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	project, err := loadProject(yamlContent)
	if err != nil {
		return nil, err
	}

	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	model := &Model{
		Services: make([]ServiceSpec, 0, len(project.Services)),
		Volumes:  make([]VolumeSpec, 0, len(project.Volumes)),
		Networks: make([]NetworkSpec, 0, len(project.Networks)),
	}

	// Services in stable id order so every later stage is deterministic.
	names := make([]string, 0, len(project.Services))
	for name := range project.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		converted, err := convertService(project.Services[name])
		if err != nil {
			return nil, err
		}
		model.Services = append(model.Services, converted)
	}

	for _, name := range sortedKeys(project.Volumes) {
		model.Volumes = append(model.Volumes, convertVolume(name, project.Volumes[name]))
	}
	for _, name := range sortedKeys(project.Networks) {
		model.Networks = append(model.Networks, convertNetwork(name, project.Networks[name]))
	}

	return model, nil
}

// loadProject loads a compose project using compose-go.
func loadProject(yamlContent string) (*types.Project, error) {
	// Parse YAML into a map first so syntax errors surface cleanly.
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(yamlContent),
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("stackform-temp", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// In-memory only: never resolve paths or follow extends files.
		opts.SkipNormalization = true
		opts.SkipExtends = true
		// The loader's consistency check rejects circular depends_on
		// declarations outright. Cycles must reach the graph package,
		// which reports them as warnings.
		opts.SkipConsistencyCheck = true
	})
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "port") {
			return nil, NewParseError("", errStr, ErrServiceInvalidPort)
		}
		if strings.Contains(errStr, "image") && strings.Contains(errStr, "build") {
			return nil, NewParseError("", "service must have an image", ErrServiceNoImage)
		}
		return nil, NewParseError("", errStr, ErrInvalidYAML)
	}

	return project, nil
}

// convertService converts a compose-go service to the normalized ServiceSpec.
func convertService(svc types.ServiceConfig) (ServiceSpec, error) {
	if svc.Image == "" {
		return ServiceSpec{}, NewParseError("services."+svc.Name+".image", "service must have an image", ErrServiceNoImage)
	}

	spec := ServiceSpec{
		ID:      svc.Name,
		Image:   ParseImageRef(svc.Image),
		Command: svc.Command,
	}

	// Ports
	for i, p := range svc.Ports {
		if p.Target == 0 || p.Target > 65535 {
			return ServiceSpec{}, NewParseError(
				fmt.Sprintf("services.%s.ports[%d]", svc.Name, i),
				"container port must be in 1..65535",
				ErrServiceInvalidPort,
			)
		}
		var published uint32
		if p.Published != "" {
			pub, err := strconv.ParseUint(p.Published, 10, 32)
			if err != nil || pub > 65535 {
				return ServiceSpec{}, NewParseError(
					fmt.Sprintf("services.%s.ports[%d]", svc.Name, i),
					"host port must be in 0..65535",
					ErrServiceInvalidPort,
				)
			}
			published = uint32(pub)
		}
		protocol := p.Protocol
		if protocol == "" {
			protocol = "tcp"
		}
		spec.Ports = append(spec.Ports, Port{
			Target:    p.Target,
			Published: published,
			Protocol:  protocol,
		})
	}

	// Environment, in sorted key order, with sensitivity classification.
	for _, key := range sortedKeys(svc.Environment) {
		value := ""
		if v := svc.Environment[key]; v != nil {
			value = *v
		}
		spec.Environment = append(spec.Environment, EnvVar{
			Key:       key,
			Value:     value,
			Sensitive: sensitiveKeyRegex.MatchString(key),
		})
	}

	// Volume mounts
	for _, v := range svc.Volumes {
		mount := VolumeMount{
			Source:   v.Source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		}
		switch v.Type {
		case "bind":
			mount.Type = VolumeMountTypeBind
		case "volume":
			mount.Type = VolumeMountTypeVolume
		case "tmpfs":
			mount.Type = VolumeMountTypeTmpfs
		default:
			// Infer type from source
			if strings.HasPrefix(v.Source, "./") || strings.HasPrefix(v.Source, "/") || strings.HasPrefix(v.Source, "~") {
				mount.Type = VolumeMountTypeBind
			} else {
				mount.Type = VolumeMountTypeVolume
			}
		}
		spec.Volumes = append(spec.Volumes, mount)
	}

	// Networks and dependencies, in stable order.
	spec.Networks = sortedKeys(svc.Networks)
	spec.DependsOn = sortedKeys(svc.DependsOn)

	// Declared resource hints.
	// Note: compose-go's NanoCPUs is misnamed - it's the CPU count as float32.
	if svc.Deploy != nil {
		if limits := svc.Deploy.Resources.Limits; limits != nil {
			spec.Resources.CPULimit = cpuQuantity(float64(limits.NanoCPUs))
			spec.Resources.MemoryLimit = memoryQuantity(int64(limits.MemoryBytes))
		}
		if reservations := svc.Deploy.Resources.Reservations; reservations != nil {
			spec.Resources.CPURequest = cpuQuantity(float64(reservations.NanoCPUs))
			spec.Resources.MemoryRequest = memoryQuantity(int64(reservations.MemoryBytes))
		}
		if svc.Deploy.Replicas != nil {
			replicas := *svc.Deploy.Replicas
			spec.Resources.Replicas = &replicas
		}
	}

	// HealthCheck
	if svc.HealthCheck != nil && !svc.HealthCheck.Disable {
		spec.HealthCheck = &HealthCheck{
			Test: svc.HealthCheck.Test,
		}
		if svc.HealthCheck.Retries != nil {
			spec.HealthCheck.Retries = int(*svc.HealthCheck.Retries)
		}
		if svc.HealthCheck.Interval != nil {
			spec.HealthCheck.Interval = svc.HealthCheck.Interval.String()
		}
		if svc.HealthCheck.Timeout != nil {
			spec.HealthCheck.Timeout = svc.HealthCheck.Timeout.String()
		}
		if svc.HealthCheck.StartPeriod != nil {
			spec.HealthCheck.StartPeriod = svc.HealthCheck.StartPeriod.String()
		}
	}

	// Unknown x-* fields are retained opaquely, never interpreted.
	if len(svc.Extensions) > 0 {
		spec.Extensions = make(map[string]any, len(svc.Extensions))
		for k, v := range svc.Extensions {
			spec.Extensions[k] = v
		}
	}

	return spec, nil
}

// convertVolume converts a compose-go volume definition.
func convertVolume(name string, vol types.VolumeConfig) VolumeSpec {
	return VolumeSpec{
		Name:     name,
		Driver:   vol.Driver,
		External: bool(vol.External),
		Labels:   vol.Labels,
	}
}

// convertNetwork converts a compose-go network definition.
func convertNetwork(name string, net types.NetworkConfig) NetworkSpec {
	return NetworkSpec{
		Name:     name,
		Driver:   net.Driver,
		External: bool(net.External),
		Internal: net.Internal,
		Labels:   net.Labels,
	}
}

// =============================================================================
// Image Reference Normalization
// =============================================================================

// ParseImageRef splits a raw image reference into registry, repository and
// tag parts. The registry part is only recognized when the first path
// component looks like a host (contains a dot, a port, or is "localhost").
//
// Example:
//
//	ParseImageRef("nginx:1.20")                  // {Repository: "nginx", Tag: "1.20"}
//	ParseImageRef("ghcr.io/acme/api:v2")         // {Registry: "ghcr.io", Repository: "acme/api", Tag: "v2"}
//	ParseImageRef("redis")                       // {Repository: "redis"} - unpinned
func ParseImageRef(raw string) ImageRef {
	ref := ImageRef{Raw: raw}

	rest := raw
	if idx := strings.Index(rest, "/"); idx > 0 {
		head := rest[:idx]
		if strings.ContainsAny(head, ".:") || head == "localhost" {
			ref.Registry = head
			rest = rest[idx+1:]
		}
	}

	// The tag separator is a colon after the last slash.
	if idx := strings.LastIndex(rest, ":"); idx > strings.LastIndex(rest, "/") {
		ref.Repository = rest[:idx]
		ref.Tag = rest[idx+1:]
	} else {
		ref.Repository = rest
	}

	return ref
}

// =============================================================================
// Quantity Helpers
// =============================================================================

// cpuQuantity renders a CPU core count as a Kubernetes quantity string.
// Fractional cores become millicores ("0.5" -> "500m").
func cpuQuantity(cores float64) string {
	if cores <= 0 {
		return ""
	}
	milli := int64(cores*1000 + 0.5)
	if milli%1000 == 0 {
		return strconv.FormatInt(milli/1000, 10)
	}
	return strconv.FormatInt(milli, 10) + "m"
}

// memoryQuantity renders a byte count as a Kubernetes quantity string,
// preferring Gi then Mi for exact multiples.
func memoryQuantity(bytes int64) string {
	if bytes <= 0 {
		return ""
	}
	const (
		mi = 1024 * 1024
		gi = 1024 * mi
	)
	if bytes%gi == 0 {
		return strconv.FormatInt(bytes/gi, 10) + "Gi"
	}
	if bytes%mi == 0 {
		return strconv.FormatInt(bytes/mi, 10) + "Mi"
	}
	return strconv.FormatInt(bytes, 10)
}

// sortedKeys returns the keys of a map in sorted order.
func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
