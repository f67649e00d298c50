package validate

import (
	"fmt"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/stackform/stackform/internal/core/manifest"
)

// =============================================================================
// Validation Report
// =============================================================================

// Issue is one validation finding. Fatal issues fail the run; the rest
// surface as warnings.
type Issue struct {
	Resource string `json:"resource"`
	Message  string `json:"message"`
	Fatal    bool   `json:"fatal"`
}

func (i Issue) String() string {
	return i.Resource + ": " + i.Message
}

// Report is the validator outcome. Errors and Warnings preserve check
// order, then resource order within a check, so output is stable.
type Report struct {
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Pass reports whether the set may be persisted.
func (r *Report) Pass() bool {
	return len(r.Errors) == 0
}

func (r *Report) fatal(resource, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Resource: resource, Message: fmt.Sprintf(format, args...), Fatal: true})
}

func (r *Report) warn(resource, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Resource: resource, Message: fmt.Sprintf(format, args...)})
}

// Options configures strict-mode behavior.
type Options struct {
	Strict bool

	// RequireLimits makes missing resource limits fatal even outside
	// strict validation. The strict security level requests this
	// through the resolved policies.
	RequireLimits bool

	// HostPathAllowlist lists host path prefixes strict mode accepts.
	HostPathAllowlist []string
}

// =============================================================================
// Validation
// =============================================================================

// Run validates a resource set. This is a pure function - no I/O, no
// side effects.
func Run(set *manifest.Set, opts Options) *Report {
	report := &Report{}

	workloads := collectWorkloads(set)
	secrets := collectSecrets(set)

	checkSelectors(set, workloads, report)
	checkSecretRefs(workloads, secrets, report)
	checkResources(workloads, report, opts.Strict || opts.RequireLimits)
	checkRequiredFields(workloads, report)
	if opts.Strict {
		checkImageTags(workloads, report)
		checkHostPaths(workloads, opts.HostPathAllowlist, report)
	}

	return report
}

// workload is the common view over Deployment and StatefulSet.
type workload struct {
	resource string
	service  string
	selector map[string]string
	template corev1.PodTemplateSpec
}

func collectWorkloads(set *manifest.Set) []workload {
	var out []workload
	for _, r := range set.Resources {
		switch obj := r.Object.(type) {
		case *appsv1.Deployment:
			out = append(out, workload{
				resource: "Deployment/" + r.Name,
				service:  r.ServiceID,
				selector: obj.Spec.Selector.MatchLabels,
				template: obj.Spec.Template,
			})
		case *appsv1.StatefulSet:
			out = append(out, workload{
				resource: "StatefulSet/" + r.Name,
				service:  r.ServiceID,
				selector: obj.Spec.Selector.MatchLabels,
				template: obj.Spec.Template,
			})
		}
	}
	return out
}

func collectSecrets(set *manifest.Set) map[string]*corev1.Secret {
	out := make(map[string]*corev1.Secret)
	for _, r := range set.Resources {
		if s, ok := r.Object.(*corev1.Secret); ok {
			out[s.Name] = s
		}
	}
	return out
}

// checkSelectors verifies every Service selector matches exactly one
// workload's pod-template labels, and every workload selector is a
// subset of its own template labels.
func checkSelectors(set *manifest.Set, workloads []workload, report *Report) {
	for _, w := range workloads {
		for k, v := range w.selector {
			if w.template.Labels[k] != v {
				report.fatal(w.resource, "selector %s=%s does not match template labels", k, v)
			}
		}
	}

	for _, r := range set.Resources {
		svc, ok := r.Object.(*corev1.Service)
		if !ok {
			continue
		}
		matches := 0
		for _, w := range workloads {
			if labelsMatch(svc.Spec.Selector, w.template.Labels) {
				matches++
			}
		}
		switch {
		case matches == 0:
			report.fatal("Service/"+r.Name, "selector matches no workload pod template")
		case matches > 1:
			report.fatal("Service/"+r.Name, "selector matches %d workload pod templates, want exactly 1", matches)
		}
	}
}

func labelsMatch(selector, labels map[string]string) bool {
	if len(selector) == 0 {
		return false
	}
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

// checkSecretRefs verifies every SecretKeyRef points at an existing
// key in an existing Secret of the set.
func checkSecretRefs(workloads []workload, secrets map[string]*corev1.Secret, report *Report) {
	for _, w := range workloads {
		for _, c := range w.template.Spec.Containers {
			for _, env := range c.Env {
				if env.ValueFrom == nil || env.ValueFrom.SecretKeyRef == nil {
					continue
				}
				ref := env.ValueFrom.SecretKeyRef
				secret, ok := secrets[ref.Name]
				if !ok {
					report.fatal(w.resource, "env %s references missing secret %q", env.Name, ref.Name)
					continue
				}
				if _, ok := secret.Data[ref.Key]; !ok {
					report.fatal(w.resource, "env %s references missing key %q in secret %q", env.Name, ref.Key, ref.Name)
				}
			}
		}
	}
}

// checkResources verifies requests never exceed limits. Missing limits
// are fatal in strict mode, otherwise a warning.
func checkResources(workloads []workload, report *Report, strict bool) {
	for _, w := range workloads {
		for _, c := range w.template.Spec.Containers {
			for _, name := range []corev1.ResourceName{corev1.ResourceCPU, corev1.ResourceMemory} {
				request, hasRequest := c.Resources.Requests[name]
				limit, hasLimit := c.Resources.Limits[name]
				if hasRequest && hasLimit && request.Cmp(limit) > 0 {
					report.fatal(w.resource, "%s request %s exceeds limit %s", name, request.String(), limit.String())
				}
				if !hasLimit {
					if strict {
						report.fatal(w.resource, "service %q: missing %s limit", w.service, name)
					} else {
						report.warn(w.resource, "missing %s limit", name)
					}
				}
			}
		}
	}
}

// checkRequiredFields covers the structural minimum for the target
// schema: named containers with images, positive replica intent.
func checkRequiredFields(workloads []workload, report *Report) {
	for _, w := range workloads {
		if len(w.template.Spec.Containers) == 0 {
			report.fatal(w.resource, "no containers in pod template")
			continue
		}
		for _, c := range w.template.Spec.Containers {
			if c.Name == "" {
				report.fatal(w.resource, "container without a name")
			}
			if c.Image == "" {
				report.fatal(w.resource, "container %q has no image", c.Name)
			}
		}
	}
}

// checkImageTags rejects floating tags in strict mode.
func checkImageTags(workloads []workload, report *Report) {
	for _, w := range workloads {
		for _, c := range w.template.Spec.Containers {
			if unpinned(c.Image) {
				report.fatal(w.resource, "service %q: image %q is not pinned to a tag", w.service, c.Image)
			}
		}
	}
}

func unpinned(image string) bool {
	slash := strings.LastIndex(image, "/")
	colon := strings.LastIndex(image, ":")
	if colon <= slash {
		return true
	}
	return image[colon+1:] == "latest"
}

// checkHostPaths rejects host path volumes outside the allow-list in
// strict mode.
func checkHostPaths(workloads []workload, allowlist []string, report *Report) {
	for _, w := range workloads {
		for _, v := range w.template.Spec.Volumes {
			if v.HostPath == nil {
				continue
			}
			if !pathAllowed(v.HostPath.Path, allowlist) {
				report.fatal(w.resource, "service %q: host path volume %q not in allow-list", w.service, v.HostPath.Path)
			}
		}
	}
}

func pathAllowed(path string, allowlist []string) bool {
	for _, prefix := range allowlist {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
