package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/stackform/stackform/internal/core/manifest"
)

// =============================================================================
// Fixture Builders
// =============================================================================

func deployment(name, service, image string, mutate func(*appsv1.Deployment)) manifest.Resource {
	d := &appsv1.Deployment{
		TypeMeta:   metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: map[string]string{"app": service}},
		Spec: appsv1.DeploymentSpec{
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": service}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"app": service}},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  service,
						Image: image,
						Resources: corev1.ResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceCPU:    resource.MustParse("100m"),
								corev1.ResourceMemory: resource.MustParse("128Mi"),
							},
							Limits: corev1.ResourceList{
								corev1.ResourceCPU:    resource.MustParse("500m"),
								corev1.ResourceMemory: resource.MustParse("512Mi"),
							},
						},
					}},
				},
			},
		},
	}
	if mutate != nil {
		mutate(d)
	}
	return manifest.Resource{Kind: "Deployment", Name: name, ServiceID: service, Object: d}
}

func clusterService(name, service string) manifest.Resource {
	s := &corev1.Service{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{"app": service},
		},
	}
	return manifest.Resource{Kind: "Service", Name: name, ServiceID: service, Object: s}
}

func validSet() *manifest.Set {
	return &manifest.Set{Resources: []manifest.Resource{
		deployment("web-deployment", "web", "nginx:1.20", nil),
		clusterService("web-service", "web"),
	}}
}

// =============================================================================
// Tests
// =============================================================================

func TestRun_ValidSetPasses(t *testing.T) {
	report := Run(validSet(), Options{})
	assert.True(t, report.Pass())
	assert.Empty(t, report.Errors)
}

func TestRun_SelectorMismatchIsFatal(t *testing.T) {
	set := &manifest.Set{Resources: []manifest.Resource{
		deployment("web-deployment", "web", "nginx:1.20", func(d *appsv1.Deployment) {
			d.Spec.Template.Labels = map[string]string{"app": "other"}
		}),
	}}

	report := Run(set, Options{})
	assert.False(t, report.Pass())
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0].Message, "selector")
}

func TestRun_ServiceSelectorMustMatchExactlyOneWorkload(t *testing.T) {
	orphan := &manifest.Set{Resources: []manifest.Resource{
		deployment("web-deployment", "web", "nginx:1.20", nil),
		clusterService("api-service", "api"),
	}}
	report := Run(orphan, Options{})
	assert.False(t, report.Pass())
	assert.Contains(t, report.Errors[0].Message, "no workload")

	ambiguous := &manifest.Set{Resources: []manifest.Resource{
		deployment("web-deployment", "web", "nginx:1.20", nil),
		deployment("web2-deployment", "web", "nginx:1.20", nil),
		clusterService("web-service", "web"),
	}}
	report = Run(ambiguous, Options{})
	assert.False(t, report.Pass())
	assert.Contains(t, report.Errors[0].Message, "exactly 1")
}

func TestRun_MissingSecretKeyIsFatal(t *testing.T) {
	set := &manifest.Set{Resources: []manifest.Resource{
		deployment("db-deployment", "db", "postgres:15", func(d *appsv1.Deployment) {
			d.Spec.Template.Spec.Containers[0].Env = []corev1.EnvVar{{
				Name: "POSTGRES_PASSWORD",
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{Name: "db-secret"},
						Key:                  "POSTGRES_PASSWORD",
					},
				},
			}}
		}),
	}}

	// Secret missing entirely.
	report := Run(set, Options{})
	assert.False(t, report.Pass())
	assert.Contains(t, report.Errors[0].Message, "missing secret")

	// Secret present but without the key.
	set.Resources = append(set.Resources, manifest.Resource{
		Kind: "Secret", Name: "db-secret", ServiceID: "db",
		Object: &corev1.Secret{
			TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
			ObjectMeta: metav1.ObjectMeta{Name: "db-secret"},
			Data:       map[string][]byte{"OTHER": []byte("x")},
		},
	})
	report = Run(set, Options{})
	assert.False(t, report.Pass())
	assert.Contains(t, report.Errors[0].Message, "missing key")
}

func TestRun_RequestExceedingLimitIsFatal(t *testing.T) {
	set := &manifest.Set{Resources: []manifest.Resource{
		deployment("web-deployment", "web", "nginx:1.20", func(d *appsv1.Deployment) {
			c := &d.Spec.Template.Spec.Containers[0]
			c.Resources.Requests[corev1.ResourceMemory] = resource.MustParse("2Gi")
		}),
	}}

	report := Run(set, Options{})
	assert.False(t, report.Pass())
	assert.Contains(t, report.Errors[0].Message, "exceeds limit")
}

func TestRun_MissingLimitsWarnByDefaultFatalInStrict(t *testing.T) {
	set := func() *manifest.Set {
		return &manifest.Set{Resources: []manifest.Resource{
			deployment("web-deployment", "web", "nginx:1.20", func(d *appsv1.Deployment) {
				d.Spec.Template.Spec.Containers[0].Resources.Limits = nil
			}),
		}}
	}

	report := Run(set(), Options{})
	assert.True(t, report.Pass())
	assert.NotEmpty(t, report.Warnings)

	report = Run(set(), Options{Strict: true})
	assert.False(t, report.Pass())
	// The failing service is named.
	assert.Contains(t, report.Errors[0].Message, `"web"`)
}

func TestRun_RequireLimitsFatalWithoutStrict(t *testing.T) {
	set := &manifest.Set{Resources: []manifest.Resource{
		deployment("web-deployment", "web", "nginx:1.20", func(d *appsv1.Deployment) {
			d.Spec.Template.Spec.Containers[0].Resources.Limits = nil
		}),
	}}

	// The strict security level demands limits even when strict
	// validation is off; unpinned-image checks stay off.
	report := Run(set, Options{RequireLimits: true})
	assert.False(t, report.Pass())
	assert.Contains(t, report.Errors[0].Message, "missing")
}

func TestRun_StrictRejectsUnpinnedImages(t *testing.T) {
	latest := &manifest.Set{Resources: []manifest.Resource{
		deployment("web-deployment", "web", "nginx:latest", nil),
	}}
	report := Run(latest, Options{Strict: true})
	assert.False(t, report.Pass())

	untagged := &manifest.Set{Resources: []manifest.Resource{
		deployment("web-deployment", "web", "ghcr.io/acme/web", nil),
	}}
	report = Run(untagged, Options{Strict: true})
	assert.False(t, report.Pass())

	// Non-strict: unpinned images are accepted here (the security scan
	// reports them).
	report = Run(latest, Options{})
	assert.True(t, report.Pass())
}

func TestRun_StrictHostPathAllowlist(t *testing.T) {
	withHostPath := func() *manifest.Set {
		return &manifest.Set{Resources: []manifest.Resource{
			deployment("web-deployment", "web", "nginx:1.20", func(d *appsv1.Deployment) {
				d.Spec.Template.Spec.Volumes = []corev1.Volume{{
					Name: "html",
					VolumeSource: corev1.VolumeSource{
						HostPath: &corev1.HostPathVolumeSource{Path: "/srv/html"},
					},
				}}
			}),
		}}
	}

	report := Run(withHostPath(), Options{Strict: true})
	assert.False(t, report.Pass())
	assert.Contains(t, report.Errors[0].Message, "allow-list")

	report = Run(withHostPath(), Options{Strict: true, HostPathAllowlist: []string{"/srv"}})
	assert.True(t, report.Pass())
}

func TestRun_NoContainersIsFatal(t *testing.T) {
	set := &manifest.Set{Resources: []manifest.Resource{
		deployment("web-deployment", "web", "nginx:1.20", func(d *appsv1.Deployment) {
			d.Spec.Template.Spec.Containers = nil
		}),
	}}

	report := Run(set, Options{})
	assert.False(t, report.Pass())
}
