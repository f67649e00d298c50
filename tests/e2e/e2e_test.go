package e2e

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	networkingv1 "k8s.io/api/networking/v1"

	"github.com/stackform/stackform/internal/core/policy"
	"github.com/stackform/stackform/internal/pipeline"
	"github.com/stackform/stackform/internal/shell/output"
)

// =============================================================================
// Full Pipeline Tests
// =============================================================================

// TestE2E_ThreeTierProduction runs the three-tier stack with
// production hardening and checks every stage's output.
func TestE2E_ThreeTierProduction(t *testing.T) {
	res := RunPipeline(t, ThreeTierYAML, pipeline.Options{
		Environment:   policy.EnvProduction,
		SecurityLevel: policy.SecurityStrict,
		Provider:      "gcp",
		Region:        "europe-west1",
		Namespace:     "apps",
		Domain:        "apps.acme.io",
	})

	// Startup order respects the dependency graph.
	require.Equal(t, []string{"cache", "db", "api", "frontend"}, res.Graph.Order)

	// Architecture classification sees the three-tier shape.
	var appPatterns []string
	for _, m := range res.Patterns.App {
		appPatterns = append(appPatterns, m.Pattern)
	}
	assert.Contains(t, appPatterns, "three-tier")

	// Strict security forces network policies everywhere.
	for _, id := range []string{"frontend", "api", "db", "cache"} {
		assert.True(t, HasResource(res.Manifests, "NetworkPolicy", id+"-network-policy"), id)
	}

	// Only the frontend is exposed.
	ing := FindResource(t, res.Manifests, "Ingress", "frontend-ingress")
	rule := ing.Object.(*networkingv1.Ingress).Spec.Rules[0]
	assert.Equal(t, "frontend.apps.acme.io", rule.Host)
	assert.False(t, HasResource(res.Manifests, "Ingress", "db-ingress"))
	assert.False(t, HasResource(res.Manifests, "Ingress", "cache-ingress"))

	// Cost covers compute, storage, and the load balancer.
	assert.Greater(t, res.Cost.Compute, 0.0)
	assert.Greater(t, res.Cost.Storage, 0.0)
	assert.Greater(t, res.Cost.LoadBalancer, 0.0)
	assert.InDelta(t, res.Cost.Compute+res.Cost.LoadBalancer+res.Cost.Management+
		res.Cost.Storage+res.Cost.Backup+res.Cost.Network, res.Cost.Total, 0.01)

	// All pinned images and consistent manifests pass strict validation.
	assert.True(t, res.Validation.Pass(), "errors: %v", res.Validation.Errors)

	// Every resource lands in the requested namespace.
	assert.Equal(t, "apps", res.Manifests.Namespace)
}

// TestE2E_WriteManifests runs the pipeline and writes the output both
// as a directory and as a single stream.
func TestE2E_WriteManifests(t *testing.T) {
	res := RunPipeline(t, ThreeTierYAML, pipeline.Options{})

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	writer := output.NewWriter(logger)

	dir := t.TempDir()
	require.NoError(t, writer.WriteDirectory(dir, res.Manifests))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, len(res.Manifests.Resources), len(entries))

	path := filepath.Join(t.TempDir(), "all.yaml")
	require.NoError(t, writer.WriteFile(path, res.Manifests))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: StatefulSet")
}

// TestE2E_Deterministic verifies two identical runs render
// byte-identical manifests.
func TestE2E_Deterministic(t *testing.T) {
	opts := pipeline.Options{Environment: policy.EnvProduction}

	first := RunPipeline(t, ThreeTierYAML, opts)
	second := RunPipeline(t, ThreeTierYAML, opts)

	a, err := first.Manifests.Render()
	require.NoError(t, err)
	b, err := second.Manifests.Render()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

// TestE2E_StrictRejectsUnpinnedImages verifies strict validation fails
// the run when an image has no pinned tag.
func TestE2E_StrictRejectsUnpinnedImages(t *testing.T) {
	res := RunPipeline(t, "services:\n  app:\n    image: nginx:latest\n", pipeline.Options{
		Strict: true,
	})
	assert.False(t, res.Validation.Pass())
}
