package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform/stackform/internal/core/policy"
	"github.com/stackform/stackform/internal/pipeline"
)

// =============================================================================
// Smoke Tests
// =============================================================================

// TestSmoke_MinimalCompose runs the smallest valid input end to end.
func TestSmoke_MinimalCompose(t *testing.T) {
	res := RunPipeline(t, MinimalYAML, pipeline.Options{})

	require.Len(t, res.Model.Services, 1)
	assert.True(t, HasResource(res.Manifests, "Deployment", "app-deployment"))
	assert.True(t, res.Validation.Pass())

	data, err := res.Manifests.Render()
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: Deployment")
}

// TestSmoke_AllEnvironments verifies every environment produces a
// valid manifest set.
func TestSmoke_AllEnvironments(t *testing.T) {
	for _, env := range []policy.Environment{
		policy.EnvDevelopment,
		policy.EnvStaging,
		policy.EnvProduction,
	} {
		t.Run(string(env), func(t *testing.T) {
			res := RunPipeline(t, ThreeTierYAML, pipeline.Options{Environment: env})
			assert.True(t, res.Validation.Pass())
			assert.NotEmpty(t, res.Manifests.Resources)
		})
	}
}

// TestSmoke_AllBudgets verifies every budget tier resolves resources.
func TestSmoke_AllBudgets(t *testing.T) {
	for _, budget := range []policy.Budget{
		policy.BudgetMinimal,
		policy.BudgetStandard,
		policy.BudgetPerformance,
		policy.BudgetEnterprise,
	} {
		t.Run(string(budget), func(t *testing.T) {
			res := RunPipeline(t, ThreeTierYAML, pipeline.Options{Budget: budget})
			for _, pol := range res.Policies {
				assert.NotEmpty(t, pol.Resources.CPURequest)
				assert.NotEmpty(t, pol.Resources.MemoryLimit)
			}
		})
	}
}

// TestSmoke_AllProviders verifies every provider yields a priced
// estimate without warnings.
func TestSmoke_AllProviders(t *testing.T) {
	for _, provider := range []string{"aws", "gcp", "azure", "digitalocean", "onprem"} {
		t.Run(provider, func(t *testing.T) {
			res := RunPipeline(t, ThreeTierYAML, pipeline.Options{Provider: provider})
			assert.Greater(t, res.Cost.Total, 0.0)
			assert.Empty(t, res.Cost.Warnings)
		})
	}
}
