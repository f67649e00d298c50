package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform/stackform/internal/core/compose"
	"github.com/stackform/stackform/internal/core/pattern"
)

func webMatch() *pattern.Match {
	return &pattern.Match{Pattern: "web", Scope: pattern.ScopeService, Confidence: 0.8}
}

func dbMatch() *pattern.Match {
	return &pattern.Match{Pattern: "database", Scope: pattern.ScopeService, Confidence: 1.0}
}

func prodInputs() Inputs {
	return Inputs{
		Environment:   EnvProduction,
		Budget:        BudgetStandard,
		SecurityLevel: SecurityEnhanced,
	}
}

func TestResolve_WebProduction(t *testing.T) {
	svc := &compose.ServiceSpec{
		ID:    "web",
		Image: compose.ParseImageRef("nginx:1.20"),
		Ports: []compose.Port{{Target: 80, Published: 80, Protocol: "tcp"}},
	}

	p := Resolve(svc, webMatch(), prodInputs())

	assert.Equal(t, WorkloadStateless, p.Workload)
	assert.Equal(t, int32(2), p.Replicas)
	assert.True(t, p.Autoscaling.Enabled)
	assert.Equal(t, int32(2), p.Autoscaling.MinReplicas)
	assert.Equal(t, int32(10), p.Autoscaling.MaxReplicas)
	assert.Equal(t, int32(70), p.Autoscaling.TargetCPUPercent)
	assert.True(t, p.ExposeExternally)

	// Table defaults for the (web, standard) row.
	assert.Equal(t, "100m", p.Resources.CPURequest)
	assert.Equal(t, "500m", p.Resources.CPULimit)
	assert.Equal(t, "128Mi", p.Resources.MemoryRequest)
	assert.Equal(t, "512Mi", p.Resources.MemoryLimit)

	require.NotNil(t, p.Liveness)
	assert.Equal(t, ProbeHTTPGet, p.Liveness.Kind)
	assert.Equal(t, uint32(80), p.Liveness.Port)
	require.NotNil(t, p.Readiness)
	assert.Equal(t, int32(5), p.Readiness.InitialDelaySecs)
}

func TestResolve_DeclaredHintsWin(t *testing.T) {
	replicas := 4
	svc := &compose.ServiceSpec{
		ID:    "api",
		Image: compose.ParseImageRef("node:20"),
		Ports: []compose.Port{{Target: 8080}},
		Resources: compose.ResourceHints{
			CPULimit:    "2",
			MemoryLimit: "2Gi",
			Replicas:    &replicas,
		},
	}

	p := Resolve(svc, webMatch(), prodInputs())

	assert.Equal(t, "2", p.Resources.CPULimit)
	assert.Equal(t, "2Gi", p.Resources.MemoryLimit)
	// Undeclared fields still come from the table.
	assert.Equal(t, "100m", p.Resources.CPURequest)
	assert.Equal(t, int32(4), p.Replicas)
}

func TestResolve_DeclaredRequestRaisesTableLimit(t *testing.T) {
	svc := &compose.ServiceSpec{
		ID:    "app",
		Image: compose.ParseImageRef("node:20"),
		Resources: compose.ResourceHints{
			CPURequest:    "2",
			MemoryRequest: "1Gi",
		},
	}

	p := Resolve(svc, webMatch(), prodInputs())

	// The (web, standard) limits of 500m/512Mi would sit below the
	// declared requests; the limits follow the requests up.
	assert.Equal(t, "2", p.Resources.CPURequest)
	assert.Equal(t, "2", p.Resources.CPULimit)
	assert.Equal(t, "1Gi", p.Resources.MemoryRequest)
	assert.Equal(t, "1Gi", p.Resources.MemoryLimit)
}

func TestResolve_DeclaredLimitNeverRaised(t *testing.T) {
	svc := &compose.ServiceSpec{
		ID:    "app",
		Image: compose.ParseImageRef("node:20"),
		Resources: compose.ResourceHints{
			CPURequest: "2",
			CPULimit:   "1",
		},
	}

	p := Resolve(svc, webMatch(), prodInputs())

	// Both sides declared: keep them as-is and let validation flag the
	// inverted pair.
	assert.Equal(t, "2", p.Resources.CPURequest)
	assert.Equal(t, "1", p.Resources.CPULimit)
}

func TestResolve_VolumeClaimsDedupedPerSource(t *testing.T) {
	svc := &compose.ServiceSpec{
		ID:    "db",
		Image: compose.ParseImageRef("postgres:15"),
		Volumes: []compose.VolumeMount{
			{Type: compose.VolumeMountTypeVolume, Source: "pgdata", Target: "/var/lib/postgresql/data"},
			{Type: compose.VolumeMountTypeVolume, Source: "pgdata", Target: "/backup"},
			{Type: compose.VolumeMountTypeVolume, Source: "wal", Target: "/wal"},
			{Type: compose.VolumeMountTypeBind, Source: "/tmp/scratch", Target: "/scratch"},
		},
	}

	p := Resolve(svc, dbMatch(), prodInputs())

	require.Len(t, p.VolumeClaims, 2)
	assert.Equal(t, VolumeClaim{Volume: "pgdata", SizeGi: 50}, p.VolumeClaims[0])
	assert.Equal(t, VolumeClaim{Volume: "wal", SizeGi: 50}, p.VolumeClaims[1])
}

func TestResolve_StorageServiceIsStateful(t *testing.T) {
	svc := &compose.ServiceSpec{
		ID:    "objects",
		Image: compose.ParseImageRef("minio/minio:RELEASE.2024-01-16"),
		Volumes: []compose.VolumeMount{
			{Type: compose.VolumeMountTypeVolume, Source: "objects", Target: "/data"},
		},
	}

	p := Resolve(svc, &pattern.Match{Pattern: "storage", Scope: pattern.ScopeService, Confidence: 1.0}, prodInputs())

	assert.Equal(t, WorkloadStateful, p.Workload)
	require.Len(t, p.VolumeClaims, 1)
	assert.Equal(t, 50, p.VolumeClaims[0].SizeGi)
}

func TestResolve_StatefulDatabaseSingleReplica(t *testing.T) {
	svc := &compose.ServiceSpec{
		ID:    "db",
		Image: compose.ParseImageRef("postgres:15"),
		Ports: []compose.Port{{Target: 5432}},
		Volumes: []compose.VolumeMount{
			{Type: compose.VolumeMountTypeVolume, Source: "pgdata", Target: "/var/lib/postgresql/data"},
		},
	}

	p := Resolve(svc, dbMatch(), prodInputs())

	assert.Equal(t, WorkloadStateful, p.Workload)
	assert.Equal(t, int32(1), p.Replicas)
	assert.False(t, p.Autoscaling.Enabled)
	assert.False(t, p.ExposeExternally)

	require.NotNil(t, p.Liveness)
	assert.Equal(t, ProbeTCPSocket, p.Liveness.Kind)
	assert.Equal(t, uint32(5432), p.Liveness.Port)
}

func TestResolve_ClusteredDatabaseGetsThreeReplicas(t *testing.T) {
	svc := &compose.ServiceSpec{
		ID:    "db",
		Image: compose.ParseImageRef("postgres:15"),
		Environment: []compose.EnvVar{
			{Key: "POSTGRES_REPLICATION_MODE", Value: "master"},
		},
		Volumes: []compose.VolumeMount{
			{Type: compose.VolumeMountTypeVolume, Source: "pgdata", Target: "/var/lib/postgresql/data"},
		},
	}

	p := Resolve(svc, dbMatch(), prodInputs())

	assert.Equal(t, WorkloadStateful, p.Workload)
	assert.Equal(t, int32(3), p.Replicas)
}

func TestResolve_NonProductionBounds(t *testing.T) {
	svc := &compose.ServiceSpec{ID: "web", Image: compose.ParseImageRef("nginx:1.20")}

	p := Resolve(svc, webMatch(), Inputs{
		Environment:   EnvDevelopment,
		Budget:        BudgetStandard,
		SecurityLevel: SecurityBasic,
	})

	assert.Equal(t, int32(1), p.Replicas)
	assert.Equal(t, int32(3), p.Autoscaling.MaxReplicas)
	assert.False(t, p.Autoscaling.Enabled)
	assert.False(t, p.ExposeExternally)
	assert.Nil(t, p.SecurityContext)
	assert.False(t, p.NeedsNetworkPolicy)
}

func TestResolve_AutoscalingRequestedOverridesEnvironment(t *testing.T) {
	svc := &compose.ServiceSpec{ID: "web", Image: compose.ParseImageRef("nginx:1.20")}

	p := Resolve(svc, webMatch(), Inputs{
		Environment:        EnvDevelopment,
		Budget:             BudgetStandard,
		SecurityLevel:      SecurityBasic,
		AutoscaleRequested: true,
		MinReplicas:        2,
		MaxReplicas:        6,
	})

	assert.True(t, p.Autoscaling.Enabled)
	assert.Equal(t, int32(2), p.Autoscaling.MinReplicas)
	assert.Equal(t, int32(6), p.Autoscaling.MaxReplicas)
}

func TestResolve_DeclaredHealthCheckBecomesExecProbe(t *testing.T) {
	svc := &compose.ServiceSpec{
		ID:    "api",
		Image: compose.ParseImageRef("acme/api:v1"),
		HealthCheck: &compose.HealthCheck{
			Test:    []string{"CMD", "curl", "-f", "http://localhost/health"},
			Retries: 5,
		},
	}

	p := Resolve(svc, webMatch(), prodInputs())

	require.NotNil(t, p.Liveness)
	assert.Equal(t, ProbeExec, p.Liveness.Kind)
	assert.Equal(t, []string{"curl", "-f", "http://localhost/health"}, p.Liveness.Command)
	assert.Equal(t, int32(5), p.Liveness.FailureThreshold)
}

func TestResolve_CmdShellHealthCheck(t *testing.T) {
	svc := &compose.ServiceSpec{
		ID:    "db",
		Image: compose.ParseImageRef("postgres:15"),
		HealthCheck: &compose.HealthCheck{
			Test: []string{"CMD-SHELL", "pg_isready -U postgres"},
		},
	}

	p := Resolve(svc, dbMatch(), prodInputs())

	require.NotNil(t, p.Liveness)
	assert.Equal(t, []string{"/bin/sh", "-c", "pg_isready -U postgres"}, p.Liveness.Command)
}

func TestResolve_NoPortsNoHealthCheckNoProbes(t *testing.T) {
	svc := &compose.ServiceSpec{ID: "batch", Image: compose.ParseImageRef("acme/batch:1")}

	p := Resolve(svc, nil, prodInputs())

	assert.Nil(t, p.Liveness)
	assert.Nil(t, p.Readiness)
	assert.Equal(t, "", p.Pattern)
	// Default sizing row applies when no pattern matched.
	assert.Equal(t, "100m", p.Resources.CPURequest)
}

func TestResolve_SecurityContexts(t *testing.T) {
	svc := &compose.ServiceSpec{ID: "web", Image: compose.ParseImageRef("nginx:1.20")}

	basic := Resolve(svc, webMatch(), Inputs{Environment: EnvProduction, Budget: BudgetStandard, SecurityLevel: SecurityBasic})
	assert.Nil(t, basic.SecurityContext)
	assert.False(t, basic.NeedsNetworkPolicy)

	enhanced := Resolve(svc, webMatch(), Inputs{Environment: EnvProduction, Budget: BudgetStandard, SecurityLevel: SecurityEnhanced})
	require.NotNil(t, enhanced.SecurityContext)
	assert.True(t, enhanced.SecurityContext.RunAsNonRoot)
	assert.False(t, enhanced.SecurityContext.ReadOnlyRootFilesystem)
	assert.True(t, enhanced.NeedsNetworkPolicy)

	strict := Resolve(svc, webMatch(), Inputs{Environment: EnvProduction, Budget: BudgetStandard, SecurityLevel: SecurityStrict})
	require.NotNil(t, strict.SecurityContext)
	assert.True(t, strict.SecurityContext.ReadOnlyRootFilesystem)
	assert.True(t, strict.SecurityContext.DropAllCapabilities)
	assert.True(t, strict.RequireLimitsStrict)
}

func TestResolve_BudgetTiers(t *testing.T) {
	svc := &compose.ServiceSpec{ID: "db", Image: compose.ParseImageRef("postgres:15")}

	minimal := Resolve(svc, dbMatch(), Inputs{Environment: EnvProduction, Budget: BudgetMinimal, SecurityLevel: SecurityBasic})
	assert.Equal(t, "100m", minimal.Resources.CPURequest)

	enterprise := Resolve(svc, dbMatch(), Inputs{Environment: EnvProduction, Budget: BudgetEnterprise, SecurityLevel: SecurityBasic})
	assert.Equal(t, "1", enterprise.Resources.CPURequest)
	assert.Equal(t, "4Gi", enterprise.Resources.MemoryLimit)
}
