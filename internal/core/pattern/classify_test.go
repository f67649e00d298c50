package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform/stackform/internal/core/compose"
)

// =============================================================================
// Test Helpers
// =============================================================================

func webService(id string) compose.ServiceSpec {
	return compose.ServiceSpec{
		ID:    id,
		Image: compose.ParseImageRef("nginx:1.20"),
		Ports: []compose.Port{{Target: 80, Published: 80, Protocol: "tcp"}},
	}
}

func dbService(id string) compose.ServiceSpec {
	return compose.ServiceSpec{
		ID:    id,
		Image: compose.ParseImageRef("postgres:15"),
		Environment: []compose.EnvVar{
			{Key: "POSTGRES_PASSWORD", Value: "hunter2", Sensitive: true},
		},
		Volumes: []compose.VolumeMount{
			{Type: compose.VolumeMountTypeVolume, Source: "pgdata", Target: "/var/lib/postgresql/data"},
		},
	}
}

func cacheService(id string) compose.ServiceSpec {
	return compose.ServiceSpec{
		ID:    id,
		Image: compose.ParseImageRef("redis:7.2"),
	}
}

func queueService(id string) compose.ServiceSpec {
	return compose.ServiceSpec{
		ID:    id,
		Image: compose.ParseImageRef("rabbitmq:3.12"),
	}
}

// =============================================================================
// Service Scope Tests
// =============================================================================

func TestClassify_WebWorkload(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{webService("web")}}

	res := Classify(model, nil)

	primary := res.Primary("web")
	require.NotNil(t, primary)
	assert.Equal(t, "web", primary.Pattern)
	assert.Greater(t, primary.Confidence, 0.0)
	assert.LessOrEqual(t, primary.Confidence, 1.0)
}

func TestClassify_WebBeatsLoadBalancerOnTie(t *testing.T) {
	// Plain nginx on port 80 scores 0.8 for both web and load-balancer;
	// declaration order makes web primary.
	model := &compose.Model{Services: []compose.ServiceSpec{webService("front")}}

	res := Classify(model, nil)

	primary := res.Primary("front")
	require.NotNil(t, primary)
	assert.Equal(t, "web", primary.Pattern)
}

func TestClassify_LoadBalancerWithUpstreamConfig(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{{
		ID:    "lb",
		Image: compose.ParseImageRef("haproxy:2.8"),
		Ports: []compose.Port{{Target: 443, Published: 443, Protocol: "tcp"}},
		Environment: []compose.EnvVar{
			{Key: "BACKEND_SERVERS", Value: "api:3000"},
		},
	}}}

	res := Classify(model, nil)

	primary := res.Primary("lb")
	require.NotNil(t, primary)
	assert.Equal(t, "load-balancer", primary.Pattern)
	assert.InDelta(t, 1.0, primary.Confidence, 1e-9)
}

func TestClassify_Database(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{dbService("db")}}

	res := Classify(model, nil)

	primary := res.Primary("db")
	require.NotNil(t, primary)
	assert.Equal(t, "database", primary.Pattern)
	assert.InDelta(t, 1.0, primary.Confidence, 1e-9)
}

func TestClassify_CacheByImageAlone(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{cacheService("cache")}}

	res := Classify(model, nil)

	primary := res.Primary("cache")
	require.NotNil(t, primary)
	assert.Equal(t, "cache", primary.Pattern)
	assert.InDelta(t, 0.6, primary.Confidence, 1e-9)
}

func TestClassify_MessageQueue(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{queueService("broker")}}

	res := Classify(model, nil)

	primary := res.Primary("broker")
	require.NotNil(t, primary)
	assert.Equal(t, "message-queue", primary.Pattern)
}

func TestClassify_StorageService(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{{
		ID:    "objects",
		Image: compose.ParseImageRef("minio/minio:RELEASE.2024-01-16"),
		Environment: []compose.EnvVar{
			{Key: "MINIO_ROOT_USER", Value: "minio"},
		},
		Volumes: []compose.VolumeMount{
			{Type: compose.VolumeMountTypeVolume, Source: "objects", Target: "/data"},
		},
	}}}

	res := Classify(model, nil)

	primary := res.Primary("objects")
	require.NotNil(t, primary)
	assert.Equal(t, "storage", primary.Pattern)
	assert.InDelta(t, 1.0, primary.Confidence, 1e-9)
}

func TestClassify_WorkerService(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{{
		ID:    "jobs",
		Image: compose.ParseImageRef("acme/sidekiq:7"),
		Environment: []compose.EnvVar{
			{Key: "WORKER_CONCURRENCY", Value: "8"},
		},
	}}}

	res := Classify(model, nil)

	primary := res.Primary("jobs")
	require.NotNil(t, primary)
	assert.Equal(t, "worker", primary.Pattern)
}

func TestClassify_CronService(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{{
		ID:    "reports",
		Image: compose.ParseImageRef("acme/report-scheduler:2"),
		Environment: []compose.EnvVar{
			{Key: "SCHEDULE", Value: "0 3 * * *"},
		},
	}}}

	res := Classify(model, nil)

	primary := res.Primary("reports")
	require.NotNil(t, primary)
	assert.Equal(t, "cron", primary.Pattern)
}

func TestClassify_ProxyService(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{{
		ID:    "egress",
		Image: compose.ParseImageRef("ubuntu/squid:5.2"),
	}}}

	res := Classify(model, nil)

	primary := res.Primary("egress")
	require.NotNil(t, primary)
	assert.Equal(t, "proxy", primary.Pattern)
}

func TestClassify_NoMatchForUnknownService(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{{
		ID:    "batch",
		Image: compose.ParseImageRef("acme/batch-job:4"),
	}}}

	res := Classify(model, nil)

	assert.Nil(t, res.Primary("batch"))
	assert.Empty(t, res.ByService["batch"])
}

// =============================================================================
// Application Scope Tests
// =============================================================================

func TestClassify_ThreeTier(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{
		webService("web"),
		{ID: "api", Image: compose.ParseImageRef("node:20"), Ports: []compose.Port{{Target: 8080}}},
		dbService("db"),
	}}

	res := Classify(model, nil)

	require.NotEmpty(t, res.App)
	names := make([]string, 0, len(res.App))
	for _, m := range res.App {
		names = append(names, m.Pattern)
	}
	assert.Contains(t, names, "three-tier")
}

func TestClassify_MonolithWithDatabase(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{
		webService("app"),
		dbService("db"),
	}}

	res := Classify(model, nil)

	names := make([]string, 0, len(res.App))
	for _, m := range res.App {
		names = append(names, m.Pattern)
	}
	assert.Contains(t, names, "monolith-with-database")
}

func TestClassify_EventDriven(t *testing.T) {
	model := &compose.Model{Services: []compose.ServiceSpec{
		{ID: "consumer", Image: compose.ParseImageRef("acme/consumer:1"), DependsOn: []string{"broker"}},
		queueService("broker"),
	}}

	res := Classify(model, nil)

	names := make([]string, 0, len(res.App))
	for _, m := range res.App {
		names = append(names, m.Pattern)
	}
	assert.Contains(t, names, "event-driven")
}

func TestClassify_MicroservicesNeedsFiveServices(t *testing.T) {
	small := &compose.Model{Services: []compose.ServiceSpec{
		webService("web"), dbService("db"), cacheService("cache"),
	}}
	res := Classify(small, nil)
	for _, m := range res.App {
		assert.NotEqual(t, "microservices", m.Pattern)
	}

	big := &compose.Model{Services: []compose.ServiceSpec{
		webService("web"),
		{ID: "api", Image: compose.ParseImageRef("node:20"), Ports: []compose.Port{{Target: 8080}}, DependsOn: []string{"db"}},
		dbService("db"),
		cacheService("cache"),
		queueService("broker"),
	}}
	res = Classify(big, nil)
	names := make([]string, 0, len(res.App))
	for _, m := range res.App {
		names = append(names, m.Pattern)
	}
	assert.Contains(t, names, "microservices")
}

// =============================================================================
// Custom Definition Tests
// =============================================================================

func TestClassify_CustomDefinition(t *testing.T) {
	custom := []Definition{{
		Name:      "worker",
		Scope:     ScopeService,
		Threshold: 0.5,
		Indicators: []Indicator{
			{Kind: IndicatorImageContains, Weight: 0.6, Values: []string{"celery"}},
		},
	}}
	model := &compose.Model{Services: []compose.ServiceSpec{{
		ID:    "jobs",
		Image: compose.ParseImageRef("acme/celery-worker:5"),
	}}}

	res := Classify(model, custom)

	primary := res.Primary("jobs")
	require.NotNil(t, primary)
	assert.Equal(t, "worker", primary.Pattern)
	assert.Empty(t, res.Warnings)
}

func TestClassify_MalformedCustomSkippedWithWarning(t *testing.T) {
	custom := []Definition{{
		Name:      "broken",
		Scope:     "galaxy",
		Threshold: 0.5,
		Indicators: []Indicator{
			{Kind: IndicatorImageContains, Weight: 0.5, Values: []string{"x"}},
		},
	}}
	model := &compose.Model{Services: []compose.ServiceSpec{webService("web")}}

	res := Classify(model, custom)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "broken")
	// Built-ins still apply.
	assert.NotNil(t, res.Primary("web"))
}

func TestClassify_ZeroWeightNeverMatches(t *testing.T) {
	custom := []Definition{{
		Name:      "ghost",
		Scope:     ScopeService,
		Threshold: 0,
		Indicators: []Indicator{
			{Kind: IndicatorImageContains, Weight: 0, Values: []string{"nginx"}},
		},
	}}
	model := &compose.Model{Services: []compose.ServiceSpec{webService("web")}}

	res := Classify(model, custom)

	for _, m := range res.ByService["web"] {
		assert.NotEqual(t, "ghost", m.Pattern)
	}
}

func TestLoadCustom(t *testing.T) {
	doc := []byte(`
patterns:
  - name: worker
    scope: service
    threshold: 0.5
    indicators:
      - kind: image-contains
        values: [celery, sidekiq]
        weight: 0.5
  - name: nameless
    scope: service
    threshold: 0.5
    indicators: []
`)
	defs, warnings := LoadCustom(doc)
	require.Len(t, defs, 1)
	assert.Equal(t, "worker", defs[0].Name)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "indicator")
}

func TestLoadCustom_InvalidYAML(t *testing.T) {
	defs, warnings := LoadCustom([]byte("patterns: [unclosed"))
	assert.Nil(t, defs)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "invalid YAML")
}
