package pattern

// =============================================================================
// Built-in Pattern Catalog
// =============================================================================

// Builtins returns the built-in pattern catalog in declaration order.
// Declaration order is the tie-breaker for primary pattern selection,
// so web precedes load-balancer: a plain nginx frontend classifies as a
// web workload unless upstream configuration tips the balance.
func Builtins() []Definition {
	return []Definition{
		{
			Name:      "web",
			Scope:     ScopeService,
			Threshold: 0.7,
			Indicators: []Indicator{
				{Kind: IndicatorImageContains, Weight: 0.4, Values: []string{
					"nginx", "apache", "httpd", "node", "python", "php", "ruby", "tomcat", "jetty",
				}},
				{Kind: IndicatorPortEquals, Weight: 0.3, Values: []string{"80", "443", "8080"}},
				{Kind: IndicatorEnvKeyContains, Weight: 0.2, Values: []string{"PORT", "HOST"}},
				{Kind: IndicatorHasPublishedPort, Weight: 0.1},
			},
		},
		{
			Name:      "database",
			Scope:     ScopeService,
			Threshold: 0.8,
			Indicators: []Indicator{
				{Kind: IndicatorImageContains, Weight: 0.5, Values: []string{
					"postgres", "mysql", "mariadb", "mongodb", "cassandra", "elasticsearch", "neo4j", "couchdb",
				}},
				{Kind: IndicatorEnvKeyContains, Weight: 0.3, Values: []string{"DATABASE", "DB_", "POSTGRES", "MYSQL"}},
				{Kind: IndicatorVolumeTargetHas, Weight: 0.2, Values: []string{"/var/lib", "/data"}},
			},
		},
		{
			Name:      "cache",
			Scope:     ScopeService,
			Threshold: 0.6,
			Indicators: []Indicator{
				{Kind: IndicatorImageContains, Weight: 0.6, Values: []string{
					"redis", "memcached", "hazelcast", "varnish",
				}},
				{Kind: IndicatorEnvKeyContains, Weight: 0.4, Values: []string{"REDIS", "CACHE"}},
			},
		},
		{
			Name:      "message-queue",
			Scope:     ScopeService,
			Threshold: 0.6,
			Indicators: []Indicator{
				{Kind: IndicatorImageContains, Weight: 0.6, Values: []string{
					"rabbitmq", "kafka", "activemq", "nats", "pulsar",
				}},
				{Kind: IndicatorEnvKeyContains, Weight: 0.4, Values: []string{"QUEUE", "RABBITMQ", "KAFKA"}},
			},
		},
		{
			Name:      "load-balancer",
			Scope:     ScopeService,
			Threshold: 0.8,
			Indicators: []Indicator{
				{Kind: IndicatorImageContains, Weight: 0.5, Values: []string{
					"nginx", "haproxy", "traefik", "envoy",
				}},
				{Kind: IndicatorPortEquals, Weight: 0.3, Values: []string{"80", "443"}},
				{Kind: IndicatorEnvKeyContains, Weight: 0.2, Values: []string{"UPSTREAM", "BACKEND"}},
			},
		},
		{
			Name:      "storage",
			Scope:     ScopeService,
			Threshold: 0.6,
			Indicators: []Indicator{
				{Kind: IndicatorImageContains, Weight: 0.6, Values: []string{"minio", "seaweedfs"}},
				{Kind: IndicatorEnvKeyContains, Weight: 0.2, Values: []string{"MINIO", "S3_"}},
				{Kind: IndicatorHasNamedVolume, Weight: 0.2},
			},
		},
		{
			Name:      "worker",
			Scope:     ScopeService,
			Threshold: 0.6,
			Indicators: []Indicator{
				{Kind: IndicatorImageContains, Weight: 0.6, Values: []string{"worker", "celery", "sidekiq", "resque"}},
				{Kind: IndicatorEnvKeyContains, Weight: 0.4, Values: []string{"WORKER", "CONCURRENCY"}},
			},
		},
		{
			Name:      "cron",
			Scope:     ScopeService,
			Threshold: 0.6,
			Indicators: []Indicator{
				{Kind: IndicatorImageContains, Weight: 0.6, Values: []string{"cron", "scheduler"}},
				{Kind: IndicatorEnvKeyContains, Weight: 0.4, Values: []string{"SCHEDULE", "CRON"}},
			},
		},
		{
			Name:      "proxy",
			Scope:     ScopeService,
			Threshold: 0.6,
			Indicators: []Indicator{
				{Kind: IndicatorImageContains, Weight: 0.6, Values: []string{"squid", "tinyproxy", "proxy"}},
				{Kind: IndicatorEnvKeyContains, Weight: 0.4, Values: []string{"PROXY"}},
			},
		},

		// Application-level patterns.
		{
			Name:      "three-tier",
			Scope:     ScopeApplication,
			Threshold: 0.9,
			Indicators: []Indicator{
				{Kind: IndicatorMatchedPattern, Weight: 0.4, Values: []string{"web"}},
				{Kind: IndicatorMatchedPattern, Weight: 0.3, Values: []string{"database"}},
				{Kind: IndicatorServiceCountAtLeast, Weight: 0.2, Values: []string{"3"}},
			},
		},
		{
			Name:      "microservices",
			Scope:     ScopeApplication,
			Threshold: 0.8,
			Indicators: []Indicator{
				{Kind: IndicatorServiceCountAtLeast, Weight: 0.4, Values: []string{"5"}},
				{Kind: IndicatorDistinctPatternsAtLeast, Weight: 0.2, Values: []string{"3"}},
				{Kind: IndicatorHasDependencyLinks, Weight: 0.2},
			},
		},
		{
			Name:      "monolith-with-database",
			Scope:     ScopeApplication,
			Threshold: 0.85,
			Indicators: []Indicator{
				{Kind: IndicatorServiceCountAtMost, Weight: 0.25, Values: []string{"3"}},
				{Kind: IndicatorMatchedPatternExactly, Weight: 0.3, Values: []string{"web", "1"}},
				{Kind: IndicatorMatchedPattern, Weight: 0.3, Values: []string{"database"}},
			},
		},
		{
			Name:      "event-driven",
			Scope:     ScopeApplication,
			Threshold: 0.8,
			Indicators: []Indicator{
				{Kind: IndicatorMatchedPattern, Weight: 0.4, Values: []string{"message-queue"}},
				{Kind: IndicatorDependsOnPattern, Weight: 0.4, Values: []string{"message-queue"}},
			},
		},
	}
}
