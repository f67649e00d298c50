// Package e2e provides end-to-end tests that run the full pipeline on
// realistic compose files and inspect the generated manifests.
package e2e

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stackform/stackform/internal/core/manifest"
	"github.com/stackform/stackform/internal/pipeline"
)

// =============================================================================
// Fixtures
// =============================================================================

// WordPressMySQLYAML is a classic two-service stack: a web frontend
// depending on a database with persistent storage and plain-text
// credentials.
const WordPressMySQLYAML = `
services:
  wordpress:
    image: wordpress:6.4
    ports:
      - "80:80"
    environment:
      WORDPRESS_DB_HOST: mysql
      WORDPRESS_DB_USER: wpuser
      WORDPRESS_DB_PASSWORD: wppassword
    depends_on:
      - mysql
  mysql:
    image: mysql:8.0
    environment:
      MYSQL_ROOT_PASSWORD: rootpass
      MYSQL_DATABASE: wordpress
    volumes:
      - dbdata:/var/lib/mysql
    healthcheck:
      test: ["CMD", "mysqladmin", "ping", "-h", "localhost"]
      interval: 10s
      timeout: 5s
      retries: 5
volumes:
  dbdata:
`

// ThreeTierYAML is a frontend / api / database / cache stack.
const ThreeTierYAML = `
services:
  frontend:
    image: nginx:1.25
    ports:
      - "80:80"
      - "443:443"
    depends_on:
      - api
  api:
    image: acme/api:2.3.1
    ports:
      - "8080:8080"
    environment:
      DATABASE_URL: postgres://db:5432/app
      REDIS_URL: redis://cache:6379
      API_TOKEN: abc123
    depends_on:
      - db
      - cache
  db:
    image: postgres:16.1
    environment:
      POSTGRES_PASSWORD: dbpass
    volumes:
      - pgdata:/var/lib/postgresql/data
  cache:
    image: redis:7.2
volumes:
  pgdata:
`

// MinimalYAML is the smallest valid input.
const MinimalYAML = `
services:
  app:
    image: alpine:3.20
`

// =============================================================================
// Helpers
// =============================================================================

// RunPipeline executes the full pipeline and fails the test on any
// fatal error.
func RunPipeline(t *testing.T, composeYAML string, opts pipeline.Options) *pipeline.Result {
	t.Helper()
	res, err := pipeline.Run([]byte(composeYAML), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Manifests)
	return res
}

// FindResource returns the generated resource with the given kind and
// name, failing the test if it is absent.
func FindResource(t *testing.T, set *manifest.Set, kind, name string) manifest.Resource {
	t.Helper()
	for _, r := range set.Resources {
		if r.Kind == kind && r.Name == name {
			return r
		}
	}
	t.Fatalf("resource %s/%s not found; have %d resources", kind, name, len(set.Resources))
	return manifest.Resource{}
}

// HasResource reports whether the set contains a resource with the
// given kind and name.
func HasResource(set *manifest.Set, kind, name string) bool {
	for _, r := range set.Resources {
		if r.Kind == kind && r.Name == name {
			return true
		}
	}
	return false
}
