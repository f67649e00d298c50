// Package main provides the stackform binary.
//
// stackform reads a compose file, classifies the services it declares,
// and generates hardened Kubernetes manifests plus security and cost
// reports.
//
// Usage:
//
//	stackform <command> <compose-file> [flags]
//
// Commands:
//
//	convert   - Generate Kubernetes manifests
//	analyze   - Show detected patterns and startup order
//	scan      - Run the security scan
//	cost      - Estimate monthly infrastructure cost
//	validate  - Generate and validate without writing output
//	version   - Show version
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/stackform/stackform/internal/core/compose"
	"github.com/stackform/stackform/internal/core/graph"
	"github.com/stackform/stackform/internal/core/manifest"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess          = 0
	ExitConfigError      = 1
	ExitParseError       = 2
	ExitGenerationError  = 3
	ExitValidationError  = 4
	ExitSecurityFindings = 5
)

// Sentinel errors commands return so run can pick the exit code.
var (
	errValidationFailed = errors.New("validation failed")
	errSecurityFindings = errors.New("security findings at or above threshold")
)

func main() {
	os.Exit(run())
}

func run() int {
	root, err := newRootCmd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		var parseErr *compose.ParseError
		var genErr *manifest.GenerationError
		switch {
		case errors.As(err, &parseErr):
			return ExitParseError
		case errors.As(err, &genErr), errors.Is(err, graph.ErrDependencyCycle),
			errors.Is(err, graph.ErrUnknownDependency):
			return ExitGenerationError
		case errors.Is(err, errValidationFailed):
			return ExitValidationError
		case errors.Is(err, errSecurityFindings):
			return ExitSecurityFindings
		default:
			return ExitConfigError
		}
	}

	return ExitSuccess
}
