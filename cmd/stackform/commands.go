package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stackform/stackform/internal/core/policy"
	"github.com/stackform/stackform/internal/core/security"
	"github.com/stackform/stackform/internal/pipeline"
	"github.com/stackform/stackform/internal/shell/output"
)

// app carries state shared by every command after configuration loads.
type app struct {
	cfg    *Config
	logger *slog.Logger
}

// =============================================================================
// Root Command
// =============================================================================

func newRootCmd() (*cobra.Command, error) {
	a := &app{}

	var configPath string
	root := &cobra.Command{
		Use:   "stackform",
		Short: "Generate Kubernetes manifests from compose files",
		Long: "stackform reads a compose file, classifies its services, and generates\n" +
			"hardened Kubernetes manifests plus security and cost reports.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = SetupLogger(cfg).With("run_id", uuid.NewString())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	root.AddCommand(
		newConvertCmd(a),
		newAnalyzeCmd(a),
		newScanCmd(a),
		newCostCmd(a),
		newValidateCmd(a),
		newVersionCmd(),
	)
	return root, nil
}

// addGenerateFlags registers the knobs every pipeline-running command
// shares. Empty string defaults mean "use the config file value".
func addGenerateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("environment", "", "Target environment: development, staging, production")
	f.String("provider", "", "Cloud provider for cost estimation")
	f.String("region", "", "Cloud region for cost estimation")
	f.String("security-level", "", "Security level: basic, enhanced, strict, custom")
	f.String("budget", "", "Budget tier: minimal, standard, performance")
	f.String("namespace", "", "Target Kubernetes namespace")
	f.String("domain", "", "Base domain for generated ingress hosts")
	f.Bool("autoscale", false, "Enable autoscaling for stateless services")
	f.Int32("min-replicas", 0, "Minimum replica count (0 = pattern default)")
	f.Int32("max-replicas", 0, "Maximum replica count (0 = pattern default)")
	f.Bool("strict", false, "Enable strict validation")
	f.Bool("refuse-on-cycle", false, "Fail instead of warning on dependency cycles")
	f.StringSlice("allow-host-path", nil, "Host path prefixes allowed in strict mode")
	f.String("patterns", "", "Path to a custom pattern catalog (YAML)")
	f.String("min-severity", "", "Lowest severity to report: low, medium, high, critical")
	f.Float64("egress-gib", 0, "Assumed monthly egress GiB per exposed service (0 = default)")
}

// options builds pipeline options from flags, falling back to config
// file defaults for anything unset.
func (a *app) options(cmd *cobra.Command) (pipeline.Options, error) {
	f := cmd.Flags()
	pick := func(flag, fallback string) string {
		if v, _ := f.GetString(flag); v != "" {
			return v
		}
		return fallback
	}

	opts := pipeline.Options{
		Environment:   policy.Environment(pick("environment", a.cfg.Defaults.Environment)),
		Provider:      pick("provider", a.cfg.Defaults.Provider),
		Region:        pick("region", a.cfg.Defaults.Region),
		SecurityLevel: policy.SecurityLevel(pick("security-level", a.cfg.Defaults.SecurityLevel)),
		Budget:        policy.Budget(pick("budget", a.cfg.Defaults.Budget)),
		Namespace:     pick("namespace", a.cfg.Defaults.Namespace),
		Domain:        pick("domain", a.cfg.Defaults.Domain),
	}
	if !opts.Environment.Valid() {
		return opts, fmt.Errorf("unknown environment %q", opts.Environment)
	}
	if !opts.SecurityLevel.Valid() {
		return opts, fmt.Errorf("unknown security level %q", opts.SecurityLevel)
	}
	if !opts.Budget.Valid() {
		return opts, fmt.Errorf("unknown budget %q", opts.Budget)
	}

	opts.Autoscale, _ = f.GetBool("autoscale")
	opts.MinReplicas, _ = f.GetInt32("min-replicas")
	opts.MaxReplicas, _ = f.GetInt32("max-replicas")
	opts.Strict, _ = f.GetBool("strict")
	opts.RefuseOnCycle, _ = f.GetBool("refuse-on-cycle")
	opts.EgressGiBPerService, _ = f.GetFloat64("egress-gib")
	opts.HostPathAllowlist, _ = f.GetStringSlice("allow-host-path")

	if minSev, _ := f.GetString("min-severity"); minSev != "" {
		opts.MinSeverity = security.ParseSeverity(minSev)
	}

	if patternsPath, _ := f.GetString("patterns"); patternsPath != "" {
		doc, err := os.ReadFile(patternsPath)
		if err != nil {
			return opts, fmt.Errorf("failed to read pattern catalog: %w", err)
		}
		opts.CustomPatterns = doc
	}
	return opts, nil
}

// runPipeline reads the compose file and executes the full pipeline.
func (a *app) runPipeline(cmd *cobra.Command, composePath string) (*pipeline.Result, pipeline.Options, error) {
	opts, err := a.options(cmd)
	if err != nil {
		return nil, opts, err
	}
	doc, err := os.ReadFile(composePath)
	if err != nil {
		return nil, opts, fmt.Errorf("failed to read compose file: %w", err)
	}

	a.logger.Info("running pipeline",
		"compose", composePath,
		"environment", opts.Environment,
		"provider", opts.Provider,
	)
	res, err := pipeline.Run(doc, opts)
	if err != nil {
		return res, opts, err
	}
	a.logger.Info("pipeline complete",
		"services", len(res.Model.Services),
		"resources", len(res.Manifests.Resources),
		"findings", len(res.Security.Reported),
		"warnings", len(res.Warnings),
	)
	return res, opts, nil
}

// =============================================================================
// Commands
// =============================================================================

func newConvertCmd(a *app) *cobra.Command {
	var outDir, outFile string
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "convert <compose-file>",
		Short: "Generate Kubernetes manifests from a compose file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _, err := a.runPipeline(cmd, args[0])
			if err != nil {
				return err
			}

			printer := output.NewPrinter(os.Stderr)
			printer.Summary(res)
			if !res.Validation.Pass() {
				return errValidationFailed
			}

			writer := output.NewWriter(a.logger)
			switch {
			case toStdout:
				return writer.WriteStream(os.Stdout, res.Manifests)
			case outFile != "":
				return writer.WriteFile(outFile, res.Manifests)
			default:
				dir := outDir
				if dir == "" {
					dir = a.cfg.Output.Dir
				}
				return writer.WriteDirectory(dir, res.Manifests)
			}
		},
	}
	addGenerateFlags(cmd)
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Directory to write one manifest file per resource")
	cmd.Flags().StringVar(&outFile, "output-file", "", "Write all manifests to a single file")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the manifest stream to stdout")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <compose-file>",
		Short: "Show detected patterns, policies, and startup order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _, err := a.runPipeline(cmd, args[0])
			if err != nil {
				return err
			}
			printer := output.NewPrinter(os.Stdout)
			printer.Services(res)
			printer.Warnings(res.Warnings)
			return nil
		},
	}
	addGenerateFlags(cmd)
	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	var failOn string

	cmd := &cobra.Command{
		Use:   "scan <compose-file>",
		Short: "Run the security scan against a compose file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _, err := a.runPipeline(cmd, args[0])
			if err != nil {
				return err
			}
			printer := output.NewPrinter(os.Stdout)
			printer.Security(res.Security)

			if failOn != "" {
				threshold := security.ParseSeverity(failOn)
				for _, f := range res.Security.Reported {
					if f.Severity >= threshold {
						return errSecurityFindings
					}
				}
			}
			return nil
		},
	}
	addGenerateFlags(cmd)
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero when findings reach this severity")
	return cmd
}

func newCostCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost <compose-file>",
		Short: "Estimate monthly infrastructure cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _, err := a.runPipeline(cmd, args[0])
			if err != nil {
				return err
			}
			printer := output.NewPrinter(os.Stdout)
			printer.Cost(res.Cost)
			printer.Warnings(res.Warnings)
			return nil
		},
	}
	addGenerateFlags(cmd)
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <compose-file>",
		Short: "Generate and validate manifests without writing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _, err := a.runPipeline(cmd, args[0])
			if err != nil {
				return err
			}
			printer := output.NewPrinter(os.Stdout)
			printer.Validation(res)
			if !res.Validation.Pass() {
				return errValidationFailed
			}
			return nil
		},
	}
	addGenerateFlags(cmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stackform %s (built %s)\n", Version, BuildTime)
		},
	}
}
