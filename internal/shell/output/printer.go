package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/stackform/stackform/internal/core/cost"
	"github.com/stackform/stackform/internal/core/security"
	"github.com/stackform/stackform/internal/pipeline"
)

// Printer renders run reports for a terminal. Colors degrade to plain
// text automatically when the destination is not a TTY.
type Printer struct {
	out io.Writer

	heading  *color.Color
	good     *color.Color
	warning  *color.Color
	bad      *color.Color
	critical *color.Color
	dim      *color.Color
}

// NewPrinter creates a report printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:      out,
		heading:  color.New(color.Bold),
		good:     color.New(color.FgGreen),
		warning:  color.New(color.FgYellow),
		bad:      color.New(color.FgRed),
		critical: color.New(color.FgRed, color.Bold),
		dim:      color.New(color.Faint),
	}
}

// Summary prints the full run report: services, patterns, security
// findings, cost estimate, and the validation verdict.
func (p *Printer) Summary(res *pipeline.Result) {
	p.Services(res)
	p.Security(res.Security)
	p.Cost(res.Cost)
	p.Validation(res)
	p.Warnings(res.Warnings)
}

// Services prints one line per service: startup order, detected
// pattern, workload kind, and replica count.
func (p *Printer) Services(res *pipeline.Result) {
	p.heading.Fprintln(p.out, "Services")
	for _, id := range res.Graph.Order {
		pol := res.Policies[id]
		patternName := "unclassified"
		confidence := ""
		if m := res.Patterns.Primary(id); m != nil {
			patternName = m.Pattern
			confidence = fmt.Sprintf(" (%.0f%%)", m.Confidence*100)
		}
		fmt.Fprintf(p.out, "  %-20s %s%s  %s x%d\n",
			id, patternName, confidence, pol.Workload, pol.Replicas)
	}
	for _, m := range res.Patterns.App {
		p.dim.Fprintf(p.out, "  architecture: %s (%.0f%%)\n", m.Pattern, m.Confidence*100)
	}
	fmt.Fprintln(p.out)
}

// Security prints the filtered findings grouped under a severity tally.
func (p *Printer) Security(report *security.Report) {
	p.heading.Fprintln(p.out, "Security")
	if len(report.Reported) == 0 {
		p.good.Fprintln(p.out, "  no findings")
		fmt.Fprintln(p.out)
		return
	}
	fmt.Fprintf(p.out, "  %d critical, %d high, %d medium, %d low\n",
		report.Critical, report.High, report.Medium, report.Low)
	for _, f := range report.Reported {
		p.severityColor(f.Severity).Fprintf(p.out, "  [%s] ", f.Severity)
		fmt.Fprintf(p.out, "%s %s: %s\n", f.RuleID, f.ServiceID, f.Title)
		if f.Description != "" {
			p.dim.Fprintf(p.out, "         %s\n", f.Description)
		}
	}
	fmt.Fprintln(p.out)
}

// Cost prints the monthly estimate with per-service compute lines.
func (p *Printer) Cost(b *cost.Breakdown) {
	p.heading.Fprintf(p.out, "Estimated monthly cost (%s", b.Provider)
	if b.Region != "" {
		p.heading.Fprintf(p.out, ", %s", b.Region)
	}
	p.heading.Fprintln(p.out, ")")
	for _, s := range b.Services {
		fmt.Fprintf(p.out, "  %-20s $%8.2f  (x%d)\n", s.ServiceID, cost.Round(s.Monthly), s.Replicas)
	}
	p.costLine("compute", b.Compute)
	p.costLine("load balancer", b.LoadBalancer)
	p.costLine("management", b.Management)
	p.costLine("storage", b.Storage)
	p.costLine("backup", b.Backup)
	p.costLine("network", b.Network)
	p.heading.Fprintf(p.out, "  %-20s $%8.2f\n", "total", cost.Round(b.Total))
	fmt.Fprintln(p.out)
}

func (p *Printer) costLine(label string, amount float64) {
	if amount == 0 {
		return
	}
	p.dim.Fprintf(p.out, "  %-20s $%8.2f\n", label, cost.Round(amount))
}

// Validation prints the verdict plus every error and warning.
func (p *Printer) Validation(res *pipeline.Result) {
	p.heading.Fprintln(p.out, "Validation")
	if res.Validation == nil {
		p.bad.Fprintln(p.out, "  not run")
		fmt.Fprintln(p.out)
		return
	}
	for _, issue := range res.Validation.Errors {
		p.bad.Fprintf(p.out, "  error: %s\n", issue)
	}
	for _, issue := range res.Validation.Warnings {
		p.warning.Fprintf(p.out, "  warning: %s\n", issue)
	}
	if res.Validation.Pass() {
		p.good.Fprintf(p.out, "  passed (%d resources)\n", len(res.Manifests.Resources))
	} else {
		p.bad.Fprintln(p.out, "  failed")
	}
	fmt.Fprintln(p.out)
}

// Warnings prints the aggregated non-fatal issues from every stage.
func (p *Printer) Warnings(warnings []string) {
	if len(warnings) == 0 {
		return
	}
	p.heading.Fprintln(p.out, "Warnings")
	for _, w := range warnings {
		p.warning.Fprintf(p.out, "  %s\n", w)
	}
	fmt.Fprintln(p.out)
}

func (p *Printer) severityColor(s security.Severity) *color.Color {
	switch s {
	case security.SeverityCritical:
		return p.critical
	case security.SeverityHigh:
		return p.bad
	case security.SeverityMedium:
		return p.warning
	default:
		return p.dim
	}
}
