// Package security evaluates a data-driven rule catalog over the
// normalized model and resolved policies. Rules never mutate anything:
// each finding carries an advisory remediation directive that the
// manifest synthesizer applies when building resources. The reporting
// filter (minimum severity) only trims what is shown; directives are
// always handed to the synthesizer so visible verbosity never changes
// generated security posture.
package security
