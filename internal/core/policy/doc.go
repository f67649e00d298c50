// Package policy resolves per-service generation policies: workload
// shape, replica bounds, resource requests and limits, probes, security
// context and exposure. Resolution is a pure function of the service,
// its primary pattern and the run options; declared hints in the input
// always win over table defaults.
package policy
