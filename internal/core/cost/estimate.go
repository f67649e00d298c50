package cost

import (
	"errors"
	"fmt"
	"math"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/stackform/stackform/internal/core/policy"
)

// =============================================================================
// Cost Estimation
// =============================================================================

// ErrUnknownRateEntry marks a provider/region miss. It is never fatal:
// estimation falls back to the default profile and records a warning.
var ErrUnknownRateEntry = errors.New("no rate entry for provider")

// ServiceCost is the compute line item for one service.
type ServiceCost struct {
	ServiceID   string  `json:"service_id"`
	Replicas    int32   `json:"replicas"`
	CPUMonthly  float64 `json:"cpu_monthly"`
	MemMonthly  float64 `json:"mem_monthly"`
	Monthly     float64 `json:"monthly"`
}

// Breakdown is the full monthly estimate. All amounts are exact
// float64 sums; use Round for display.
type Breakdown struct {
	Provider Provider `json:"provider"`
	Region   string   `json:"region"`
	Currency string   `json:"currency"`

	Services []ServiceCost `json:"services"`

	Compute      float64 `json:"compute"`
	LoadBalancer float64 `json:"load_balancer"`
	Management   float64 `json:"management"`
	Storage      float64 `json:"storage"`
	Backup       float64 `json:"backup"`
	Network      float64 `json:"network"`

	Total float64 `json:"total"`

	Warnings []string `json:"warnings,omitempty"`
}

// Round returns an amount rounded to currency-minor-unit precision.
// Only presentation code calls this; internal sums keep full precision.
func Round(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// Estimate prices the resolved policies against a provider rate
// profile using the default egress heuristic.
func Estimate(policies []*policy.GenerationPolicy, providerName, region string) *Breakdown {
	return EstimateWithTransfer(policies, providerName, region, egressGiBPerExposedService)
}

// EstimateWithTransfer prices the resolved policies with an explicit
// monthly egress volume per exposed service. This is a pure function -
// no I/O, no side effects.
//
// Compute uses requested (not limit) cpu/mem times the minimum replica
// count. One load balancer fee applies per externally exposed service,
// the cluster management fee once per run. Policies must be passed in
// stable service order; line items preserve it.
func EstimateWithTransfer(policies []*policy.GenerationPolicy, providerName, region string, egressGiB float64) *Breakdown {
	b := &Breakdown{Region: region, Currency: "USD"}

	provider, known := ParseProvider(providerName)
	if !known {
		provider = defaultProvider
		b.Warnings = append(b.Warnings,
			fmt.Sprintf("%v %q, using %s defaults", ErrUnknownRateEntry, providerName, defaultProvider))
	}
	b.Provider = provider
	rates, _ := ratesFor(provider)

	exposed := 0
	for _, p := range policies {
		replicas := p.Autoscaling.MinReplicas
		if replicas < 1 {
			replicas = 1
		}

		cores, err := cpuCores(p.Resources.CPURequest)
		if err != nil {
			b.Warnings = append(b.Warnings,
				fmt.Sprintf("service %s: unparsable cpu request %q, priced as zero", p.ServiceID, p.Resources.CPURequest))
		}
		gib, err := memoryGiB(p.Resources.MemoryRequest)
		if err != nil {
			b.Warnings = append(b.Warnings,
				fmt.Sprintf("service %s: unparsable memory request %q, priced as zero", p.ServiceID, p.Resources.MemoryRequest))
		}

		sc := ServiceCost{
			ServiceID:  p.ServiceID,
			Replicas:   replicas,
			CPUMonthly: cores * rates.CPUPerHour * hoursPerMonth * float64(replicas),
			MemMonthly: gib * rates.MemoryPerGiBHour * hoursPerMonth * float64(replicas),
		}
		sc.Monthly = sc.CPUMonthly + sc.MemMonthly
		b.Services = append(b.Services, sc)
		b.Compute += sc.Monthly

		if p.ExposeExternally {
			exposed++
		}

		for _, claim := range p.VolumeClaims {
			if claim.SizeGi > 0 {
				b.Storage += float64(claim.SizeGi) * rates.StoragePerGiBMonth
			}
		}
	}

	b.LoadBalancer = float64(exposed) * rates.LoadBalancerPerHour * hoursPerMonth
	b.Management = rates.ManagementPerHour * hoursPerMonth
	b.Backup = b.Storage * backupStorageFactor
	b.Network = float64(exposed)*egressGiB*rates.EgressPerGiB + natGateway(provider, exposed)

	b.Total = b.Compute + b.LoadBalancer + b.Management + b.Storage + b.Backup + b.Network
	return b
}

// natGateway applies the flat AWS NAT gateway charge when anything is
// exposed.
func natGateway(provider Provider, exposed int) float64 {
	if provider == ProviderAWS && exposed > 0 {
		return rateTable[ProviderAWS].NATGatewayPerMonth
	}
	return 0
}

// cpuCores parses a Kubernetes cpu quantity into cores.
func cpuCores(q string) (float64, error) {
	if q == "" {
		return 0, nil
	}
	parsed, err := resource.ParseQuantity(q)
	if err != nil {
		return 0, err
	}
	return parsed.AsApproximateFloat64(), nil
}

// memoryGiB parses a Kubernetes memory quantity into GiB.
func memoryGiB(q string) (float64, error) {
	if q == "" {
		return 0, nil
	}
	parsed, err := resource.ParseQuantity(q)
	if err != nil {
		return 0, err
	}
	return parsed.AsApproximateFloat64() / (1 << 30), nil
}
