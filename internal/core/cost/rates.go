package cost

// =============================================================================
// Provider Rate Tables
// =============================================================================

// Provider identifies a rate profile.
type Provider string

const (
	ProviderAWS          Provider = "aws"
	ProviderGCP          Provider = "gcp"
	ProviderAzure        Provider = "azure"
	ProviderDigitalOcean Provider = "digitalocean"
	ProviderOnPremise    Provider = "onpremise"
)

// ParseProvider maps loose user input to a Provider. Unknown names
// return ok=false; callers fall back to the default profile.
func ParseProvider(name string) (Provider, bool) {
	switch name {
	case "aws", "amazon":
		return ProviderAWS, true
	case "gcp", "google":
		return ProviderGCP, true
	case "azure", "microsoft":
		return ProviderAzure, true
	case "digitalocean", "do":
		return ProviderDigitalOcean, true
	case "onpremise", "onprem", "on-premise":
		return ProviderOnPremise, true
	}
	return "", false
}

// Rates is one provider rate profile. All rates are USD.
type Rates struct {
	CPUPerHour           float64 `json:"cpu_per_hour"`
	MemoryPerGiBHour     float64 `json:"memory_per_gib_hour"`
	StoragePerGiBMonth   float64 `json:"storage_per_gib_month"`
	LoadBalancerPerHour  float64 `json:"load_balancer_per_hour"`
	EgressPerGiB         float64 `json:"egress_per_gib"`
	ManagementPerHour    float64 `json:"management_per_hour"`
	NATGatewayPerMonth   float64 `json:"nat_gateway_per_month"`
}

// hoursPerMonth is the fixed billing-month constant.
const hoursPerMonth = 720.0

// egressGiBPerExposedService is the monthly transfer-volume heuristic
// applied per externally exposed service.
const egressGiBPerExposedService = 100.0

// backupStorageFactor sizes the backup estimate relative to persistent
// volume cost.
const backupStorageFactor = 0.3

// rateTable holds the built-in provider profiles.
var rateTable = map[Provider]Rates{
	ProviderAWS: {
		CPUPerHour:          0.04,
		MemoryPerGiBHour:    0.004,
		StoragePerGiBMonth:  0.10,
		LoadBalancerPerHour: 0.025,
		EgressPerGiB:        0.09,
		ManagementPerHour:   0.10,
		NATGatewayPerMonth:  45.0,
	},
	ProviderGCP: {
		CPUPerHour:          0.038,
		MemoryPerGiBHour:    0.005,
		StoragePerGiBMonth:  0.08,
		LoadBalancerPerHour: 0.025,
		EgressPerGiB:        0.085,
		ManagementPerHour:   0.10,
	},
	ProviderAzure: {
		CPUPerHour:          0.042,
		MemoryPerGiBHour:    0.0045,
		StoragePerGiBMonth:  0.12,
		LoadBalancerPerHour: 0.022,
		EgressPerGiB:        0.087,
		ManagementPerHour:   0.0, // managed control plane is free
	},
	ProviderDigitalOcean: {
		CPUPerHour:          0.060,
		MemoryPerGiBHour:    0.009,
		StoragePerGiBMonth:  0.10,
		LoadBalancerPerHour: 0.012,
		EgressPerGiB:        0.01,
		ManagementPerHour:   0.0,
	},
	ProviderOnPremise: {
		CPUPerHour:          0.02,
		MemoryPerGiBHour:    0.002,
		StoragePerGiBMonth:  0.05,
		LoadBalancerPerHour: 0.0,
		EgressPerGiB:        0.0,
		ManagementPerHour:   0.02,
	},
}

// defaultProvider is the fallback profile when the requested provider
// or region has no rate entry.
const defaultProvider = ProviderAWS

// ratesFor resolves the rate profile. The bool result reports whether
// the requested provider was found; on a miss the default profile is
// returned so estimation can continue.
func ratesFor(provider Provider) (Rates, bool) {
	if r, ok := rateTable[provider]; ok {
		return r, true
	}
	return rateTable[defaultProvider], false
}
