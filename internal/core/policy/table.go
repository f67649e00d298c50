package policy

// =============================================================================
// Resource Sizing Table
// =============================================================================

// defaultPatternKey is the table row used when no pattern matched.
const defaultPatternKey = "default"

// resourceTable maps (pattern, budget) to default resource sizing.
// Declared hints in the compose document always override these.
var resourceTable = map[string]map[Budget]Resources{
	"web": {
		BudgetMinimal:     {CPURequest: "50m", CPULimit: "250m", MemoryRequest: "64Mi", MemoryLimit: "256Mi"},
		BudgetStandard:    {CPURequest: "100m", CPULimit: "500m", MemoryRequest: "128Mi", MemoryLimit: "512Mi"},
		BudgetPerformance: {CPURequest: "250m", CPULimit: "1", MemoryRequest: "256Mi", MemoryLimit: "1Gi"},
		BudgetEnterprise:  {CPURequest: "500m", CPULimit: "2", MemoryRequest: "512Mi", MemoryLimit: "2Gi"},
	},
	"database": {
		BudgetMinimal:     {CPURequest: "100m", CPULimit: "500m", MemoryRequest: "256Mi", MemoryLimit: "512Mi"},
		BudgetStandard:    {CPURequest: "250m", CPULimit: "1", MemoryRequest: "512Mi", MemoryLimit: "1Gi"},
		BudgetPerformance: {CPURequest: "500m", CPULimit: "2", MemoryRequest: "1Gi", MemoryLimit: "2Gi"},
		BudgetEnterprise:  {CPURequest: "1", CPULimit: "4", MemoryRequest: "2Gi", MemoryLimit: "4Gi"},
	},
	"cache": {
		BudgetMinimal:     {CPURequest: "50m", CPULimit: "200m", MemoryRequest: "64Mi", MemoryLimit: "256Mi"},
		BudgetStandard:    {CPURequest: "100m", CPULimit: "500m", MemoryRequest: "128Mi", MemoryLimit: "512Mi"},
		BudgetPerformance: {CPURequest: "250m", CPULimit: "1", MemoryRequest: "512Mi", MemoryLimit: "1Gi"},
		BudgetEnterprise:  {CPURequest: "500m", CPULimit: "2", MemoryRequest: "1Gi", MemoryLimit: "2Gi"},
	},
	"message-queue": {
		BudgetMinimal:     {CPURequest: "100m", CPULimit: "500m", MemoryRequest: "128Mi", MemoryLimit: "512Mi"},
		BudgetStandard:    {CPURequest: "250m", CPULimit: "1", MemoryRequest: "256Mi", MemoryLimit: "1Gi"},
		BudgetPerformance: {CPURequest: "500m", CPULimit: "2", MemoryRequest: "512Mi", MemoryLimit: "2Gi"},
		BudgetEnterprise:  {CPURequest: "1", CPULimit: "4", MemoryRequest: "1Gi", MemoryLimit: "4Gi"},
	},
	"load-balancer": {
		BudgetMinimal:     {CPURequest: "50m", CPULimit: "250m", MemoryRequest: "64Mi", MemoryLimit: "128Mi"},
		BudgetStandard:    {CPURequest: "100m", CPULimit: "500m", MemoryRequest: "128Mi", MemoryLimit: "256Mi"},
		BudgetPerformance: {CPURequest: "250m", CPULimit: "1", MemoryRequest: "256Mi", MemoryLimit: "512Mi"},
		BudgetEnterprise:  {CPURequest: "500m", CPULimit: "2", MemoryRequest: "512Mi", MemoryLimit: "1Gi"},
	},
	defaultPatternKey: {
		BudgetMinimal:     {CPURequest: "50m", CPULimit: "250m", MemoryRequest: "64Mi", MemoryLimit: "256Mi"},
		BudgetStandard:    {CPURequest: "100m", CPULimit: "500m", MemoryRequest: "128Mi", MemoryLimit: "512Mi"},
		BudgetPerformance: {CPURequest: "250m", CPULimit: "1", MemoryRequest: "256Mi", MemoryLimit: "1Gi"},
		BudgetEnterprise:  {CPURequest: "500m", CPULimit: "2", MemoryRequest: "512Mi", MemoryLimit: "2Gi"},
	},
}

// tableResources returns the sizing row for a pattern/budget pair,
// falling back to the default pattern row, then to standard budget.
func tableResources(pattern string, budget Budget) Resources {
	row, ok := resourceTable[pattern]
	if !ok {
		row = resourceTable[defaultPatternKey]
	}
	if res, ok := row[budget]; ok {
		return res
	}
	return row[BudgetStandard]
}
