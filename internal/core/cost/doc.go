// Package cost estimates the monthly run cost of the resolved
// deployment from provider rate tables. Compute cost is priced on
// requested resources times the minimum replica count; line items keep
// full float precision internally and are rounded only at
// presentation.
package cost
