// Package rate prices shipments from zone, weight and premium-service tables.
package rate

// Estimator defines the interface for shipping cost engines.
type Estimator interface {
	ComputeLegCost(req ShippingRequest) (ShippingResult, error)
	ComputeMultiLeg(req MultiLegRequest) (MultiLegResult, error)
	// HomeCountry is the operator's country, used as the default origin.
	HomeCountry() string
	// ReferenceCurrency is the currency every result is priced in.
	ReferenceCurrency() string
}

var _ Estimator = (*Calculator)(nil)
