// Package metrics provides the Prometheus collectors for the PlantCare service.
package metrics

// Model label values.
const (
	ModelGrowth  = "growth"
	ModelDisease = "disease"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket parameters.
const (
	BucketStart1ms  = 0.001
	BucketFactor2   = 2.0
	BucketCount10   = 10
	BucketCount12   = 12
	BucketStart100B = 100.0
	BucketFactor10  = 10.0
	BucketCount6    = 6
)
