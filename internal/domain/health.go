package domain

const (
	// StatusHealthy is the only status the service reports.
	StatusHealthy = "Healthy"

	// ServiceVersion is the version advertised by the health endpoint.
	ServiceVersion = "1.0.0"
)

// HealthStatus is the payload of the health endpoints.
type HealthStatus struct {
	Status  string `json:"Status"`
	Version string `json:"Version"`
}

// Healthy returns the fixed health payload.
func Healthy() HealthStatus {
	return HealthStatus{Status: StatusHealthy, Version: ServiceVersion}
}
