package model

import "time"

type (
	HealthStatus string

	DependencyStatus string

	DependencyCheck struct {
		Status      DependencyStatus `json:"status"`
		LatencyMs   uint64           `json:"latencyMs"`
		Message     string           `json:"message,omitempty"`
		LastChecked time.Time        `json:"lastChecked"`
		Error       string           `json:"error,omitempty"`
	}

	LivenessReport struct {
		Status    HealthStatus `json:"status"`
		Timestamp time.Time    `json:"timestamp"`
		Version   string       `json:"version"`
	}

	ReadinessReport struct {
		Status    HealthStatus               `json:"status"`
		Timestamp time.Time                  `json:"timestamp"`
		Version   string                     `json:"version"`
		Checks    map[string]DependencyCheck `json:"checks"`
	}

	HealthReport struct {
		Status    HealthStatus               `json:"status"`
		Timestamp time.Time                  `json:"timestamp"`
		Version   string                     `json:"version"`
		Uptime    UptimeInfo                 `json:"uptime"`
		Checks    map[string]DependencyCheck `json:"checks"`
	}

	UptimeInfo struct {
		StartedAt       time.Time `json:"startedAt"`
		Duration        string    `json:"duration"`
		DurationSeconds uint64    `json:"durationSeconds"`
	}
)

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"

	DependencyStatusUp   DependencyStatus = "up"
	DependencyStatusDown DependencyStatus = "down"
)

// OverallStatus folds dependency checks into a single status.
func OverallStatus(checks map[string]DependencyCheck) HealthStatus {
	for _, check := range checks {
		if check.Status != DependencyStatusUp {
			return HealthStatusDown
		}
	}

	return HealthStatusOK
}
