package domain

// CoachSummary is the backend's precomputed weekly narrative.
type CoachSummary struct {
	HealthLogsCount int    `json:"health_logs_count"`
	MealLogsCount   int    `json:"meal_logs_count"`
	Summary         string `json:"summary"`
}

// BackendStatus is the backend liveness response.
type BackendStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
