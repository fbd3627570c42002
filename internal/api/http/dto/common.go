package dto

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}
