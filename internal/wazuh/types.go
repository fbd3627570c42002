package wazuh

// Agent is one entry of the manager's GET /agents response.
type Agent struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IP            string `json:"ip"`
	RegisterIP    string `json:"registerIP"`
	Status        string `json:"status"`
	NodeName      string `json:"node_name"`
	Version       string `json:"version"`
	DateAdd       string `json:"dateAdd"`
	LastKeepAlive string `json:"lastKeepAlive"`
	OS            OSInfo `json:"os"`
}

type OSInfo struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Version  string `json:"version"`
	Uname    string `json:"uname"`
}

type AgentsResponse struct {
	Data struct {
		AffectedItems      []Agent `json:"affected_items"`
		TotalAffectedItems int     `json:"total_affected_items"`
		TotalFailedItems   int     `json:"total_failed_items"`
	} `json:"data"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}
