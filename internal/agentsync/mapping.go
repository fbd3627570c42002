package agentsync

import (
	"strings"
	"time"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/wazuh"
)

// MapAgent converts a manager agent into the local agent shape.
func MapAgent(w wazuh.Agent) (agents.Agent, error) {
	id, err := agents.ParseExternalID(w.ID)
	if err != nil {
		return agents.Agent{}, err
	}

	ip := strings.TrimSpace(w.IP)
	if ip == "" {
		ip = strings.TrimSpace(w.RegisterIP)
	}

	return agents.Agent{
		ExternalID: id,
		Name:       w.Name,
		IPAddress:  ip,
		Status:     agents.Status(w.Status),
		Hostname:   hostname(w),
		LastSeenAt: parseTime(w.LastKeepAlive),
		DateAdded:  parseTime(w.DateAdd),
	}, nil
}

// hostname reads the node name from os.uname ("Linux |host |5.15.0 |...").
func hostname(w wazuh.Agent) string {
	parts := strings.Split(w.OS.Uname, "|")
	if len(parts) > 1 {
		if h := strings.TrimSpace(parts[1]); h != "" {
			return h
		}
	}
	return w.Name
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
