package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the connection state reported by the Wazuh manager.
type Status string

const (
	StatusActive         Status = "active"
	StatusDisconnected   Status = "disconnected"
	StatusPending        Status = "pending"
	StatusNeverConnected Status = "never_connected"
)

// ExternalID is the numeric agent id assigned by the Wazuh manager.
// The manager renders it zero padded ("001"), so JSON input may be a
// number or a numeric string.
type ExternalID int64

func ParseExternalID(s string) (ExternalID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty agent id")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid agent id %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid agent id %q: negative", s)
	}
	return ExternalID(n), nil
}

func (id ExternalID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseExternalID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid agent id %s", string(data))
	}
	if n < 0 {
		return fmt.Errorf("invalid agent id %d: negative", n)
	}
	*id = ExternalID(n)
	return nil
}

type Agent struct {
	ID         string
	ExternalID ExternalID
	Name       string
	IPAddress  string
	Status     Status
	Hostname   string
	LastSeenAt *time.Time
	DateAdded  *time.Time
	OwnerEmail string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
