package wazuh

import "fmt"

// AuthError means the manager rejected the request credentials.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("wazuh authentication failed: %s", e.Message)
	}
	return fmt.Sprintf("wazuh authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// NetworkError means the manager could not be reached or answered with
// something other than a usable response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("wazuh %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
