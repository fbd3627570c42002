package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/EternisAI/soc-agent-sync/internal/wazuh"
)

const (
	ManagerUser     = "wazuh-wui"
	ManagerPassword = "wazuh-pass"
	managerToken    = "manager-token"
)

// FakeManager serves the subset of the Wazuh REST API used by the sync job
// over TLS with a self-signed certificate.
type FakeManager struct {
	server *httptest.Server

	mu     sync.Mutex
	agents []wazuh.Agent
	denied bool
}

func NewFakeManager(t *testing.T) *FakeManager {
	m := &FakeManager{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /security/user/authenticate", m.authenticate)
	mux.HandleFunc("GET /agents", m.listAgents)

	m.server = httptest.NewTLSServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *FakeManager) URL() string {
	return m.server.URL
}

func (m *FakeManager) SetAgents(agents ...wazuh.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents = agents
}

// Deny makes the manager reject every credential.
func (m *FakeManager) Deny(denied bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = denied
}

func (m *FakeManager) authenticate(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	denied := m.denied
	m.mu.Unlock()

	user, pass, ok := r.BasicAuth()
	if denied || !ok || user != ManagerUser || pass != ManagerPassword {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"title": "Unauthorized", "detail": "Invalid credentials"})
		return
	}
	_, _ = w.Write([]byte(managerToken))
}

func (m *FakeManager) listAgents(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+managerToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	m.mu.Lock()
	all := append([]wazuh.Agent(nil), m.agents...)
	m.mu.Unlock()

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = len(all)
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := min(offset+limit, len(all))

	var resp wazuh.AgentsResponse
	resp.Data.AffectedItems = all[offset:end]
	resp.Data.TotalAffectedItems = len(all)
	resp.Message = "All selected agents information was returned"

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
