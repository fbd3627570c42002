package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/api/http/dto"
	"github.com/EternisAI/soc-agent-sync/internal/assignments"
	"github.com/EternisAI/soc-agent-sync/internal/auth"
	"github.com/EternisAI/soc-agent-sync/internal/wazuh"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type memAgentStore struct {
	mu     sync.Mutex
	agents map[agents.ExternalID]agents.Agent
}

func newMemAgentStore() *memAgentStore {
	return &memAgentStore{agents: make(map[agents.ExternalID]agents.Agent)}
}

func (m *memAgentStore) Upsert(_ context.Context, agent agents.Agent) (*agents.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.agents[agent.ExternalID]; ok {
		agent.ID = existing.ID
		agent.CreatedAt = existing.CreatedAt
		if agent.OwnerEmail == "" {
			agent.OwnerEmail = existing.OwnerEmail
		}
	} else {
		agent.ID = "id-" + agent.ExternalID.String()
		agent.CreatedAt = now
	}
	agent.UpdatedAt = now
	m.agents[agent.ExternalID] = agent
	return &agent, nil
}

func (m *memAgentStore) GetByExternalID(_ context.Context, id agents.ExternalID) (*agents.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, agents.ErrAgentNotFound
	}
	return &a, nil
}

func (m *memAgentStore) GetByExternalIDs(_ context.Context, ids []agents.ExternalID) ([]agents.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []agents.Agent
	for _, id := range ids {
		if a, ok := m.agents[id]; ok {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *memAgentStore) List(_ context.Context) ([]agents.Agent, error) {
	return m.filter(func(agents.Agent) bool { return true }), nil
}

func (m *memAgentStore) ListByOwner(_ context.Context, email string) ([]agents.Agent, error) {
	return m.filter(func(a agents.Agent) bool { return strings.EqualFold(a.OwnerEmail, email) }), nil
}

func (m *memAgentStore) SetOwner(_ context.Context, id agents.ExternalID, email string) (*agents.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, agents.ErrAgentNotFound
	}
	a.OwnerEmail = email
	m.agents[id] = a
	return &a, nil
}

func (m *memAgentStore) filter(keep func(agents.Agent) bool) []agents.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []agents.Agent{}
	for _, a := range m.agents {
		if keep(a) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExternalID < result[j].ExternalID })
	return result
}

type memAssignmentStore struct {
	mu   sync.Mutex
	docs map[string]*assignments.Assignment
}

func newMemAssignmentStore() *memAssignmentStore {
	return &memAssignmentStore{docs: make(map[string]*assignments.Assignment)}
}

func (m *memAssignmentStore) Assign(_ context.Context, in assignments.AssignInput) (assignments.Outcome, *assignments.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[in.UserEmail]
	if !ok {
		doc = &assignments.Assignment{UserEmail: in.UserEmail, UserName: in.UserName, CreatedAt: time.Now()}
		m.docs[in.UserEmail] = doc
	}

	var existing *assignments.AssignedAgent
	for i := range doc.Agents {
		if doc.Agents[i].ExternalID == in.Agent.ExternalID {
			existing = &doc.Agents[i]
		}
	}

	outcome := assignments.Decide(existing, in.Agent.Status)
	switch outcome {
	case assignments.OutcomeCreated:
		in.Agent.AssignedAt = time.Now()
		doc.Agents = append(doc.Agents, in.Agent)
	case assignments.OutcomeUpdated:
		existing.Status = in.Agent.Status
	}

	copied := *doc
	copied.Agents = append([]assignments.AssignedAgent(nil), doc.Agents...)
	return outcome, &copied, nil
}

func (m *memAssignmentStore) Get(_ context.Context, userEmail string) (*assignments.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[userEmail]
	if !ok {
		return nil, assignments.ErrAssignmentNotFound
	}
	copied := *doc
	copied.Agents = append([]assignments.AssignedAgent(nil), doc.Agents...)
	return &copied, nil
}

type stubSyncer struct {
	count int
	err   error
	calls int
}

func (s *stubSyncer) SyncOnce(context.Context) (int, error) {
	s.calls++
	return s.count, s.err
}

type testEnv struct {
	engine     *gin.Engine
	agentStore *memAgentStore
	syncer     *stubSyncer
	adminToken string
	userToken  string
	otherToken string
}

func newTestEnv(t *testing.T, limiter *rate.Limiter) *testEnv {
	t.Helper()

	agentStore := newMemAgentStore()
	agentService := agents.NewService(agentStore)
	assignmentService := assignments.NewService(newMemAssignmentStore(), agentService)
	syncer := &stubSyncer{count: 2}

	engine := gin.New()
	SetupRoute(engine, &Services{
		Agents:      agentService,
		Assignments: assignmentService,
		Syncer:      syncer,
		JWTSecret:   testSecret,
		SyncLimiter: limiter,
		Metrics:     http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	})

	return &testEnv{
		engine:     engine,
		agentStore: agentStore,
		syncer:     syncer,
		adminToken: mustToken(t, auth.Principal{UserID: "1", Email: "admin@soc.io", Role: auth.RoleAdmin}),
		userToken:  mustToken(t, auth.Principal{UserID: "2", Email: "a@b.com", Role: auth.RoleUser}),
		otherToken: mustToken(t, auth.Principal{UserID: "3", Email: "c@d.com", Role: auth.RoleUser}),
	}
}

func mustToken(t *testing.T, p auth.Principal) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.Config{JWTSecret: testSecret}, p)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		raw, _ := json.Marshal(body)
		buf = bytes.NewBuffer(raw)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) seed(t *testing.T, id agents.ExternalID, owner string) {
	t.Helper()
	_, err := e.agentStore.Upsert(context.Background(), agents.Agent{
		ExternalID: id,
		Name:       "agent-" + id.String(),
		IPAddress:  "10.0.0." + id.String(),
		Status:     agents.StatusActive,
		OwnerEmail: owner,
	})
	require.NoError(t, err)
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[dto.HealthResponse](t, w).Status)

	w = env.do("GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("GET", "/agents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do("GET", "/agents", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterAgentMissingFields(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("POST", "/register-agent", env.adminToken, map[string]any{"agentName": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[dto.ErrorResponse](t, w)
	assert.Contains(t, resp.Error, "missing required fields")
	assert.Contains(t, resp.Error, "agentId")
	assert.Contains(t, resp.Error, "agentIp")
	assert.Equal(t, []string{"agentId", "agentIp"}, resp.Fields)
}

func TestRegisterAgentInvalidStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("POST", "/register-agent", env.adminToken, map[string]any{
		"agentName": "x", "agentId": 1, "agentIp": "10.0.0.1", "status": "sleeping",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"status"}, decode[dto.ErrorResponse](t, w).Fields)
}

func TestRegisterAgent(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("POST", "/register-agent", env.adminToken, map[string]any{
		"agentName": "web-01", "agentId": "001", "agentIp": "10.0.0.1", "ownerEmail": "A@B.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[dto.AgentResponse](t, w)
	assert.Equal(t, agents.ExternalID(1), resp.AgentID)
	assert.Equal(t, "web-01", resp.AgentName)
	assert.Equal(t, agents.StatusNeverConnected, resp.Status)
	assert.Equal(t, "a@b.com", resp.OwnerEmail)

	w = env.do("POST", "/register-agent", env.adminToken, map[string]any{
		"agentName": "web-01b", "agentId": 1, "agentIp": "10.0.0.2",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	resp = decode[dto.AgentResponse](t, w)
	assert.Equal(t, "web-01b", resp.AgentName)
	assert.Equal(t, "a@b.com", resp.OwnerEmail)
}

func TestRegisterAgentRequiresCapability(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("POST", "/register-agent", env.userToken, map[string]any{
		"agentName": "x", "agentId": 1, "agentIp": "10.0.0.1",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListAgentsIsRoleScoped(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, 1, "a@b.com")
	env.seed(t, 2, "c@d.com")
	env.seed(t, 3, "")

	w := env.do("GET", "/agents", env.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[dto.ListAgentsResponse](t, w).Count)

	w = env.do("GET", "/agents", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.ListAgentsResponse](t, w)
	require.Len(t, resp.Agents, 1)
	assert.Equal(t, agents.ExternalID(1), resp.Agents[0].AgentID)
}

func TestGetAgent(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, 1, "a@b.com")

	w := env.do("GET", "/agents/1", env.userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do("GET", "/agents/1", env.otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do("GET", "/agents/99", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do("GET", "/agents/abc", env.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, 4, "")

	w := env.do("PUT", "/agents/4/owner", env.adminToken, map[string]any{"userEmail": "C@d.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "c@d.com", decode[dto.AgentResponse](t, w).OwnerEmail)

	w = env.do("GET", "/agents/4", env.otherToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do("PUT", "/agents/5/owner", env.adminToken, map[string]any{"userEmail": "c@d.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do("PUT", "/agents/4/owner", env.userToken, map[string]any{"userEmail": "a@b.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserAgents(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, 1, "a@b.com")
	env.seed(t, 2, "c@d.com")

	w := env.do("GET", "/user-agents", env.adminToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"userEmail"}, decode[dto.ErrorResponse](t, w).Fields)

	w = env.do("GET", "/user-agents?userEmail=c@d.com", env.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[dto.ListAgentsResponse](t, w).Count)

	w = env.do("GET", "/user-agents?userEmail=a@b.com", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[dto.ListAgentsResponse](t, w).Count)

	w = env.do("GET", "/user-agents?userEmail=c@d.com", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAssignAgentCreatedThenUnchanged(t *testing.T) {
	env := newTestEnv(t, nil)
	body := map[string]any{
		"userEmail": "a@b.com",
		"userName":  "A",
		"agentName": "Agent1",
		"agentId":   5,
		"agentIp":   "10.0.0.1",
		"status":    "active",
	}

	w := env.do("POST", "/assign-agent-to-user", env.adminToken, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[dto.AssignAgentResponse](t, w)
	assert.Equal(t, assignments.OutcomeCreated, first.Result)
	assert.NotEmpty(t, first.Message)
	require.Len(t, first.Assignment.Agents, 1)
	assert.Equal(t, agents.ExternalID(5), first.Assignment.Agents[0].AgentID)

	w = env.do("POST", "/assign-agent-to-user", env.adminToken, body)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[dto.AssignAgentResponse](t, w)
	assert.Equal(t, assignments.OutcomeUnchanged, second.Result)
	assert.NotEqual(t, first.Message, second.Message)
	assert.Len(t, second.Assignment.Agents, 1)

	body["status"] = "disconnected"
	w = env.do("POST", "/assign-agent-to-user", env.adminToken, body)
	require.Equal(t, http.StatusOK, w.Code)
	third := decode[dto.AssignAgentResponse](t, w)
	assert.Equal(t, assignments.OutcomeUpdated, third.Result)
	assert.Equal(t, agents.StatusDisconnected, third.Assignment.Agents[0].Status)
}

func TestAssignAgentValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("POST", "/assign-agent-to-user", env.adminToken, map[string]any{"userEmail": "a@b.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"userName", "agentName", "agentId", "agentIp"}, decode[dto.ErrorResponse](t, w).Fields)

	w = env.do("POST", "/assign-agent-to-user", env.userToken, map[string]any{})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAssignedAgents(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, 5, "")

	for _, id := range []int{5, 6} {
		w := env.do("POST", "/assign-agent-to-user", env.adminToken, map[string]any{
			"userEmail": "a@b.com", "userName": "A", "agentName": "Agent", "agentId": id, "agentIp": "10.0.0.1",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do("GET", "/assigned-agents?userEmail=a@b.com", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[dto.AssignedAgentsResponse](t, w)
	require.Len(t, list.Agents, 2)
	assert.Equal(t, agents.ExternalID(5), list.Agents[0].AgentID)
	assert.Equal(t, agents.ExternalID(6), list.Agents[1].AgentID)

	w = env.do("GET", "/assigned-agents-details?userEmail=a@b.com", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	details := decode[dto.ListAgentsResponse](t, w)
	require.Len(t, details.Agents, 1)
	assert.Equal(t, "agent-5", details.Agents[0].AgentName)

	w = env.do("GET", "/assigned-agents?userEmail=a@b.com", env.otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do("GET", "/assigned-agents?userEmail=nobody@b.com", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do("GET", "/assigned-agents-details", env.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncTrigger(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("GET", "/sync-wazuh-agents", env.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.SyncResponse](t, w)
	assert.Equal(t, 2, resp.Count)
	assert.NotEmpty(t, resp.Message)

	w = env.do("GET", "/sync-wazuh-agents", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1, env.syncer.calls)
}

func TestSyncTriggerFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	env.syncer.err = &wazuh.AuthError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}
	w := env.do("GET", "/sync-wazuh-agents", env.adminToken, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	assert.NotEmpty(t, resp.Error)
	assert.Contains(t, resp.Details, "Invalid credentials")

	env.syncer.err = &wazuh.NetworkError{Op: "list agents", Err: errors.New("connection refused")}
	w = env.do("GET", "/sync-wazuh-agents", env.adminToken, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode[dto.ErrorResponse](t, w).Details, "connection refused")

	env.syncer.err = errors.New("store down")
	w = env.do("GET", "/sync-wazuh-agents", env.adminToken, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, decode[dto.ErrorResponse](t, w).Details)
}

func TestSyncTriggerRateLimited(t *testing.T) {
	env := newTestEnv(t, NewSyncLimiter(Config{SyncRateLimit: 0.001, SyncRateBurst: 1}))

	w := env.do("GET", "/sync-wazuh-agents", env.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do("GET", "/sync-wazuh-agents", env.adminToken, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, env.syncer.calls)
}

func TestNewSyncLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewSyncLimiter(Config{}))
	assert.NotNil(t, NewSyncLimiter(Config{SyncRateLimit: 1}))
}
