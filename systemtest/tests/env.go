package tests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/EternisAI/soc-agent-sync/internal/auth"
	"github.com/EternisAI/soc-agent-sync/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// Env holds the wired system under test.
type Env struct {
	Router      *gin.Engine
	JWTSecret   string
	Agents      *repository.AgentRepository
	Assignments *repository.AssignmentRepository
	Manager     *FakeManager
}

func (e *Env) Token(t *testing.T, email string, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.Config{JWTSecret: e.JWTSecret}, auth.Principal{
		UserID: email,
		Email:  email,
		Role:   role,
	})
	require.NoError(t, err)
	return token
}

func (e *Env) AdminToken(t *testing.T) string {
	return e.Token(t, "admin@soc.io", auth.RoleAdmin)
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	return doJSONWithAuth(router, method, path, body, "")
}

func doJSONWithAuth(router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}
