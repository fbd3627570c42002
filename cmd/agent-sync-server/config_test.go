package main

import (
	"log/slog"
	"testing"

	"github.com/EternisAI/soc-agent-sync/internal/auth"
	"github.com/EternisAI/soc-agent-sync/internal/db"
	"github.com/EternisAI/soc-agent-sync/internal/wazuh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"ERROR", slog.LevelError},
		{"warning", slog.LevelWarn},
		{"Info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestValidateConfig(t *testing.T) {
	err := validateConfig(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.url")
	assert.Contains(t, err.Error(), "auth.jwt_secret")
	assert.Contains(t, err.Error(), "wazuh.base_url")

	err = validateConfig(Config{
		DB:    db.Config{Url: "postgres://localhost/soc"},
		Auth:  auth.Config{JWTSecret: "s"},
		Wazuh: wazuh.Config{BaseURL: "https://wazuh:55000", Username: "wazuh-wui"},
	})
	assert.NoError(t, err)
}
