package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/EternisAI/soc-agent-sync/internal/agentsync"
	"github.com/EternisAI/soc-agent-sync/internal/api/http"
	"github.com/EternisAI/soc-agent-sync/internal/auth"
	"github.com/EternisAI/soc-agent-sync/internal/db"
	"github.com/EternisAI/soc-agent-sync/internal/wazuh"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log   LogConfig
	Http  http.Config
	DB    db.Config
	Auth  auth.Config
	Wazuh wazuh.Config
	Sync  agentsync.Config
}

var config Config

func setDefaults() {
	viper.SetDefault("log.level", LOG_LEVEL_INFO)
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.sync_rate_limit", 0.2)
	viper.SetDefault("http.sync_rate_burst", 1)
	viper.SetDefault("db.schema", "public")
	viper.SetDefault("wazuh.verify_tls", false)
	viper.SetDefault("wazuh.timeout", "30s")
	viper.SetDefault("wazuh.token_ttl", "10m")
	viper.SetDefault("wazuh.page_size", 500)
	viper.SetDefault("sync.enabled", true)
	viper.SetDefault("sync.interval", agentsync.DefaultInterval.String())
}

func InitConfig() {
	var err error

	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/agent-sync-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	_ = viper.BindEnv("db.url", "DATABASE_URL")
	_ = viper.BindEnv("wazuh.password", "WAZUH_PASSWORD")
	_ = viper.BindEnv("auth.jwt_secret", "JWT_SECRET")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)

	if err := validateConfig(config); err != nil {
		panic(err)
	}

	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		redacted := config
		redacted.Wazuh.Password = "***"
		redacted.Auth.JWTSecret = "***"
		redacted.DB.Url = "***"
		configJSON, err := json.MarshalIndent(redacted, "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}

func validateConfig(c Config) error {
	var missing []string
	if c.DB.Url == "" {
		missing = append(missing, "db.url")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "auth.jwt_secret")
	}
	if c.Wazuh.BaseURL == "" {
		missing = append(missing, "wazuh.base_url")
	}
	if c.Wazuh.Username == "" {
		missing = append(missing, "wazuh.username")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
