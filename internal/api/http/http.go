package http

type Config struct {
	Port           uint     `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// SyncRateLimit is the sustained rate of manual sync requests per
	// second. Zero disables limiting.
	SyncRateLimit float64 `mapstructure:"sync_rate_limit"`
	SyncRateBurst int     `mapstructure:"sync_rate_burst"`
}
