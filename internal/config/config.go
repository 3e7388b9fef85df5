package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	Environment     string
	DatabaseURL     string // empty selects the in-memory repositories
	SupabaseURL     string
	SupabaseJWKSURL string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	CORSOrigins     string
	TablePrefix     string
	// AI Configuration
	AnthropicAPIKey   string
	AIProvider        string // anthropic | lorem
	AIModel           string
	AIEditTimeout     time.Duration
	AIContextMaxBytes int
	// Infrastructure (all optional)
	RedisURL            string
	NATSURL             string
	TemplateCatalogPath string // overrides the embedded catalog
	Tracing             bool
	// Logging
	LogDir      string // also write logs to timestamped files here when set
	LogMaxFiles int
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)
	supabaseURL := getEnv("SUPABASE_URL", "")

	// Construct JWKS URL from Supabase URL
	jwksURL := ""
	if supabaseURL != "" {
		jwksURL = supabaseURL + "/auth/v1/.well-known/jwks.json"
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     env,
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SupabaseURL:     supabaseURL,
		SupabaseJWKSURL: jwksURL,
		CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:     tablePrefix,
		// AI Configuration
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		AIProvider:        getEnv("AI_PROVIDER", "anthropic"),
		AIModel:           getEnv("AI_MODEL", "claude-haiku-4-5-20251001"),
		AIEditTimeout:     getDuration("AI_EDIT_TIMEOUT", 60*time.Second),
		AIContextMaxBytes: getInt("AI_CONTEXT_MAX_BYTES", DefaultContextMaxBytes),
		// Infrastructure
		RedisURL:            getEnv("REDIS_URL", ""),
		NATSURL:             getEnv("NATS_URL", ""),
		TemplateCatalogPath: getEnv("TEMPLATE_CATALOG_PATH", ""),
		Tracing:             getEnv("TRACING", "false") == "true",
		// Logging
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getInt("LOG_MAX_FILES", 10),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	// Auto-generate based on environment
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
