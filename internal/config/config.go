package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment selects which Kalshi deployment the process talks to.
type Environment string

const (
	EnvDemo Environment = "demo"
	EnvProd Environment = "prod"
)

// Config holds process-level settings: credentials, endpoints, paths.
// Per-strategy quoting parameters live in the YAML strategies file.
type Config struct {
	Env Environment

	// Kalshi API
	KalshiBaseURL string
	KalshiWSURL   string
	KalshiKeyID   string
	KalshiKeyFile string

	// Shared client throttle: minimum interval between outbound calls.
	MinCallInterval time.Duration

	// Paths
	StrategiesPath string
	JournalPath    string // empty disables the journal
	LogDir         string

	// Telemetry
	LogLevel string
}

// Load reads .env (if present) and the process environment. Demo and
// prod use separate credential variables so a stray env file cannot
// point demo keys at the production API.
func Load() *Config {
	_ = godotenv.Load()

	env := Environment(envStr("KALSHI_ENV", string(EnvDemo)))

	baseURL := "https://demo-api.kalshi.co"
	wsURL := "wss://demo-api.kalshi.co/trade-api/ws/v2"
	keyID := envStr("DEMO_KEYID", "")
	keyFile := envStr("DEMO_KEYFILE", "")
	if env == EnvProd {
		baseURL = "https://api.elections.kalshi.com"
		wsURL = "wss://api.elections.kalshi.com/trade-api/ws/v2"
		keyID = envStr("PROD_KEYID", "")
		keyFile = envStr("PROD_KEYFILE", "")
	}

	return &Config{
		Env: env,

		KalshiBaseURL: envStr("KALSHI_BASE_URL", baseURL),
		KalshiWSURL:   envStr("KALSHI_WS_URL", wsURL),
		KalshiKeyID:   keyID,
		KalshiKeyFile: keyFile,

		MinCallInterval: time.Duration(envInt("KALSHI_MIN_CALL_INTERVAL_MS", 100)) * time.Millisecond,

		StrategiesPath: envStr("STRATEGIES_PATH", "config.yaml"),
		JournalPath:    envStr("JOURNAL_PATH", ""),
		LogDir:         envStr("LOG_DIR", "."),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
