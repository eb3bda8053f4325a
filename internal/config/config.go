package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverREST     = "rest"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	LogLevel string

	StoreDriver string
	DBPath      string
	DatabaseURL string
	RawMailDir  string
	OutputDir   string

	SupabaseURL     string
	SupabaseAnonKey string
	BackendRPS      int
	BackendTimeout  int

	PostgresConnectAttempts int
	PostgresRetrySec        int

	ScannerDevice string

	APIAddr          string
	OperatorPassword string
	JWTSecret        string

	ReturnsSubjectKeywords []string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider    string
	MailListenerLabel       string
	MailListenerIntervalSec int
	MailListenerFetchMax    int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver: strings.ToLower(strings.TrimSpace(getEnv("STORE_DRIVER", DriverREST))),
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "iade.db")),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RawMailDir:  getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		SupabaseURL:     getEnv("SUPABASE_URL", getEnv("NEXT_PUBLIC_SUPABASE_URL", "")),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", getEnv("NEXT_PUBLIC_SUPABASE_ANON_KEY", "")),
		BackendRPS:      getEnvInt("BACKEND_RATE_LIMIT_RPS", 10),
		BackendTimeout:  getEnvInt("BACKEND_TIMEOUT_MS", 15000),

		PostgresConnectAttempts: getEnvInt("POSTGRES_CONNECT_MAX_ATTEMPTS", 10),
		PostgresRetrySec:        getEnvInt("POSTGRES_CONNECT_RETRY_SECONDS", 2),

		ScannerDevice: getEnv("SCANNER_DEVICE", ""),

		APIAddr:          getEnv("API_ADDR", ":8080"),
		OperatorPassword: getEnv("OPERATOR_PASSWORD", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),

		ReturnsSubjectKeywords: getEnvList("RETURNS_SUBJECT_KEYWORDS", []string{"iade", "return", "barkod", "eksik"}),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailListenerProvider:    getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		MailListenerLabel:       getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec: getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 300),
		MailListenerFetchMax:    getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// StoreCredentials reports which env vars the selected store driver needs
// and whether all of them are set.
func (c Config) StoreCredentials() ([]string, bool) {
	switch c.StoreDriver {
	case DriverSQLite:
		return []string{"DB_PATH"}, strings.TrimSpace(c.DBPath) != ""
	case DriverPostgres:
		return []string{"DATABASE_URL"}, strings.TrimSpace(c.DatabaseURL) != ""
	default:
		ok := strings.TrimSpace(c.SupabaseURL) != "" && strings.TrimSpace(c.SupabaseAnonKey) != ""
		return []string{"SUPABASE_URL", "SUPABASE_ANON_KEY"}, ok
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
