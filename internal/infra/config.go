package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents application configuration loaded from environment variables,
// optionally layered over a TOML or YAML file named by CONFIG_FILE.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	IPRateLimitPerMin  int
	CORSAllowedOrigins []string
	DailyQuota         int

	Identity IdentityConfig
	Provider ProviderConfig
	Restore  RestoreConfig
}

// IdentityConfig configures the identity backend used to validate callers.
type IdentityConfig struct {
	BaseURL           string
	AnonKey           string
	JWTSecret         string
	JWTAudience       string
	SessionCookieName string
	RequestTimeout    time.Duration
}

// ProviderConfig configures the inference provider.
type ProviderConfig struct {
	APIToken       string
	BaseURL        string
	ModelVersion   string
	RequestTimeout time.Duration
}

// RestoreConfig bounds uploads and the completion polling budget.
type RestoreConfig struct {
	MaxUploadBytes  int64
	TypePrefix      string
	PollInterval    time.Duration
	MaxPollAttempts int
}

// PollBudget is the worst-case wall-clock time spent waiting for one job.
func (c RestoreConfig) PollBudget() time.Duration {
	return c.PollInterval * time.Duration(c.MaxPollAttempts)
}

const (
	DefaultModelVersion   = "9283608cc6b7be6b65a8e44983db012355fde4132009bf99d976b2f0896856a3"
	DefaultMaxUploadBytes = 10 << 20
)

// LoadConfig loads configuration using CONFIG_FILE (if set) and the process environment.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv("CONFIG_FILE"))
}

// LoadConfigFrom loads configuration from the given file (may be empty) with
// environment variables taking precedence over file values.
func LoadConfigFrom(path string) (*Config, error) {
	file, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	src := source{file: file}

	restore := RestoreConfig{
		MaxUploadBytes:  int64(src.getInt("RESTORE_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		TypePrefix:      src.get("RESTORE_ALLOWED_TYPE_PREFIX", "image/"),
		PollInterval:    time.Second * time.Duration(src.getInt("RESTORE_POLL_INTERVAL_SECONDS", 5)),
		MaxPollAttempts: src.getInt("RESTORE_POLL_MAX_ATTEMPTS", 60),
	}
	// The restore handler holds the response open for the whole polling budget.
	defaultWrite := int((restore.PollBudget() + time.Minute) / time.Second)

	cfg := &Config{
		AppEnv:             src.get("APP_ENV", "development"),
		Port:               src.get("PORT", "8080"),
		DatabaseURL:        src.get("DATABASE_URL", ""),
		HTTPReadTimeout:    time.Second * time.Duration(src.getInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:   time.Second * time.Duration(src.getInt("HTTP_WRITE_TIMEOUT_SECONDS", defaultWrite)),
		HTTPIdleTimeout:    time.Second * time.Duration(src.getInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    src.getInt("RATE_LIMIT_PER_MINUTE", 30),
		IPRateLimitPerMin:  src.getInt("RATE_LIMIT_IP_PER_MINUTE", 120),
		CORSAllowedOrigins: splitList(src.get("CORS_ALLOWED_ORIGINS", "")),
		DailyQuota:         src.getInt("DAILY_QUOTA", 0),
		Identity: IdentityConfig{
			BaseURL:           strings.TrimRight(src.get("SUPABASE_URL", ""), "/"),
			AnonKey:           src.get("SUPABASE_ANON_KEY", ""),
			JWTSecret:         src.get("IDENTITY_JWT_SECRET", ""),
			JWTAudience:       src.get("IDENTITY_JWT_AUDIENCE", "authenticated"),
			SessionCookieName: src.get("SESSION_COOKIE_NAME", "sb-auth-token"),
			RequestTimeout:    time.Second * time.Duration(src.getInt("IDENTITY_TIMEOUT_SECONDS", 10)),
		},
		Provider: ProviderConfig{
			APIToken:       src.get("REPLICATE_API_TOKEN", ""),
			BaseURL:        strings.TrimRight(src.get("REPLICATE_BASE_URL", "https://api.replicate.com"), "/"),
			ModelVersion:   src.get("REPLICATE_MODEL_VERSION", DefaultModelVersion),
			RequestTimeout: time.Second * time.Duration(src.getInt("REPLICATE_TIMEOUT_SECONDS", 30)),
		},
		Restore: restore,
	}

	if cfg.Identity.BaseURL == "" && cfg.Identity.JWTSecret == "" {
		return nil, fmt.Errorf("SUPABASE_URL or IDENTITY_JWT_SECRET is required")
	}
	if cfg.Restore.PollInterval <= 0 || cfg.Restore.MaxPollAttempts <= 0 {
		return nil, fmt.Errorf("RESTORE_POLL_INTERVAL_SECONDS and RESTORE_POLL_MAX_ATTEMPTS must be positive")
	}
	if cfg.Restore.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("RESTORE_MAX_UPLOAD_BYTES must be positive")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

type source struct {
	file map[string]string
}

func (s source) get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v
	}
	return fallback
}

func (s source) getInt(key string, fallback int) int {
	if v := s.get(key, ""); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readConfigFile decodes a TOML or YAML document into flat upper-case keys.
// Nested tables are joined with underscores, so [replicate] api_token becomes
// REPLICATE_API_TOKEN.
func readConfigFile(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("config file %s: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	out := make(map[string]string)
	flatten("", raw, out)
	return out, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
