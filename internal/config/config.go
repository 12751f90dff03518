package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Queue backends.
const (
	QueueSQLite = "sqlite"
	QueueHTTP   = "http"
	QueueKafka  = "kafka"
)

const defaultGoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

type Config struct {
	Environment   string
	Server        ServerConfig
	Log           LogConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	AdsAPI        AdsAPIConfig
	Sync          SyncConfig
	Queue         QueueConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	Path      string
	LogTiming bool
}

type AuthConfig struct {
	Audiences  []string
	Issuers    []string
	JWKSURL    string
	HMACSecret string
	LocalDev   bool
}

type AdsAPIConfig struct {
	BaseURL        string
	Host           string
	APIKey         string
	Country        string
	MediaType      string
	Status         string
	RequestsPerSec float64
	// PageSize is forwarded as the per-page result count when positive.
	PageSize int
}

type SyncConfig struct {
	Lookback            time.Duration
	MaxPages            int
	FetchMaxRetries     int
	FetchBackoffBase    time.Duration
	FetchBackoffMax     time.Duration
	RateLimitBackoff    time.Duration
	RateLimitCooldown   time.Duration
	DispatchMaxRetries  int
	DispatchBackoffBase time.Duration
	Concurrency         int
	CallTimeout         time.Duration
	RunTimeout          time.Duration
}

type QueueConfig struct {
	Backend      string
	WorkerURL    string
	WorkerToken  string
	WorkerSecret string
	KafkaBrokers []string
	KafkaTopic   string
	RedisURL     string
	DedupeTTL    time.Duration
}

type ObservabilityConfig struct {
	Enabled           bool
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	SamplingRatio     float64
	MetricsConsole    bool
}

// Load reads configuration for the trigger server.
func Load() (Config, error) {
	return load(true)
}

// LoadForTool loads config for CLI tools, which never serve HTTP and so skip auth checks.
func LoadForTool() (Config, error) {
	return load(false)
}

func load(serving bool) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	env := resolveEnvironment(v)
	port := v.GetInt("adsync_port")
	if port == 0 {
		port = v.GetInt("port")
	}
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid ADSYNC_PORT: %d", port)
	}

	samplingRatio := clampFloat(v.GetFloat64("adsync_otel_sampling_ratio"), 0, 1)
	if raw := strings.TrimSpace(v.GetString("otel_traces_sampler_arg")); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OTEL_TRACES_SAMPLER_ARG %q: %w", raw, err)
		}
		samplingRatio = clampFloat(ratio, 0, 1)
	}

	serviceName := firstNonEmpty(v.GetString("otel_service_name"), v.GetString("adsync_service_name"), "adsync")
	serviceVersion := firstNonEmpty(v.GetString("adsync_version"), v.GetString("otel_service_version"), "dev")

	otlpEndpoint := strings.TrimSpace(v.GetString("otel_exporter_otlp_endpoint"))
	otlpCommonHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_headers"))
	metricsConsole := v.GetBool("adsync_otel_metrics_console")

	apiKey, err := resolveAPIKey(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment: env,
		Server:      ServerConfig{Port: port},
		Log: LogConfig{
			Level:  strings.TrimSpace(v.GetString("adsync_log_level")),
			Format: strings.TrimSpace(v.GetString("adsync_log_format")),
		},
		Database: DatabaseConfig{
			Path:      firstNonEmpty(v.GetString("adsync_db_path"), "data/adsync"),
			LogTiming: v.GetBool("adsync_db_timing"),
		},
		Auth: AuthConfig{
			Audiences:  splitList(firstNonEmpty(v.GetString("adsync_auth_audiences"), v.GetString("expect_audiences"))),
			Issuers:    splitList(v.GetString("adsync_auth_issuers")),
			JWKSURL:    strings.TrimSpace(v.GetString("adsync_auth_jwks_url")),
			HMACSecret: strings.TrimSpace(v.GetString("adsync_auth_hmac_secret")),
			LocalDev:   v.GetBool("adsync_local_dev"),
		},
		AdsAPI: AdsAPIConfig{
			BaseURL:        strings.TrimRight(strings.TrimSpace(v.GetString("adsync_ads_api_base_url")), "/"),
			Host:           strings.TrimSpace(v.GetString("adsync_ads_api_host")),
			APIKey:         apiKey,
			Country:        strings.TrimSpace(v.GetString("adsync_ads_api_country")),
			MediaType:      strings.TrimSpace(v.GetString("adsync_ads_api_media_type")),
			Status:         strings.TrimSpace(v.GetString("adsync_ads_api_status")),
			RequestsPerSec: clampFloat(v.GetFloat64("adsync_ads_api_rps"), 0, 100),
			PageSize:       clampInt(v.GetInt("adsync_ads_api_page_size"), 1, 100, 0),
		},
		Sync: SyncConfig{
			Lookback:            positiveDuration(v.GetDuration("adsync_lookback"), 240*time.Hour),
			MaxPages:            clampInt(v.GetInt("adsync_max_pages"), 1, 500, 20),
			FetchMaxRetries:     clampInt(v.GetInt("adsync_fetch_max_retries"), 0, 10, 3),
			FetchBackoffBase:    positiveDuration(v.GetDuration("adsync_fetch_backoff_base"), 8*time.Second),
			FetchBackoffMax:     positiveDuration(v.GetDuration("adsync_fetch_backoff_max"), 2*time.Minute),
			RateLimitBackoff:    nonNegativeDuration(v.GetDuration("adsync_rate_limit_backoff")),
			RateLimitCooldown:   nonNegativeDuration(v.GetDuration("adsync_rate_limit_cooldown")),
			DispatchMaxRetries:  clampInt(v.GetInt("adsync_dispatch_max_retries"), 0, 10, 3),
			DispatchBackoffBase: positiveDuration(v.GetDuration("adsync_dispatch_backoff_base"), 500*time.Millisecond),
			Concurrency:         clampInt(v.GetInt("adsync_concurrency"), 1, 64, 4),
			CallTimeout:         positiveDuration(v.GetDuration("adsync_call_timeout"), 30*time.Second),
			RunTimeout:          positiveDuration(v.GetDuration("adsync_run_timeout"), 15*time.Minute),
		},
		Queue: QueueConfig{
			Backend:      strings.ToLower(firstNonEmpty(v.GetString("adsync_queue_backend"), QueueSQLite)),
			WorkerURL:    strings.TrimSpace(v.GetString("adsync_worker_url")),
			WorkerToken:  strings.TrimSpace(v.GetString("adsync_worker_token")),
			WorkerSecret: strings.TrimSpace(v.GetString("adsync_worker_secret")),
			KafkaBrokers: splitList(v.GetString("adsync_kafka_brokers")),
			KafkaTopic:   strings.TrimSpace(v.GetString("adsync_kafka_topic")),
			RedisURL:     strings.TrimSpace(v.GetString("adsync_redis_url")),
			DedupeTTL:    positiveDuration(v.GetDuration("adsync_dedupe_ttl"), 720*time.Hour),
		},
		Observability: ObservabilityConfig{
			Enabled:           v.GetBool("adsync_otel_enabled") || otlpEndpoint != "" || metricsConsole,
			OTLPEndpoint:      otlpEndpoint,
			OTLPTraceHeaders:  mergeHeaderMaps(otlpCommonHeaders, parseOTLPHeaders(v.GetString("otel_exporter_otlp_traces_headers"))),
			OTLPMetricHeaders: mergeHeaderMaps(otlpCommonHeaders, parseOTLPHeaders(v.GetString("otel_exporter_otlp_metrics_headers"))),
			ServiceName:       serviceName,
			ServiceVer:        serviceVersion,
			SamplingRatio:     samplingRatio,
			MetricsConsole:    metricsConsole,
		},
	}

	if cfg.Auth.JWKSURL == "" && cfg.Auth.HMACSecret == "" {
		cfg.Auth.JWKSURL = defaultGoogleCertsURL
	}
	if len(cfg.Auth.Issuers) == 0 && cfg.Auth.JWKSURL == defaultGoogleCertsURL {
		cfg.Auth.Issuers = []string{"https://accounts.google.com", "accounts.google.com"}
	}

	if err := cfg.validate(serving); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("adsync_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("adsync_port", 0)
	v.SetDefault("port", 8080)
	v.SetDefault("adsync_log_level", "info")
	v.SetDefault("adsync_log_format", "text")
	v.SetDefault("adsync_db_path", "data/adsync")
	v.SetDefault("adsync_db_timing", false)
	v.SetDefault("adsync_auth_audiences", "")
	v.SetDefault("expect_audiences", "")
	v.SetDefault("adsync_auth_issuers", "")
	v.SetDefault("adsync_auth_jwks_url", "")
	v.SetDefault("adsync_auth_hmac_secret", "")
	v.SetDefault("adsync_local_dev", false)
	v.SetDefault("adsync_ads_api_base_url", "https://facebook-ads-library-scraper-api.p.rapidapi.com")
	v.SetDefault("adsync_ads_api_host", "facebook-ads-library-scraper-api.p.rapidapi.com")
	v.SetDefault("adsync_ads_api_key", "")
	v.SetDefault("adsync_ads_api_key_file", "")
	v.SetDefault("adsync_ads_api_country", "IN")
	v.SetDefault("adsync_ads_api_media_type", "VIDEO")
	v.SetDefault("adsync_ads_api_status", "ACTIVE")
	v.SetDefault("adsync_ads_api_rps", 2.0)
	v.SetDefault("adsync_ads_api_page_size", 0)
	v.SetDefault("adsync_max_pages", 20)
	v.SetDefault("adsync_lookback", "240h")
	v.SetDefault("adsync_fetch_max_retries", 3)
	v.SetDefault("adsync_fetch_backoff_base", "8s")
	v.SetDefault("adsync_fetch_backoff_max", "2m")
	v.SetDefault("adsync_rate_limit_backoff", "120s")
	v.SetDefault("adsync_rate_limit_cooldown", "24h")
	v.SetDefault("adsync_dispatch_max_retries", 3)
	v.SetDefault("adsync_dispatch_backoff_base", "500ms")
	v.SetDefault("adsync_concurrency", 4)
	v.SetDefault("adsync_call_timeout", "30s")
	v.SetDefault("adsync_run_timeout", "15m")
	v.SetDefault("adsync_queue_backend", QueueSQLite)
	v.SetDefault("adsync_worker_url", "")
	v.SetDefault("adsync_worker_token", "")
	v.SetDefault("adsync_worker_secret", "")
	v.SetDefault("adsync_kafka_brokers", "")
	v.SetDefault("adsync_kafka_topic", "adsync.ads")
	v.SetDefault("adsync_redis_url", "")
	v.SetDefault("adsync_dedupe_ttl", "720h")
	v.SetDefault("adsync_otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_headers", "")
	v.SetDefault("otel_exporter_otlp_traces_headers", "")
	v.SetDefault("otel_exporter_otlp_metrics_headers", "")
	v.SetDefault("otel_service_name", "")
	v.SetDefault("adsync_service_name", "adsync")
	v.SetDefault("adsync_version", "")
	v.SetDefault("otel_service_version", "")
	v.SetDefault("adsync_otel_sampling_ratio", 1.0)
	v.SetDefault("otel_traces_sampler_arg", "")
	v.SetDefault("adsync_otel_metrics_console", false)
}

func (c Config) validate(serving bool) error {
	if c.Auth.LocalDev && !c.IsLocalDevelopment() {
		return fmt.Errorf("ADSYNC_LOCAL_DEV is only allowed in local/dev environments (env=%q)", c.Environment)
	}

	switch c.Queue.Backend {
	case QueueSQLite:
	case QueueHTTP:
		if c.Queue.WorkerURL == "" {
			return fmt.Errorf("ADSYNC_WORKER_URL is required for the http queue backend")
		}
	case QueueKafka:
		if len(c.Queue.KafkaBrokers) == 0 || c.Queue.KafkaTopic == "" {
			return fmt.Errorf("ADSYNC_KAFKA_BROKERS and ADSYNC_KAFKA_TOPIC are required for the kafka queue backend")
		}
		if c.Queue.RedisURL == "" {
			return fmt.Errorf("ADSYNC_REDIS_URL is required for the kafka queue backend")
		}
	default:
		return fmt.Errorf("unknown ADSYNC_QUEUE_BACKEND %q", c.Queue.Backend)
	}

	if serving && !c.IsLocalDevelopment() && c.AdsAPI.APIKey == "" {
		return fmt.Errorf("ADSYNC_ADS_API_KEY or ADSYNC_ADS_API_KEY_FILE is required outside local/dev environments")
	}
	return nil
}

// resolveAPIKey prefers the inline key and falls back to a mounted key file.
func resolveAPIKey(v *viper.Viper) (string, error) {
	if key := strings.TrimSpace(v.GetString("adsync_ads_api_key")); key != "" {
		return key, nil
	}
	path := strings.TrimSpace(v.GetString("adsync_ads_api_key_file"))
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read ADSYNC_ADS_API_KEY_FILE: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

// AuthBypass reports whether bearer verification is disabled. It can only be
// true in a local environment because validate rejects LocalDev elsewhere.
func (c Config) AuthBypass() bool {
	return c.Auth.LocalDev && c.IsLocalDevelopment()
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"adsync_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}

func parseOTLPHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mergeHeaderMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
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

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func clampInt(value, lo, hi, fallback int) int {
	if value <= 0 {
		return fallback
	}
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func clampFloat(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func positiveDuration(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}

func nonNegativeDuration(value time.Duration) time.Duration {
	if value < 0 {
		return 0
	}
	return value
}
