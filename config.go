package authgate

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/localizekit/authgate/apperr"
)

// Store drivers accepted by StoreConfig.Driver.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// EnvProduction selects JSON logs and production-only config checks.
const EnvProduction = "production"

const (
	defaultPort       = 3000
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Config is the full runtime configuration. Build one with DefaultConfig or
// LoadConfigFromEnv; treat it as immutable after Build.
type Config struct {
	Environment string
	JWT         JWTConfig
	Server      ServerConfig
	Store       StoreConfig
	Provider    ProviderConfig
	Log         LogConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
	Telemetry   TelemetryConfig
}

// JWTConfig configures the access and refresh codecs.
//
// With hs256 the access codec signs with Secret and the refresh codec with
// RefreshSecret (Secret when empty). With ed25519 both codecs share the key
// pair and are kept apart by the token "use" claim.
type JWTConfig struct {
	SigningMethod string
	Secret        []byte
	RefreshSecret []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type ServerConfig struct {
	Port              int
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type StoreConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

// ProviderConfig points at the external identity provider.
type ProviderConfig struct {
	URL       string
	SecretKey string
	Timeout   time.Duration
}

type LogConfig struct {
	Level  string
	Format string // "json" or "text"; empty picks by Environment
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// TelemetryConfig enables OTLP/HTTP trace and metric export when Endpoint
// is set.
type TelemetryConfig struct {
	Endpoint    string
	ServiceName string
	Insecure    bool
}

type envConfig struct {
	Environment string `env:"AUTHGATE_ENV" envDefault:"development"`

	JWTSecret        string `env:"JWT_SECRET,required,notEmpty"`
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET"`
	JWTExpiresIn     string `env:"JWT_EXPIRES_IN"          envDefault:"15m"`
	JWTRefreshIn     string `env:"JWT_REFRESH_EXPIRES_IN"  envDefault:"7d"`
	JWTSigning       string `env:"JWT_SIGNING_METHOD"      envDefault:"hs256"`
	JWTPrivateKey    string `env:"JWT_PRIVATE_KEY"`
	JWTPublicKey     string `env:"JWT_PUBLIC_KEY"`
	JWTIssuer        string `env:"JWT_ISSUER"`

	Port              string        `env:"PORT"`
	ReadHeaderTimeout time.Duration `env:"AUTHGATE_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"AUTHGATE_SHUTDOWN_TIMEOUT"    envDefault:"15s"`

	StoreDriver string `env:"AUTHGATE_STORE"       envDefault:"memory"`
	SQLitePath  string `env:"AUTHGATE_SQLITE_PATH" envDefault:"authgate.db"`
	DatabaseURL string `env:"DB_URL_STRING"`

	ProviderURL     string        `env:"SUPABASE_URL"`
	ProviderSecret  string        `env:"SUPABASE_SECRET_KEY"`
	ProviderTimeout time.Duration `env:"AUTHGATE_PROVIDER_TIMEOUT" envDefault:"10s"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"`

	AuditEnabled    bool `env:"AUTHGATE_AUDIT"             envDefault:"true"`
	AuditBuffer     int  `env:"AUTHGATE_AUDIT_BUFFER"      envDefault:"1024"`
	AuditDropIfFull bool `env:"AUTHGATE_AUDIT_DROP_IF_FULL" envDefault:"true"`

	MetricsEnabled bool `env:"AUTHGATE_METRICS"           envDefault:"true"`
	MetricsLatency bool `env:"AUTHGATE_METRICS_LATENCY"   envDefault:"true"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"authgate"`
}

// DefaultConfig returns a development configuration without a signing
// secret. Callers must set JWT.Secret (or keys) before Build.
func DefaultConfig() Config {
	return Config{
		Environment: "development",
		JWT: JWTConfig{
			SigningMethod: "hs256",
			AccessTTL:     defaultAccessTTL,
			RefreshTTL:    defaultRefreshTTL,
		},
		Server: ServerConfig{
			Port:              defaultPort,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Store:    StoreConfig{Driver: StoreMemory, SQLitePath: "authgate.db"},
		Provider: ProviderConfig{Timeout: 10 * time.Second},
		Log:      LogConfig{Level: "info"},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Telemetry: TelemetryConfig{ServiceName: "authgate"},
	}
}

// LoadConfigFromEnv reads configuration from the process environment.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(env.Options{})
}

// LoadConfigFromMap reads configuration from vars instead of the process
// environment.
func LoadConfigFromMap(vars map[string]string) (Config, error) {
	return loadConfig(env.Options{Environment: vars})
}

func loadConfig(opts env.Options) (Config, error) {
	var raw envConfig
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return Config{}, envError(err)
	}

	cfg := DefaultConfig()
	cfg.Environment = strings.ToLower(strings.TrimSpace(raw.Environment))

	accessTTL, err := ParseTTL(raw.JWTExpiresIn)
	if err != nil {
		return Config{}, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	refreshTTL, err := ParseTTL(raw.JWTRefreshIn)
	if err != nil {
		return Config{}, fmt.Errorf("JWT_REFRESH_EXPIRES_IN: %w", err)
	}
	cfg.JWT = JWTConfig{
		SigningMethod: strings.ToLower(strings.TrimSpace(raw.JWTSigning)),
		Secret:        []byte(raw.JWTSecret),
		RefreshSecret: []byte(raw.JWTRefreshSecret),
		PrivateKey:    []byte(raw.JWTPrivateKey),
		PublicKey:     []byte(raw.JWTPublicKey),
		Issuer:        raw.JWTIssuer,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}

	port, err := ParsePort(raw.Port)
	if err != nil {
		return Config{}, err
	}
	cfg.Server = ServerConfig{
		Port:              port,
		ReadHeaderTimeout: raw.ReadHeaderTimeout,
		ShutdownTimeout:   raw.ShutdownTimeout,
	}

	cfg.Store = StoreConfig{
		Driver:      strings.ToLower(strings.TrimSpace(raw.StoreDriver)),
		SQLitePath:  raw.SQLitePath,
		DatabaseURL: raw.DatabaseURL,
	}
	cfg.Provider = ProviderConfig{
		URL:       raw.ProviderURL,
		SecretKey: raw.ProviderSecret,
		Timeout:   raw.ProviderTimeout,
	}
	cfg.Log = LogConfig{Level: raw.LogLevel, Format: raw.LogFormat}
	cfg.Audit = AuditConfig{
		Enabled:    raw.AuditEnabled,
		BufferSize: raw.AuditBuffer,
		DropIfFull: raw.AuditDropIfFull,
	}
	cfg.Metrics = MetricsConfig{
		Enabled:                 raw.MetricsEnabled,
		EnableLatencyHistograms: raw.MetricsLatency,
	}
	cfg.Telemetry = TelemetryConfig{
		Endpoint:    raw.OTLPEndpoint,
		ServiceName: raw.ServiceName,
		Insecure:    raw.OTLPInsecure,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envError turns a missing required variable into a MissingEnv error.
func envError(err error) error {
	var agg env.AggregateError
	if errors.As(err, &agg) {
		for _, e := range agg.Errors {
			var unset env.VarIsNotSetError
			if errors.As(e, &unset) {
				return apperr.MissingEnv(unset.Key)
			}
			var empty env.EmptyVarError
			if errors.As(e, &empty) {
				return apperr.MissingEnv(empty.Key)
			}
		}
	}
	var unset env.VarIsNotSetError
	if errors.As(err, &unset) {
		return apperr.MissingEnv(unset.Key)
	}
	return fmt.Errorf("parse env: %w", err)
}

// ParsePort parses a listen port. Empty selects the default; anything that
// is not an integer in 1..65535 is an InvalidPort error.
func ParsePort(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultPort, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return 0, apperr.InvalidPort(value)
	}
	return port, nil
}

// ParseTTL accepts Go durations ("15m", "1h30m"), a day suffix ("7d") or a
// bare number of seconds ("900").
func ParseTTL(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty duration")
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return d, nil
}

// Validate checks internal consistency. It does not require provider or
// database settings; see RequireProvider and RequireStore.
func (c *Config) Validate() error {
	switch c.JWT.SigningMethod {
	case "", "hs256":
		if len(c.JWT.Secret) == 0 {
			return apperr.MissingEnv("JWT_SECRET")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 && len(c.JWT.PublicKey) == 0 {
			return apperr.MissingEnv("JWT_PRIVATE_KEY")
		}
	default:
		return fmt.Errorf("unsupported JWT signing method %q", c.JWT.SigningMethod)
	}

	if c.JWT.AccessTTL <= 0 {
		return errors.New("access TTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("refresh TTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return apperr.InvalidPort(strconv.Itoa(c.Server.Port))
	}

	switch c.Store.Driver {
	case "", StoreMemory, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be > 0")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	if c.Environment == EnvProduction {
		if c.Store.Driver == "" || c.Store.Driver == StoreMemory {
			return errors.New("production requires a persistent store")
		}
		if c.JWT.SigningMethod != "ed25519" && len(c.JWT.Secret) < 32 {
			return errors.New("production requires a JWT secret of at least 32 bytes")
		}
	}

	return nil
}

// RequireProvider reports a MissingEnv error when provider login is not
// configured.
func (c *Config) RequireProvider() error {
	if strings.TrimSpace(c.Provider.URL) == "" {
		return apperr.MissingEnv("SUPABASE_URL")
	}
	if strings.TrimSpace(c.Provider.SecretKey) == "" {
		return apperr.MissingEnv("SUPABASE_SECRET_KEY")
	}
	return nil
}

// RequireStore checks the settings the selected driver needs.
func (c *Config) RequireStore() error {
	switch c.Store.Driver {
	case StoreSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return apperr.MissingEnv("AUTHGATE_SQLITE_PATH")
		}
	case StorePostgres:
		url := strings.TrimSpace(c.Store.DatabaseURL)
		if url == "" {
			return apperr.MissingEnv("DB_URL_STRING")
		}
		if !strings.HasPrefix(url, "postgres://") && !strings.HasPrefix(url, "postgresql://") {
			return errors.New("DB_URL_STRING must be a postgres:// or postgresql:// connection string")
		}
	}
	return nil
}

// SlogLevel maps Level onto a slog.Level. Empty is info.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(c.Level) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.Level)
	}
	return level, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
