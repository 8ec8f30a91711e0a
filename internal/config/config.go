package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// InsecureDefaultSecret подставляется, когда JWT_SECRET не задан. Только для разработки.
const InsecureDefaultSecret = "secret"

// Config: итоговая конфигурация процесса. Читается один раз и передаётся по значению.
type Config struct {
	Server struct {
		Port     int `mapstructure:"port"`      // 5000
		GRPCPort int `mapstructure:"grpc_port"` // 0: gRPC выключен
	} `mapstructure:"server"`

	App struct {
		Env     string `mapstructure:"env"` // development|production|test
		Version string `mapstructure:"version"`
	} `mapstructure:"app"`

	Database struct {
		URL string `mapstructure:"url"` // пусто: in-memory store
	} `mapstructure:"database"`

	Auth struct {
		JWTSecret           string        `mapstructure:"jwt_secret"`
		JWTTTL              time.Duration `mapstructure:"jwt_ttl"`
		GoogleClientID      string        `mapstructure:"google_client_id"`
		GoogleAutoProvision bool          `mapstructure:"google_auto_provision"`
		EnforceRoles        bool          `mapstructure:"enforce_roles"`
	} `mapstructure:"auth"`

	HTTP struct {
		CORSOrigins string `mapstructure:"cors_origins"` // через запятую, "*" = любой
	} `mapstructure:"http"`

	RateLimit struct {
		Burst          int     `mapstructure:"burst"`
		PerSecond      float64 `mapstructure:"per_second"`
		TrustedProxies string  `mapstructure:"trusted_proxies"` // IP/CIDR через запятую
	} `mapstructure:"ratelimit"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // json|text
	} `mapstructure:"logs"`

	Tracing struct {
		Endpoint string `mapstructure:"endpoint"`
		Insecure bool   `mapstructure:"insecure"`
	} `mapstructure:"otel"`

	AMQP struct {
		URL      string `mapstructure:"url"`
		Exchange string `mapstructure:"exchange"`
	} `mapstructure:"amqp"`

	Seed struct {
		Demo bool `mapstructure:"demo"`
	} `mapstructure:"seed"`
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }

// GRPCAddr returns the gRPC listen address, or "" when gRPC is disabled.
func (c Config) GRPCAddr() string {
	if c.Server.GRPCPort <= 0 {
		return ""
	}
	return fmt.Sprintf(":%d", c.Server.GRPCPort)
}

// AllowedOrigins splits the CORS origin list.
func (c Config) AllowedOrigins() []string { return splitList(c.HTTP.CORSOrigins) }

// TrustedProxies splits the list of proxies allowed to set X-Forwarded-For.
func (c Config) TrustedProxies() []string { return splitList(c.RateLimit.TrustedProxies) }

func splitList(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ключ viper -> имя переменной окружения
var envNames = map[string]string{
	"server.port":                "PORT",
	"server.grpc_port":           "GRPC_PORT",
	"app.env":                    "APP_ENV",
	"app.version":                "APP_VERSION",
	"database.url":               "DATABASE_URL",
	"auth.jwt_secret":            "JWT_SECRET",
	"auth.jwt_ttl":               "JWT_TTL",
	"auth.google_client_id":      "GOOGLE_CLIENT_ID",
	"auth.google_auto_provision": "GOOGLE_AUTO_PROVISION",
	"auth.enforce_roles":         "AUTH_ENFORCE_ROLES",
	"http.cors_origins":          "CORS_ORIGINS",
	"ratelimit.burst":            "RATE_LIMIT_BURST",
	"ratelimit.per_second":       "RATE_LIMIT_PER_SECOND",
	"ratelimit.trusted_proxies":  "TRUSTED_PROXIES",
	"logs.level":                 "LOG_LEVEL",
	"logs.format":                "LOG_FORMAT",
	"otel.endpoint":              "OTEL_EXPORTER_OTLP_ENDPOINT",
	"otel.insecure":              "OTEL_EXPORTER_OTLP_INSECURE",
	"amqp.url":                   "AMQP_URL",
	"amqp.exchange":              "AMQP_EXCHANGE",
	"seed.demo":                  "SEED_DEMO",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.grpc_port", 0)
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "dev")
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_ttl", "168h")
	v.SetDefault("auth.google_client_id", "")
	v.SetDefault("auth.google_auto_provision", true)
	v.SetDefault("auth.enforce_roles", false)
	v.SetDefault("http.cors_origins", "*")
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.per_second", 5)
	v.SetDefault("ratelimit.trusted_proxies", "")
	v.SetDefault("logs.level", "info")
	v.SetDefault("logs.format", "json")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", true)
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "gearguard.events")
	v.SetDefault("seed.demo", false)
}

// Load reads configuration from the environment and an optional YAML file
// (CONFIG_FILE, or ./config.yaml). Insecure or degraded fallbacks are
// reported as warnings rather than errors.
func Load() (Config, []string, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	warnings, err := check(&cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func check(c *Config) ([]string, error) {
	var warnings []string
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		c.Auth.JWTSecret = InsecureDefaultSecret
		warnings = append(warnings, "JWT_SECRET is not set; using an insecure development secret")
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		warnings = append(warnings, "DATABASE_URL is not set; using the in-memory store")
	}
	if strings.TrimSpace(c.Auth.GoogleClientID) == "" {
		warnings = append(warnings, "GOOGLE_CLIENT_ID is not set; Google sign-in is disabled")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return nil, fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Auth.JWTTTL <= 0 {
		return nil, fmt.Errorf("auth.jwt_ttl must be positive, got %s", c.Auth.JWTTTL)
	}
	if c.RateLimit.Burst <= 0 || c.RateLimit.PerSecond <= 0 {
		return nil, errors.New("ratelimit.burst and ratelimit.per_second must be positive")
	}
	return warnings, nil
}
