package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret             string        `mapstructure:"JWT_SECRET"`
	TokenTTL              time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	NutritionistAllowlist []string      `mapstructure:"NUTRITIONIST_ALLOWLIST"`
	RedisURL              string        `mapstructure:"REDIS_URL"`
	CompanyCacheTTL       time.Duration `mapstructure:"COMPANY_CACHE_TTL"`
	KafkaBrokers          []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic            string        `mapstructure:"KAFKA_TOPIC"`
	OTLPEndpoint          string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	RateLimitRPS          float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit             string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

// devJWTSecret signs tokens when ENV=development and JWT_SECRET is unset.
const devJWTSecret = "dev-only-wellness-secret"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("COMPANY_CACHE_TTL", "10m")
	v.SetDefault("KAFKA_TOPIC", "wellness-events")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("BODY_LIMIT", "8M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"JWT_SECRET", "TOKEN_TTL", "CORS_ORIGINS", "NUTRITIONIST_ALLOWLIST",
		"REDIS_URL", "COMPANY_CACHE_TTL", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT",
		"REQUEST_TIMEOUT",
	} {
		_ = v.BindEnv(key)
	}

	// A missing .env file is fine; the environment alone is enough.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Comma-separated env values arrive as a single element.
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.NutritionistAllowlist = splitList(v.GetString("NUTRITIONIST_ALLOWLIST"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set; using the development signing secret.")
		log.Println("WARNING: Do NOT use this configuration outside development.")
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if !c.IsDev() && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must not use the development secret when ENV=%q", c.Env)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}
