// Package config loads service configuration from the environment or a
// local .env file so main stays lean. Empty backing-store settings select
// the in-memory implementations.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the workflow engine.
type Config struct {
	Addr          string `mapstructure:"BANKOPS_ADDR"`
	JWTSigningKey string `mapstructure:"BANKOPS_JWT_SIGNING_KEY"`

	PostgresURL string `mapstructure:"BANKOPS_POSTGRES_URL"`
	RedisURL    string `mapstructure:"BANKOPS_REDIS_URL"`

	KafkaBrokers    string `mapstructure:"BANKOPS_KAFKA_BROKERS"`
	KafkaAuditTopic string `mapstructure:"BANKOPS_KAFKA_AUDIT_TOPIC"`

	FaydaBaseURL   string `mapstructure:"BANKOPS_FAYDA_BASE_URL"`
	FaydaAPIKey    string `mapstructure:"BANKOPS_FAYDA_API_KEY"`
	FaydaStreamURL string `mapstructure:"BANKOPS_FAYDA_STREAM_URL"`

	OTPTTL time.Duration `mapstructure:"BANKOPS_OTP_TTL"`

	LogLevel  string `mapstructure:"BANKOPS_LOG_LEVEL"`
	LogFormat string `mapstructure:"BANKOPS_LOG_FORMAT"`
}

// Load reads configuration from the environment, falling back to a .env
// file in the working directory.
func Load() (Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("BANKOPS_ADDR", ":8080")
	v.SetDefault("BANKOPS_JWT_SIGNING_KEY", "dev-secret-key-change-in-production")
	v.SetDefault("BANKOPS_KAFKA_AUDIT_TOPIC", "bankops.audit")
	v.SetDefault("BANKOPS_OTP_TTL", 5*time.Minute)
	v.SetDefault("BANKOPS_LOG_LEVEL", "info")
	v.SetDefault("BANKOPS_LOG_FORMAT", "json")

	for _, key := range []string{
		"BANKOPS_ADDR",
		"BANKOPS_JWT_SIGNING_KEY",
		"BANKOPS_POSTGRES_URL",
		"BANKOPS_REDIS_URL",
		"BANKOPS_KAFKA_BROKERS",
		"BANKOPS_KAFKA_AUDIT_TOPIC",
		"BANKOPS_FAYDA_BASE_URL",
		"BANKOPS_FAYDA_API_KEY",
		"BANKOPS_FAYDA_STREAM_URL",
		"BANKOPS_OTP_TTL",
		"BANKOPS_LOG_LEVEL",
		"BANKOPS_LOG_FORMAT",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Brokers splits the comma-separated broker list.
func (c Config) Brokers() []string {
	if strings.TrimSpace(c.KafkaBrokers) == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
