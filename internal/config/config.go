package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/haulwise/service-dispatch/pkg/database"
)

// Sequence store backends.
const (
	SequenceBackendPostgres = "postgres"
	SequenceBackendRedis    = "redis"
)

// KafkaConfig holds broker settings and topic names.
type KafkaConfig struct {
	Brokers        []string
	GroupPrefix    string
	BookingTopic   string
	TelemetryTopic string
	Enabled        bool
}

// RedisConfig holds the Redis connection used by the redis sequence backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds token settings.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServiceConfig holds all configuration for the dispatch service.
type ServiceConfig struct {
	Port            string
	AppEnv          string
	DBConfig        database.PostgresConfig
	JWTConfig       JWTConfig
	KafkaConfig     KafkaConfig
	RedisConfig     RedisConfig
	SequenceBackend string
	Location        *time.Location
	MetricsEnabled  bool
	MaxBodyBytes    int64
}

// Load reads configuration from DISPATCH_* environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("DISPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", v.GetString("TIMEZONE"), err)
	}

	backend := strings.ToLower(v.GetString("SEQUENCE_BACKEND"))
	if backend != SequenceBackendPostgres && backend != SequenceBackendRedis {
		return nil, fmt.Errorf("invalid SEQUENCE_BACKEND %q", backend)
	}

	secret := v.GetString("JWT_SECRET")
	appEnv := v.GetString("APP_ENV")
	if secret == "" && appEnv != "development" {
		return nil, fmt.Errorf("JWT_SECRET is required outside development")
	}

	port := v.GetString("SERVICE_PORT")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	return &ServiceConfig{
		Port:   port,
		AppEnv: appEnv,
		DBConfig: database.PostgresConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		JWTConfig: JWTConfig{
			Secret:     secret,
			AccessTTL:  v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTTL: v.GetDuration("JWT_REFRESH_TTL"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:        splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix:    v.GetString("KAFKA_GROUP_PREFIX"),
			BookingTopic:   v.GetString("KAFKA_BOOKING_TOPIC"),
			TelemetryTopic: v.GetString("KAFKA_TELEMETRY_TOPIC"),
			Enabled:        v.GetBool("KAFKA_ENABLED"),
		},
		RedisConfig: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		SequenceBackend: backend,
		Location:        loc,
		MetricsEnabled:  v.GetBool("METRICS_ENABLED"),
		MaxBodyBytes:    v.GetInt64("MAX_BODY_BYTES"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "dispatch")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h")

	v.SetDefault("KAFKA_ENABLED", true)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "")
	v.SetDefault("KAFKA_BOOKING_TOPIC", "dispatch.booking-events")
	v.SetDefault("KAFKA_TELEMETRY_TOPIC", "telemetry.driver-locations")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SEQUENCE_BACKEND", SequenceBackendPostgres)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("METRICS_ENABLED", true)
	// base64 proof photos of ~10MB inflate by a third
	v.SetDefault("MAX_BODY_BYTES", 15<<20)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
