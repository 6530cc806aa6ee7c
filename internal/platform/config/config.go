package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Object store backends.
const (
	ObjectStoreS3     = "s3"
	ObjectStoreMemory = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	StoreDriver    string
	MigrationsPath string

	JWTSecret string
	JWTIssuer string

	// Sweeper
	ReviewStaleAfter     time.Duration
	SweepClaimInterval   time.Duration
	SweepHygieneInterval time.Duration
	SweepRunTimeout      time.Duration
	ActivityLogRetention time.Duration

	// Object storage
	ObjectStore string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string

	FirebaseCredentialsFile string
	RedisURL                string
	RateLimit               string
	CORSAllowedOrigins      []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "invoice-review-app")
	v.SetDefault("REVIEW_STALE_AFTER", "24h")
	v.SetDefault("SWEEP_CLAIM_INTERVAL", "5m")
	v.SetDefault("SWEEP_HYGIENE_INTERVAL", "24h")
	v.SetDefault("SWEEP_RUN_TIMEOUT", "2m")
	v.SetDefault("ACTIVITY_LOG_RETENTION", "2160h")
	v.SetDefault("OBJECT_STORE", ObjectStoreMemory)
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_PREFIX", "invoices/")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:             v.GetString("PGSQL_URL"),
		Port:                    v.GetString("PORT"),
		IsProduction:            v.GetBool("IS_PRODUCTION"),
		StoreDriver:             strings.ToLower(v.GetString("STORE_DRIVER")),
		MigrationsPath:          v.GetString("MIGRATIONS_PATH"),
		JWTSecret:               v.GetString("JWT_SECRET"),
		JWTIssuer:               v.GetString("JWT_ISSUER"),
		ObjectStore:             strings.ToLower(v.GetString("OBJECT_STORE")),
		S3Bucket:                v.GetString("S3_BUCKET"),
		S3Region:                v.GetString("S3_REGION"),
		S3Endpoint:              v.GetString("S3_ENDPOINT"),
		S3Prefix:                v.GetString("S3_PREFIX"),
		FirebaseCredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
		RedisURL:                v.GetString("REDIS_URL"),
		RateLimit:               v.GetString("RATE_LIMIT"),
		CORSAllowedOrigins:      splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"REVIEW_STALE_AFTER", &cfg.ReviewStaleAfter},
		{"SWEEP_CLAIM_INTERVAL", &cfg.SweepClaimInterval},
		{"SWEEP_HYGIENE_INTERVAL", &cfg.SweepHygieneInterval},
		{"SWEEP_RUN_TIMEOUT", &cfg.SweepRunTimeout},
		{"ACTIVITY_LOG_RETENTION", &cfg.ActivityLogRetention},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid value for %s ('%s'): must be a positive duration", d.key, v.GetString(d.key))
		}
		*d.target = parsed
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL is required when STORE_DRIVER is %s", StoreDriverPostgres)
		}
	case StoreDriverMemory:
		log.Println("Warning: STORE_DRIVER=memory, data is lost on restart.")
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER '%s' (expected postgres or memory)", cfg.StoreDriver)
	}

	switch cfg.ObjectStore {
	case ObjectStoreS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when OBJECT_STORE is %s", ObjectStoreS3)
		}
	case ObjectStoreMemory:
	default:
		return nil, fmt.Errorf("unknown OBJECT_STORE '%s' (expected s3 or memory)", cfg.ObjectStore)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "insecure-development-secret-change-me"
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	if cfg.FirebaseCredentialsFile == "" {
		log.Println("Warning: FIREBASE_CREDENTIALS_FILE not set. Push notifications are logged only.")
	}

	return cfg, nil
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
