package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	HTTPAddr string

	StoreMode string
	MongoURI  string
	MongoDB   string
	SeedFile  string

	KafkaBrokers     []string
	KafkaTopicPrefix string

	SessionTTL         time.Duration
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	OutboxMaxAttempts  int

	RatingsBaseURL     string
	RatingsTimeout     time.Duration
	RatingsStaticToken string
	RatingsJWTSecret   string
	RatingsJWTIssuer   string
	RatingsJWTTTL      time.Duration

	MediaAPIBase     string
	CloudinaryCloud  string
	MediaPlaceholder string

	DisplayLocale   string
	DisplayCurrency string

	S3Endpoint       string
	S3PublicEndpoint string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3UseSSL         bool

	VerifyBaseURL  string
	VerifyTimeout  time.Duration
	VerifyGRPCAddr string
	VerifyGRPCDial time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		StoreMode:          strings.ToLower(getEnv("STORE_MODE", "memory")),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "webbuyer"),
		SeedFile:           getEnv("SEED_FILE", ""),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", ""),
		RatingsBaseURL:     getEnv("RATINGS_BASE_URL", "http://localhost:7005"),
		RatingsStaticToken: os.Getenv("RATINGS_STATIC_TOKEN"),
		RatingsJWTSecret:   os.Getenv("RATINGS_JWT_SECRET"),
		RatingsJWTIssuer:   getEnv("RATINGS_JWT_ISSUER", "webbuyer"),
		MediaAPIBase:       getEnv("MEDIA_API_BASE", "http://localhost:8080"),
		CloudinaryCloud:    getEnv("CLOUDINARY_CLOUD", ""),
		MediaPlaceholder:   getEnv("MEDIA_PLACEHOLDER", "/img/space-placeholder.png"),
		DisplayLocale:      getEnv("DISPLAY_LOCALE", "en-IN"),
		DisplayCurrency:    getEnv("DISPLAY_CURRENCY", "INR"),
		S3Endpoint:         getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3PublicEndpoint:   getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:           getEnv("S3_BUCKET", "webbuyer-photos"),
		VerifyBaseURL:      getEnv("VERIFY_BASE_URL", ""),
		VerifyGRPCAddr:     getEnv("VERIFY_GRPC_ADDR", ""),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL = sessionTTL

	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	maxAttempts, err := parseIntEnv("OUTBOX_MAX_ATTEMPTS", 8)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxMaxAttempts = maxAttempts

	ratingsTimeout, err := parseDurationEnv("RATINGS_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.RatingsTimeout = ratingsTimeout

	jwtTTL, err := parseDurationEnv("RATINGS_JWT_TTL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.RatingsJWTTTL = jwtTTL

	verifyTimeout, err := parseDurationEnv("VERIFY_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.VerifyTimeout = verifyTimeout

	verifyDial, err := parseDurationEnv("VERIFY_GRPC_DIAL_TIMEOUT", 3*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.VerifyGRPCDial = verifyDial

	useSSL, err := parseBoolEnv("S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL = useSSL
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}

	switch cfg.StoreMode {
	case "memory":
	case "mongo":
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORE_MODE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORE_MODE %q (expected memory or mongo)", cfg.StoreMode)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
