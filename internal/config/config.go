package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Cache       CacheConfig
	Database    DatabaseConfig
	Storage     StorageConfig
	Logging     LoggingConfig
	Auth        AuthConfig
	Classifiers ClassifiersConfig
	Vision      VisionConfig
	FaceGate    FaceGateConfig
	Thresholds  ThresholdsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string
	// TriggerRateLimit is the minimum delay between analysis triggers from
	// the same user.
	TriggerRateLimit time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Backend        string // "s3" or "local"
	S3Bucket       string
	S3Region       string
	LocalDir       string
	MaxUploadBytes int64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

// ClassifierConfig describes one remote classifier adapter.
type ClassifierConfig struct {
	// Kind selects the adapter protocol: "sync" or "polling".
	Kind            string
	Endpoint        string
	APIKey          string
	Timeout         time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Configured reports whether this adapter has an endpoint to call.
func (c ClassifierConfig) Configured() bool {
	return c.Endpoint != ""
}

// ClassifiersConfig holds the primary classifier and its fallback.
type ClassifiersConfig struct {
	Primary  ClassifierConfig
	Fallback ClassifierConfig
}

// VisionConfig holds the generative vision model settings used by face
// detection and explanation generation.
type VisionConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// FaceGateConfig selects the face detection provider.
type FaceGateConfig struct {
	// Provider is "vision", "rekognition", or "off".
	Provider  string
	AWSRegion string
}

// ThresholdsConfig holds the decision policy overrides. Zero values fall
// back to the built-in defaults.
type ThresholdsConfig struct {
	Fake            float64
	LikelyFake      float64
	Suspicious      float64
	LikelyAuthentic float64
	FrameFakeRatio  float64
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	cfg := &Config{}

	// Define flags with defaults
	httpAddr := flag.String("http", ":8080", "HTTP server address")
	triggerRateLimit := flag.Duration("trigger-rate-limit", 10*time.Second, "Minimum delay between analysis triggers per user")
	cacheTTL := flag.Duration("cache-ttl", time.Hour, "Cache TTL for analysis statuses")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dbHost := flag.String("db-host", "localhost", "PostgreSQL host")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "veriscope", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")
	storageBackend := flag.String("storage-backend", "local", "Object storage backend: s3 or local")
	storageDir := flag.String("storage-dir", "./data/media", "Directory for the local storage backend")

	flag.Parse()

	// Apply environment variable overrides
	applyEnvOverrides(httpAddr, triggerRateLimit, cacheTTL, cacheBackend, redisAddr, logLevel,
		dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode, storageBackend, storageDir)

	cfg.Server = ServerConfig{
		HTTPAddr:         *httpAddr,
		TriggerRateLimit: *triggerRateLimit,
	}

	cfg.Cache = CacheConfig{
		Backend:   *cacheBackend,
		TTL:       *cacheTTL,
		RedisAddr: *redisAddr,
	}

	cfg.Database = DatabaseConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		Database: *dbName,
		SSLMode:  *dbSSLMode,
	}

	cfg.Storage = loadStorageConfig(*storageBackend, *storageDir)

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	cfg.Auth = loadAuthConfig()
	cfg.Classifiers = loadClassifiersConfig()
	cfg.Vision = loadVisionConfig()
	cfg.FaceGate = loadFaceGateConfig()
	cfg.Thresholds = loadThresholdsConfig()

	return cfg
}

func loadStorageConfig(backend, localDir string) StorageConfig {
	maxUpload := int64(100 << 20) // 100 MiB
	if v := os.Getenv("STORAGE_MAX_UPLOAD_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			maxUpload = parsed
		}
	}

	return StorageConfig{
		Backend:        backend,
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       os.Getenv("AWS_REGION"),
		LocalDir:       localDir,
		MaxUploadBytes: maxUpload,
	}
}

func loadAuthConfig() AuthConfig {
	accessTTL := 15 * time.Minute
	if v := os.Getenv("AUTH_ACCESS_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			accessTTL = d
		}
	}

	return AuthConfig{
		JWTSecret:      getEnvOrDefault("AUTH_JWT_SECRET", "change-me-in-production"),
		JWTIssuer:      getEnvOrDefault("AUTH_JWT_ISSUER", "veriscope"),
		JWTAudience:    getEnvOrDefault("AUTH_JWT_AUDIENCE", "veriscope-users"),
		AccessTokenTTL: accessTTL,
	}
}

func loadClassifiersConfig() ClassifiersConfig {
	return ClassifiersConfig{
		Primary:  loadClassifierConfig("CLASSIFIER_PRIMARY", "sync"),
		Fallback: loadClassifierConfig("CLASSIFIER_FALLBACK", "polling"),
	}
}

func loadClassifierConfig(prefix, defaultKind string) ClassifierConfig {
	timeout := 30 * time.Second
	if v := os.Getenv(prefix + "_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	pollInterval := 2 * time.Second
	if v := os.Getenv(prefix + "_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			pollInterval = d
		}
	}

	maxPollAttempts := 30
	if v := os.Getenv(prefix + "_MAX_POLL_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxPollAttempts = parsed
		}
	}

	return ClassifierConfig{
		Kind:            getEnvOrDefault(prefix+"_KIND", defaultKind),
		Endpoint:        os.Getenv(prefix + "_ENDPOINT"),
		APIKey:          os.Getenv(prefix + "_API_KEY"),
		Timeout:         timeout,
		PollInterval:    pollInterval,
		MaxPollAttempts: maxPollAttempts,
	}
}

func loadVisionConfig() VisionConfig {
	timeout := 60 * time.Second
	if v := os.Getenv("VISION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	return VisionConfig{
		Endpoint: os.Getenv("VISION_ENDPOINT"),
		APIKey:   os.Getenv("VISION_API_KEY"),
		Model:    os.Getenv("VISION_MODEL"),
		Timeout:  timeout,
	}
}

func loadFaceGateConfig() FaceGateConfig {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("FACE_GATE_PROVIDER")))
	switch provider {
	case "vision", "rekognition", "off":
	default:
		provider = "vision"
	}

	return FaceGateConfig{
		Provider:  provider,
		AWSRegion: os.Getenv("AWS_REGION"),
	}
}

func loadThresholdsConfig() ThresholdsConfig {
	return ThresholdsConfig{
		Fake:            envFloat("THRESHOLD_FAKE"),
		LikelyFake:      envFloat("THRESHOLD_LIKELY_FAKE"),
		Suspicious:      envFloat("THRESHOLD_SUSPICIOUS"),
		LikelyAuthentic: envFloat("THRESHOLD_LIKELY_AUTHENTIC"),
		FrameFakeRatio:  envFloat("THRESHOLD_FRAME_FAKE_RATIO"),
	}
}

func envFloat(key string) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func applyEnvOverrides(
	httpAddr *string,
	triggerRateLimit *time.Duration,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	logLevel *string,
	dbHost *string,
	dbPort *int,
	dbUser *string,
	dbPassword *string,
	dbName *string,
	dbSSLMode *string,
	storageBackend *string,
	storageDir *string,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("TRIGGER_RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*triggerRateLimit = d
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		*dbHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			*dbPort = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		*dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*dbSSLMode = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		*storageBackend = v
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		*storageDir = v
	}
}
