package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database       DatabaseConfig
	SourceDatabase SourceDatabaseConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	JWT            JWTConfig
	App            AppConfig
	Storage        StorageConfig
	Geofence       GeofenceConfig
	Reconciliation ReconciliationConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// SourceDatabaseConfig points at the external time-clock system. Read-only.
type SourceDatabaseConfig struct {
	URL string
}

// RedisConfig holds the distributed check-in lock settings. Empty URL means in-process locking.
type RedisConfig struct {
	URL      string
	LockTTL  time.Duration
	LockWait time.Duration
}

// KafkaConfig holds the check-in event publisher settings. Empty brokers means log-only.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	Timezone    string
	CORSOrigins []string
}

type StorageConfig struct {
	BasePath string
	BaseURL  string
}

type GeofenceConfig struct {
	DefaultRadiusMeters float64
	Enforce             bool
}

type ReconciliationConfig struct {
	PolicyFile      string
	SyncWindowDays  int
	LookbackDays    int
	SyncInterval    time.Duration
	FullInterval    time.Duration
	ErrorSampleSize int
	SchedulerOn     bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hris_attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	config.SourceDatabase = SourceDatabaseConfig{
		URL: getEnv("SOURCE_DB_URL", ""),
	}

	// Redis configuration
	lockTTL, err := getEnvDuration("REDIS_LOCK_TTL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	lockWait, err := getEnvDuration("REDIS_LOCK_WAIT", 2*time.Second)
	if err != nil {
		return nil, err
	}

	config.Redis = RedisConfig{
		URL:      getEnv("REDIS_URL", ""),
		LockTTL:  lockTTL,
		LockWait: lockWait,
	}

	config.Kafka = KafkaConfig{
		Brokers: getEnvSlice("KAFKA_BROKERS"),
		Topic:   getEnv("KAFKA_TOPIC", "attendance.checkins"),
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Timezone:    getEnv("APP_TIMEZONE", "Asia/Jakarta"),
		CORSOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// JWT configuration
	accessTTL, err := getEnvDuration("JWT_ACCESS_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	config.JWT = JWTConfig{
		Secret:    getEnv("JWT_SECRET_KEY", ""),
		AccessTTL: accessTTL,
	}

	config.Storage = StorageConfig{
		BasePath: getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:  getEnv("STORAGE_BASE_URL", "/uploads"),
	}

	radius, err := getEnvFloat("GEOFENCE_DEFAULT_RADIUS_METERS", 100)
	if err != nil {
		return nil, err
	}
	enforce, err := getEnvBool("GEOFENCE_ENFORCE", false)
	if err != nil {
		return nil, err
	}

	config.Geofence = GeofenceConfig{
		DefaultRadiusMeters: radius,
		Enforce:             enforce,
	}

	// Reconciliation configuration
	syncDays, err := getEnvInt("RECONCILE_SYNC_WINDOW_DAYS", 3)
	if err != nil {
		return nil, err
	}
	lookback, err := getEnvInt("RECONCILE_LOOKBACK_DAYS", 45)
	if err != nil {
		return nil, err
	}
	syncInterval, err := getEnvDuration("RECONCILE_SYNC_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	fullInterval, err := getEnvDuration("RECONCILE_FULL_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	sampleSize, err := getEnvInt("RECONCILE_ERROR_SAMPLE_SIZE", 20)
	if err != nil {
		return nil, err
	}
	schedulerOn, err := getEnvBool("RECONCILE_SCHEDULER_ENABLED", true)
	if err != nil {
		return nil, err
	}

	config.Reconciliation = ReconciliationConfig{
		PolicyFile:      getEnv("RECONCILE_POLICY_FILE", ""),
		SyncWindowDays:  syncDays,
		LookbackDays:    lookback,
		SyncInterval:    syncInterval,
		FullInterval:    fullInterval,
		ErrorSampleSize: sampleSize,
		SchedulerOn:     schedulerOn,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.SourceDatabase.URL == "" {
		return fmt.Errorf("SOURCE_DB_URL is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	if c.Reconciliation.SyncWindowDays <= 0 {
		return fmt.Errorf("RECONCILE_SYNC_WINDOW_DAYS must be positive")
	}
	if c.Reconciliation.LookbackDays <= 0 {
		return fmt.Errorf("RECONCILE_LOOKBACK_DAYS must be positive")
	}
	if c.Geofence.DefaultRadiusMeters <= 0 {
		return fmt.Errorf("GEOFENCE_DEFAULT_RADIUS_METERS must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the timezone "today" is evaluated in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
