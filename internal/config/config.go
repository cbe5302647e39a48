package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the receptionist server
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	Database                  DatabaseConfig
	Portal                    PortalConfig
	OpenAI                    OpenAIConfig
	Realtime                  RealtimeConfig
	Events                    EventsConfig
	Archive                   ArchiveConfig
	PublicWSSBase             string
	RulesDir                  string
	ClinicLocation            *time.Location
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	Username        string
	Password        string
	Name            string
	SSLMode         string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PortalConfig holds the seeded management portal account
type PortalConfig struct {
	Username string
	Password string
}

// OpenAIConfig holds credentials for the chat completion client
type OpenAIConfig struct {
	APIKey    string
	ChatModel string
}

// RealtimeConfig tunes the speech model session. Loaded from REALTIME_* variables.
type RealtimeConfig struct {
	URL               string        `envconfig:"URL" default:"wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview-2024-12-17"`
	Voice             string        `envconfig:"VOICE" default:"coral"`
	Temperature       float64       `envconfig:"TEMPERATURE" default:"0.8"`
	MaxOutputTokens   int           `envconfig:"MAX_OUTPUT_TOKENS" default:"1024"`
	VADThreshold      float64       `envconfig:"VAD_THRESHOLD" default:"0.75"`
	PrefixPaddingMs   int           `envconfig:"PREFIX_PADDING_MS" default:"300"`
	SilenceDurationMs int           `envconfig:"SILENCE_DURATION_MS" default:"700"`
	KeepAlive         time.Duration `envconfig:"KEEPALIVE" default:"25s"`
	Watchdog          time.Duration `envconfig:"WATCHDOG" default:"1500ms"`
}

// EventsConfig selects where domain events are published
type EventsConfig struct {
	Backend      string
	KafkaBrokers []string
	KafkaTopic   string
	SQSQueueName string
}

// ArchiveConfig selects where call transcripts are stored
type ArchiveConfig struct {
	Backend string
	Bucket  string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		Host:     getEnv("DB_HOST", "localhost"),
		Username: getEnv("DB_USERNAME", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "dental_clinic"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	switch dbConfig.Driver {
	case "postgres":
		dbConfig.Port = getEnv("DB_PORT", "5432")
		dbConfig.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			dbConfig.Host, dbConfig.Username, dbConfig.Password, dbConfig.Name, dbConfig.Port, dbConfig.SSLMode)
	case "mysql":
		dbConfig.Port = getEnv("DB_PORT", "3306")
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	case "sqlite":
		dbConfig.DSN = getEnv("DB_NAME", "dental_clinic.db")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", dbConfig.Driver)
	}

	// A full connection string wins over the individual parts
	if dsn := getEnv("DATABASE_URL", ""); dsn != "" {
		dbConfig.DSN = dsn
	}

	maxOpen, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	connLifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	dbConfig.MaxOpenConns = maxOpen
	dbConfig.MaxIdleConns = maxIdle
	dbConfig.ConnMaxLifetime = connLifetime

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	loc, err := time.LoadLocation(getEnv("CLINIC_TIMEZONE", "Australia/Sydney"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE: %w", err)
	}

	// Voice tuning uses struct tags with defaults
	var realtime RealtimeConfig
	if err := envconfig.Process("realtime", &realtime); err != nil {
		return nil, fmt.Errorf("invalid REALTIME settings: %w", err)
	}

	events := EventsConfig{
		Backend:      strings.ToLower(getEnv("EVENTS_BACKEND", "none")),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "clinic-events"),
		SQSQueueName: getEnv("SQS_QUEUE_NAME", "clinic-events"),
	}

	archive := ArchiveConfig{
		Backend: strings.ToLower(getEnv("ARCHIVE_BACKEND", "database")),
		Bucket:  getEnv("ARCHIVE_BUCKET", ""),
	}
	if archive.Backend == "s3" && archive.Bucket == "" {
		return nil, fmt.Errorf("ARCHIVE_BUCKET is required when ARCHIVE_BACKEND=s3")
	}

	// Return complete configuration
	return &Config{
		Port:                      getEnv("PORT", "5050"),
		Origin:                    getEnv("ORIGIN", "http://localhost:3000"),
		Environment:               getEnv("APP_ENV", "development"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		Database:                  dbConfig,
		Portal: PortalConfig{
			Username: getEnv("PORTAL_USERNAME", "admin"),
			Password: getEnv("PORTAL_PASSWORD", "clinic2026"),
		},
		OpenAI: OpenAIConfig{
			APIKey:    getEnv("OPENAI_API_KEY", ""),
			ChatModel: getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		},
		Realtime:       realtime,
		Events:         events,
		Archive:        archive,
		PublicWSSBase:  strings.TrimRight(getEnv("PUBLIC_WSS_BASE", "wss://localhost:5050"), "/"),
		RulesDir:       getEnv("RULES_DIR", ""),
		ClinicLocation: loc,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
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
