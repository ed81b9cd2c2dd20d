package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Service ports
	IntakeServicePort string
	ReviewServicePort string
	AdminServicePort  string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers     []string
	KafkaGroupID     string
	RecordEventTopic string

	// LLM classifier
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModelName      string
	ClassifierTimeout time.Duration

	// Intake flow
	MaxPatientTurns    int
	HistoryWindow      int
	SessionTTL         time.Duration
	MinUtteranceLength int
	MaxUtteranceLength int
	RedactionRulesPath string

	// Auth
	JWTSecret        string
	JWTIssuer        string
	JWTAudience      string
	JWTTTL           time.Duration
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		IntakeServicePort: getEnv("INTAKE_SERVICE_PORT", "8081"),
		ReviewServicePort: getEnv("REVIEW_SERVICE_PORT", "8082"),
		AdminServicePort:  getEnv("ADMIN_SERVICE_PORT", "8083"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "vitalsort"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "vitalsort123"),
		PostgresDB:       getEnv("POSTGRES_DB", "vitalsort"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:     getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "vitalsort-triage"),
		RecordEventTopic: getEnv("RECORD_EVENT_TOPIC", "triage.records"),

		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName:      getEnv("LLM_MODEL_NAME", "gpt-4"),
		ClassifierTimeout: getDuration("CLASSIFIER_TIMEOUT", 20*time.Second),

		MaxPatientTurns:    getIntEnv("INTAKE_MAX_PATIENT_TURNS", 15),
		HistoryWindow:      getIntEnv("INTAKE_HISTORY_WINDOW", 6),
		SessionTTL:         getDuration("INTAKE_SESSION_TTL", 45*time.Minute),
		MinUtteranceLength: getIntEnv("INTAKE_MIN_UTTERANCE_LENGTH", 2),
		MaxUtteranceLength: getIntEnv("INTAKE_MAX_UTTERANCE_LENGTH", 2000),
		RedactionRulesPath: getEnv("REDACTION_RULES_PATH", ""),

		JWTSecret:        getEnv("JWT_SECRET", "change-me-before-deploy"),
		JWTIssuer:        getEnv("JWT_ISSUER", "vitalsort-triage"),
		JWTAudience:      getEnv("JWT_AUDIENCE", "vitalsort-staff"),
		JWTTTL:           getDuration("JWT_TTL", 8*time.Hour),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
