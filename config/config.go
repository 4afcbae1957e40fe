package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	KieAPIKey   string
	KieBaseURL  string
	ScriptModel string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	DefaultSceneCount int
	MaxRetries        int
	PollInterval      time.Duration
	CrossfadeDuration float64
	TrimLeadIn        float64

	OutputDir string
	TempDir   string

	EncoderWorkers int

	// Optional sinks. Empty values disable the corresponding integration.
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RedisMinIdleConns int
	DatabaseURL       string
	KafkaBrokers      string
	KafkaTopic        string
}

func Load() *Config {
	// Missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("SERVICE_PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		KieAPIKey:   getEnv("KIE_API_KEY", ""),
		KieBaseURL:  getEnv("KIE_BASE_URL", "https://api.kie.ai/api/v1"),
		ScriptModel: getEnv("SCRIPT_MODEL", "gpt-4o-mini"),

		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		DefaultSceneCount: getEnvAsInt("DEFAULT_SCENE_COUNT", 5),
		MaxRetries:        getEnvAsInt("MAX_RETRIES", 2),
		PollInterval:      time.Duration(getEnvAsInt("API_POLL_INTERVAL_SECONDS", 10)) * time.Second,
		CrossfadeDuration: getEnvAsFloat("CROSSFADE_DURATION", 0.5),
		TrimLeadIn:        getEnvAsFloat("TRIM_LEAD_IN", 1.0),

		OutputDir: getEnv("OUTPUT_DIR", "./outputs"),
		TempDir:   getEnv("TEMP_DIR", "./temp"),

		EncoderWorkers: getEnvAsInt("ENCODER_WORKERS", 2),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		RedisPoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
		RedisMinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		KafkaBrokers:      getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "job_events"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
