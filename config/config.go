package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	HTTPAddr string

	// MQTT broker settings. The orchestrator publishes commands to
	// device/{id}/cmd and consumes device/{id}/ack and device/{id}/event.
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTQoS      int

	// Correlation timing.
	AckTimeout     time.Duration // window before an unresolved track expires
	SweepInterval  time.Duration // period of the expiry sweep
	TrackRetention time.Duration // how long terminal tracks stay queryable

	// Synthesizer. SynthPath is invoked as:
	//   <SynthPath> -text <payload> -out <dir> -format <AudioFormat>
	// and must write numbered frame files (frame_000.<format>, ...) into dir.
	SynthPath       string
	AudioFormat     string
	AudioSampleRate int
	SendBuffer      int // per-device outbound frame buffer

	// MySQL.
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO audio archive.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Control-plane auth.
	JWTSecret         string
	JWTTTL            time.Duration
	AdminUser         string
	AdminPasswordHash string // bcrypt hash, never the plaintext

	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration ("15s", "2m")
// or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://127.0.0.1:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "greetfm"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: os.Getenv("MQTT_PASSWORD"),
		MQTTQoS:      getEnvInt("MQTT_QOS", 1),

		AckTimeout:     getEnvDuration("ACK_TIMEOUT", 15*time.Second),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 5*time.Second),
		TrackRetention: getEnvDuration("TRACK_RETENTION", 10*time.Minute),

		SynthPath:       getEnv("SYNTH_PATH", "greetfm-tts"),
		AudioFormat:     getEnv("AUDIO_FORMAT", "pcm"),
		AudioSampleRate: getEnvInt("AUDIO_SAMPLE_RATE", 16000),
		SendBuffer:      getEnvInt("SEND_BUFFER", 64),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "greetfm"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "greetfm-audio"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTTTL:            getEnvDuration("JWT_TTL", 12*time.Hour),
		AdminUser:         getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
