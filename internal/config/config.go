// Package config loads the service configuration from the environment.
// All thresholds are tunable here rather than hardcoded in the pipeline;
// credentials come from env only and are never embedded.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the accident-detection service.
type Config struct {
	Port        string
	WSPort      string
	Environment string

	DatabaseURL string

	// External collaborators
	DetectorURL       string
	OpenWeatherAPIKey string
	WeatherURL        string
	OverpassURL       string

	// Accident site coordinates reported by the deployment (fixed camera)
	AccidentLat float64
	AccidentLon float64

	// Mail delivery
	SMTPHost      string
	SMTPPort      int
	SenderEmail   string
	SMTPPassword  string
	ReceiverEmail string

	// Incident response
	SearchRadiusMeters int
	MaxAttachments     int
	UploadDir          string

	// Retry/backoff for external calls
	RetryAttempts uint64
	RetryBase     time.Duration
	CallTimeout   time.Duration

	// How long shutdown waits for in-flight incident responses
	ResponderAwait time.Duration

	Tuning Tuning
}

// Tuning collects the detection thresholds of the decision pipeline.
type Tuning struct {
	OverlapThreshold     float64
	MinDistance          float64
	ProlongedFrames      int
	ContinuousFrames     int
	CollisionPercentage  float64
	SpeedThreshold       float64
	TrackerMinIoU        float64
	TrackerMaxCenterDist float64
	TrackerMaxMisses     int
}

// Load reads configuration from .env (if present) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		WSPort:      getEnv("WS_PORT", "8081"),
		Environment: getEnv("GO_ENV", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		DetectorURL:       getEnv("DETECTOR_URL", "http://localhost:8000"),
		OpenWeatherAPIKey: getEnv("OPENWEATHER_API_KEY", ""),
		WeatherURL:        getEnv("WEATHER_URL", "https://api.openweathermap.org/data/2.5/weather"),
		OverpassURL:       getEnv("OVERPASS_URL", "http://overpass-api.de/api/interpreter"),

		AccidentLat: getEnvFloat("ACCIDENT_LAT", 19.070),
		AccidentLon: getEnvFloat("ACCIDENT_LON", 72.877),

		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SenderEmail:   getEnv("SENDER_EMAIL", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		ReceiverEmail: getEnv("RECEIVER_EMAIL", ""),

		SearchRadiusMeters: getEnvInt("SEARCH_RADIUS_METERS", 5000),
		MaxAttachments:     getEnvInt("MAX_ATTACHMENTS", 3),
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),

		RetryAttempts:  uint64(getEnvInt("RETRY_ATTEMPTS", 3)),
		RetryBase:      getEnvDuration("RETRY_BASE", 500*time.Millisecond),
		CallTimeout:    getEnvDuration("CALL_TIMEOUT", 10*time.Second),
		ResponderAwait: getEnvDuration("RESPONDER_AWAIT", 30*time.Second),

		Tuning: Tuning{
			OverlapThreshold:     getEnvFloat("OVERLAP_THRESHOLD", 0.2),
			MinDistance:          getEnvFloat("MIN_DISTANCE", 50),
			ProlongedFrames:      getEnvInt("PROLONGED_THRESHOLD", 30),
			ContinuousFrames:     getEnvInt("CONTINUOUS_THRESHOLD", 120),
			CollisionPercentage:  getEnvFloat("COLLISION_PERCENTAGE_THRESHOLD", 0.20),
			SpeedThreshold:       getEnvFloat("SPEED_THRESHOLD", 5.0),
			TrackerMinIoU:        getEnvFloat("TRACKER_MIN_IOU", 0.1),
			TrackerMaxCenterDist: getEnvFloat("TRACKER_MAX_CENTER_DIST", 75),
			TrackerMaxMisses:     getEnvInt("TRACKER_MAX_MISSES", 5),
		},
	}

	if cfg.SMTPPassword == "" {
		log.Println("WARNING: SMTP_PASSWORD is not set; notifications will fail")
	}
	if cfg.OpenWeatherAPIKey == "" {
		log.Println("WARNING: OPENWEATHER_API_KEY is not set; reports degrade to unknown weather")
	}

	return cfg
}

// DatabaseURLForLog redacts credentials for logging.
func (c *Config) DatabaseURLForLog() string {
	if c.DatabaseURL == "" {
		return "(none)"
	}
	return "(configured)"
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("invalid int for %s: %q, using default %d", key, v, defaultVal)
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid float for %s: %q, using default %v", key, v, defaultVal)
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid duration for %s: %q, using default %s", key, v, defaultVal)
	}
	return defaultVal
}
