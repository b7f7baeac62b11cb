package config

import (
	"bufio"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aigoflow/kubescale-predictor/internal/models"
)

type Config struct {
	// HTTP Configuration
	HTTPAddr string

	// Search collaborator (Tavily)
	TavilyAPIKey  string
	TavilyBaseURL string

	// LLM collaborator (Groq, OpenAI-compatible)
	GroqAPIKey          string
	GroqBaseURL         string
	GroqModel           string
	MaxTokens           int
	Temperature         float64
	CollaboratorTimeout time.Duration

	// Prediction defaults
	DefaultDeployment string
	MetricsEnabled    bool

	// NATS Configuration (empty URL disables the transport)
	NatsURL        string
	PredictSubject string
	EventSubject   string
	QueueGroup     string
	Workers        int

	// Load reports for the NATS worker pool
	LoadSubject           string
	BackpressureThreshold int

	// Refresher Configuration
	TargetsFile     string
	RefreshInterval time.Duration

	LogLevel string
}

func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := loadDotEnv(envFile); err != nil {
			slog.Warn("Could not load env file", "file", envFile, "error", err)
		} else {
			slog.Info("Environment loaded", "file", envFile)
		}
	}

	return &Config{
		HTTPAddr:              getEnv("HTTP_ADDR", ":8000"),
		TavilyAPIKey:          getEnv("TAVILY_API_KEY", ""),
		TavilyBaseURL:         getEnv("TAVILY_BASE_URL", "https://api.tavily.com"),
		GroqAPIKey:            getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:           getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:             getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		MaxTokens:             getEnvInt("LLM_MAX_TOKENS", 50),
		Temperature:           getEnvFloat("LLM_TEMPERATURE", 0.3),
		CollaboratorTimeout:   getEnvDuration("COLLABORATOR_TIMEOUT", "30s"),
		DefaultDeployment:     getEnv("DEFAULT_DEPLOYMENT", models.DefaultDeployment),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
		NatsURL:               getEnv("NATS_URL", ""),
		PredictSubject:        getEnv("PREDICT_SUBJECT", "predictor.predict"),
		EventSubject:          getEnv("EVENT_SUBJECT", "predictor.events"),
		QueueGroup:            getEnv("QUEUE_GROUP", "predictors"),
		Workers:               getEnvInt("NATS_WORKERS", 4),
		LoadSubject:           getEnv("LOAD_SUBJECT", "predictor.load"),
		BackpressureThreshold: getEnvInt("BACKPRESSURE_THRESHOLD", 10),
		TargetsFile:           getEnv("TARGETS_FILE", ""),
		RefreshInterval:       getEnvDuration("REFRESH_INTERVAL", "60s"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}, nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadDotEnv(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key, defaultVal string) time.Duration {
	val := getEnv(key, defaultVal)
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaultVal)
	return d
}
