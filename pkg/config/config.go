package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingSecret is returned when a required API key is absent from the
// environment. The process must not serve without both secrets.
var ErrMissingSecret = errors.New("HF_API_KEY and SERPAPI_API_KEY must be set")

type Config struct {
	Server      ServerConfig
	HuggingFace HuggingFaceConfig
	SerpAPI     SerpAPIConfig
	Truncation  TruncationConfig
	Storage     StorageConfig
	Logger      LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type HuggingFaceConfig struct {
	ModelURL string
	APIKey   string

	MaxNewTokens int
	Temperature  float64
	TopP         float64
	Timeout      time.Duration

	// Parameters for the targeted last-word completion call.
	CompletionMaxNewTokens int
	CompletionTemperature  float64
	CompletionTimeout      time.Duration
}

type SerpAPIConfig struct {
	BaseURL string
	APIKey  string
	Locale  string // hl query parameter
	Country string // gl query parameter
	Timeout time.Duration
}

type TruncationConfig struct {
	MinWordLength  int
	MinTotalLength int
}

type StorageConfig struct {
	HistoryFile   string
	KnowledgeFile string
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "90"))
	maxNewTokens, _ := strconv.Atoi(getEnv("MAX_NEW_TOKENS", "1000"))
	temperature, _ := strconv.ParseFloat(getEnv("TEMPERATURE", "0.7"), 64)
	topP, _ := strconv.ParseFloat(getEnv("TOP_P", "0.9"), 64)
	completionTokens, _ := strconv.Atoi(getEnv("COMPLETION_MAX_NEW_TOKENS", "20"))
	completionTemp, _ := strconv.ParseFloat(getEnv("COMPLETION_TEMPERATURE", "0.2"), 64)
	minWordLen, _ := strconv.Atoi(getEnv("MIN_WORD_LENGTH_FOR_TRUNCATION", "2"))
	minTotalLen, _ := strconv.Atoi(getEnv("MIN_TOTAL_LENGTH_FOR_TRUNCATION", "40"))

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		HuggingFace: HuggingFaceConfig{
			ModelURL:               getEnv("HF_MODEL_URL", ""),
			APIKey:                 os.Getenv("HF_API_KEY"),
			MaxNewTokens:           maxNewTokens,
			Temperature:            temperature,
			TopP:                   topP,
			Timeout:                60 * time.Second,
			CompletionMaxNewTokens: completionTokens,
			CompletionTemperature:  completionTemp,
			CompletionTimeout:      30 * time.Second,
		},
		SerpAPI: SerpAPIConfig{
			BaseURL: getEnv("SERPAPI_BASE_URL", "https://serpapi.com/search"),
			APIKey:  os.Getenv("SERPAPI_API_KEY"),
			Locale:  getEnv("SEARCH_LOCALE", "fr"),
			Country: getEnv("SEARCH_COUNTRY", "fr"),
			Timeout: 10 * time.Second,
		},
		Truncation: TruncationConfig{
			MinWordLength:  minWordLen,
			MinTotalLength: minTotalLen,
		},
		Storage: StorageConfig{
			HistoryFile:   getEnv("HISTORY_FILE", "conversations.json"),
			KnowledgeFile: getEnv("KNOWLEDGE_FILE", "knowledge_base.json"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.HuggingFace.APIKey == "" || cfg.SerpAPI.APIKey == "" {
		return nil, ErrMissingSecret
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
