package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Web      WebConfig      `yaml:"web"`
	LLM      LLMConfig      `yaml:"llm"`
	Research ResearchConfig `yaml:"research"`
	Storage  StorageConfig  `yaml:"storage"`
}

// LLMConfig - ключи и модели reasoning-провайдеров.
// Доступность провайдера определяется один раз при загрузке:
// пустой ключ означает, что провайдер никогда не пробуется.
type LLMConfig struct {
	GroqAPIKey   string `yaml:"groqApiKey"`
	GroqModel    string `yaml:"groqModel"`
	GeminiAPIKey string `yaml:"geminiApiKey"`
	GeminiModel  string `yaml:"geminiModel"`
	OpenAIAPIKey string `yaml:"openaiApiKey"`
	OpenAIModel  string `yaml:"openaiModel"`
}

// ResearchConfig - опциональные креды социальных источников.
// Без кредов источник деградирует до site:-поиска.
type ResearchConfig struct {
	RedditClientID     string        `yaml:"redditClientId"`
	RedditClientSecret string        `yaml:"redditClientSecret"`
	RedditUserAgent    string        `yaml:"redditUserAgent"`
	TwitterBearerToken string        `yaml:"twitterBearerToken"`
	SourceTimeout      time.Duration `yaml:"sourceTimeout"`
}

type WebConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type StorageConfig struct {
	// DBPath - путь к sqlite базе. Пусто = in-memory store.
	DBPath string `yaml:"dbPath"`
}

func Load() (*Config, error) {
	// .env опционален: в проде переменные приходят из окружения
	_ = godotenv.Load()

	cfg := &Config{
		Web: WebConfig{
			ListenAddr: getEnv("WEB_LISTEN_ADDR", ":8000"),
		},
		LLM: LLMConfig{
			GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
			GroqModel:    getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Research: ResearchConfig{
			RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "CyberGuardAI/1.0"),
			TwitterBearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
			SourceTimeout:      10 * time.Second,
		},
		Storage: StorageConfig{
			DBPath: os.Getenv("DB_PATH"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
