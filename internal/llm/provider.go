package llm

import (
	"context"

	"github.com/TechNxt05/CyberGuard/internal/config"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// Backend - один взаимозаменяемый reasoning-провайдер в цепочке.
// Model - полное имя модели в нотации Genkit ("groq/llama-3.3-70b-versatile").
type Backend struct {
	Name   string
	Model  string
	Vision bool
}

// BackendsFromConfig строит приоритетный список провайдеров из конфига.
// Приоритет: Groq -> Gemini -> OpenAI. Провайдер без ключа не попадает
// в список вообще - он никогда не пробуется.
func BackendsFromConfig(cfg config.LLMConfig) []Backend {
	var backends []Backend

	if cfg.GroqAPIKey != "" {
		backends = append(backends, Backend{
			Name:  "groq",
			Model: "groq/" + cfg.GroqModel,
		})
	}

	if cfg.GeminiAPIKey != "" {
		// Единственный vision-capable провайдер в цепочке
		backends = append(backends, Backend{
			Name:   "gemini",
			Model:  "googleai/" + cfg.GeminiModel,
			Vision: true,
		})
	}

	// Отсекаем заведомо фейковые ключи ("aaaaa...") из dev-окружений
	if len(cfg.OpenAIAPIKey) > 10 && cfg.OpenAIAPIKey[:5] != "aaaaa" {
		backends = append(backends, Backend{
			Name:  "openai",
			Model: "openai/" + cfg.OpenAIModel,
		})
	}

	return backends
}

// InitGenkit создаёт Genkit со всеми плагинами, для которых есть ключи.
// Zero ключей - валидное состояние: Genkit поднимается без плагинов,
// а цепочка вернёт ErrNoProviders на первом же вызове.
func InitGenkit(ctx context.Context, cfg config.LLMConfig) *genkit.Genkit {
	var plugins []api.Plugin

	if cfg.GroqAPIKey != "" {
		plugins = append(plugins, &compat_oai.OpenAICompatible{
			Provider: "groq",
			APIKey:   cfg.GroqAPIKey,
			BaseURL:  "https://api.groq.com/openai/v1",
		})
	}

	if cfg.GeminiAPIKey != "" {
		plugins = append(plugins, &googlegenai.GoogleAI{
			APIKey: cfg.GeminiAPIKey,
		})
	}

	if len(cfg.OpenAIAPIKey) > 10 && cfg.OpenAIAPIKey[:5] != "aaaaa" {
		plugins = append(plugins, &compat_oai.OpenAICompatible{
			Provider: "openai",
			APIKey:   cfg.OpenAIAPIKey,
		})
	}

	return genkit.Init(ctx, genkit.WithPlugins(plugins...))
}
