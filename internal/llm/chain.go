package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

var (
	// ErrNoProviders - configuration-error: ни один провайдер не настроен.
	// Стадии обязаны вернуть свой деградированный результат, а не упасть.
	ErrNoProviders = errors.New("no reasoning providers configured")

	// ErrProvidersExhausted - все провайдеры цепочки упали или вернули
	// невалидный ответ для данного запроса
	ErrProvidersExhausted = errors.New("all reasoning providers exhausted")
)

// Таймаут одного вызова к одному провайдеру. Меньше бюджета запроса,
// чтобы один зависший провайдер не застопорил pipeline.
const perCallTimeout = 60 * time.Second

// Request - один логический запрос к провайдеру
type Request struct {
	Prompt      string
	ImageBase64 string
}

// CallFunc выполняет один сырой вызов к одному провайдеру.
// Вынесено в тип, чтобы тесты могли подменить реальный Genkit-вызов.
type CallFunc func(ctx context.Context, b Backend, req Request) (string, error)

// Chain - упорядоченная цепочка взаимозаменяемых провайдеров.
// Первый, чей ответ парсится и проходит валидацию схемы, побеждает.
type Chain struct {
	backends []Backend
	call     CallFunc
}

// NewChain создаёт цепочку поверх Genkit
func NewChain(g *genkit.Genkit, backends []Backend) *Chain {
	return &Chain{
		backends: backends,
		call:     genkitCall(g),
	}
}

// NewChainWithCall создаёт цепочку с кастомным вызовом (для тестов)
func NewChainWithCall(backends []Backend, call CallFunc) *Chain {
	return &Chain{backends: backends, call: call}
}

// Backends возвращает копию списка провайдеров в порядке приоритета
func (c *Chain) Backends() []Backend {
	out := make([]Backend, len(c.backends))
	copy(out, c.backends)
	return out
}

// Configured сообщает, есть ли хоть один провайдер
func (c *Chain) Configured() bool {
	return len(c.backends) > 0
}

// genkitCall - продакшен-вызов через genkit.Generate с retry middleware
func genkitCall(g *genkit.Genkit) CallFunc {
	return func(ctx context.Context, b Backend, req Request) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
		defer cancel()

		opts := []ai.GenerateOption{
			ai.WithModelName(b.Model),
			ai.WithMiddleware(getMiddlewares()...),
		}

		if req.ImageBase64 != "" {
			opts = append(opts, ai.WithMessages(
				ai.NewUserMessage(
					ai.NewTextPart(req.Prompt),
					ai.NewMediaPart("image/jpeg", "data:image/jpeg;base64,"+req.ImageBase64),
				),
			))
		} else {
			opts = append(opts, ai.WithPrompt(req.Prompt))
		}

		resp, err := genkit.Generate(callCtx, g, opts...)
		if err != nil {
			return "", fmt.Errorf("%s generation failed: %w", b.Name, err)
		}

		return resp.Text(), nil
	}
}

// validatable - артефакты с собственной доменной валидацией
type validatable interface {
	Validate() error
}

// Generate прогоняет запрос по цепочке и возвращает первый ответ,
// который распарсился в T и прошёл валидацию. Второе возвращаемое
// значение - имя обслужившего провайдера (для observability).
func Generate[T any](ctx context.Context, c *Chain, prompt string) (*T, string, error) {
	return generate[T](ctx, c, c.backends, Request{Prompt: prompt})
}

func generate[T any](ctx context.Context, c *Chain, backends []Backend, req Request) (*T, string, error) {
	if len(backends) == 0 {
		return nil, "", ErrNoProviders
	}

	var lastErr error
	for _, b := range backends {
		raw, err := c.call(ctx, b, req)
		if err != nil {
			log.Printf("⚠️ LLM: провайдер %s упал: %v. Пробуем следующий...", b.Name, err)
			lastErr = err
			continue
		}

		out := new(T)
		if err := parseInto(raw, out); err != nil {
			// schema-validation failure трактуется как отказ этой попытки
			log.Printf("⚠️ LLM: провайдер %s вернул невалидный ответ: %v", b.Name, err)
			lastErr = err
			continue
		}

		return out, b.Name, nil
	}

	return nil, "", fmt.Errorf("%w: last error: %v", ErrProvidersExhausted, lastErr)
}

// GenerateText - free-text вариант для синтеза и чата.
// Пустой ответ считается отказом провайдера.
func GenerateText(ctx context.Context, c *Chain, prompt string) (string, error) {
	if len(c.backends) == 0 {
		return "", ErrNoProviders
	}

	var lastErr error
	for _, b := range c.backends {
		text, err := c.call(ctx, b, Request{Prompt: prompt})
		if err != nil {
			log.Printf("⚠️ LLM: провайдер %s упал: %v. Пробуем следующий...", b.Name, err)
			lastErr = err
			continue
		}
		if strings.TrimSpace(text) == "" {
			lastErr = fmt.Errorf("%s returned empty response", b.Name)
			continue
		}
		return text, nil
	}

	return "", fmt.Errorf("%w: last error: %v", ErrProvidersExhausted, lastErr)
}

// Детерминированные placeholder-тексты vision-подшага.
// Sentinel-строки: тесты отличают их от настоящего извлечения.
const (
	VisionUnavailableText = "Image analysis unavailable (no vision-capable provider)."
	VisionFailedText      = "Error analyzing image. Please text instead."
)

// ExtractImageText извлекает текст из скриншота через vision-capable
// провайдеры цепочки. Никогда не возвращает ошибку: при отсутствии или
// исчерпании vision-провайдеров подставляется placeholder, и pipeline
// продолжается.
func ExtractImageText(ctx context.Context, c *Chain, imageBase64 string) string {
	var vision []Backend
	for _, b := range c.backends {
		if b.Vision {
			vision = append(vision, b)
		}
	}

	if len(vision) == 0 {
		log.Printf("ℹ️ Vision: нет vision-capable провайдера, пропускаем извлечение текста")
		return VisionUnavailableText
	}

	text, _, err := generate[visionExtraction](ctx, c, vision, Request{
		Prompt:      visionExtractionPrompt,
		ImageBase64: imageBase64,
	})
	if err != nil {
		log.Printf("❌ Vision: извлечение текста не удалось: %v", err)
		return VisionFailedText
	}

	return text.ExtractedText
}

type visionExtraction struct {
	ExtractedText string `json:"extracted_text" jsonschema:"description=All readable text from the screenshot plus visual context (logos or urgency cues)"`
}

func (v *visionExtraction) Validate() error {
	if strings.TrimSpace(v.ExtractedText) == "" {
		return fmt.Errorf("extracted_text is empty")
	}
	return nil
}

// parseInto - явный parse-then-validate: сначала строгий JSON-парс,
// потом доменная валидация. Частично заполненный объект наружу не уходит.
func parseInto(raw string, out any) error {
	cleaned := stripCodeFence(raw)

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}

	if v, ok := out.(validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("response failed schema validation: %w", err)
		}
	}

	return nil
}

// stripCodeFence убирает markdown-обёртку ```json ... ``` и мусор вокруг
// внешнего JSON-объекта, который модели любят добавлять
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	s = strings.TrimSpace(s)

	// Обрезаем до внешних фигурных скобок
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	return s
}
