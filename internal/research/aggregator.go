package research

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/TechNxt05/CyberGuard/internal/config"
	"github.com/TechNxt05/CyberGuard/internal/llm"
	"golang.org/x/sync/errgroup"
)

// Бюджеты текста: сырые находки режутся перед синтезом, чтобы влезать
// в контекст модели; raw-fallback ещё короче.
const (
	synthesisBudget = 12000
	rawBudget       = 4000
)

// Aggregator - fan-out/fan-in сборщик разведданных.
// Контракт: каждый источник сам ловит свой отказ и подставляет
// placeholder, агрегатор ждёт всех и никогда не возвращает ошибку -
// research всегда best-effort и не блокирует владеющий pipeline.
type Aggregator struct {
	chain   *llm.Chain
	sources []Source
	timeout time.Duration
}

// NewAggregator собирает агрегатор со стандартным набором источников:
// веб, новости, Reddit, Twitter/X
func NewAggregator(chain *llm.Chain, cfg config.ResearchConfig) *Aggregator {
	timeout := cfg.SourceTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return NewAggregatorWithSources(chain, timeout,
		NewWebSource(timeout),
		NewNewsSource(timeout),
		NewRedditSource(cfg),
		NewTwitterSource(cfg),
	)
}

// NewAggregatorWithSources - конструктор с произвольными источниками (тесты)
func NewAggregatorWithSources(chain *llm.Chain, timeout time.Duration, sources ...Source) *Aggregator {
	return &Aggregator{chain: chain, sources: sources, timeout: timeout}
}

// Investigate выполняет мульти-источниковое расследование запроса.
// Все lookups идут параллельно, отказ одного не трогает соседей.
// Синтез через цепочку провайдеров; если и он упал - возвращаем
// урезанный сырой блоб вместо ошибки.
func (a *Aggregator) Investigate(ctx context.Context, query string) string {
	log.Printf("🔍 Research: запуск мульти-источникового расследования %q", query)

	results := make([]string, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			srcCtx, cancel := context.WithTimeout(gctx, a.timeout)
			defer cancel()

			text, err := src.Search(srcCtx, query)
			if err != nil {
				// lookup-unavailable: изолируем отказ в placeholder-строку
				log.Printf("⚠️ Research: источник %s недоступен: %v", src.Name(), err)
				results[i] = fmt.Sprintf("%s unavailable: %v", src.Name(), err)
				return nil
			}
			results[i] = text
			return nil
		})
	}
	// Ошибок горутины не возвращают, Wait здесь - чистый join
	_ = g.Wait()

	var blob strings.Builder
	for i, src := range a.sources {
		fmt.Fprintf(&blob, "=== %d. %s ===\n%s\n\n", i+1, src.Name(), results[i])
	}
	allFindings := strings.TrimSpace(blob.String())

	synthesized, err := llm.GenerateText(ctx, a.chain, llm.BuildResearchSynthesisPrompt(query, truncate(allFindings, synthesisBudget)))
	if err != nil {
		log.Printf("⚠️ Research: синтез не удался (%v), возвращаем сырые находки", err)
		return truncate(allFindings, rawBudget)
	}

	log.Printf("✅ Research: расследование завершено (%d источников)", len(a.sources))
	return synthesized
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// отступаем до начала руны, чтобы не отдать обрезанный UTF-8
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
