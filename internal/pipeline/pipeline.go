// Package pipeline - последовательный движок стадий поверх общего состояния.
//
// Pipeline - это фиксированный линейный список именованных стадий с одной
// входной и одной терминальной точкой: без циклов, без условных переходов.
// Каждая стадия читает заполненные раньше поля состояния и пишет свои;
// data-driven поведение живёт внутри стадии, а не в топологии графа.
package pipeline

import (
	"context"
	"fmt"
	"log"
)

// Stage - одна единица графа. Writes декларирует поля состояния,
// которыми стадия владеет: single-writer discipline проверяется при
// сборке pipeline, а не в рантайме.
type Stage[S any] struct {
	Name   string
	Writes []string
	Run    func(ctx context.Context, state *S) error
}

// Pipeline - упорядоченный список стадий над состоянием S
type Pipeline[S any] struct {
	name   string
	stages []Stage[S]
}

// New собирает pipeline и проверяет инварианты графа:
// непустой список, уникальные имена стадий, один владелец на поле.
func New[S any](name string, stages ...Stage[S]) (*Pipeline[S], error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline %q: no stages", name)
	}

	seenStage := make(map[string]bool)
	owner := make(map[string]string)

	for _, st := range stages {
		if st.Name == "" {
			return nil, fmt.Errorf("pipeline %q: stage with empty name", name)
		}
		if st.Run == nil {
			return nil, fmt.Errorf("pipeline %q: stage %q has nil Run", name, st.Name)
		}
		if seenStage[st.Name] {
			return nil, fmt.Errorf("pipeline %q: duplicate stage name %q", name, st.Name)
		}
		seenStage[st.Name] = true

		for _, field := range st.Writes {
			if prev, ok := owner[field]; ok {
				return nil, fmt.Errorf("pipeline %q: field %q written by both %q and %q",
					name, field, prev, st.Name)
			}
			owner[field] = st.Name
		}
	}

	return &Pipeline[S]{name: name, stages: stages}, nil
}

// Execute прогоняет состояние через все стадии строго последовательно.
// Стадия i+1 начинается только после возврата стадии i. Ошибка стадии
// прерывает выполнение - стадии сами абсорбируют восстановимые отказы
// через свои fallback-значения, сюда доходят только структурные.
func (p *Pipeline[S]) Execute(ctx context.Context, state *S) error {
	log.Printf("🔗 Pipeline %q: запуск (%d стадий)", p.name, len(p.stages))

	for i, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline %q cancelled before stage %q: %w", p.name, st.Name, err)
		}

		log.Printf("▶️ Pipeline %q: стадия %d/%d %q", p.name, i+1, len(p.stages), st.Name)

		if err := st.Run(ctx, state); err != nil {
			return fmt.Errorf("pipeline %q: stage %q: %w", p.name, st.Name, err)
		}
	}

	log.Printf("✅ Pipeline %q: завершён", p.name)
	return nil
}

// StageNames возвращает имена стадий в порядке выполнения
func (p *Pipeline[S]) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, st := range p.stages {
		names[i] = st.Name
	}
	return names
}
