// Package triage - пайплайн разбора подозрительного сообщения:
// профиль пользователя, вердикт, корроборация через research,
// объяснение и план действий. Каждый stage деградирует в
// документированный fallback, пайплайн никогда не падает из-за
// недоступности LLM-провайдеров.
package triage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/TechNxt05/CyberGuard/internal/knowledge"
	"github.com/TechNxt05/CyberGuard/internal/llm"
	"github.com/TechNxt05/CyberGuard/internal/models"
	"github.com/TechNxt05/CyberGuard/internal/pipeline"
	"github.com/TechNxt05/CyberGuard/internal/storage"
)

// State протаскивается через все стадии. Каждое поле пишет ровно
// одна стадия (проверяется при сборке пайплайна).
type State struct {
	Request models.AnalysisRequest

	Profile          *models.UserProfile
	MessageText      string // текст сообщения, при image-only - vision-извлечение
	Report           *models.ScoutReport
	ResearchFindings string
	Explanation      *models.Explanation
	ActionPlan       *models.ActionPlan
	Result           *models.ScamAnalysisResult
}

// Investigator - research-агрегатор глазами triage
type Investigator interface {
	Investigate(ctx context.Context, query string) string
}

// Feed - живая лента дашборда, nil допустим
type Feed interface {
	Broadcast(msgType string, data interface{})
}

type Deps struct {
	Chain    *llm.Chain
	Research Investigator
	Patterns *knowledge.PatternIndex
	Store    storage.Gateway
	Feed     Feed
}

// NewPipeline собирает triage pipeline с фиксированным порядком стадий
func NewPipeline(deps Deps) (*pipeline.Pipeline[State], error) {
	return pipeline.New("triage",
		pipeline.Stage[State]{
			Name:   "profile-user",
			Writes: []string{"Profile"},
			Run:    deps.profileUser,
		},
		pipeline.Stage[State]{
			Name:   "classify-message",
			Writes: []string{"MessageText", "Report"},
			Run:    deps.classifyMessage,
		},
		pipeline.Stage[State]{
			Name:   "research-corroboration",
			Writes: []string{"ResearchFindings"},
			Run:    deps.researchCorroboration,
		},
		pipeline.Stage[State]{
			Name:   "generate-explanation",
			Writes: []string{"Explanation"},
			Run:    deps.generateExplanation,
		},
		pipeline.Stage[State]{
			Name:   "generate-action-plan",
			Writes: []string{"ActionPlan"},
			Run:    deps.generateActionPlan,
		},
		pipeline.Stage[State]{
			Name:   "persist-to-memory",
			Writes: []string{"Result"},
			Run:    deps.persistToMemory,
		},
	)
}

// Analyze - convenience: собрать пайплайн, прогнать запрос, вернуть композит
func Analyze(ctx context.Context, deps Deps, req models.AnalysisRequest) (*models.ScamAnalysisResult, error) {
	p, err := NewPipeline(deps)
	if err != nil {
		return nil, err
	}

	state := &State{Request: req}
	if err := p.Execute(ctx, state); err != nil {
		return nil, err
	}
	return state.Result, nil
}

func (d Deps) profileUser(ctx context.Context, s *State) error {
	profile, servedBy, err := llm.Generate[models.UserProfile](ctx, d.Chain,
		llm.BuildProfilePrompt(s.Request.Message, s.Request.Source))
	if err != nil {
		log.Printf("⚠️ Profiling failed, using default profile: %v", err)
		s.Profile = models.DefaultProfile()
		return nil
	}

	log.Printf("✅ User profiled via %s: %s/%s", servedBy, profile.UserType, profile.Language)
	s.Profile = profile
	return nil
}

func (d Deps) classifyMessage(ctx context.Context, s *State) error {
	s.MessageText = s.Request.Message

	// image-only вход: сначала вытаскиваем текст со скриншота
	if strings.TrimSpace(s.MessageText) == "" && s.Request.ImageBase64 != "" {
		s.MessageText = llm.ExtractImageText(ctx, d.Chain, s.Request.ImageBase64)
		log.Printf("🔍 Vision extraction: %d chars", len(s.MessageText))
	}

	var similar []string
	if d.Patterns != nil {
		similar = d.Patterns.Search(s.MessageText, 3)
	}

	report, servedBy, err := llm.Generate[models.ScoutReport](ctx, d.Chain,
		llm.BuildDetectionPrompt(s.MessageText, similar, knowledge.ScamRules(), s.Profile))
	if err != nil {
		log.Printf("⚠️ Classification failed, safe default verdict: %v", err)
		s.Report = models.SafeDefaultReport()
		return nil
	}

	log.Printf("✅ Verdict %s (%.0f%%) via %s", report.Verdict, report.ScamProbability, servedBy)
	s.Report = report
	return nil
}

func (d Deps) researchCorroboration(ctx context.Context, s *State) error {
	if d.Research == nil || len(s.Report.DetectedPatterns) == 0 {
		return nil
	}

	query := fmt.Sprintf("Is '%s' a known scam?",
		strings.Join(s.Report.DetectedPatterns, ", "))
	s.ResearchFindings = d.Research.Investigate(ctx, query)
	return nil
}

func (d Deps) generateExplanation(ctx context.Context, s *State) error {
	explanation, _, err := llm.Generate[models.Explanation](ctx, d.Chain,
		llm.BuildExplanationPrompt(s.Report, s.Profile, s.ResearchFindings))
	if err != nil {
		log.Printf("⚠️ Explanation failed, degraded text: %v", err)
		s.Explanation = degradedExplanation(s.Report)
		return nil
	}

	s.Explanation = explanation
	return nil
}

// degradedExplanation собирает объяснение из уже готового вердикта -
// хуже по тону, но честное по содержанию
func degradedExplanation(report *models.ScoutReport) *models.Explanation {
	text := fmt.Sprintf("This message looks %s. %s %s",
		strings.ToLower(report.Verdict), report.ScamLogic, report.Recommendation)
	return &models.Explanation{
		SimpleExplanation: strings.TrimSpace(text),
		TrustScore:        100 - int(report.ScamProbability),
	}
}

func (d Deps) generateActionPlan(ctx context.Context, s *State) error {
	if s.Report.Verdict == models.VerdictSafe {
		s.ActionPlan = &models.ActionPlan{
			Steps: []string{"No action needed. The message looks safe."},
		}
		return nil
	}

	plan, _, err := llm.Generate[models.ActionPlan](ctx, d.Chain,
		llm.BuildActionPlanPrompt(s.Report))
	if err != nil {
		log.Printf("⚠️ Action plan failed, generic steps: %v", err)
		s.ActionPlan = genericActionPlan()
		return nil
	}

	s.ActionPlan = plan
	return nil
}

func genericActionPlan() *models.ActionPlan {
	return &models.ActionPlan{
		Steps: []string{
			"Do not click any links in the message.",
			"Do not share OTPs, passwords or bank details.",
			"Verify the sender through an official channel.",
		},
		BlockingInstructions: "Block the sender and report the number as spam.",
	}
}

func (d Deps) persistToMemory(ctx context.Context, s *State) error {
	s.Result = &models.ScamAnalysisResult{
		Profile:     s.Profile,
		ScoutReport: s.Report,
		Explanation: s.Explanation,
		ActionPlan:  s.ActionPlan,
	}

	if d.Store != nil {
		if err := d.Store.StoreScamReport(ctx, s.Result); err != nil {
			return fmt.Errorf("store scam report: %w", err)
		}
	}

	if d.Feed != nil {
		d.Feed.Broadcast("triage_result", s.Result)
	}
	return nil
}
