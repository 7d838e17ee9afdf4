package triage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechNxt05/CyberGuard/internal/knowledge"
	"github.com/TechNxt05/CyberGuard/internal/llm"
	"github.com/TechNxt05/CyberGuard/internal/models"
	"github.com/TechNxt05/CyberGuard/internal/storage"
)

// scriptedChain отвечает по маркерам промпта - провайдер не нужен
func scriptedChain() *llm.Chain {
	backends := []llm.Backend{{Name: "fake", Model: "fake/model", Vision: true}}
	return llm.NewChainWithCall(backends, func(_ context.Context, _ llm.Backend, req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "behavioral analyst"):
			return `{"user_type":"elderly","language":"hi","risk_sensitivity":"high","explanation_style":"simple"}`, nil
		case strings.Contains(req.Prompt, "scam detection expert"):
			return `{
				"scam_probability": 95, "verdict": "SCAM",
				"detected_patterns": ["electricity disconnection threat", "fake helpline number"],
				"risk_score": 90,
				"scam_logic": "Creates false urgency about power being cut tonight.",
				"consequences": "Will drain bank account via remote access app.",
				"severity": "critical",
				"recommendation": "Do not call the number. Check your bill on the official app."
			}`, nil
		case strings.Contains(req.Prompt, "cyber-guardian angel"):
			return `{"simple_explanation":"Bijli wale aise message nahi bhejte. Yeh scam hai.","trust_score":95}`, nil
		case strings.Contains(req.Prompt, "actionable steps"):
			return `{"steps":["Do not call the number.","Check the official electricity board app."],"blocking_instructions":"Block and report the sender."}`, nil
		default:
			return `{"extracted_text":"Electricity bill unpaid. Call 98XXXXXXX"}`, nil
		}
	})
}

type fakeInvestigator struct {
	query    string
	findings string
}

func (f *fakeInvestigator) Investigate(_ context.Context, query string) string {
	f.query = query
	return f.findings
}

type recordingFeed struct {
	types []string
}

func (f *recordingFeed) Broadcast(msgType string, _ interface{}) {
	f.types = append(f.types, msgType)
}

func TestAnalyzeElectricityScamEndToEnd(t *testing.T) {
	research := &fakeInvestigator{findings: "Widely reported electricity disconnection scam in India."}
	store := storage.NewMemoryStore()
	feed := &recordingFeed{}

	deps := Deps{
		Chain:    scriptedChain(),
		Research: research,
		Patterns: knowledge.NewPatternIndex(),
		Store:    store,
		Feed:     feed,
	}

	result, err := Analyze(context.Background(), deps, models.AnalysisRequest{
		Message: "Dear customer, your electricity bill is unpaid. Power will be disconnected tonight. Call 9812345678 immediately.",
		Source:  "sms",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, models.VerdictScam, result.ScoutReport.Verdict)
	assert.NotEmpty(t, result.ScoutReport.ScamLogic)
	assert.NotEmpty(t, result.ScoutReport.Consequences)
	assert.NotEmpty(t, result.ScoutReport.Recommendation)

	// тон подстроен под профиль
	assert.Equal(t, "elderly", result.Profile.UserType)
	assert.NotEmpty(t, result.Explanation.SimpleExplanation)
	assert.NotEmpty(t, result.ActionPlan.Steps)

	// research получил запрос по детектированным паттернам
	assert.Contains(t, research.query, "known scam")
	assert.Contains(t, research.query, "electricity disconnection threat")

	// композит сохранён и ушёл в ленту
	reports, err := store.RecentScamReports(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	assert.Equal(t, []string{"triage_result"}, feed.types)
}

// все провайдеры исчерпаны: пайплайн обязан дойти до конца
// на документированных fallback-значениях
func TestAnalyzeDegradesWithoutProviders(t *testing.T) {
	chain := llm.NewChainWithCall(nil, nil)

	deps := Deps{
		Chain:    chain,
		Patterns: knowledge.NewPatternIndex(),
		Store:    storage.NewMemoryStore(),
	}

	result, err := Analyze(context.Background(), deps, models.AnalysisRequest{
		Message: "You won a lottery! Click here.",
		Source:  "sms",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	// safe-default вердикт, не nil и не паника
	assert.Equal(t, models.VerdictSafe, result.ScoutReport.Verdict)
	assert.Contains(t, result.ScoutReport.ScamLogic, "Analysis failed")

	assert.Equal(t, models.DefaultProfile(), result.Profile)
	assert.NotEmpty(t, result.Explanation.SimpleExplanation)
	assert.NotEmpty(t, result.ActionPlan.Steps)
}

func TestClassifyImageOnlyUsesVision(t *testing.T) {
	var detectionPrompt string
	backends := []llm.Backend{{Name: "fake", Model: "fake/model", Vision: true}}
	chain := llm.NewChainWithCall(backends, func(_ context.Context, _ llm.Backend, req llm.Request) (string, error) {
		if req.ImageBase64 != "" {
			return `{"extracted_text":"KYC expired. Update now: bit.ly/xyz"}`, nil
		}
		if strings.Contains(req.Prompt, "scam detection expert") {
			detectionPrompt = req.Prompt
			return `{
				"scam_probability": 80, "verdict": "SUSPICIOUS",
				"detected_patterns": ["kyc expiry"], "risk_score": 75,
				"scam_logic": "Fake KYC urgency.", "consequences": "Account takeover.",
				"severity": "high", "recommendation": "Ignore the link."
			}`, nil
		}
		return `{"user_type":"adult","language":"en","risk_sensitivity":"medium","explanation_style":"simple"}`, nil
	})

	deps := Deps{Chain: chain, Patterns: knowledge.NewPatternIndex()}
	p, err := NewPipeline(deps)
	require.NoError(t, err)

	state := &State{Request: models.AnalysisRequest{ImageBase64: "aGVsbG8="}}
	require.NoError(t, p.Execute(context.Background(), state))

	// классификатор судит извлечённый текст, не пустую строку
	assert.Equal(t, "KYC expired. Update now: bit.ly/xyz", state.MessageText)
	assert.Contains(t, detectionPrompt, "KYC expired")
	assert.Equal(t, models.VerdictSuspicious, state.Report.Verdict)
}

func TestResearchSkippedWithoutPatterns(t *testing.T) {
	research := &fakeInvestigator{findings: "should not be called"}
	chain := llm.NewChainWithCall(nil, nil)

	deps := Deps{Chain: chain, Research: research}
	p, err := NewPipeline(deps)
	require.NoError(t, err)

	state := &State{Request: models.AnalysisRequest{Message: "hi"}}
	require.NoError(t, p.Execute(context.Background(), state))

	// safe-default без паттернов - research не дёргается
	assert.Empty(t, research.query)
	assert.Empty(t, state.ResearchFindings)
}

func TestSafeVerdictGetsNoActionPlan(t *testing.T) {
	backends := []llm.Backend{{Name: "fake", Model: "fake/model"}}
	chain := llm.NewChainWithCall(backends, func(_ context.Context, _ llm.Backend, req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "behavioral analyst"):
			return `{"user_type":"adult","language":"en","risk_sensitivity":"medium","explanation_style":"simple"}`, nil
		case strings.Contains(req.Prompt, "scam detection expert"):
			return `{
				"scam_probability": 2, "verdict": "SAFE", "detected_patterns": [],
				"risk_score": 2, "scam_logic": "Ordinary delivery notification.",
				"consequences": "None.", "severity": "safe",
				"recommendation": "Nothing to do."
			}`, nil
		case strings.Contains(req.Prompt, "cyber-guardian angel"):
			return `{"simple_explanation":"This is a normal message.","trust_score":98}`, nil
		default:
			return "", assert.AnError
		}
	})

	result, err := Analyze(context.Background(), Deps{Chain: chain}, models.AnalysisRequest{
		Message: "Your parcel arrives tomorrow.",
	})
	require.NoError(t, err)
	require.Len(t, result.ActionPlan.Steps, 1)
	assert.Contains(t, result.ActionPlan.Steps[0], "No action needed")
}
