package resolution

import (
	"context"
	"fmt"
	"strings"

	"github.com/TechNxt05/CyberGuard/internal/llm"
	"github.com/TechNxt05/CyberGuard/internal/models"
)

// AssistForm готовит шаблон жалобы или чеклист улик под текущий шаг кейса
func AssistForm(ctx context.Context, chain *llm.Chain, state *models.CaseState) (string, error) {
	step := state.Strategy.FirstIncompleteStep()
	if step == nil {
		return "All steps are complete. No form to prepare.", nil
	}

	var docs []string
	for _, a := range state.Authorities {
		docs = append(docs, a.RequiredDocuments...)
	}
	if len(docs) == 0 {
		docs = []string{"screenshots of the fraud", "transaction details", "ID proof"}
	}

	text, err := llm.GenerateText(ctx, chain, llm.BuildFormAssistPrompt(step.Action, docs))
	if err != nil {
		return "", fmt.Errorf("form assist: %w", err)
	}
	return text, nil
}

// ResolveDoubt отвечает на вопрос пользователя в контексте его плана
func ResolveDoubt(ctx context.Context, chain *llm.Chain, state *models.CaseState, question string) (string, error) {
	text, err := llm.GenerateText(ctx, chain, llm.BuildDoubtPrompt(question, planSummary(state)))
	if err != nil {
		return "", fmt.Errorf("resolve doubt: %w", err)
	}
	return text, nil
}

// FollowUp - ответ в чате по существующему кейсу: последние сообщения
// истории плюс опциональный vision-контекст со скриншота
func FollowUp(ctx context.Context, chain *llm.Chain, state *models.CaseState,
	history []*models.CaseMessage, userInput, imageBase64 string) (string, error) {

	var sb strings.Builder
	for _, msg := range history {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Sender, msg.Content)
	}

	visionContext := ""
	if imageBase64 != "" {
		extracted := llm.ExtractImageText(ctx, chain, imageBase64)
		visionContext = fmt.Sprintf("Image Analysis (from uploaded screenshot): %s", extracted)
	}

	text, err := llm.GenerateText(ctx, chain, llm.BuildFollowUpPrompt(
		state.IncidentID, state.Status, timeline(state), sb.String(), userInput, visionContext))
	if err != nil {
		return "", fmt.Errorf("follow-up: %w", err)
	}
	return text, nil
}

func planSummary(state *models.CaseState) string {
	if state.Strategy == nil || len(state.Strategy.LifecyclePlan) == 0 {
		return "No plan yet."
	}

	var sb strings.Builder
	for _, step := range state.Strategy.LifecyclePlan {
		done := " "
		if step.IsCompleted {
			done = "x"
		}
		fmt.Fprintf(&sb, "[%s] (%s) %s\n", done, step.Phase, step.Action)
	}
	return sb.String()
}

func timeline(state *models.CaseState) string {
	if state.Strategy == nil {
		return "unknown"
	}
	return state.Strategy.EstimatedTimeline
}
