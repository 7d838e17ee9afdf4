package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TechNxt05/CyberGuard/internal/models"
	"github.com/invopop/jsonschema"
)

// formatJSON форматирует структуру в красивый JSON для промпта
func formatJSON(data interface{}) string {
	result, _ := json.MarshalIndent(data, "", "  ")
	return string(result)
}

// FormatInstructions генерирует инструкцию формата из JSON-схемы типа.
// Аналог format_instructions: модель получает точную схему ожидаемого
// ответа, цепочка потом валидирует ответ против доменных правил.
func FormatInstructions(v any) string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(v)
	schemaJSON, _ := json.MarshalIndent(schema, "", "  ")

	return fmt.Sprintf(
		"Respond ONLY with a single JSON object (no markdown, no commentary) matching this JSON schema:\n%s",
		schemaJSON,
	)
}

const visionExtractionPrompt = `Extract all readable text from this screenshot.
If it looks like a scam message, describe the visual context (logos, urgency cues, fake branding).

Respond ONLY with a JSON object: {"extracted_text": "<everything you read and observe>"}`

// BuildProfilePrompt - промпт профилирования пользователя
func BuildProfilePrompt(message, source string) string {
	return fmt.Sprintf(
		`You are an expert behavioral analyst helping to protect users from scams.

Analyze the following message and metadata to infer the profile of the person who received it.

Message: %q
Source: %q

%s`,
		message, source, FormatInstructions(&models.UserProfile{}),
	)
}

// BuildDetectionPrompt - промпт классификации сообщения.
// Комбинирует сообщение, похожие скамы из базы знаний и статические правила.
func BuildDetectionPrompt(message string, similarPatterns, rules []string, profile *models.UserProfile) string {
	return fmt.Sprintf(
		`You are a ruthlessly efficient scam detection expert. Use the provided context and rules to judge the message.

Analyze this message: %q

Context from Knowledge Base (Similar Scams):
%s

Known Scam Rules:
%s

User Profile: %s

Judge the message:
- scam_probability and risk_score: 0-100
- verdict: SAFE, SUSPICIOUS or SCAM
- scam_logic: EXACTLY how the trick works (e.g. "Creates false urgency/fear")
- consequences: EXACTLY what they will lose (e.g. "Will drain bank account via APK")
- recommendation: clear DO and DON'T
- severity: critical/high/medium/low/safe
- extracted_entities: key details if any (date, amount, URL, phone)

%s`,
		message,
		bulletList(similarPatterns),
		bulletList(rules),
		formatJSON(profile),
		FormatInstructions(&models.ScoutReport{}),
	)
}

// BuildExplanationPrompt - промпт объяснения риска под профиль пользователя
func BuildExplanationPrompt(report *models.ScoutReport, profile *models.UserProfile, researchContext string) string {
	return fmt.Sprintf(
		`You are a cyber-guardian angel. You explain technical risks to normal people.

The technical scout reported:
Verdict: %s
Patterns: %s
Mechanism: %s

AUTHENTIC RESEARCH FINDINGS (Live Web/Reddit/Twitter Data):
%s

The user is:
Type: %s
Language: %s
Style: %s

Draft a %s explanation in that style. It should be comforting but firm if it's a scam.
If the research findings confirm this is an active, widely reported scam, explicitly say so.

%s`,
		report.Verdict,
		strings.Join(report.DetectedPatterns, ", "),
		report.ScamLogic,
		researchContext,
		profile.UserType, profile.Language, profile.ExplanationStyle,
		profile.Language,
		FormatInstructions(&models.Explanation{}),
	)
}

// BuildActionPlanPrompt - промпт плана немедленных действий
func BuildActionPlanPrompt(report *models.ScoutReport) string {
	return fmt.Sprintf(
		`You provide concrete, actionable steps to stay safe.

Verdict: %s
Severity: %s

Give 3-4 bullet-point commands (Do's and Don'ts).
If SCAM, include blocking instructions.

%s`,
		report.Verdict, report.Severity, FormatInstructions(&models.ActionPlan{}),
	)
}

// BuildIncidentPrompt - промпт извлечения пяти измерений инцидента
func BuildIncidentPrompt(description string, userContext map[string]string) string {
	return fmt.Sprintf(
		`You are an expert cyber incident classifier. Your job is to extract the universal dimensions of a cybercrime from a user's description.

User Description: %q
User Context: %s

Analyze the incident:
- Extract 3 key prevention tips for the future.
- Explain the logic (mechanism) of the attack briefly.
- Infer specific control authorities (e.g. 'Bank', 'Instagram', 'Police').

%s`,
		description, formatJSON(userContext), FormatInstructions(&models.IncidentDimensions{}),
	)
}

// BuildStrategyPrompt - промпт превращения generic playbook в конкретный план
func BuildStrategyPrompt(dimensions *models.IncidentDimensions, playbook map[string][]string, researchContext string) string {
	return fmt.Sprintf(
		`You are a strategic crisis manager. Create a tailored step-by-step resolution plan.

Incident Dimensions: %s

AUTHENTIC RESEARCH FINDINGS (use these for specific links/forms):
%s

Generic Playbook for this attack type: %s

Create the strategy:
- Break down the generic playbook into specific, actionable steps for this user.
- Use the research findings to replace generic advice with specific, verified steps and links.
- Categorize each step into the correct phase (containment, securing, reporting, recovery, prevention).
- Keep containment steps first and prevention steps last.
- Estimate the timeline.

%s`,
		formatJSON(dimensions), researchContext, formatJSON(playbook),
		FormatInstructions(&models.ResolutionStrategy{}),
	)
}

// BuildGuidePrompt - промпт микро-гайда по одному шагу
func BuildGuidePrompt(step *models.ResolutionStep) string {
	return fmt.Sprintf(
		`You are a patient, step-by-step technical guide.

Expand this single resolution step into a micro-guide:
Step: %s
Action: %s

Provide 3-5 very short, clear sentences on exactly how to do this.`,
		step.Description, step.Action,
	)
}

// BuildFollowUpPrompt - промпт follow-up чата по существующему кейсу
func BuildFollowUpPrompt(caseID, status, timeline, historyText, userInput, visionContext string) string {
	return fmt.Sprintf(
		`You are CyberGuard, an expert cybersecurity assistant helping a user with Case ID %s.

Current Case Status: %s
Strategy Overview: %s

Recent Chat History:
%s

User's Latest Input: %q
%s

Provide a helpful, direct response. If the user uploaded an image, reference the analysis provided above.`,
		caseID, status, timeline, historyText, userInput, visionContext,
	)
}

// BuildFormAssistPrompt - промпт подготовки жалобы/чеклиста улик
func BuildFormAssistPrompt(action string, docs []string) string {
	return fmt.Sprintf(
		`You are a legal aid assistant helping users prepare complaints.

The user needs to perform this action: %s
Required documents/info typically involved: %s

Draft a template text or a checklist of evidence they need to gather before starting.`,
		action, bulletList(docs),
	)
}

// BuildDoubtPrompt - промпт ответа на вопрос по текущему плану
func BuildDoubtPrompt(question, planSummary string) string {
	return fmt.Sprintf(
		`You are a reassuring expert answering user concerns.

User Question: %q
Context (Current Plan): %s

Answer the user directly and calmly.`,
		question, planSummary,
	)
}

// BuildResearchSynthesisPrompt - промпт финального синтеза разведданных
func BuildResearchSynthesisPrompt(query, findings string) string {
	return fmt.Sprintf(
		`You are the CyberGuard "Master Investigator".
Your goal is to provide the single BEST, most complete answer by combining all available intelligence sources.

QUERY: %q

INTELLIGENCE SOURCES:
%s

INSTRUCTIONS:
1. **Verdict**: Is this a confirmed scam? (Yes/No/Likely). Cite the most credible source.
2. **Mechanism**: Explain exactly how it works.
3. **Immediate Action**: What should the user do NOW?
4. **Official Channels**: List verified URLs/emails for reporting (prioritize official gov/company links found in Web/News).
5. **Community Intel**: Mention if this is trending or what victims are saying (from Reddit/Twitter).

Format as a clean markdown report. NO generic fluff.`,
		query, findings,
	)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	var b strings.Builder
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
