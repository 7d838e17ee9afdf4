package models

import (
	"fmt"
	"strings"
)

// AnalysisRequest - входящий запрос на проверку подозрительного сообщения.
// Message может быть пустым, если пользователь прислал только скриншот.
type AnalysisRequest struct {
	Message     string `json:"message,omitempty" jsonschema:"description=The suspicious message text or offer content"`
	ImageBase64 string `json:"image_base64,omitempty" jsonschema:"description=Base64 encoded screenshot if provided"`
	Source      string `json:"source,omitempty" jsonschema:"description=Source of the message (whatsapp/sms/call/email)"`
}

// UserProfile - инференс персоны пользователя по сообщению и источнику.
// Влияет только на тон downstream-ответов, не на корректность анализа.
type UserProfile struct {
	UserType         string `json:"user_type" jsonschema:"description=Inferred persona,enum=student,enum=adult,enum=elderly,enum=tech_savvy"`
	Language         string `json:"language" jsonschema:"description=Preferred language,enum=hi,enum=en,enum=hinglish"`
	RiskSensitivity  string `json:"risk_sensitivity" jsonschema:"description=Likely sensitivity to risk,enum=low,enum=medium,enum=high"`
	ExplanationStyle string `json:"explanation_style" jsonschema:"description=How to explain things to this user,enum=simple,enum=technical,enum=detailed"`
}

// Validate проверяет enum-поля профиля
func (p *UserProfile) Validate() error {
	if !oneOf(p.UserType, "student", "adult", "elderly", "tech_savvy") {
		return fmt.Errorf("invalid user_type: %q", p.UserType)
	}
	if !oneOf(p.Language, "hi", "en", "hinglish") {
		return fmt.Errorf("invalid language: %q", p.Language)
	}
	if !oneOf(p.RiskSensitivity, "low", "medium", "high") {
		return fmt.Errorf("invalid risk_sensitivity: %q", p.RiskSensitivity)
	}
	if !oneOf(p.ExplanationStyle, "simple", "technical", "detailed") {
		return fmt.Errorf("invalid explanation_style: %q", p.ExplanationStyle)
	}
	return nil
}

// DefaultProfile - документированный fallback при исчерпании провайдеров
func DefaultProfile() *UserProfile {
	return &UserProfile{
		UserType:         "adult",
		Language:         "en",
		RiskSensitivity:  "medium",
		ExplanationStyle: "simple",
	}
}

// Вердикты классификации
const (
	VerdictSafe       = "SAFE"
	VerdictSuspicious = "SUSPICIOUS"
	VerdictScam       = "SCAM"
)

// ScoutReport - структурированный вердикт классификатора.
// Это главный артефакт triage pipeline: вероятность, вердикт, механика обмана
// и рекомендация пользователю.
type ScoutReport struct {
	ScamProbability   float64           `json:"scam_probability" jsonschema:"description=Probability of being a scam (0-100),minimum=0,maximum=100"`
	Verdict           string            `json:"verdict" jsonschema:"description=Final verdict,enum=SAFE,enum=SUSPICIOUS,enum=SCAM"`
	DetectedPatterns  []string          `json:"detected_patterns" jsonschema:"description=List of scam patterns found"`
	RiskScore         int               `json:"risk_score" jsonschema:"description=0-100 risk score,minimum=0,maximum=100"`
	ScamLogic         string            `json:"scam_logic" jsonschema:"description=Explanation of the mechanism used (e.g. creates false urgency)"`
	Consequences      string            `json:"consequences" jsonschema:"description=Potential impact (e.g. financial loss or identity theft)"`
	Severity          string            `json:"severity" jsonschema:"description=Severity level,enum=critical,enum=high,enum=medium,enum=low,enum=safe"`
	Recommendation    string            `json:"recommendation" jsonschema:"description=Clear DO and DON'T action items for the user"`
	ExtractedEntities map[string]string `json:"extracted_entities,omitempty" jsonschema:"description=Key details extracted (date/amount/URL/phone)"`
}

// Validate проверяет вердикт и диапазоны скоров
func (r *ScoutReport) Validate() error {
	if !oneOf(r.Verdict, VerdictSafe, VerdictSuspicious, VerdictScam) {
		return fmt.Errorf("invalid verdict: %q", r.Verdict)
	}
	if !oneOf(r.Severity, "critical", "high", "medium", "low", "safe") {
		return fmt.Errorf("invalid severity: %q", r.Severity)
	}
	if r.ScamProbability < 0 || r.ScamProbability > 100 {
		return fmt.Errorf("scam_probability out of range: %v", r.ScamProbability)
	}
	if r.RiskScore < 0 || r.RiskScore > 100 {
		return fmt.Errorf("risk_score out of range: %d", r.RiskScore)
	}
	if strings.TrimSpace(r.ScamLogic) == "" {
		return fmt.Errorf("scam_logic is empty")
	}
	if strings.TrimSpace(r.Recommendation) == "" {
		return fmt.Errorf("recommendation is empty")
	}
	return nil
}

// SafeDefaultReport - документированный safe-default вердикт.
// Подставляется, когда все провайдеры исчерпаны: pipeline всегда
// завершается с каким-то вердиктом. Sentinel-текст "Analysis failed"
// отличает его от настоящего результата.
func SafeDefaultReport() *ScoutReport {
	return &ScoutReport{
		ScamProbability:   0,
		Verdict:           VerdictSafe,
		DetectedPatterns:  []string{},
		RiskScore:         0,
		ScamLogic:         "Analysis failed. Please try again.",
		Consequences:      "Unknown",
		Severity:          "safe",
		Recommendation:    "Proceed with caution.",
		ExtractedEntities: map[string]string{},
	}
}

// Explanation - человеческое объяснение риска под конкретного пользователя
type Explanation struct {
	SimpleExplanation string `json:"simple_explanation" jsonschema:"description=A simple jargon-free explanation of the risk"`
	TrustScore        int    `json:"trust_score" jsonschema:"description=How trustworthy the explanation feels (0-100),minimum=0,maximum=100"`
}

func (e *Explanation) Validate() error {
	if strings.TrimSpace(e.SimpleExplanation) == "" {
		return fmt.Errorf("simple_explanation is empty")
	}
	return nil
}

// ActionPlan - немедленные шаги для пользователя
type ActionPlan struct {
	Steps                []string `json:"steps" jsonschema:"description=Immediate DO/DON'T steps"`
	BlockingInstructions string   `json:"blocking_instructions,omitempty" jsonschema:"description=How to block or report the sender"`
}

func (a *ActionPlan) Validate() error {
	if len(a.Steps) == 0 {
		return fmt.Errorf("steps is empty")
	}
	return nil
}

// ScamAnalysisResult - терминальный композит triage pipeline
type ScamAnalysisResult struct {
	Profile     *UserProfile `json:"profile"`
	ScoutReport *ScoutReport `json:"scout_report"`
	Explanation *Explanation `json:"explanation"`
	ActionPlan  *ActionPlan  `json:"action_plan"`
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
