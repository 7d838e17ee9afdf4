package models

import (
	"fmt"
	"sort"
	"strings"
)

// Фазы жизненного цикла разрешения инцидента.
// Порядок семантически значим: containment всегда раньше recovery.
const (
	PhaseContainment = "containment"
	PhaseSecuring    = "securing"
	PhaseReporting   = "reporting"
	PhaseRecovery    = "recovery"
	PhasePrevention  = "prevention"
)

// PhaseOrder - фиксированный порядок фаз
var PhaseOrder = []string{
	PhaseContainment,
	PhaseSecuring,
	PhaseReporting,
	PhaseRecovery,
	PhasePrevention,
}

// PhaseRank возвращает позицию фазы в жизненном цикле.
// Неизвестная фаза уходит в конец.
func PhaseRank(phase string) int {
	for i, p := range PhaseOrder {
		if p == phase {
			return i
		}
	}
	return len(PhaseOrder)
}

// IncidentRequest - описание инцидента от пользователя
type IncidentRequest struct {
	Description string            `json:"description" jsonschema:"description=User's natural language description of the incident"`
	UserContext map[string]string `json:"user_context,omitempty" jsonschema:"description=Optional context like country or bank_name"`
}

// IncidentDimensions - пять универсальных измерений киберинцидента
type IncidentDimensions struct {
	AssetAffected    []string `json:"asset_affected" jsonschema:"description=What was compromised (money/account/data/identity/device/reputation)"`
	AttackType       string   `json:"attack_type" jsonschema:"description=Nature of the attack (fraud/unauthorized_access/malware/impersonation/harassment/sextortion/ransomware/job_fraud/courier_scam/unknown)"`
	ControlAuthority []string `json:"control_authority" jsonschema:"description=Entities with power to resolve (Bank/Instagram/Police/Telecom)"`
	Urgency          string   `json:"urgency" jsonschema:"description=Severity and time-sensitivity,enum=low,enum=medium,enum=high,enum=critical"`
	Summary          string   `json:"summary" jsonschema:"description=One sentence summary of the incident"`
	PreventionTips   []string `json:"prevention_tips" jsonschema:"description=3 actionable tips to prevent this in future"`
	IncidentLogic    string   `json:"incident_logic" jsonschema:"description=Brief explanation of how this attack works"`
}

func (d *IncidentDimensions) Validate() error {
	if d.AttackType == "" {
		return fmt.Errorf("attack_type is empty")
	}
	if !oneOf(d.Urgency, "low", "medium", "high", "critical") {
		return fmt.Errorf("invalid urgency: %q", d.Urgency)
	}
	if strings.TrimSpace(d.Summary) == "" {
		return fmt.Errorf("summary is empty")
	}
	return nil
}

// UnknownIncidentDimensions - документированный generic-unknown fallback.
// Downstream-узлы всегда получают валидные dimensions, даже когда
// провайдеры исчерпаны.
func UnknownIncidentDimensions() *IncidentDimensions {
	return &IncidentDimensions{
		AssetAffected:    []string{"unknown"},
		AttackType:       "unknown",
		ControlAuthority: []string{"Cyber Crime Portal"},
		Urgency:          "medium",
		Summary:          "Error understanding incident.",
		PreventionTips:   []string{"Contact authorities", "Secure accounts"},
		IncidentLogic:    "Unknown error in analysis",
	}
}

// ResolutionStep - один шаг плана с привязкой к фазе
type ResolutionStep struct {
	StepID            string `json:"step_id" jsonschema:"description=Unique step identifier"`
	Phase             string `json:"phase" jsonschema:"description=Lifecycle phase,enum=containment,enum=securing,enum=reporting,enum=recovery,enum=prevention"`
	Action            string `json:"action" jsonschema:"description=Short imperative action"`
	Description       string `json:"description" jsonschema:"description=Detailed description of the step"`
	AuthorityInvolved string `json:"authority_involved,omitempty" jsonschema:"description=Responsible authority if any"`
	IsCompleted       bool   `json:"is_completed" jsonschema:"description=Whether the step is done"`
}

// ResolutionStrategy - упорядоченный план по всем фазам
type ResolutionStrategy struct {
	LifecyclePlan     []ResolutionStep `json:"lifecycle_plan" jsonschema:"description=Ordered list of steps across all phases"`
	EstimatedTimeline string           `json:"estimated_timeline" jsonschema:"description=Rough timeline estimate"`
}

func (s *ResolutionStrategy) Validate() error {
	for i := range s.LifecyclePlan {
		if !oneOf(s.LifecyclePlan[i].Phase, PhaseOrder...) {
			return fmt.Errorf("step %d: invalid phase %q", i, s.LifecyclePlan[i].Phase)
		}
		if strings.TrimSpace(s.LifecyclePlan[i].Action) == "" {
			return fmt.Errorf("step %d: action is empty", i)
		}
	}
	return nil
}

// SortByPhase сортирует план в фиксированном порядке фаз, сохраняя
// относительный порядок шагов внутри фазы.
func (s *ResolutionStrategy) SortByPhase() {
	sort.SliceStable(s.LifecyclePlan, func(i, j int) bool {
		return PhaseRank(s.LifecyclePlan[i].Phase) < PhaseRank(s.LifecyclePlan[j].Phase)
	})
}

// FirstIncompleteStep возвращает первый незавершённый шаг плана
func (s *ResolutionStrategy) FirstIncompleteStep() *ResolutionStep {
	for i := range s.LifecyclePlan {
		if !s.LifecyclePlan[i].IsCompleted {
			return &s.LifecyclePlan[i]
		}
	}
	return nil
}

// EmptyStrategy - документированный fallback при ошибке генерации плана.
// Кейс всё равно сохраняется в валидном, пусть и пустом, состоянии.
func EmptyStrategy() *ResolutionStrategy {
	return &ResolutionStrategy{
		LifecyclePlan:     []ResolutionStep{},
		EstimatedTimeline: "Error generating plan.",
	}
}

// AuthorityContact - контакт инстанции, способной помочь с инцидентом
type AuthorityContact struct {
	Name              string            `json:"name"`
	Role              string            `json:"role"`
	ContactInfo       map[string]string `json:"contact_info"`
	RequiredDocuments []string          `json:"required_documents"`
}

// Роли контактов: верифицированный реестр против динамического поиска.
// Динамический результат никогда не выдаётся за верифицированный.
const (
	RoleVerifiedPortal = "Verified Official Portal"
	RoleDynamicLookup  = "Nodal Officer / Dynamic Lookup"
	RoleLawEnforcement = "Law Enforcement"
)

// CaseState - агрегированное reasoning-состояние кейса
type CaseState struct {
	IncidentID       string              `json:"incident_id"`
	Dimensions       *IncidentDimensions `json:"dimensions"`
	Strategy         *ResolutionStrategy `json:"strategy"`
	Authorities      []AuthorityContact  `json:"authorities"`
	CurrentStepIndex int                 `json:"current_step_index"`
	Status           string              `json:"status"`
}
