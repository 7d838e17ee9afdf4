// Package resolution - пайплайн разрешения инцидента: понять, что
// случилось, собрать план по playbook, подобрать инстанции и выдать
// пользователю первый конкретный шаг. Как и triage, деградирует в
// документированные fallback-значения вместо отказа.
package resolution

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/TechNxt05/CyberGuard/internal/knowledge"
	"github.com/TechNxt05/CyberGuard/internal/llm"
	"github.com/TechNxt05/CyberGuard/internal/models"
	"github.com/TechNxt05/CyberGuard/internal/pipeline"
	"github.com/TechNxt05/CyberGuard/internal/storage"
)

// State - состояние одного прогона. UserID/CaseID задаёт вызывающий,
// стадии их не трогают.
type State struct {
	Request models.IncidentRequest
	UserID  string
	CaseID  string

	Dimensions       *models.IncidentDimensions
	ResearchFindings string
	Strategy         *models.ResolutionStrategy
	Authorities      []models.AuthorityContact
	CurrentGuide     string
	CaseState        *models.CaseState
}

// Investigator - research-агрегатор глазами resolution
type Investigator interface {
	Investigate(ctx context.Context, query string) string
}

type Deps struct {
	Chain    *llm.Chain
	Research Investigator
	Store    storage.Gateway
}

func NewPipeline(deps Deps) (*pipeline.Pipeline[State], error) {
	return pipeline.New("resolution",
		pipeline.Stage[State]{
			Name:   "understand-incident",
			Writes: []string{"Dimensions"},
			Run:    deps.understandIncident,
		},
		pipeline.Stage[State]{
			Name:   "research-remediation",
			Writes: []string{"ResearchFindings"},
			Run:    deps.researchRemediation,
		},
		pipeline.Stage[State]{
			Name:   "build-strategy",
			Writes: []string{"Strategy"},
			Run:    deps.buildStrategy,
		},
		pipeline.Stage[State]{
			Name:   "map-authorities",
			Writes: []string{"Authorities"},
			Run:    deps.mapAuthorities,
		},
		pipeline.Stage[State]{
			Name:   "produce-first-step-guide",
			Writes: []string{"CurrentGuide"},
			Run:    deps.produceFirstStepGuide,
		},
		pipeline.Stage[State]{
			Name:   "persist-case-state",
			Writes: []string{"CaseState"},
			Run:    deps.persistCaseState,
		},
	)
}

// Resolve - convenience-обёртка: полный прогон пайплайна для кейса
func Resolve(ctx context.Context, deps Deps, userID, caseID string, req models.IncidentRequest) (*models.CaseState, string, error) {
	p, err := NewPipeline(deps)
	if err != nil {
		return nil, "", err
	}

	state := &State{Request: req, UserID: userID, CaseID: caseID}
	if err := p.Execute(ctx, state); err != nil {
		return nil, "", err
	}
	return state.CaseState, state.CurrentGuide, nil
}

func (d Deps) understandIncident(ctx context.Context, s *State) error {
	dims, servedBy, err := llm.Generate[models.IncidentDimensions](ctx, d.Chain,
		llm.BuildIncidentPrompt(s.Request.Description, s.Request.UserContext))
	if err != nil {
		log.Printf("⚠️ Incident understanding failed, generic dimensions: %v", err)
		s.Dimensions = models.UnknownIncidentDimensions()
		return nil
	}

	log.Printf("✅ Incident understood via %s: %s (%s)", servedBy, dims.AttackType, dims.Urgency)
	s.Dimensions = dims
	return nil
}

func (d Deps) researchRemediation(ctx context.Context, s *State) error {
	if d.Research == nil {
		return nil
	}

	query := fmt.Sprintf("%s %s remediation steps", s.Dimensions.AttackType, s.Dimensions.Summary)
	s.ResearchFindings = d.Research.Investigate(ctx, query)
	return nil
}

func (d Deps) buildStrategy(ctx context.Context, s *State) error {
	playbook := knowledge.GetPlaybook(s.Dimensions.AttackType)

	strategy, servedBy, err := llm.Generate[models.ResolutionStrategy](ctx, d.Chain,
		llm.BuildStrategyPrompt(s.Dimensions, playbook, s.ResearchFindings))
	if err != nil {
		log.Printf("⚠️ Strategy generation failed, empty plan: %v", err)
		s.Strategy = models.EmptyStrategy()
		return nil
	}

	// LLM не обязан выдумывать стабильные ID
	for i := range strategy.LifecyclePlan {
		if strategy.LifecyclePlan[i].StepID == "" {
			strategy.LifecyclePlan[i].StepID = uuid.NewString()
		}
	}
	strategy.SortByPhase()

	log.Printf("✅ Strategy built via %s: %d steps", servedBy, len(strategy.LifecyclePlan))
	s.Strategy = strategy
	return nil
}

func (d Deps) mapAuthorities(ctx context.Context, s *State) error {
	seen := make(map[string]bool)
	var contacts []models.AuthorityContact

	add := func(c models.AuthorityContact) {
		if !seen[c.Name] {
			seen[c.Name] = true
			contacts = append(contacts, c)
		}
	}

	for _, name := range s.Dimensions.ControlAuthority {
		if entry, ok := knowledge.LookupAuthority(name); ok {
			add(models.AuthorityContact{
				Name:        entry.Name,
				Role:        models.RoleVerifiedPortal,
				ContactInfo: entry.Contact,
			})
			continue
		}

		// нет в реестре - best-effort динамический поиск,
		// помечаем как неверифицированный
		contact := models.AuthorityContact{
			Name: name,
			Role: models.RoleDynamicLookup,
			ContactInfo: map[string]string{
				"note": "Unverified contact. Found via live research, double-check before use.",
			},
		}
		if d.Research != nil {
			findings := d.Research.Investigate(ctx,
				fmt.Sprintf("official complaint contact for %s cybercrime India", name))
			if findings != "" {
				contact.ContactInfo["research"] = findings
			}
		}
		add(contact)
	}

	// денежный ущерб: всегда национальный портал и горячая линия 1930
	if s.financialImpact() {
		if entry, ok := knowledge.LookupAuthority("cybercrime.gov.in"); ok {
			add(models.AuthorityContact{
				Name:        entry.Name,
				Role:        models.RoleVerifiedPortal,
				ContactInfo: entry.Contact,
			})
		}
		if entry, ok := knowledge.LookupAuthority("1930"); ok {
			add(models.AuthorityContact{
				Name:        entry.Name,
				Role:        models.RoleLawEnforcement,
				ContactInfo: entry.Contact,
			})
		}
	}

	s.Authorities = contacts
	return nil
}

func (s *State) financialImpact() bool {
	if s.Dimensions.AttackType == "fraud" {
		return true
	}
	for _, asset := range s.Dimensions.AssetAffected {
		if strings.EqualFold(asset, "money") {
			return true
		}
	}
	return false
}

func (d Deps) produceFirstStepGuide(ctx context.Context, s *State) error {
	step := s.Strategy.FirstIncompleteStep()
	if step == nil {
		s.CurrentGuide = "All planned steps are complete. Keep the case open until you confirm recovery."
		return nil
	}

	s.CurrentGuide = GuideStep(ctx, d.Chain, step)
	return nil
}

func (d Deps) persistCaseState(ctx context.Context, s *State) error {
	s.CaseState = &models.CaseState{
		IncidentID:       s.CaseID,
		Dimensions:       s.Dimensions,
		Strategy:         s.Strategy,
		Authorities:      s.Authorities,
		CurrentStepIndex: 0,
		Status:           models.CaseStatusActive,
	}

	if d.Store == nil || s.CaseID == "" {
		return nil
	}

	if err := d.Store.UpsertCaseState(ctx, s.UserID, s.CaseID, s.CaseState); err != nil {
		return fmt.Errorf("upsert case state: %w", err)
	}

	if err := d.Store.UpdateCaseDetails(ctx, s.UserID, s.CaseID, models.CaseDetails{
		Title:           s.Dimensions.Summary,
		IncidentSummary: s.Dimensions.Summary,
		AttackType:      s.Dimensions.AttackType,
		IncidentLogic:   s.Dimensions.IncidentLogic,
		PreventionTips:  s.Dimensions.PreventionTips,
	}); err != nil {
		return fmt.Errorf("update case details: %w", err)
	}

	// sidebar-задачи из плана; AddTask идемпотентен, повторный прогон
	// пайплайна не плодит дубликаты
	for _, step := range s.Strategy.LifecyclePlan {
		task := models.NewTask(step.Action, step.Description)
		if link, kind := taskLink(step); link != "" {
			task.ActionLink = link
			task.ActionType = kind
		} else if step.AuthorityInvolved != "" {
			task.ActionType = "link"
		}
		if err := d.Store.AddTask(ctx, s.UserID, s.CaseID, task); err != nil {
			return fmt.Errorf("sync task %q: %w", step.Action, err)
		}
	}
	return nil
}

// taskLink подбирает кликабельное действие для шага плана из реестра
// контактов: tel:-ссылка для горячей линии, URL подачи жалобы для портала.
func taskLink(step models.ResolutionStep) (link, kind string) {
	text := strings.ToLower(step.Action + " " + step.Description)
	switch {
	case strings.Contains(text, "1930"):
		if entry, ok := knowledge.LookupAuthority("1930"); ok {
			return "tel:" + entry.Contact["phone"], "call"
		}
	case strings.Contains(text, "cybercrime.gov"):
		if entry, ok := knowledge.LookupAuthority("cybercrime.gov.in"); ok {
			return entry.Contact["file_complaint"], "link"
		}
	}
	return "", ""
}
