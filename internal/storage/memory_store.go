package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/TechNxt05/CyberGuard/internal/models"
)

// MemoryStore - in-memory реализация Gateway для dev и тестов
type MemoryStore struct {
	mu       sync.RWMutex
	cases    map[string]*models.Case           // caseID -> case
	messages map[string][]*models.CaseMessage  // caseID|userID -> messages
	states   map[string]*models.CaseState      // caseID|userID -> state
	tasks    map[string][]*models.Task         // caseID|userID -> tasks
	reports  []*models.ScamAnalysisResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases:    make(map[string]*models.Case),
		messages: make(map[string][]*models.CaseMessage),
		states:   make(map[string]*models.CaseState),
		tasks:    make(map[string][]*models.Task),
	}
}

func scopeKey(caseID, userID string) string {
	return caseID + "|" + userID
}

func (s *MemoryStore) CreateCase(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCase(_ context.Context, userID, caseID string) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[caseID]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListCases(_ context.Context, userID string) ([]*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Case
	for _, c := range s.cases {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateCaseDetails(_ context.Context, userID, caseID string, details models.CaseDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}

	if details.Title != "" {
		c.Title = details.Title
	}
	if details.IncidentSummary != "" {
		c.IncidentSummary = details.IncidentSummary
	}
	if details.AttackType != "" {
		c.AttackType = details.AttackType
	}
	if details.IncidentLogic != "" {
		c.IncidentLogic = details.IncidentLogic
	}
	if len(details.PreventionTips) > 0 {
		c.PreventionTips = details.PreventionTips
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg *models.CaseMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scopeKey(msg.CaseID, msg.UserID)
	s.messages[key] = append(s.messages[key], msg)
	return nil
}

func (s *MemoryStore) History(_ context.Context, userID, caseID string, limit int) ([]*models.CaseMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[scopeKey(caseID, userID)]
	out := make([]*models.CaseMessage, len(msgs))
	copy(out, msgs)

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	// хронологический порядок, хвост в пределах лимита
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *MemoryStore) UpsertCaseState(_ context.Context, userID, caseID string, state *models.CaseState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[scopeKey(caseID, userID)] = state
	return nil
}

func (s *MemoryStore) GetCaseState(_ context.Context, userID, caseID string) (*models.CaseState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[scopeKey(caseID, userID)], nil
}

func (s *MemoryStore) AddTask(_ context.Context, userID, caseID string, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scopeKey(caseID, userID)
	for _, existing := range s.tasks[key] {
		if existing.Label == task.Label {
			// идемпотентный sync: задача с таким label уже есть
			return nil
		}
	}
	s.tasks[key] = append(s.tasks[key], task)
	return nil
}

func (s *MemoryStore) UpdateTaskStatus(_ context.Context, userID, caseID, label, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range s.tasks[scopeKey(caseID, userID)] {
		if task.Label == label {
			task.Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Tasks(_ context.Context, userID, caseID string) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := s.tasks[scopeKey(caseID, userID)]
	out := make([]*models.Task, len(tasks))
	for i, t := range tasks {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}

func (s *MemoryStore) StoreScamReport(_ context.Context, result *models.ScamAnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, result)
	return nil
}

func (s *MemoryStore) RecentScamReports(_ context.Context, limit int) ([]*models.ScamAnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.reports)
	if limit > 0 && n > limit {
		n = limit
	}

	// последние limit отчётов, новые первыми
	out := make([]*models.ScamAnalysisResult, 0, n)
	for i := len(s.reports) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.reports[i])
	}
	return out, nil
}
