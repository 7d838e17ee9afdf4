package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы кейса
const (
	CaseStatusActive   = "active"
	CaseStatusResolved = "resolved"
	CaseStatusClosed   = "closed"
)

// Статусы задач
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusBlocked    = "blocked"
)

// Отправители сообщений в кейсе
const (
	SenderUser   = "user"
	SenderSystem = "system"
	SenderAgent  = "agent"
)

// Case - aggregate root одного инцидента пользователя
type Case struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Title           string    `json:"title"`
	IncidentSummary string    `json:"incident_summary,omitempty"`
	AttackType      string    `json:"attack_type,omitempty"`
	IncidentLogic   string    `json:"incident_logic,omitempty"`
	PreventionTips  []string  `json:"prevention_tips,omitempty"`
	Status          string    `json:"status"`
	CurrentPhase    string    `json:"current_phase"` // intake, strategy, execution, verification
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewCase создаёт кейс со сгенерированным ID и дефолтными статусами
func NewCase(userID, title, summary string) *Case {
	now := time.Now().UTC()
	if title == "" {
		title = "New Incident"
	}
	return &Case{
		ID:              uuid.NewString(),
		UserID:          userID,
		Title:           title,
		IncidentSummary: summary,
		Status:          CaseStatusActive,
		CurrentPhase:    "intake",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CaseDetails - частичное обновление метаданных кейса
type CaseDetails struct {
	Title           string   `json:"title,omitempty"`
	IncidentSummary string   `json:"incident_summary,omitempty"`
	AttackType      string   `json:"attack_type,omitempty"`
	IncidentLogic   string   `json:"incident_logic,omitempty"`
	PreventionTips  []string `json:"prevention_tips,omitempty"`
}

// Task - один пункт чеклиста в сайдбаре кейса
type Task struct {
	TaskID      string    `json:"task_id"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Source      string    `json:"source"` // agent или user
	ActionLink  string    `json:"action_link,omitempty"`
	ActionType  string    `json:"action_type,omitempty"` // link, call, info
	CreatedAt   time.Time `json:"created_at"`
}

// NewTask создаёт pending-задачу от агента
func NewTask(label, description string) *Task {
	return &Task{
		TaskID:      uuid.NewString(),
		Label:       label,
		Description: description,
		Status:      TaskStatusPending,
		Source:      "agent",
		CreatedAt:   time.Now().UTC(),
	}
}

// CaseMessage - одно сообщение истории кейса, append-only
type CaseMessage struct {
	MessageID string    `json:"message_id"`
	CaseID    string    `json:"case_id"`
	UserID    string    `json:"user_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCaseMessage создаёт сообщение с текущим timestamp
func NewCaseMessage(caseID, userID, sender, content string) *CaseMessage {
	return &CaseMessage{
		MessageID: uuid.NewString(),
		CaseID:    caseID,
		UserID:    userID,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
