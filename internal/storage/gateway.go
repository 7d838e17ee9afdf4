package storage

import (
	"context"
	"errors"

	"github.com/TechNxt05/CyberGuard/internal/models"
)

// ErrNotFound - кейс/задача не существует или не принадлежит владельцу.
// На HTTP-слое превращается в 404.
var ErrNotFound = errors.New("not found")

// Gateway - персистентный шлюз платформы: кейсы, сообщения, задачи,
// reasoning-состояние и память о разобранных скамах.
//
// Контракт консистентности: per-document last-write-wins, без
// транзакций между документами. Все операции безопасны для retry,
// кроме AppendMessage (возможен дубликат - приемлемо).
// AddTask идемпотентен по label: повторная синхронизация той же
// стратегии не плодит задачи.
type Gateway interface {
	CreateCase(ctx context.Context, c *models.Case) error
	GetCase(ctx context.Context, userID, caseID string) (*models.Case, error)
	ListCases(ctx context.Context, userID string) ([]*models.Case, error)
	UpdateCaseDetails(ctx context.Context, userID, caseID string, details models.CaseDetails) error

	AppendMessage(ctx context.Context, msg *models.CaseMessage) error
	History(ctx context.Context, userID, caseID string, limit int) ([]*models.CaseMessage, error)

	UpsertCaseState(ctx context.Context, userID, caseID string, state *models.CaseState) error
	// GetCaseState возвращает (nil, nil) для кейса без состояния:
	// это валидное "свежий кейс", а не ошибка
	GetCaseState(ctx context.Context, userID, caseID string) (*models.CaseState, error)

	AddTask(ctx context.Context, userID, caseID string, task *models.Task) error
	UpdateTaskStatus(ctx context.Context, userID, caseID, label, status string) error
	Tasks(ctx context.Context, userID, caseID string) ([]*models.Task, error)

	StoreScamReport(ctx context.Context, result *models.ScamAnalysisResult) error
	RecentScamReports(ctx context.Context, limit int) ([]*models.ScamAnalysisResult, error)
}
