package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/TechNxt05/CyberGuard/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cases (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cases_user ON cases(user_id);

CREATE TABLE IF NOT EXISTS case_messages (
	message_id TEXT PRIMARY KEY,
	case_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	ts         INTEGER NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_case ON case_messages(case_id, user_id, ts);

CREATE TABLE IF NOT EXISTS case_state (
	case_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	doc     TEXT NOT NULL,
	PRIMARY KEY (case_id, user_id)
);

CREATE TABLE IF NOT EXISTS case_tasks (
	case_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	label      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	doc        TEXT NOT NULL,
	PRIMARY KEY (case_id, user_id, label)
);

CREATE TABLE IF NOT EXISTS scam_reports (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at INTEGER NOT NULL,
	doc        TEXT NOT NULL
);
`

// SQLiteStore - durable реализация Gateway поверх modernc.org/sqlite.
// Документы хранятся как JSON в колонке doc, узкие колонки рядом -
// только для ключей и сортировки.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite открывает (или создаёт) базу и применяет схему
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// sqlite переносит только одного писателя
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCase(ctx context.Context, c *models.Case) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal case: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cases (id, user_id, updated_at, doc) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.UpdatedAt.UnixNano(), string(doc))
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCase(ctx context.Context, userID, caseID string) (*models.Case, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM cases WHERE id = ? AND user_id = ?`,
		caseID, userID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	var c models.Case
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("unmarshal case: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) ListCases(ctx context.Context, userID string) ([]*models.Case, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM cases WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []*models.Case
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		var c models.Case
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, fmt.Errorf("unmarshal case: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateCaseDetails(ctx context.Context, userID, caseID string, details models.CaseDetails) error {
	// read-modify-write: merge поверх текущего документа
	c, err := s.GetCase(ctx, userID, caseID)
	if err != nil {
		return err
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
	return s.CreateCase(ctx, c)
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.CaseMessage) error {
	doc, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO case_messages (message_id, case_id, user_id, ts, doc) VALUES (?, ?, ?, ?, ?)`,
		msg.MessageID, msg.CaseID, msg.UserID, msg.Timestamp.UnixNano(), string(doc))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, userID, caseID string, limit int) ([]*models.CaseMessage, error) {
	q := `SELECT doc FROM case_messages WHERE case_id = ? AND user_id = ?
	      ORDER BY ts DESC`
	args := []any{caseID, userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var out []*models.CaseMessage
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		var m models.CaseMessage
		if err := json.Unmarshal([]byte(doc), &m); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// выборка шла DESC ради LIMIT, наружу отдаём хронологию
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *SQLiteStore) UpsertCaseState(ctx context.Context, userID, caseID string, state *models.CaseState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO case_state (case_id, user_id, doc) VALUES (?, ?, ?)
		 ON CONFLICT(case_id, user_id) DO UPDATE SET doc = excluded.doc`,
		caseID, userID, string(doc))
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCaseState(ctx context.Context, userID, caseID string) (*models.CaseState, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM case_state WHERE case_id = ? AND user_id = ?`,
		caseID, userID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	var st models.CaseState
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, nil
}

func (s *SQLiteStore) AddTask(ctx context.Context, userID, caseID string, task *models.Task) error {
	doc, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	// конфликт по label = та же задача из повторного sync, пропускаем
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO case_tasks (case_id, user_id, label, created_at, doc) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(case_id, user_id, label) DO NOTHING`,
		caseID, userID, task.Label, task.CreatedAt.UnixNano(), string(doc))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, userID, caseID, label, status string) error {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM case_tasks WHERE case_id = ? AND user_id = ? AND label = ?`,
		caseID, userID, label).Scan(&doc)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	var t models.Task
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return fmt.Errorf("unmarshal task: %w", err)
	}
	t.Status = status
	updated, err := json.Marshal(&t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE case_tasks SET doc = ? WHERE case_id = ? AND user_id = ? AND label = ?`,
		string(updated), caseID, userID, label)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Tasks(ctx context.Context, userID, caseID string) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM case_tasks WHERE case_id = ? AND user_id = ? ORDER BY created_at`,
		caseID, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		var t models.Task
		if err := json.Unmarshal([]byte(doc), &t); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) StoreScamReport(ctx context.Context, result *models.ScamAnalysisResult) error {
	doc, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scam_reports (created_at, doc) VALUES (?, ?)`,
		time.Now().UTC().UnixNano(), string(doc))
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentScamReports(ctx context.Context, limit int) ([]*models.ScamAnalysisResult, error) {
	q := `SELECT doc FROM scam_reports ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*models.ScamAnalysisResult
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var r models.ScamAnalysisResult
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
