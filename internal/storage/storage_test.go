package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechNxt05/CyberGuard/internal/models"
)

// обе реализации должны проходить один и тот же контракт
func gateways(t *testing.T) map[string]Gateway {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Gateway{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestCaseLifecycle(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			c := models.NewCase("user-1", "Instagram hacked", "Account taken over")
			require.NoError(t, gw.CreateCase(ctx, c))

			got, err := gw.GetCase(ctx, "user-1", c.ID)
			require.NoError(t, err)
			assert.Equal(t, "Instagram hacked", got.Title)
			assert.Equal(t, models.CaseStatusActive, got.Status)

			// чужой userID не видит кейс
			_, err = gw.GetCase(ctx, "user-2", c.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			err = gw.UpdateCaseDetails(ctx, "user-1", c.ID, models.CaseDetails{
				AttackType:     "unauthorized_access",
				PreventionTips: []string{"Enable 2FA"},
			})
			require.NoError(t, err)

			got, err = gw.GetCase(ctx, "user-1", c.ID)
			require.NoError(t, err)
			assert.Equal(t, "unauthorized_access", got.AttackType)
			// частичное обновление не стирает остальные поля
			assert.Equal(t, "Instagram hacked", got.Title)

			list, err := gw.ListCases(ctx, "user-1")
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestUpdateDetailsMissingCase(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			err := gw.UpdateCaseDetails(context.Background(), "user-1", "no-such-case",
				models.CaseDetails{Title: "x"})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestHistoryChronologicalWithLimit(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := models.NewCase("user-1", "Case", "")
			require.NoError(t, gw.CreateCase(ctx, c))

			for _, content := range []string{"first", "second", "third", "fourth"} {
				require.NoError(t, gw.AppendMessage(ctx,
					models.NewCaseMessage(c.ID, "user-1", models.SenderUser, content)))
			}

			history, err := gw.History(ctx, "user-1", c.ID, 2)
			require.NoError(t, err)
			require.Len(t, history, 2)
			// лимит берёт хвост, порядок хронологический
			assert.Equal(t, "third", history[0].Content)
			assert.Equal(t, "fourth", history[1].Content)

			all, err := gw.History(ctx, "user-1", c.ID, 0)
			require.NoError(t, err)
			assert.Len(t, all, 4)
			assert.Equal(t, "first", all[0].Content)
		})
	}
}

func TestCaseStateRoundTrip(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// свежий кейс без состояния: (nil, nil), не ошибка
			st, err := gw.GetCaseState(ctx, "user-1", "fresh-case")
			require.NoError(t, err)
			assert.Nil(t, st)

			state := &models.CaseState{
				IncidentID: "case-1",
				Dimensions: &models.IncidentDimensions{
					AttackType: "unauthorized_access",
					Summary:    "Instagram account hacked",
				},
				Status: "active",
			}
			require.NoError(t, gw.UpsertCaseState(ctx, "user-1", "case-1", state))

			got, err := gw.GetCaseState(ctx, "user-1", "case-1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "unauthorized_access", got.Dimensions.AttackType)

			// upsert перезаписывает целиком
			state.Status = "resolved"
			require.NoError(t, gw.UpsertCaseState(ctx, "user-1", "case-1", state))
			got, err = gw.GetCaseState(ctx, "user-1", "case-1")
			require.NoError(t, err)
			assert.Equal(t, "resolved", got.Status)
		})
	}
}

func TestAddTaskIdempotentByLabel(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// повторная синхронизация той же стратегии
			for i := 0; i < 3; i++ {
				require.NoError(t, gw.AddTask(ctx, "user-1", "case-1",
					models.NewTask("Report on cybercrime.gov.in", "File the complaint")))
				require.NoError(t, gw.AddTask(ctx, "user-1", "case-1",
					models.NewTask("Call 1930", "Freeze the transaction")))
			}

			tasks, err := gw.Tasks(ctx, "user-1", "case-1")
			require.NoError(t, err)
			assert.Len(t, tasks, 2)
		})
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, gw.AddTask(ctx, "user-1", "case-1",
				models.NewTask("Call 1930", "")))

			require.NoError(t, gw.UpdateTaskStatus(ctx, "user-1", "case-1",
				"Call 1930", models.TaskStatusCompleted))

			tasks, err := gw.Tasks(ctx, "user-1", "case-1")
			require.NoError(t, err)
			require.Len(t, tasks, 1)
			assert.Equal(t, models.TaskStatusCompleted, tasks[0].Status)

			err = gw.UpdateTaskStatus(ctx, "user-1", "case-1", "no such task", "completed")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestScamReports(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i, verdict := range []string{models.VerdictSafe, models.VerdictSuspicious, models.VerdictScam} {
				report := models.SafeDefaultReport()
				report.Verdict = verdict
				report.ScamProbability = float64(i * 40)
				require.NoError(t, gw.StoreScamReport(ctx, &models.ScamAnalysisResult{
					ScoutReport: report,
				}))
			}

			recent, err := gw.RecentScamReports(ctx, 2)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			// новые первыми
			assert.Equal(t, models.VerdictScam, recent[0].ScoutReport.Verdict)
			assert.Equal(t, models.VerdictSuspicious, recent[1].ScoutReport.Verdict)
		})
	}
}
