package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechNxt05/CyberGuard/internal/broker"
	"github.com/TechNxt05/CyberGuard/internal/config"
	"github.com/TechNxt05/CyberGuard/internal/llm"
	"github.com/TechNxt05/CyberGuard/internal/models"
	"github.com/TechNxt05/CyberGuard/internal/storage"
	"github.com/TechNxt05/CyberGuard/internal/websocket"
)

// полноценный scripted chain: отвечает на все промпты обоих пайплайнов
func testChain() *llm.Chain {
	backends := []llm.Backend{{Name: "fake", Model: "fake/model", Vision: true}}
	return llm.NewChainWithCall(backends, func(_ context.Context, _ llm.Backend, req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "behavioral analyst"):
			return `{"user_type":"adult","language":"en","risk_sensitivity":"medium","explanation_style":"simple"}`, nil
		case strings.Contains(req.Prompt, "scam detection expert"):
			return `{
				"scam_probability": 92, "verdict": "SCAM",
				"detected_patterns": ["lottery win"], "risk_score": 90,
				"scam_logic": "Greed bait with fake prize.",
				"consequences": "Advance fee loss.", "severity": "high",
				"recommendation": "Ignore and block."
			}`, nil
		case strings.Contains(req.Prompt, "cyber-guardian angel"):
			return `{"simple_explanation":"Nobody gives away money. This is a scam.","trust_score":95}`, nil
		case strings.Contains(req.Prompt, "actionable steps"):
			return `{"steps":["Do not reply.","Block the sender."]}`, nil
		case strings.Contains(req.Prompt, "incident classifier"):
			return `{
				"asset_affected": ["money"], "attack_type": "fraud",
				"control_authority": ["Bank"], "urgency": "critical",
				"summary": "Money stolen via UPI fraud",
				"prevention_tips": ["Never share OTP"],
				"incident_logic": "Attacker social-engineered an OTP."
			}`, nil
		case strings.Contains(req.Prompt, "crisis manager"):
			return `{
				"lifecycle_plan": [
					{"phase": "containment", "action": "Call 1930 immediately", "description": "Freeze the transaction"},
					{"phase": "reporting", "action": "File a complaint on cybercrime.gov.in", "description": "National portal"}
				],
				"estimated_timeline": "2-7 days"
			}`, nil
		default:
			return "Assistant reply text.", nil
		}
	})
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{Web: config.WebConfig{ListenAddr: ":0"}}
	return NewServer(cfg, testChain(), nil, storage.NewMemoryStore())
}

func doJSON(t *testing.T, h http.Handler, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(t).Router(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAnalyzeMessage(t *testing.T) {
	router := newTestServer(t).Router()

	rec := doJSON(t, router, http.MethodPost, "/analyze-message", "u1",
		models.AnalysisRequest{Message: "You won a lottery of 10 lakh! Pay fee to claim.", Source: "sms"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ScamAnalysisResult
	decode(t, rec, &result)
	assert.Equal(t, models.VerdictScam, result.ScoutReport.Verdict)
	assert.NotEmpty(t, result.Explanation.SimpleExplanation)
}

func TestRecentReportsAfterAnalysis(t *testing.T) {
	router := newTestServer(t).Router()

	rec := doJSON(t, router, http.MethodGet, "/reports", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	doJSON(t, router, http.MethodPost, "/analyze-message", "u1",
		models.AnalysisRequest{Message: "You won a lottery!", Source: "sms"})

	rec = doJSON(t, router, http.MethodGet, "/reports", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reports []*models.ScamAnalysisResult
	decode(t, rec, &reports)
	require.Len(t, reports, 1)
	assert.Equal(t, models.VerdictScam, reports[0].ScoutReport.Verdict)
}

func TestAnalyzeMessageRejectsEmptyInput(t *testing.T) {
	router := newTestServer(t).Router()

	rec := doJSON(t, router, http.MethodPost, "/analyze-message", "u1", models.AnalysisRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveIncidentCreatesCase(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/resolve-incident", "u1",
		models.IncidentRequest{Description: "Someone drained my account via UPI"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CaseID       string            `json:"case_id"`
		State        *models.CaseState `json:"state"`
		CurrentGuide string            `json:"current_guide"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.CaseID)
	assert.Equal(t, "fraud", resp.State.Dimensions.AttackType)
	// первый шаг - звонок на 1930, канонический гайд
	assert.Contains(t, resp.CurrentGuide, "1930")

	// кейс, задачи и состояние видны владельцу
	rec = doJSON(t, router, http.MethodGet, "/cases/"+resp.CaseID, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Case  *models.Case   `json:"case"`
		Tasks []*models.Task `json:"tasks"`
	}
	decode(t, rec, &detail)
	assert.Equal(t, "fraud", detail.Case.AttackType)
	assert.Len(t, detail.Tasks, 2)

	// и не видны чужому
	rec = doJSON(t, router, http.MethodGet, "/cases/"+resp.CaseID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCaseChatFirstContactRunsResolution(t *testing.T) {
	router := newTestServer(t).Router()

	rec := doJSON(t, router, http.MethodPost, "/cases", "u1",
		map[string]string{"title": "UPI fraud"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var c models.Case
	decode(t, rec, &c)

	rec = doJSON(t, router, http.MethodPost, "/cases/"+c.ID+"/chat", "u1",
		map[string]string{"message": "Someone stole money from my bank account"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reply       string         `json:"reply"`
		Tasks       []*models.Task `json:"tasks"`
		CaseDetails *models.Case   `json:"case_details"`
	}
	decode(t, rec, &resp)
	assert.Contains(t, resp.Reply, "1930")
	assert.Len(t, resp.Tasks, 2)
	assert.Equal(t, "fraud", resp.CaseDetails.AttackType)

	// второе сообщение - уже follow-up чат
	rec = doJSON(t, router, http.MethodPost, "/cases/"+c.ID+"/chat", "u1",
		map[string]string{"message": "I called them, what next?"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, "Assistant reply text.", resp.Reply)
	// задачи не задублировались
	assert.Len(t, resp.Tasks, 2)
}

// image-only первый контакт: текст со скриншота попадает в описание
// инцидента, а сообщение пользователя помечается загрузкой изображения
func TestChatFirstContactImageOnly(t *testing.T) {
	extracted := "Your electricity will be cut tonight. Pay at bit.ly/pay-now"
	var classifierPrompt string

	backends := []llm.Backend{{Name: "fake", Model: "fake/model", Vision: true}}
	chain := llm.NewChainWithCall(backends, func(_ context.Context, _ llm.Backend, req llm.Request) (string, error) {
		switch {
		case req.ImageBase64 != "":
			return `{"extracted_text":"` + extracted + `"}`, nil
		case strings.Contains(req.Prompt, "incident classifier"):
			classifierPrompt = req.Prompt
			return `{
				"asset_affected": ["money"], "attack_type": "fraud",
				"control_authority": ["Bank"], "urgency": "high",
				"summary": "Utility disconnection scam",
				"prevention_tips": [], "incident_logic": "Scare tactic."
			}`, nil
		case strings.Contains(req.Prompt, "crisis manager"):
			return `{
				"lifecycle_plan": [
					{"phase": "containment", "action": "Call 1930 immediately", "description": "Freeze the transaction"}
				],
				"estimated_timeline": "2 days"
			}`, nil
		default:
			return "Assistant reply text.", nil
		}
	})

	cfg := &config.Config{Web: config.WebConfig{ListenAddr: ":0"}}
	store := storage.NewMemoryStore()
	router := NewServer(cfg, chain, nil, store).Router()

	rec := doJSON(t, router, http.MethodPost, "/cases", "u1", map[string]string{"title": "screenshot"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var c models.Case
	decode(t, rec, &c)

	rec = doJSON(t, router, http.MethodPost, "/cases/"+c.ID+"/chat", "u1",
		map[string]string{"image_base64": "base64data"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, classifierPrompt, extracted)

	history, err := store.History(context.Background(), "u1", c.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	var userContent string
	for _, msg := range history {
		if msg.Sender == models.SenderUser {
			userContent = msg.Content
		}
	}
	assert.Contains(t, userContent, "[Image Uploaded]")
}

// деградация в чате при состоянии без стратегии: canned-ответ, не паника
func TestChatDegradedWithoutStrategy(t *testing.T) {
	cfg := &config.Config{Web: config.WebConfig{ListenAddr: ":0"}}
	store := storage.NewMemoryStore()
	router := NewServer(cfg, llm.NewChainWithCall(nil, nil), nil, store).Router()

	rec := doJSON(t, router, http.MethodPost, "/cases", "u1", map[string]string{"title": "x"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var c models.Case
	decode(t, rec, &c)

	require.NoError(t, store.UpsertCaseState(context.Background(), "u1", c.ID,
		&models.CaseState{IncidentID: c.ID, Status: models.CaseStatusActive}))

	rec = doJSON(t, router, http.MethodPost, "/cases/"+c.ID+"/chat", "u1",
		map[string]string{"message": "what now?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not reach the reasoning service")
}

func TestChatUnknownCase(t *testing.T) {
	router := newTestServer(t).Router()
	rec := doJSON(t, router, http.MethodPost, "/cases/nope/chat", "u1",
		map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTaskStatus(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/resolve-incident", "u1",
		models.IncidentRequest{Description: "fraud"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		CaseID string `json:"case_id"`
	}
	decode(t, rec, &resp)

	path := "/cases/" + resp.CaseID + "/tasks/Call 1930 immediately?status=completed"
	rec = doJSON(t, router, http.MethodPut, strings.ReplaceAll(path, " ", "%20"), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tasks []*models.Task
	decode(t, rec, &tasks)
	require.NotEmpty(t, tasks)
	for _, task := range tasks {
		if task.Label == "Call 1930 immediately" {
			assert.Equal(t, models.TaskStatusCompleted, task.Status)
		}
	}

	rec = doJSON(t, router, http.MethodPut,
		"/cases/"+resp.CaseID+"/tasks/unknown?status=completed", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssistFormAndDoubt(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	// без плана - 404
	rec := doJSON(t, router, http.MethodPost, "/cases", "u1", map[string]string{"title": "x"})
	var c models.Case
	decode(t, rec, &c)

	rec = doJSON(t, router, http.MethodPost, "/cases/"+c.ID+"/assist/form", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// создаём план через resolve
	rec = doJSON(t, router, http.MethodPost, "/resolve-incident", "u1",
		models.IncidentRequest{Description: "fraud"})
	var resp struct {
		CaseID string `json:"case_id"`
	}
	decode(t, rec, &resp)

	rec = doJSON(t, router, http.MethodPost, "/cases/"+resp.CaseID+"/assist/form", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "draft")

	rec = doJSON(t, router, http.MethodPost, "/cases/"+resp.CaseID+"/doubt", "u1",
		map[string]string{"question": "Will I get my money back?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "answer")
}

// исчерпание провайдеров никогда не превращается в HTTP-ошибку
func TestDegradationIsNotAnHTTPError(t *testing.T) {
	cfg := &config.Config{Web: config.WebConfig{ListenAddr: ":0"}}
	srv := NewServer(cfg, llm.NewChainWithCall(nil, nil), nil, storage.NewMemoryStore())
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/analyze-message", "u1",
		models.AnalysisRequest{Message: "lottery win"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.ScamAnalysisResult
	decode(t, rec, &result)
	assert.Equal(t, models.VerdictSafe, result.ScoutReport.Verdict)

	rec = doJSON(t, router, http.MethodPost, "/resolve-incident", "u1",
		models.IncidentRequest{Description: "something happened"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CaseID string `json:"case_id"`
	}
	decode(t, rec, &resp)

	rec = doJSON(t, router, http.MethodPost, "/cases/"+resp.CaseID+"/doubt", "u1",
		map[string]string{"question": "what now?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unable to answer")
}

// Stop гасит ленту и хаб; лента после остановки остаётся best-effort
func TestStopShutsDownLiveFeed(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.Stop())

	srv.feed.Publish(broker.TopicTriageResults, websocket.Message{Type: "triage_result"})
	srv.hub.Broadcast("triage_result", nil)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestServer(t).Router()

	req := httptest.NewRequest(http.MethodOptions, "/analyze-message", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
