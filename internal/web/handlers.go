package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/TechNxt05/CyberGuard/internal/llm"
	"github.com/TechNxt05/CyberGuard/internal/models"
	"github.com/TechNxt05/CyberGuard/internal/resolution"
	"github.com/TechNxt05/CyberGuard/internal/storage"
	"github.com/TechNxt05/CyberGuard/internal/triage"
)

const historyWindow = 5

// userID извлекает владельца из заголовка. Настоящая аутентификация
// живёт перед сервисом, здесь только скоупинг данных.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// storeStatus переводит ошибку гейтвея в HTTP-код
func storeStatus(err error) int {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"llm_configured": s.chain.Configured(),
	})
}

// handleRecentReports - лента последних разобранных скамов для дашборда
func (s *Server) handleRecentReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.RecentScamReports(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load reports")
		return
	}
	if reports == nil {
		reports = []*models.ScamAnalysisResult{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleAnalyzeMessage(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" && req.ImageBase64 == "" {
		writeError(w, http.StatusBadRequest, "message or image_base64 is required")
		return
	}

	result, err := triage.Analyze(r.Context(), s.triageDeps(), req)
	if err != nil {
		log.Printf("❌ Triage failed: %v", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResolveIncident(w http.ResponseWriter, r *http.Request) {
	var req models.IncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	owner := userID(r)
	c := models.NewCase(owner, "", req.Description)
	if err := s.store.CreateCase(r.Context(), c); err != nil {
		log.Printf("❌ Failed to create case: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create case")
		return
	}

	state, guide, err := resolution.Resolve(r.Context(), s.resolutionDeps(), owner, c.ID, req)
	if err != nil {
		log.Printf("❌ Resolution failed: %v", err)
		writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"case_id":       c.ID,
		"state":         state,
		"current_guide": guide,
	})
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := s.store.ListCases(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list cases")
		return
	}
	if cases == nil {
		cases = []*models.Case{}
	}
	writeJSON(w, http.StatusOK, cases)
}

func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c := models.NewCase(userID(r), req.Title, req.Description)
	if err := s.store.CreateCase(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create case")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	caseID := chi.URLParam(r, "caseID")

	c, err := s.store.GetCase(r.Context(), owner, caseID)
	if err != nil {
		writeError(w, storeStatus(err), "case not found")
		return
	}

	history, err := s.store.History(r.Context(), owner, caseID, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	tasks, err := s.store.Tasks(r.Context(), owner, caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load tasks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"case":    c,
		"history": history,
		"tasks":   tasks,
	})
}

// handleChat - главная точка входа кейса. Первое сообщение запускает
// resolution pipeline, дальше это контекстный чат по сохранённому плану.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	caseID := chi.URLParam(r, "caseID")

	var req struct {
		Message     string `json:"message"`
		ImageBase64 string `json:"image_base64,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" && req.ImageBase64 == "" {
		writeError(w, http.StatusBadRequest, "message or image_base64 is required")
		return
	}

	if _, err := s.store.GetCase(r.Context(), owner, caseID); err != nil {
		writeError(w, storeStatus(err), "case not found")
		return
	}

	userContent := req.Message
	if req.ImageBase64 != "" {
		userContent = strings.TrimSpace(req.Message + " [Image Uploaded]")
	}
	if err := s.store.AppendMessage(r.Context(),
		models.NewCaseMessage(caseID, owner, models.SenderUser, userContent)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	state, err := s.store.GetCaseState(r.Context(), owner, caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load case state")
		return
	}

	var reply string
	if state == nil {
		// первый контакт: прогоняем resolution pipeline.
		// Скриншот разворачивается в текст и дополняет описание,
		// иначе image-only инцидент уйдёт в pipeline пустым.
		description := req.Message
		if req.ImageBase64 != "" {
			extracted := llm.ExtractImageText(r.Context(), s.chain, req.ImageBase64)
			description = strings.TrimSpace(description +
				"\n\nText extracted from the uploaded screenshot: " + extracted)
		}

		_, guide, err := resolution.Resolve(r.Context(), s.resolutionDeps(), owner, caseID,
			models.IncidentRequest{Description: description})
		if err != nil {
			log.Printf("❌ Resolution failed for case %s: %v", caseID, err)
			writeError(w, http.StatusInternalServerError, "resolution failed")
			return
		}
		reply = guide
	} else {
		history, err := s.store.History(r.Context(), owner, caseID, historyWindow)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load history")
			return
		}

		reply, err = resolution.FollowUp(r.Context(), s.chain, state, history, req.Message, req.ImageBase64)
		if err != nil {
			// деградация провайдеров - не HTTP-ошибка: возвращаем
			// текущий шаг плана вместо свободного ответа
			log.Printf("⚠️ Follow-up degraded for case %s: %v", caseID, err)
			reply = degradedReply(r, s, state)
		}
	}

	if err := s.store.AppendMessage(r.Context(),
		models.NewCaseMessage(caseID, owner, models.SenderAgent, reply)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save reply")
		return
	}

	tasks, err := s.store.Tasks(r.Context(), owner, caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load tasks")
		return
	}
	c, err := s.store.GetCase(r.Context(), owner, caseID)
	if err != nil {
		writeError(w, storeStatus(err), "case not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reply":        reply,
		"tasks":        tasks,
		"case_details": c,
	})
}

func degradedReply(r *http.Request, s *Server, state *models.CaseState) string {
	if state.Strategy != nil {
		if step := state.Strategy.FirstIncompleteStep(); step != nil {
			return resolution.GuideStep(r.Context(), s.chain, step)
		}
	}
	return "I could not reach the reasoning service. Your planned steps are complete, keep the case open until you confirm recovery."
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	caseID := chi.URLParam(r, "caseID")

	// label приходит из пути и может содержать пробелы
	label, err := url.PathUnescape(chi.URLParam(r, "label"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task label")
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		writeError(w, http.StatusBadRequest, "status query parameter is required")
		return
	}

	if err := s.store.UpdateTaskStatus(r.Context(), owner, caseID, label, status); err != nil {
		writeError(w, storeStatus(err), "task not found")
		return
	}

	tasks, err := s.store.Tasks(r.Context(), owner, caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleAssistForm(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	caseID := chi.URLParam(r, "caseID")

	state, err := s.store.GetCaseState(r.Context(), owner, caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load case state")
		return
	}
	if state == nil {
		writeError(w, http.StatusNotFound, "case has no resolution plan yet")
		return
	}

	text, err := resolution.AssistForm(r.Context(), s.chain, state)
	if err != nil {
		log.Printf("⚠️ Form assist degraded for case %s: %v", caseID, err)
		text = "Unable to draft the form right now. Gather these before filing: screenshots of the fraud, transaction details, your ID proof."
	}
	writeJSON(w, http.StatusOK, map[string]string{"draft": text})
}

func (s *Server) handleDoubt(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	caseID := chi.URLParam(r, "caseID")

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	state, err := s.store.GetCaseState(r.Context(), owner, caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load case state")
		return
	}
	if state == nil {
		writeError(w, http.StatusNotFound, "case has no resolution plan yet")
		return
	}

	answer, err := resolution.ResolveDoubt(r.Context(), s.chain, state, req.Question)
	if err != nil {
		log.Printf("⚠️ Doubt resolution degraded for case %s: %v", caseID, err)
		answer = "Unable to answer right now. Please continue with your current plan, the steps remain valid."
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
