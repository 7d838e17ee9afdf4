package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TechNxt05/CyberGuard/internal/broker"
	"github.com/TechNxt05/CyberGuard/internal/config"
	"github.com/TechNxt05/CyberGuard/internal/knowledge"
	"github.com/TechNxt05/CyberGuard/internal/llm"
	"github.com/TechNxt05/CyberGuard/internal/resolution"
	"github.com/TechNxt05/CyberGuard/internal/storage"
	"github.com/TechNxt05/CyberGuard/internal/triage"
	"github.com/TechNxt05/CyberGuard/internal/websocket"
)

// Investigator - общий интерфейс research-агрегатора для обоих пайплайнов
type Investigator interface {
	Investigate(ctx context.Context, query string) string
}

type Server struct {
	cfg      *config.Config
	chain    *llm.Chain
	research Investigator
	patterns *knowledge.PatternIndex
	store    storage.Gateway
	hub      *websocket.Hub
	feed     *broker.Broker[websocket.Message]
	server   *http.Server
}

func NewServer(cfg *config.Config, chain *llm.Chain, research Investigator, store storage.Gateway) *Server {
	hub := websocket.NewHub()
	go hub.Run()

	feed := broker.New[websocket.Message](256)

	s := &Server{
		cfg:      cfg,
		chain:    chain,
		research: research,
		patterns: knowledge.NewPatternIndex(),
		store:    store,
		hub:      hub,
		feed:     feed,
	}

	// лента: пайплайны публикуют в брокер, хаб раздаёт клиентам
	go s.relayFeed()

	return s
}

func (s *Server) relayFeed() {
	for msg := range s.feed.Subscribe(broker.TopicTriageResults) {
		s.hub.Broadcast(msg.Type, msg.Data)
	}
}

// feedPublisher адаптирует брокер под Feed пайплайна
type feedPublisher struct {
	feed *broker.Broker[websocket.Message]
}

func (f feedPublisher) Broadcast(msgType string, data interface{}) {
	f.feed.Publish(broker.TopicTriageResults, websocket.Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (s *Server) triageDeps() triage.Deps {
	return triage.Deps{
		Chain:    s.chain,
		Research: s.research,
		Patterns: s.patterns,
		Store:    s.store,
		Feed:     feedPublisher{feed: s.feed},
	}
}

func (s *Server) resolutionDeps() resolution.Deps {
	return resolution.Deps{
		Chain:    s.chain,
		Research: s.research,
		Store:    s.store,
	}
}

// CORS middleware для разрешения cross-origin запросов с фронтенда
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID")

		// Обработка preflight запросов
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/reports", s.handleRecentReports)
	r.Post("/analyze-message", s.handleAnalyzeMessage)
	r.Post("/resolve-incident", s.handleResolveIncident)

	r.Route("/cases", func(r chi.Router) {
		r.Get("/", s.handleListCases)
		r.Post("/", s.handleCreateCase)
		r.Get("/{caseID}", s.handleGetCase)
		r.Post("/{caseID}/chat", s.handleChat)
		r.Put("/{caseID}/tasks/{label}", s.handleUpdateTask)
		r.Post("/{caseID}/assist/form", s.handleAssistForm)
		r.Post("/{caseID}/doubt", s.handleDoubt)
	})

	r.Get("/ws", s.hub.ServeWS)

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Web.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	// гасим ленту: закрытый топик завершает relayFeed, Close останавливает хаб
	s.feed.CloseTopic(broker.TopicTriageResults)
	s.hub.Close()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}
