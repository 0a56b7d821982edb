// Package httpserver exposes the bounty and agent lifecycle over REST.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/flyfishlabs/bountyd/internal/agents"
	"github.com/flyfishlabs/bountyd/internal/crawler"
	"github.com/flyfishlabs/bountyd/internal/domain"
	"github.com/flyfishlabs/bountyd/internal/quiz"
)

// BountyAPI is the bounty surface the server exposes.
type BountyAPI interface {
	CreateBounty(ctx context.Context, query string) (*domain.CreateBountyResult, error)
	EvaluateSubmission(ctx context.Context, bountyID, submission, walletAddress string) (*domain.EvaluationOutcome, error)
	ListBounties(ctx context.Context) ([]domain.BountySummary, error)
	GetBounty(ctx context.Context, bountyID string) (*domain.BountySummary, error)
	Insight(ctx context.Context, query, authorHint string) (*domain.InsightResult, error)
	LabelPost(ctx context.Context, text string) (*domain.LabeledPost, error)
}

// AgentAPI is the agent lifecycle surface the server exposes.
type AgentAPI interface {
	Start(ctx context.Context, character agents.Character) (*agents.Agent, error)
	StartByName(ctx context.Context, name string) (*agents.Agent, error)
	Stop(id uuid.UUID) error
	Get(id uuid.UUID) (*agents.Agent, error)
	List() []*agents.Agent
	Update(ctx context.Context, id uuid.UUID, character agents.Character) (*agents.Agent, error)
	Characters(ctx context.Context) ([]agents.Character, error)
}

// PageAPI crawls single pages.
type PageAPI interface {
	Fetch(ctx context.Context, url string) (*crawler.Page, error)
}

// QuizAPI generates quizzes from pages or raw text.
type QuizAPI interface {
	Generate(ctx context.Context, url string, count int) (*quiz.Quiz, error)
	GenerateFromText(ctx context.Context, text string, count int) (*quiz.Quiz, error)
}

// Server is the HTTP server for the bounty service.
type Server struct {
	bounties   BountyAPI
	agents     AgentAPI
	pages      PageAPI
	quizzes    QuizAPI
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates the HTTP server listening on port.
func NewServer(
	port int,
	bounties BountyAPI,
	agentAPI AgentAPI,
	pages PageAPI,
	quizzes QuizAPI,
	logger *slog.Logger,
) *Server {
	s := &Server{
		bounties: bounties,
		agents:   agentAPI,
		pages:    pages,
		quizzes:  quizzes,
		logger:   logger,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Routes builds the router. Exposed so tests can drive handlers directly.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(withLogging(s.logger))

	r.Get("/health", s.handleHealth)

	r.Route("/bounties", func(r chi.Router) {
		r.Get("/", s.handleListBounties)
		r.Post("/", s.handleCreateBounty)
		r.Get("/{bountyID}", s.handleGetBounty)
		r.Post("/{bountyID}/evaluate", s.handleEvaluate)
	})

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", s.handleListAgents)
		r.Post("/", s.handleStartAgent)
		r.Get("/{agentID}", s.handleGetAgent)
		r.Post("/{agentID}/stop", s.handleStopAgent)
		r.Post("/{agentID}/set", s.handleUpdateAgent)
	})

	r.Get("/characters", s.handleListCharacters)
	r.Post("/insight", s.handleInsight)
	r.Post("/label", s.handleLabel)
	r.Post("/crawl", s.handleCrawl)
	r.Post("/quiz", s.handleQuiz)

	return r
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListBounties(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.bounties.ListBounties(r.Context())
	if err != nil {
		s.logger.Error("failed to list bounties", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to list bounties")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bounties": summaries})
}

func (s *Server) handleGetBounty(w http.ResponseWriter, r *http.Request) {
	bountyID := chi.URLParam(r, "bountyID")

	summary, err := s.bounties.GetBounty(r.Context(), bountyID)
	if errors.Is(err, domain.ErrBountyNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("bounty %s not found", bountyID))
		return
	}
	if err != nil {
		s.logger.Error("failed to get bounty", "bountyId", bountyID, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to get bounty")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCreateBounty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "query is required")
		return
	}

	result, err := s.bounties.CreateBounty(r.Context(), req.Query)
	if errors.Is(err, domain.ErrNoPosts) {
		writeError(w, http.StatusUnprocessableEntity, "NoPosts", "no posts are available to back a bounty")
		return
	}
	if err != nil {
		s.logger.Error("failed to create bounty", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to create bounty")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	bountyID := chi.URLParam(r, "bountyID")

	var req struct {
		Submission    string `json:"submission"`
		WalletAddress string `json:"walletAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Submission == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "submission is required")
		return
	}
	if req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "walletAddress is required")
		return
	}

	outcome, err := s.bounties.EvaluateSubmission(r.Context(), bountyID, req.Submission, req.WalletAddress)
	if err != nil {
		s.logger.Error("failed to evaluate submission", "bountyId", bountyID, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to evaluate submission")
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.agents.List()})
}

// handleStartAgent starts an agent from an inline character definition, or
// from a stored character when only a name is given.
func (s *Server) handleStartAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CharacterName string            `json:"characterName,omitempty"`
		Character     *agents.Character `json:"character,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid request body")
		return
	}

	var (
		agent *agents.Agent
		err   error
	)
	switch {
	case req.Character != nil:
		agent, err = s.agents.Start(r.Context(), *req.Character)
	case req.CharacterName != "":
		agent, err = s.agents.StartByName(r.Context(), req.CharacterName)
	default:
		writeError(w, http.StatusBadRequest, "InvalidRequest", "character or characterName is required")
		return
	}

	if errors.Is(err, agents.ErrCharacterNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("character %s not found", req.CharacterName))
		return
	}
	if err != nil {
		s.logger.Error("failed to start agent", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to start agent")
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.agentID(w, r)
	if !ok {
		return
	}

	agent, err := s.agents.Get(id)
	if errors.Is(err, agents.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("agent %s not found", id))
		return
	}
	if err != nil {
		s.logger.Error("failed to get agent", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to get agent")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleStopAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.agentID(w, r)
	if !ok {
		return
	}

	err := s.agents.Stop(id)
	if errors.Is(err, agents.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("agent %s not found", id))
		return
	}
	if err != nil {
		s.logger.Error("failed to stop agent", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to stop agent")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped", "id": id.String()})
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.agentID(w, r)
	if !ok {
		return
	}

	var character agents.Character
	if err := json.NewDecoder(r.Body).Decode(&character); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid character body")
		return
	}

	agent, err := s.agents.Update(r.Context(), id, character)
	if errors.Is(err, agents.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("agent %s not found", id))
		return
	}
	if err != nil {
		s.logger.Error("failed to update agent", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to update agent")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	chars, err := s.agents.Characters(r.Context())
	if err != nil {
		s.logger.Error("failed to list characters", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to list characters")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"characters": chars})
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query      string `json:"query"`
		AuthorHint string `json:"authorHint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "query is required")
		return
	}

	result, err := s.bounties.Insight(r.Context(), req.Query, req.AuthorHint)
	if errors.Is(err, domain.ErrNoPosts) {
		writeError(w, http.StatusUnprocessableEntity, "NoPosts", "no posts are available to answer the query")
		return
	}
	if err != nil {
		s.logger.Error("failed to generate insight", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to generate insight")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "text is required")
		return
	}

	result, err := s.bounties.LabelPost(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("failed to label post", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to label post")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "url is required")
		return
	}

	page, err := s.pages.Fetch(r.Context(), req.URL)
	if err != nil {
		s.logger.Error("failed to crawl page", "url", req.URL, "error", err)
		writeError(w, http.StatusBadGateway, "CrawlError", "failed to crawl page")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL           string `json:"url"`
		Text          string `json:"text"`
		QuestionCount int    `json:"questionCount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.URL == "" && req.Text == "") {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "url or text is required")
		return
	}

	var (
		result *quiz.Quiz
		err    error
	)
	if req.URL != "" {
		result, err = s.quizzes.Generate(r.Context(), req.URL, req.QuestionCount)
	} else {
		result, err = s.quizzes.GenerateFromText(r.Context(), req.Text, req.QuestionCount)
	}
	if err != nil {
		s.logger.Error("failed to generate quiz", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to generate quiz")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) agentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "agent id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration", time.Since(start),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
