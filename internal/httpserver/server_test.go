package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flyfishlabs/bountyd/internal/agents"
	"github.com/flyfishlabs/bountyd/internal/crawler"
	"github.com/flyfishlabs/bountyd/internal/domain"
	"github.com/flyfishlabs/bountyd/internal/quiz"
)

type stubBounties struct {
	createResult *domain.CreateBountyResult
	createErr    error
	outcome      *domain.EvaluationOutcome
	evalErr      error
	summaries    []domain.BountySummary
	listErr      error
	summary      *domain.BountySummary
	getErr       error
	insight      *domain.InsightResult
	insightErr   error
	labeled      *domain.LabeledPost
	labelErr     error

	lastQuery string
	lastHint  string
	lastText  string
}

func (s *stubBounties) CreateBounty(_ context.Context, query string) (*domain.CreateBountyResult, error) {
	s.lastQuery = query
	return s.createResult, s.createErr
}

func (s *stubBounties) EvaluateSubmission(context.Context, string, string, string) (*domain.EvaluationOutcome, error) {
	return s.outcome, s.evalErr
}

func (s *stubBounties) ListBounties(context.Context) ([]domain.BountySummary, error) {
	return s.summaries, s.listErr
}

func (s *stubBounties) GetBounty(context.Context, string) (*domain.BountySummary, error) {
	return s.summary, s.getErr
}

func (s *stubBounties) Insight(_ context.Context, query, authorHint string) (*domain.InsightResult, error) {
	s.lastQuery = query
	s.lastHint = authorHint
	return s.insight, s.insightErr
}

func (s *stubBounties) LabelPost(_ context.Context, text string) (*domain.LabeledPost, error) {
	s.lastText = text
	return s.labeled, s.labelErr
}

type stubAgents struct {
	agent   *agents.Agent
	err     error
	agents  []*agents.Agent
	chars   []agents.Character
	stopped []uuid.UUID
}

func (s *stubAgents) Start(context.Context, agents.Character) (*agents.Agent, error) {
	return s.agent, s.err
}

func (s *stubAgents) StartByName(context.Context, string) (*agents.Agent, error) {
	return s.agent, s.err
}

func (s *stubAgents) Stop(id uuid.UUID) error {
	s.stopped = append(s.stopped, id)
	return s.err
}

func (s *stubAgents) Get(uuid.UUID) (*agents.Agent, error) {
	return s.agent, s.err
}

func (s *stubAgents) List() []*agents.Agent {
	return s.agents
}

func (s *stubAgents) Update(context.Context, uuid.UUID, agents.Character) (*agents.Agent, error) {
	return s.agent, s.err
}

func (s *stubAgents) Characters(context.Context) ([]agents.Character, error) {
	return s.chars, s.err
}

type stubPages struct {
	page *crawler.Page
	err  error
}

func (s *stubPages) Fetch(context.Context, string) (*crawler.Page, error) {
	return s.page, s.err
}

type stubQuizzes struct {
	quiz *quiz.Quiz
	err  error
}

func (s *stubQuizzes) Generate(context.Context, string, int) (*quiz.Quiz, error) {
	return s.quiz, s.err
}

func (s *stubQuizzes) GenerateFromText(context.Context, string, int) (*quiz.Quiz, error) {
	return s.quiz, s.err
}

type fixture struct {
	bounties *stubBounties
	agents   *stubAgents
	pages    *stubPages
	quizzes  *stubQuizzes
	handler  http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		bounties: &stubBounties{},
		agents:   &stubAgents{},
		pages:    &stubPages{},
		quizzes:  &stubQuizzes{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.handler = NewServer(0, f.bounties, f.agents, f.pages, f.quizzes, logger).Routes()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateBounty(t *testing.T) {
	f := newFixture()
	f.bounties.createResult = &domain.CreateBountyResult{
		BountyID:        "QmContent",
		TransactionHash: "0xcreate",
	}

	rec := f.do(t, http.MethodPost, "/bounties", `{"query":"rollups, amount: 2.5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "rollups, amount: 2.5", f.bounties.lastQuery)

	var result domain.CreateBountyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "QmContent", result.BountyID)
}

func TestCreateBountyValidation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/bounties", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/bounties", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBountyNoPosts(t *testing.T) {
	f := newFixture()
	f.bounties.createErr = domain.ErrNoPosts

	rec := f.do(t, http.MethodPost, "/bounties", `{"query":"rollups"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "NoPosts")
}

func TestListBounties(t *testing.T) {
	f := newFixture()
	f.bounties.summaries = []domain.BountySummary{{BountyID: "Qm1"}, {BountyID: "Qm2"}}

	rec := f.do(t, http.MethodGet, "/bounties", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Bounties []domain.BountySummary `json:"bounties"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Bounties, 2)
}

func TestGetBountyNotFound(t *testing.T) {
	f := newFixture()
	f.bounties.getErr = domain.ErrBountyNotFound

	rec := f.do(t, http.MethodGet, "/bounties/QmMissing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "QmMissing")
}

func TestEvaluate(t *testing.T) {
	f := newFixture()
	f.bounties.outcome = &domain.EvaluationOutcome{
		BountyID:    "Qm1",
		BountyFound: true,
		Evaluation:  &domain.EvaluationResult{OverallScore: 8, QualifiesForBounty: true},
	}

	rec := f.do(t, http.MethodPost, "/bounties/Qm1/evaluate",
		`{"submission":"my work","walletAddress":"0x1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome domain.EvaluationOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.True(t, outcome.BountyFound)
}

func TestEvaluateValidation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/bounties/Qm1/evaluate", `{"walletAddress":"0x1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/bounties/Qm1/evaluate", `{"submission":"work"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateUnknownBountyIsStructured(t *testing.T) {
	f := newFixture()
	f.bounties.outcome = &domain.EvaluationOutcome{
		BountyID: "QmMissing",
		Message:  "Bounty not available. The bounty ID QmMissing could not be found.",
	}

	rec := f.do(t, http.MethodPost, "/bounties/QmMissing/evaluate",
		`{"submission":"work","walletAddress":"0x1"}`)

	// Unknown bounty is a 200 with bountyFound=false, not an HTTP error.
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome domain.EvaluationOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.False(t, outcome.BountyFound)
	assert.Contains(t, outcome.Message, "QmMissing")
}

func TestStartAgentInline(t *testing.T) {
	f := newFixture()
	f.agents.agent = &agents.Agent{ID: uuid.New(), Character: agents.Character{Name: "scout"}}

	rec := f.do(t, http.MethodPost, "/agents", `{"character":{"name":"scout"}}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestStartAgentByName(t *testing.T) {
	f := newFixture()
	f.agents.agent = &agents.Agent{ID: uuid.New(), Character: agents.Character{Name: "scout"}}

	rec := f.do(t, http.MethodPost, "/agents", `{"characterName":"scout"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestStartAgentUnknownCharacter(t *testing.T) {
	f := newFixture()
	f.agents.err = agents.ErrCharacterNotFound

	rec := f.do(t, http.MethodPost, "/agents", `{"characterName":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartAgentValidation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/agents", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStopAgent(t *testing.T) {
	f := newFixture()
	id := uuid.New()

	rec := f.do(t, http.MethodPost, "/agents/"+id.String()+"/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.agents.stopped, 1)
	assert.Equal(t, id, f.agents.stopped[0])
}

func TestStopAgentBadID(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/agents/not-a-uuid/stop", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.agents.stopped)
}

func TestGetAgentNotFound(t *testing.T) {
	f := newFixture()
	f.agents.err = agents.ErrAgentNotFound

	rec := f.do(t, http.MethodGet, "/agents/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAgent(t *testing.T) {
	f := newFixture()
	f.agents.agent = &agents.Agent{ID: uuid.New(), Character: agents.Character{Name: "scout"}}

	rec := f.do(t, http.MethodPost, "/agents/"+f.agents.agent.ID.String()+"/set", `{"name":"scout"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListAgents(t *testing.T) {
	f := newFixture()
	f.agents.agents = []*agents.Agent{
		{ID: uuid.New(), Character: agents.Character{Name: "one"}},
		{ID: uuid.New(), Character: agents.Character{Name: "two"}},
	}

	rec := f.do(t, http.MethodGet, "/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Agents []agents.Agent `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Agents, 2)
}

func TestListCharacters(t *testing.T) {
	f := newFixture()
	f.agents.chars = []agents.Character{{Name: "scout"}}

	rec := f.do(t, http.MethodGet, "/characters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scout")
}

func TestInsight(t *testing.T) {
	f := newFixture()
	f.bounties.insight = &domain.InsightResult{
		Answer:        "Rollup work is active.",
		RelevantPosts: []domain.InsightPost{{Author: "alice", Text: "composite", Score: 1.2}},
	}

	rec := f.do(t, http.MethodPost, "/insight", `{"query":"what about rollups","authorHint":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "what about rollups", f.bounties.lastQuery)
	assert.Equal(t, "alice", f.bounties.lastHint)

	var result domain.InsightResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Rollup work is active.", result.Answer)
	assert.Len(t, result.RelevantPosts, 1)
}

func TestInsightValidation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/insight", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsightNoPosts(t *testing.T) {
	f := newFixture()
	f.bounties.insightErr = domain.ErrNoPosts

	rec := f.do(t, http.MethodPost, "/insight", `{"query":"rollups"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "NoPosts")
}

func TestLabel(t *testing.T) {
	f := newFixture()
	f.bounties.labeled = &domain.LabeledPost{
		Post:     "Mainnet ships next week.",
		Category: "News/Update",
		Color:    "#2196F3",
	}

	rec := f.do(t, http.MethodPost, "/label", `{"text":"Mainnet ships next week."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mainnet ships next week.", f.bounties.lastText)
	assert.Contains(t, rec.Body.String(), "News/Update")
}

func TestLabelValidation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/label", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/label", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLabelFailure(t *testing.T) {
	f := newFixture()
	f.bounties.labelErr = errors.New("model down")

	rec := f.do(t, http.MethodPost, "/label", `{"text":"post"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCrawl(t *testing.T) {
	f := newFixture()
	f.pages.page = &crawler.Page{URL: "https://example.com", Title: "Example", Markdown: "# hi"}

	rec := f.do(t, http.MethodPost, "/crawl", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Example")

	rec = f.do(t, http.MethodPost, "/crawl", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCrawlFailure(t *testing.T) {
	f := newFixture()
	f.pages.err = errors.New("unreachable")

	rec := f.do(t, http.MethodPost, "/crawl", `{"url":"https://example.com"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestQuiz(t *testing.T) {
	f := newFixture()
	f.quizzes.quiz = &quiz.Quiz{
		SourceURL: "https://example.com",
		Questions: []quiz.Question{{Question: "q", Correct: "A"}},
	}

	rec := f.do(t, http.MethodPost, "/quiz", `{"url":"https://example.com","questionCount":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "questions")

	rec = f.do(t, http.MethodPost, "/quiz", `{"text":"raw source material"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/quiz", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInternalErrorShape(t *testing.T) {
	f := newFixture()
	f.bounties.listErr = errors.New("boom")

	rec := f.do(t, http.MethodGet, "/bounties", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "InternalError", body["error"])
	assert.NotEmpty(t, body["message"])
}
