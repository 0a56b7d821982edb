package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flyfishlabs/bountyd/internal/retry"
)

const (
	// defaultTopCandidates is how many ranked candidates feed the drafted
	// bounty content.
	defaultTopCandidates = 5

	fetchAttempts = 3
)

// BountyService owns the bounty lifecycle: creation from a ranked post
// corpus, submission evaluation, and listings. All collaborators are injected
// once at construction; the service holds no lazily-initialized globals.
type BountyService struct {
	posts     PostSource
	ranker    *Ranker
	completer Completer
	store     ContentStore
	ledger    Ledger
	ids       BountyIDStore
	logger    *slog.Logger

	explorerBase string
	topK         int
	fetchDelay   retry.DelayFunc
}

// BountyServiceDeps wires a BountyService.
type BountyServiceDeps struct {
	Posts     PostSource
	Ranker    *Ranker
	Completer Completer
	Store     ContentStore
	Ledger    Ledger
	IDs       BountyIDStore
	Logger    *slog.Logger

	// ExplorerBaseURL prefixes transaction hashes into explorer links.
	// Optional.
	ExplorerBaseURL string

	// TopCandidates overrides how many candidates feed content assembly.
	TopCandidates int

	// FetchDelay overrides the ingestion retry backoff. Defaults to linear
	// one-second steps.
	FetchDelay retry.DelayFunc
}

// NewBountyService creates a BountyService.
func NewBountyService(deps BountyServiceDeps) *BountyService {
	topK := deps.TopCandidates
	if topK <= 0 {
		topK = defaultTopCandidates
	}
	delay := deps.FetchDelay
	if delay == nil {
		delay = retry.Linear(time.Second)
	}
	return &BountyService{
		posts:        deps.Posts,
		ranker:       deps.Ranker,
		completer:    deps.Completer,
		store:        deps.Store,
		ledger:       deps.Ledger,
		ids:          deps.IDs,
		logger:       deps.Logger,
		explorerBase: deps.ExplorerBaseURL,
		topK:         topK,
		fetchDelay:   delay,
	}
}

// CreateBountyResult is the structured response of a successful creation.
type CreateBountyResult struct {
	BountyID        string        `json:"bountyId"`
	DataRef         string        `json:"dataRef"`
	TransactionHash string        `json:"transactionHash"`
	ExplorerLink    string        `json:"explorerLink,omitempty"`
	StakeAmount     uint64        `json:"stakeAmount"`
	MinParticipants uint64        `json:"minParticipants"`
	ExpireSeconds   uint64        `json:"expireSeconds"`
	Content         BountyContent `json:"content"`

	// ContentDegraded marks a published bounty whose drafted sections came
	// back incomplete from the model.
	ContentDegraded bool `json:"contentDegraded,omitempty"`
	PostCount       int  `json:"postCount"`
}

// CreateBounty runs the full creation pipeline for a free-text request:
// fetch posts (with retry), rank them against the request, draft and parse
// bounty content, persist it to the content store, and register the bounty on
// the ledger. No bounty exists unless both persistence and the ledger call
// succeed.
func (s *BountyService) CreateBounty(ctx context.Context, query string) (*CreateBountyResult, error) {
	posts, err := retry.Do(ctx, fetchAttempts, s.fetchDelay, s.posts.FetchAll)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, ErrNoPosts
	}

	candidates, err := s.ranker.Rank(ctx, posts, query, s.topK)
	if err != nil {
		return nil, fmt.Errorf("rank posts: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoPosts
	}

	stake := ExtractStakeAmount(query)
	minUsers := ExtractMinParticipants(query)
	expire := ExtractExpireSeconds(query)

	topTexts := make([]string, len(candidates))
	for i, c := range candidates {
		topTexts[i] = c.CompositeText
	}

	raw, err := s.completer.Complete(ctx, generateBountyPrompt(query, strings.Join(topTexts, "\n")))
	if err != nil {
		return nil, fmt.Errorf("draft bounty content: %w", err)
	}

	assembled := ParseBountySections(raw)
	if assembled.Degraded {
		s.logger.Warn("drafted bounty content is incomplete, publishing degraded sections",
			"title", assembled.Title, "requirements", len(assembled.Requirements))
	}

	content := assembled.BountyContent
	content.AllPostData = BuildPostData(candidates)

	bountyID, err := s.store.Put(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("persist bounty content: %w", err)
	}
	if bountyID == "" {
		return nil, errors.New("persist bounty content: storage returned no identifier")
	}

	// The content identifier doubles as the ledger's data reference.
	txHash, err := s.ledger.CreateBounty(ctx, bountyID, bountyID, stake, minUsers, expire)
	if err != nil {
		return nil, fmt.Errorf("register bounty on ledger: %w", err)
	}

	if err := s.ids.Record(ctx, bountyID); err != nil {
		// The local record is advisory; the bounty already exists.
		s.logger.Error("failed to record bounty id", "bountyId", bountyID, "error", err)
	}

	postCount := 0
	for _, texts := range content.AllPostData {
		postCount += len(texts)
	}

	s.logger.Info("bounty created",
		"bountyId", bountyID,
		"txHash", txHash,
		"stake", stake,
		"minParticipants", minUsers,
		"expireSeconds", expire,
	)

	return &CreateBountyResult{
		BountyID:        bountyID,
		DataRef:         bountyID,
		TransactionHash: txHash,
		ExplorerLink:    s.explorerLink(txHash),
		StakeAmount:     stake,
		MinParticipants: minUsers,
		ExpireSeconds:   expire,
		Content:         content,
		ContentDegraded: assembled.Degraded,
		PostCount:       postCount,
	}, nil
}

// EvaluationOutcome is the structured response of an evaluation request. An
// unknown bounty is reported here, not as an error.
type EvaluationOutcome struct {
	BountyID        string            `json:"bountyId"`
	BountyFound     bool              `json:"bountyFound"`
	Message         string            `json:"message,omitempty"`
	Evaluation      *EvaluationResult `json:"evaluation,omitempty"`
	ParticipationTx string            `json:"participationTx,omitempty"`
}

// EvaluateSubmission scores a free-text submission against a bounty's stored
// content via the qualification rubric. A qualifying submission triggers the
// ledger participate call with floor(score*10) points; a failure there is
// recorded as a warning on the result, not an error.
func (s *BountyService) EvaluateSubmission(ctx context.Context, bountyID, submission, walletAddress string) (*EvaluationOutcome, error) {
	record, err := s.ledger.BountyByID(ctx, bountyID)
	if errors.Is(err, ErrBountyNotFound) {
		return &EvaluationOutcome{
			BountyID: bountyID,
			Message:  fmt.Sprintf("Bounty not available. The bounty ID %s could not be found.", bountyID),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up bounty: %w", err)
	}

	dataRef := record.DataRef
	if dataRef == "" {
		dataRef = bountyID
	}

	var content BountyContent
	if err := s.store.Get(ctx, dataRef, &content); err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return &EvaluationOutcome{
				BountyID: bountyID,
				Message:  fmt.Sprintf("Bounty not available. No content is stored under %s.", dataRef),
			}, nil
		}
		return nil, fmt.Errorf("fetch bounty content: %w", err)
	}

	allPosts, err := json.Marshal(content.AllPostData)
	if err != nil {
		return nil, fmt.Errorf("encode post corpus: %w", err)
	}

	prompt := evaluateSubmissionPrompt(string(allPosts), submission, strings.Join(content.Requirements, "\n"))
	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("run evaluation rubric: %w", err)
	}

	evaluation := parseEvaluation(raw, s.logger)

	outcome := &EvaluationOutcome{
		BountyID:    bountyID,
		BountyFound: true,
		Evaluation:  &evaluation,
	}

	if evaluation.QualifiesForBounty {
		// A negative score would make the uint64 conversion undefined.
		score := math.Max(evaluation.OverallScore, 0)
		points := uint64(math.Floor(score * 10))
		txHash, err := s.ledger.Participate(ctx, walletAddress, points, bountyID)
		if err != nil {
			s.logger.Error("qualified submission failed to reach ledger",
				"bountyId", bountyID, "wallet", walletAddress, "error", err)
			evaluation.Summary += "\nWarning: Qualified but failed to submit to blockchain."
			outcome.Evaluation = &evaluation
		} else {
			outcome.ParticipationTx = txHash
		}
	}

	return outcome, nil
}

// parseEvaluation decodes the rubric's JSON verdict, tolerating markdown code
// fences. An unparsable response degrades to a zero-score result that keeps
// the raw text for diagnosis.
func parseEvaluation(raw string, logger *slog.Logger) EvaluationResult {
	clean := strings.TrimSpace(raw)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var result EvaluationResult
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		logger.Error("failed to parse evaluation response", "error", err)
		return EvaluationResult{
			OverallScore:       0,
			QualifiesForBounty: false,
			Summary:            "Failed to process evaluation",
			DetailedFeedback:   "Error in evaluation process. Raw response: " + raw,
		}
	}

	// The rubric's boolean is authoritative; a numeric disagreement is
	// surfaced in logs only.
	if result.QualifiesForBounty != (result.OverallScore >= 7) {
		logger.Warn("rubric verdict disagrees with numeric score",
			"score", result.OverallScore, "qualifies", result.QualifiesForBounty)
	}
	return result
}

// ListBounties joins every ledger record with its stored content. The
// per-bounty content fetches fan out concurrently and reassemble
// positionally; records whose content cannot be fetched are discarded.
func (s *BountyService) ListBounties(ctx context.Context) ([]BountySummary, error) {
	records, err := s.ledger.AllBounties(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch bounties: %w", err)
	}

	summaries := make([]*BountySummary, len(records))
	var wg sync.WaitGroup
	for i, record := range records {
		wg.Add(1)
		go func(i int, record BountyRecord) {
			defer wg.Done()
			summary, err := s.summarize(ctx, record)
			if err != nil {
				s.logger.Warn("dropping bounty without content", "bountyId", record.BountyID, "error", err)
				return
			}
			summaries[i] = summary
		}(i, record)
	}
	wg.Wait()

	result := make([]BountySummary, 0, len(records))
	for _, summary := range summaries {
		if summary != nil {
			result = append(result, *summary)
		}
	}
	return result, nil
}

// GetBounty returns a single bounty joined with its content, or
// ErrBountyNotFound.
func (s *BountyService) GetBounty(ctx context.Context, bountyID string) (*BountySummary, error) {
	record, err := s.ledger.BountyByID(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, *record)
	if err != nil {
		return nil, fmt.Errorf("fetch bounty content: %w", err)
	}
	return summary, nil
}

func (s *BountyService) summarize(ctx context.Context, record BountyRecord) (*BountySummary, error) {
	dataRef := record.DataRef
	if dataRef == "" {
		dataRef = record.BountyID
	}

	var content BountyContent
	if err := s.store.Get(ctx, dataRef, &content); err != nil {
		return nil, err
	}

	return &BountySummary{
		BountyID:         record.BountyID,
		Creator:          record.Creator,
		RewardAmount:     FormatAmount(record.StakeAmount),
		MinParticipants:  record.MinParticipants,
		ExpiredAt:        time.Unix(record.ExpireAt, 0).UTC().Format(time.RFC3339),
		Distributed:      record.Distributed,
		ParticipantCount: len(record.Participants),
		Title:            content.Title,
		Description:      content.Description,
		Requirements:     content.Requirements,
		Tags:             content.Tags,
		AllPostData:      content.AllPostData,
	}, nil
}

func (s *BountyService) explorerLink(txHash string) string {
	if s.explorerBase == "" || txHash == "" {
		return ""
	}
	return s.explorerBase + txHash
}

// FormatAmount renders a fixed-point ledger amount as a display string.
func FormatAmount(octas uint64) string {
	return strconv.FormatFloat(float64(octas)/OctasPerUnit, 'f', -1, 64)
}
