package domain

// OctasPerUnit is the fixed-point scale of ledger amounts: one display unit
// equals 10^8 of the smallest denomination.
const OctasPerUnit = 100_000_000

// BountyContent is the durable off-ledger record of a bounty. It is persisted
// to content-addressed storage once and never modified; the resulting content
// identifier doubles as the bounty's ledger key.
type BountyContent struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Tags         []string `json:"tags"`

	// AllPostData maps author identity to that author's deduplicated source
	// posts. No string repeats within an author's list.
	AllPostData map[string][]string `json:"allPostData"`
}

// Participant is one ledger-side bounty participant with earned points.
type Participant struct {
	Address string `json:"address"`
	Points  uint64 `json:"points"`
}

// BountyRecord is the on-ledger state of a bounty.
type BountyRecord struct {
	BountyID        string        `json:"bountyId"`
	Creator         string        `json:"creator"`
	DataRef         string        `json:"dataRef"`
	StakeAmount     uint64        `json:"stakeAmount"`
	MinParticipants uint64        `json:"minParticipants"`
	ExpireAt        int64         `json:"expireAt"`
	Distributed     bool          `json:"distributed"`
	Participants    []Participant `json:"participants"`
}

// BountySummary joins a ledger record with its stored content for listings.
type BountySummary struct {
	BountyID         string   `json:"bountyId"`
	Creator          string   `json:"creator"`
	RewardAmount     string   `json:"rewardAmount"`
	MinParticipants  uint64   `json:"minParticipants"`
	ExpiredAt        string   `json:"expiredAt"`
	Distributed      bool     `json:"distributed"`
	ParticipantCount int      `json:"participantCount"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Requirements     []string `json:"requirements"`
	Tags             []string `json:"tags"`

	AllPostData map[string][]string `json:"allPostData"`
}

// EvaluationResult is the rubric's verdict on a submission. It is produced
// fresh per evaluation call and not persisted.
type EvaluationResult struct {
	// OverallScore is the rubric score on a 0-10 scale.
	OverallScore float64 `json:"overallScore"`

	// QualifiesForBounty is the rubric's own qualification verdict. The
	// rubric is instructed to set it iff OverallScore >= 7; the boolean is
	// treated as the source of truth and disagreements with the numeric
	// score are logged, not overridden.
	QualifiesForBounty bool   `json:"qualifiesForBounty"`
	Summary            string `json:"summary"`
	DetailedFeedback   string `json:"detailedFeedback"`
}
