package domain

import (
	"context"
	"errors"
)

// ErrBountyNotFound reports an unknown bounty identifier. It is a normal
// outcome, distinct from transport failures.
var ErrBountyNotFound = errors.New("bounty not found")

// ErrContentNotFound reports that the content store holds nothing under the
// requested identifier.
var ErrContentNotFound = errors.New("content not found")

// ErrNoPosts reports that the post source returned no usable posts.
var ErrNoPosts = errors.New("no posts available")

// ContentStore persists documents in content-addressed storage. Identifiers
// are stable and content-derived.
type ContentStore interface {
	// Put stores the document and returns its content identifier.
	Put(ctx context.Context, doc any) (string, error)

	// Get retrieves the document stored under cid into out. Returns
	// ErrContentNotFound if nothing is stored under cid.
	Get(ctx context.Context, cid string, out any) error
}

// PostSource yields the raw post corpus a ranking run operates on.
type PostSource interface {
	FetchAll(ctx context.Context) ([]RawPost, error)
}

// Embedder computes dense vector embeddings, one per input text, order
// preserved.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// Completer runs a single synchronous text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Ledger is the blockchain contract holding authoritative bounty state. All
// operations are remote calls; failures surface as opaque errors.
type Ledger interface {
	// CreateBounty registers a bounty and returns the transaction hash once
	// the ledger confirms it.
	CreateBounty(ctx context.Context, bountyID, dataRef string, stakeAmount, minParticipants, expireSeconds uint64) (string, error)

	// Participate adds a participant with earned points to a bounty.
	Participate(ctx context.Context, address string, points uint64, bountyID string) (string, error)

	// AllBounties returns every bounty record on the ledger.
	AllBounties(ctx context.Context) ([]BountyRecord, error)

	// BountyByID returns a single record, or ErrBountyNotFound.
	BountyByID(ctx context.Context, bountyID string) (*BountyRecord, error)
}

// BountyIDStore is the local append-only record of bounty identifiers this
// process has created. It is advisory, not authoritative.
type BountyIDStore interface {
	// Record remembers a bounty id. Recording an id twice is a no-op.
	Record(ctx context.Context, bountyID string) error

	// Exists reports whether the id has been recorded.
	Exists(ctx context.Context, bountyID string) (bool, error)
}
