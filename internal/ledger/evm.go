// Package ledger is the blockchain adapter for the bounty pool contract. It
// submits transactions and reads views through a bound EVM contract; the rest
// of the system only sees the domain.Ledger port.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/flyfishlabs/bountyd/internal/domain"
)

// bountyPoolABI is the fragment of the bounty pool contract this service
// uses.
const bountyPoolABI = `[
  {"type":"function","name":"createBounty","stateMutability":"nonpayable","inputs":[
    {"name":"bountyId","type":"string"},
    {"name":"dataRef","type":"string"},
    {"name":"stakeAmount","type":"uint256"},
    {"name":"minParticipants","type":"uint256"},
    {"name":"expireSeconds","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"participate","stateMutability":"nonpayable","inputs":[
    {"name":"participant","type":"address"},
    {"name":"points","type":"uint256"},
    {"name":"bountyId","type":"string"}],"outputs":[]},
  {"type":"function","name":"getAllBounties","stateMutability":"view","inputs":[],"outputs":[
    {"name":"","type":"tuple[]","components":[
      {"name":"bountyId","type":"string"},
      {"name":"creator","type":"address"},
      {"name":"dataRef","type":"string"},
      {"name":"stakeAmount","type":"uint256"},
      {"name":"minParticipants","type":"uint256"},
      {"name":"expireAt","type":"uint256"},
      {"name":"distributed","type":"bool"},
      {"name":"participants","type":"tuple[]","components":[
        {"name":"addr","type":"address"},
        {"name":"points","type":"uint256"}]}]}]}
]`

// participantTuple mirrors the contract's participant struct.
type participantTuple struct {
	Addr   common.Address
	Points *big.Int
}

// bountyTuple mirrors the contract's bounty struct.
type bountyTuple struct {
	BountyId        string
	Creator         common.Address
	DataRef         string
	StakeAmount     *big.Int
	MinParticipants *big.Int
	ExpireAt        *big.Int
	Distributed     bool
	Participants    []participantTuple
}

// Client implements domain.Ledger against an EVM bounty pool contract.
type Client struct {
	eth      *ethclient.Client
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	logger   *slog.Logger

	// Serializes transactions so pending-nonce lookups don't race.
	txMu sync.Mutex
}

// Config configures the ledger client.
type Config struct {
	// RPCURL is the JSON-RPC endpoint of the chain node.
	RPCURL string

	// PrivateKeyHex is the hex-encoded signing key, with or without the 0x
	// prefix.
	PrivateKeyHex string

	// ContractAddress is the deployed bounty pool contract.
	ContractAddress string

	// ChainID is required for EIP-155 signing.
	ChainID int64
}

// NewClient dials the node and binds the contract.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("ledger RPC URL is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger node: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(bountyPoolABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("parse contract ABI: %w", err)
	}

	addr := common.HexToAddress(cfg.ContractAddress)
	return &Client{
		eth:      eth,
		contract: bind.NewBoundContract(addr, parsed, eth, eth, eth),
		auth:     auth,
		logger:   logger,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// CreateBounty submits the create transaction and blocks until it is mined.
func (c *Client) CreateBounty(ctx context.Context, bountyID, dataRef string, stakeAmount, minParticipants, expireSeconds uint64) (string, error) {
	return c.transact(ctx, "createBounty",
		bountyID,
		dataRef,
		new(big.Int).SetUint64(stakeAmount),
		new(big.Int).SetUint64(minParticipants),
		new(big.Int).SetUint64(expireSeconds),
	)
}

// Participate submits the participate transaction and blocks until it is
// mined.
func (c *Client) Participate(ctx context.Context, address string, points uint64, bountyID string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid participant address %q", address)
	}
	return c.transact(ctx, "participate",
		common.HexToAddress(address),
		new(big.Int).SetUint64(points),
		bountyID,
	)
}

func (c *Client) transact(ctx context.Context, method string, args ...any) (string, error) {
	c.txMu.Lock()
	opts := *c.auth
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, args...)
	c.txMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}

	c.logger.Info("transaction submitted", "method", method, "hash", tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return "", fmt.Errorf("%s: wait for confirmation: %w", method, err)
	}
	if receipt.Status == 0 {
		return "", fmt.Errorf("%s: transaction %s reverted", method, tx.Hash().Hex())
	}
	return tx.Hash().Hex(), nil
}

// AllBounties reads the contract's full bounty list.
func (c *Client) AllBounties(ctx context.Context) ([]domain.BountyRecord, error) {
	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAllBounties"); err != nil {
		return nil, fmt.Errorf("getAllBounties: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}

	tuples := *abi.ConvertType(out[0], new([]bountyTuple)).(*[]bountyTuple)
	records := make([]domain.BountyRecord, len(tuples))
	for i, t := range tuples {
		records[i] = toRecord(t)
	}
	return records, nil
}

// BountyByID scans the bounty list for one id. The contract's per-id view
// reverts on unknown ids, which is indistinguishable from transport failure
// over RPC, so the list view gives clean not-found semantics instead.
func (c *Client) BountyByID(ctx context.Context, bountyID string) (*domain.BountyRecord, error) {
	records, err := c.AllBounties(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].BountyID == bountyID {
			return &records[i], nil
		}
	}
	return nil, domain.ErrBountyNotFound
}

func toRecord(t bountyTuple) domain.BountyRecord {
	participants := make([]domain.Participant, len(t.Participants))
	for i, p := range t.Participants {
		participants[i] = domain.Participant{
			Address: p.Addr.Hex(),
			Points:  p.Points.Uint64(),
		}
	}
	return domain.BountyRecord{
		BountyID:        t.BountyId,
		Creator:         t.Creator.Hex(),
		DataRef:         t.DataRef,
		StakeAmount:     t.StakeAmount.Uint64(),
		MinParticipants: t.MinParticipants.Uint64(),
		ExpireAt:        t.ExpireAt.Int64(),
		Distributed:     t.Distributed,
		Participants:    participants,
	}
}
