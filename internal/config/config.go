package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// PinataJWT authenticates against the pinning service.
	PinataJWT string

	// PinataGateway is the public gateway used to read pinned content.
	PinataGateway string

	// DatasetLabel names the pinned post datasets this service consumes.
	DatasetLabel string

	// OpenAIKey authenticates against the model provider.
	OpenAIKey string

	// OpenAIBaseURL overrides the model provider endpoint. Optional.
	OpenAIBaseURL string

	// EmbeddingModel is the embedding model name. Optional.
	EmbeddingModel string

	// CompletionModel is the chat completion model name. Optional.
	CompletionModel string

	// LedgerRPCURL is the chain node's JSON-RPC endpoint.
	LedgerRPCURL string

	// LedgerPrivateKey is the hex-encoded transaction signing key.
	LedgerPrivateKey string

	// LedgerContract is the deployed bounty pool contract address.
	LedgerContract string

	// LedgerChainID identifies the chain for transaction signing.
	LedgerChainID int64

	// ExplorerBaseURL prefixes transaction hashes into explorer links. Optional.
	ExplorerBaseURL string

	// DatabasePath is the SQLite database file.
	DatabasePath string

	// FirehoseURL is the social firehose WebSocket endpoint. Empty disables
	// live ingestion.
	FirehoseURL string

	// FirehoseKeywords filters ingested posts. Empty matches everything.
	FirehoseKeywords []string

	// FirehoseBatchSize is how many matched posts make one published dataset.
	FirehoseBatchSize int

	// MinPostLength is the aggregation threshold for composite documents.
	MinPostLength int

	// TopCandidates is how many ranked documents feed bounty drafting.
	TopCandidates int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, err := intEnv("PORT", 3000)
	if err != nil {
		return nil, err
	}

	pinataJWT := os.Getenv("PINATA_JWT")
	if pinataJWT == "" {
		return nil, fmt.Errorf("PINATA_JWT is required")
	}

	datasetLabel := os.Getenv("DATASET_LABEL")
	if datasetLabel == "" {
		datasetLabel = "posts-dataset"
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	rpcURL := os.Getenv("LEDGER_RPC_URL")
	if rpcURL == "" {
		return nil, fmt.Errorf("LEDGER_RPC_URL is required")
	}

	privateKey := os.Getenv("LEDGER_PRIVATE_KEY")
	if privateKey == "" {
		return nil, fmt.Errorf("LEDGER_PRIVATE_KEY is required")
	}

	contract := os.Getenv("LEDGER_CONTRACT_ADDRESS")
	if contract == "" {
		return nil, fmt.Errorf("LEDGER_CONTRACT_ADDRESS is required")
	}

	chainID, err := int64Env("LEDGER_CHAIN_ID", 0)
	if err != nil {
		return nil, err
	}
	if chainID == 0 {
		return nil, fmt.Errorf("LEDGER_CHAIN_ID is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "bountyd.db"
	}

	batchSize, err := intEnv("FIREHOSE_BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}

	minPostLength, err := intEnv("MIN_POST_LENGTH", 50)
	if err != nil {
		return nil, err
	}

	topCandidates, err := intEnv("TOP_CANDIDATES", 5)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:              port,
		PinataJWT:         pinataJWT,
		PinataGateway:     os.Getenv("PINATA_GATEWAY"),
		DatasetLabel:      datasetLabel,
		OpenAIKey:         openAIKey,
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		EmbeddingModel:    os.Getenv("OPENAI_EMBEDDING_MODEL"),
		CompletionModel:   os.Getenv("OPENAI_COMPLETION_MODEL"),
		LedgerRPCURL:      rpcURL,
		LedgerPrivateKey:  privateKey,
		LedgerContract:    contract,
		LedgerChainID:     chainID,
		ExplorerBaseURL:   os.Getenv("EXPLORER_BASE_URL"),
		DatabasePath:      dbPath,
		FirehoseURL:       os.Getenv("FIREHOSE_URL"),
		FirehoseKeywords:  splitList(os.Getenv("FIREHOSE_KEYWORDS")),
		FirehoseBatchSize: batchSize,
		MinPostLength:     minPostLength,
		TopCandidates:     topCandidates,
	}, nil
}

func intEnv(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return parsed, nil
}

func int64Env(name string, fallback int64) (int64, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return parsed, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
