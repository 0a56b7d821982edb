package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PINATA_JWT", "jwt")
	t.Setenv("OPENAI_API_KEY", "key")
	t.Setenv("LEDGER_RPC_URL", "http://localhost:8545")
	t.Setenv("LEDGER_PRIVATE_KEY", "abc123")
	t.Setenv("LEDGER_CONTRACT_ADDRESS", "0x0000000000000000000000000000000000000001")
	t.Setenv("LEDGER_CHAIN_ID", "31337")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "posts-dataset", cfg.DatasetLabel)
	assert.Equal(t, "bountyd.db", cfg.DatabasePath)
	assert.Equal(t, 50, cfg.FirehoseBatchSize)
	assert.Equal(t, 50, cfg.MinPostLength)
	assert.Equal(t, 5, cfg.TopCandidates)
	assert.Empty(t, cfg.FirehoseURL)
	assert.Empty(t, cfg.FirehoseKeywords)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8080")
	t.Setenv("FIREHOSE_KEYWORDS", "rollup, bridge , ")
	t.Setenv("TOP_CANDIDATES", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"rollup", "bridge"}, cfg.FirehoseKeywords)
	assert.Equal(t, 8, cfg.TopCandidates)
	assert.Equal(t, int64(31337), cfg.LedgerChainID)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("PINATA_JWT", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PINATA_JWT")
}

func TestLoadInvalidPort(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingChainID(t *testing.T) {
	setRequired(t)
	t.Setenv("LEDGER_CHAIN_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_CHAIN_ID")
}
