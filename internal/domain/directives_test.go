package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractStakeAmount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected uint64
	}{
		{name: "decimal amount", text: "create a bounty, amount: 2.5, users: 10", expected: 250_000_000},
		{name: "integer amount", text: "amount: 3", expected: 300_000_000},
		{name: "staking synonym", text: "staking: 1.25 for this", expected: 125_000_000},
		{name: "case insensitive", text: "Amount: 0.5", expected: 50_000_000},
		{name: "fractional floor", text: "amount: 0.000000001", expected: 0},
		{name: "no directive", text: "just a plain request", expected: DefaultStakeAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractStakeAmount(tt.text))
		})
	}
}

func TestExtractMinParticipants(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected uint64
	}{
		{name: "users directive", text: "amount: 2.5, users: 10, deadline: 14 days", expected: 10},
		{name: "minimum users directive", text: "minimum users: 3", expected: 3},
		{name: "no directive", text: "no participant hints here", expected: DefaultMinParticipants},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractMinParticipants(tt.text))
		})
	}
}

func TestExtractExpireSeconds(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected uint64
	}{
		{name: "days", text: "deadline: 14 days", expected: 14 * 24 * 60 * 60},
		{name: "single day", text: "deadline: 1 day", expected: 24 * 60 * 60},
		{name: "weeks", text: "deadline: 2 weeks", expected: 2 * 7 * 24 * 60 * 60},
		{name: "single week", text: "deadline 1 week", expected: 7 * 24 * 60 * 60},
		{name: "no directive", text: "whenever you like", expected: DefaultExpireSeconds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractExpireSeconds(tt.text))
		})
	}
}

func TestDirectivesCombined(t *testing.T) {
	text := "Create a bounty about zk rollups. amount: 2.5, users: 10, deadline: 14 days"

	assert.Equal(t, uint64(250_000_000), ExtractStakeAmount(text))
	assert.Equal(t, uint64(10), ExtractMinParticipants(text))
	assert.Equal(t, uint64(1_209_600), ExtractExpireSeconds(text))
}
