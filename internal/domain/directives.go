package domain

import (
	"math"
	"regexp"
	"strconv"
)

// Bounty-creation requests may embed directives in free text. Absent
// directives fall back to these defaults.
const (
	DefaultStakeAmount     = 1 * OctasPerUnit
	DefaultMinParticipants = 5
	DefaultExpireSeconds   = 7 * 24 * 60 * 60
)

var (
	amountPattern   = regexp.MustCompile(`(?i)(?:amount|staking):\s*(\d*\.?\d+)`)
	usersPattern    = regexp.MustCompile(`(?i)(?:minimum\s+)?users:\s*(\d+)`)
	deadlinePattern = regexp.MustCompile(`(?i)deadline:?\s*(\d+)\s*(day|days|week|weeks)`)
)

// ExtractStakeAmount reads an "amount:" or "staking:" directive as a decimal
// display amount and converts it to the ledger's fixed-point integer
// representation.
func ExtractStakeAmount(text string) uint64 {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultStakeAmount
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return DefaultStakeAmount
	}
	return uint64(math.Floor(v * OctasPerUnit))
}

// ExtractMinParticipants reads a "users:" or "minimum users:" directive.
func ExtractMinParticipants(text string) uint64 {
	m := usersPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultMinParticipants
	}
	v, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return DefaultMinParticipants
	}
	return v
}

// ExtractExpireSeconds reads a "deadline: N day(s)|week(s)" directive and
// returns the lifetime in seconds.
func ExtractExpireSeconds(text string) uint64 {
	m := deadlinePattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultExpireSeconds
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return DefaultExpireSeconds
	}
	switch m[2][0] {
	case 'w', 'W':
		return n * 7 * 24 * 60 * 60
	default:
		return n * 24 * 60 * 60
	}
}
