package ledger

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBountyPoolABIParses(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(bountyPoolABI))
	require.NoError(t, err)

	for _, method := range []string{"createBounty", "participate", "getAllBounties"} {
		_, ok := parsed.Methods[method]
		assert.True(t, ok, "missing method %s", method)
	}
}

func TestToRecord(t *testing.T) {
	tuple := bountyTuple{
		BountyId:        "QmContent",
		Creator:         common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		DataRef:         "QmContent",
		StakeAmount:     big.NewInt(250_000_000),
		MinParticipants: big.NewInt(10),
		ExpireAt:        big.NewInt(1_700_000_000),
		Distributed:     true,
		Participants: []participantTuple{
			{
				Addr:   common.HexToAddress("0x00000000000000000000000000000000000000bb"),
				Points: big.NewInt(70),
			},
		},
	}

	record := toRecord(tuple)

	assert.Equal(t, "QmContent", record.BountyID)
	assert.Equal(t, tuple.Creator.Hex(), record.Creator)
	assert.Equal(t, uint64(250_000_000), record.StakeAmount)
	assert.Equal(t, uint64(10), record.MinParticipants)
	assert.Equal(t, int64(1_700_000_000), record.ExpireAt)
	assert.True(t, record.Distributed)
	require.Len(t, record.Participants, 1)
	assert.Equal(t, uint64(70), record.Participants[0].Points)
}
