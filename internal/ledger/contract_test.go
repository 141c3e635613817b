package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemeSubmittedTopic_MatchesABI(t *testing.T) {
	assert.Equal(t, parsedABI.Events["MemeSubmitted"].ID, MemeSubmittedTopic)
}

func TestPackSubmitMeme_Selector(t *testing.T) {
	data, err := packSubmitMeme("bafk1", common.HexToAddress(creator))
	require.NoError(t, err)
	assert.Equal(t, parsedABI.Methods["submitMeme"].ID, data[:4])

	args, err := parsedABI.Methods["submitMeme"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, "bafk1", args[0])
	assert.Equal(t, common.HexToAddress(creator), args[1])
}

func TestPackDeclareWinner_Selector(t *testing.T) {
	data, err := packDeclareWinner("bafkwin")
	require.NoError(t, err)
	assert.Equal(t, parsedABI.Methods["declareWinner"].ID, data[:4])
}

func TestDecodeMemeSubmitted(t *testing.T) {
	addr := common.HexToAddress(creator)
	event := parsedABI.Events["MemeSubmitted"]

	plain, err := event.Inputs.Pack("bafk1", addr)
	require.NoError(t, err)
	cidOnly, err := event.Inputs[:1].Pack("bafk2")
	require.NoError(t, err)

	tests := []struct {
		name    string
		log     types.Log
		cid     string
		wantErr bool
	}{
		{
			name: "both fields in data",
			log:  types.Log{Topics: []common.Hash{MemeSubmittedTopic}, Data: plain},
			cid:  "bafk1",
		},
		{
			name: "indexed creator",
			log:  types.Log{Topics: []common.Hash{MemeSubmittedTopic, common.BytesToHash(addr.Bytes())}, Data: cidOnly},
			cid:  "bafk2",
		},
		{
			name:    "other event",
			log:     types.Log{Topics: []common.Hash{common.HexToHash("0x01")}, Data: plain},
			wantErr: true,
		},
		{
			name:    "no topics",
			log:     types.Log{Data: plain},
			wantErr: true,
		},
		{
			name:    "truncated data",
			log:     types.Log{Topics: []common.Hash{MemeSubmittedTopic}, Data: plain[:20]},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cid, got, err := decodeMemeSubmitted(tt.log)
			if tt.wantErr {
				require.ErrorIs(t, err, errBadLog)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cid, cid)
			assert.Equal(t, addr, got)
		})
	}
}
