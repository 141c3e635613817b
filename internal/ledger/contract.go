package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/crypto/sha3"
)

// contestABI covers the part of the contest contract the pipeline touches.
const contestABI = `[
  {"type":"function","name":"submitMeme","stateMutability":"nonpayable",
   "inputs":[{"name":"cid","type":"string"},{"name":"creator","type":"address"}],"outputs":[]},
  {"type":"function","name":"declareWinner","stateMutability":"nonpayable",
   "inputs":[{"name":"cid","type":"string"}],"outputs":[]},
  {"type":"function","name":"totalStaked","stateMutability":"view",
   "inputs":[{"name":"cid","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"MemeSubmitted","anonymous":false,
   "inputs":[{"name":"cid","type":"string","indexed":false},{"name":"creator","type":"address","indexed":false}]}
]`

const memeSubmittedSig = "MemeSubmitted(string,address)"

var (
	parsedABI = mustParseABI(contestABI)

	// MemeSubmittedTopic is topic[0] of every MemeSubmitted log.
	MemeSubmittedTopic = eventTopic(memeSubmittedSig)

	errBadLog = errors.New("malformed MemeSubmitted log")
)

func mustParseABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}

func eventTopic(signature string) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return common.BytesToHash(h.Sum(nil))
}

func packSubmitMeme(cid string, creator common.Address) ([]byte, error) {
	return parsedABI.Pack("submitMeme", cid, creator)
}

func packDeclareWinner(cid string) ([]byte, error) {
	return parsedABI.Pack("declareWinner", cid)
}

// decodeMemeSubmitted reads cid and creator from a log. Both the plain layout
// and one with an indexed creator are accepted.
func decodeMemeSubmitted(l types.Log) (cid string, creator common.Address, err error) {
	if len(l.Topics) == 0 || l.Topics[0] != MemeSubmittedTopic {
		return "", common.Address{}, errBadLog
	}

	switch len(l.Topics) {
	case 1:
		values, err := parsedABI.Events["MemeSubmitted"].Inputs.Unpack(l.Data)
		if err != nil {
			return "", common.Address{}, fmt.Errorf("%w: %w", errBadLog, err)
		}
		if len(values) != 2 {
			return "", common.Address{}, errBadLog
		}
		cid, okCID := values[0].(string)
		creator, okAddr := values[1].(common.Address)
		if !okCID || !okAddr {
			return "", common.Address{}, errBadLog
		}
		return cid, creator, nil
	case 2:
		values, err := parsedABI.Events["MemeSubmitted"].Inputs[:1].Unpack(l.Data)
		if err != nil || len(values) != 1 {
			return "", common.Address{}, errBadLog
		}
		cid, ok := values[0].(string)
		if !ok {
			return "", common.Address{}, errBadLog
		}
		return cid, common.BytesToAddress(l.Topics[1].Bytes()), nil
	default:
		return "", common.Address{}, errBadLog
	}
}
