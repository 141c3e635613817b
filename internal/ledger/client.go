// Package ledger writes contest entries and winner declarations to the EVM
// contest contract and reads submissions back from its event log. Writes go
// through a durable outbox: dispatch does not wait for finality, and a
// reconciler confirms or retries every write.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

// Backend is the JSON-RPC surface used by Client. *ethclient.Client
// satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	Close()
}

var (
	ErrNoSigner       = errors.New("no signer key configured")
	ErrInvalidAddress = errors.New("invalid address")
)

// Receipt is the finality view of one transaction.
type Receipt struct {
	Found       bool
	Success     bool
	BlockNumber uint64
}

// ClientOptions configures a Client. Key may be empty for read-only use.
type ClientOptions struct {
	Contract   string
	Key        string
	ChainID    int64
	GasLimit   uint64
	StartBlock uint64
}

// Client signs and sends contract calls and reads the contract's logs.
type Client struct {
	backend    Backend
	contract   common.Address
	key        *ecdsa.PrivateKey
	from       common.Address
	chainID    *big.Int
	gasLimit   uint64
	startBlock uint64

	// sends are serialized so pending nonces are not handed out twice
	mu sync.Mutex
}

// Dial connects to rpcURL and builds a Client.
func Dial(ctx context.Context, rpcURL string, opts ClientOptions) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	c, err := NewClient(ctx, ec, opts)
	if err != nil {
		ec.Close()
		return nil, err
	}
	return c, nil
}

// NewClient builds a Client over backend. When opts.ChainID is zero the chain
// id is read from the node.
func NewClient(ctx context.Context, backend Backend, opts ClientOptions) (*Client, error) {
	if !common.IsHexAddress(opts.Contract) {
		return nil, fmt.Errorf("%w: contract %q", ErrInvalidAddress, opts.Contract)
	}
	c := &Client{
		backend:    backend,
		contract:   common.HexToAddress(opts.Contract),
		gasLimit:   opts.GasLimit,
		startBlock: opts.StartBlock,
	}
	if c.gasLimit == 0 {
		c.gasLimit = 300000
	}

	if opts.Key != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.Key, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid signer key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	if opts.ChainID != 0 {
		c.chainID = big.NewInt(opts.ChainID)
	} else {
		id, err := backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
		c.chainID = id
	}
	return c, nil
}

// Sender is the address transactions are signed by, or the zero address in
// read-only mode.
func (c *Client) Sender() common.Address {
	return c.from
}

func (c *Client) Close() {
	c.backend.Close()
}

// SubmitMeme sends submitMeme(cid, creator) and returns the tx hash.
func (c *Client) SubmitMeme(ctx context.Context, cid, creator string) (string, error) {
	if !common.IsHexAddress(creator) {
		return "", fmt.Errorf("%w: creator %q", ErrInvalidAddress, creator)
	}
	data, err := packSubmitMeme(cid, common.HexToAddress(creator))
	if err != nil {
		return "", err
	}
	return c.send(ctx, data)
}

// DeclareWinner sends declareWinner(cid) and returns the tx hash.
func (c *Client) DeclareWinner(ctx context.Context, cid string) (string, error) {
	data, err := packDeclareWinner(cid)
	if err != nil {
		return "", err
	}
	return c.send(ctx, data)
}

func (c *Client) send(ctx context.Context, data []byte) (string, error) {
	if c.key == nil {
		return "", ErrNoSigner
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}

	to := c.contract
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      c.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// Receipt reports whether txHash is mined and whether it succeeded.
func (c *Client) Receipt(ctx context.Context, txHash string) (Receipt, error) {
	r, err := c.backend.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return Receipt{}, nil
		}
		return Receipt{}, err
	}
	out := Receipt{Found: true, Success: r.Status == types.ReceiptStatusSuccessful}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out, nil
}

// SubmittedEntries re-derives the contest entries from the contract's
// MemeSubmitted logs, in chain order. Logs that cannot be decoded are
// skipped.
func (c *Client) SubmittedEntries(ctx context.Context) ([]models.SubmittedEntry, error) {
	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(c.startBlock),
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{MemeSubmittedTopic}},
	})
	if err != nil {
		return nil, fmt.Errorf("filter logs: %w", err)
	}

	out := make([]models.SubmittedEntry, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		cid, creator, err := decodeMemeSubmitted(l)
		if err != nil {
			continue
		}
		out = append(out, models.SubmittedEntry{
			CID:         cid,
			Creator:     creator.Hex(),
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash.Hex(),
			LogIndex:    l.Index,
		})
	}
	return out, nil
}
