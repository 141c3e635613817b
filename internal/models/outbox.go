package models

import "time"

type OutboxKind string

const (
	KindSubmitEntry   OutboxKind = "submit_entry"
	KindDeclareWinner OutboxKind = "declare_winner"
)

type OutboxStatus string

// A record moves pending -> dispatching -> dispatched -> finalized. Whoever
// holds a record in dispatching is the only sender; a dispatching record that
// is not updated within the claim timeout is taken over. Dispatch errors move
// it to failed, which is retried until its attempts run out and it becomes
// abandoned. Reverted and abandoned are terminal.
const (
	StatusPending     OutboxStatus = "pending"
	StatusDispatching OutboxStatus = "dispatching"
	StatusDispatched  OutboxStatus = "dispatched"
	StatusFinalized   OutboxStatus = "finalized"
	StatusFailed      OutboxStatus = "failed"
	StatusReverted    OutboxStatus = "reverted"
	StatusAbandoned   OutboxStatus = "abandoned"
)

// OutboxRecord is one durable ledger write.
type OutboxRecord struct {
	ID           string
	Kind         OutboxKind
	CID          string
	Creator      string
	Status       OutboxStatus
	TxHash       string
	Attempts     int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DispatchedAt *time.Time
}
