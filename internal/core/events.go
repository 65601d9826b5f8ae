package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventTransactionRecorded EventKind = "transaction_recorded"
	EventPartitionRotated    EventKind = "partition_rotated"
	EventPartitionSeeded     EventKind = "partition_seeded"
)

// LedgerEvent is published after a successful ledger write.
type LedgerEvent struct {
	ID          string          `json:"id"`
	Kind        EventKind       `json:"kind"`
	Partition   string          `json:"partition"`
	Row         int             `json:"row,omitempty"`
	Currency    Currency        `json:"currency,omitempty"`
	Category    string          `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	From        string          `json:"from,omitempty"`
	Balances    *Balances       `json:"balances,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
