package model

import "time"

type TransactionKind string

const (
	TxReward     TransactionKind = "reward"
	TxPayout     TransactionKind = "payout"
	TxAdjustment TransactionKind = "adjustment"
)

// BalanceTransaction is one append-only entry in a child's balance history.
type BalanceTransaction struct {
	ID            int64           `json:"id"`
	ChildID       int64           `json:"child_id"`
	Amount        int64           `json:"amount"`
	Kind          TransactionKind `json:"kind"`
	ParticipantID *int64          `json:"participant_id,omitempty"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Balance struct {
	ChildID     int64  `json:"child_id"`
	ChildName   string `json:"child_name"`
	TotalEarned int64  `json:"total_earned"`
	TotalPaid   int64  `json:"total_paid"`
	Balance     int64  `json:"balance"`
	Display     string `json:"display"`
}
