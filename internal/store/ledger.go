package store

import (
	"database/sql"
	"fmt"

	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/money"
)

// LedgerStore keeps the append-only balance history. children.balance is a
// running total maintained in the same transaction as each entry.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.BalanceTransaction, error) {
	var t model.BalanceTransaction
	var kind string
	var participantID sql.NullInt64

	err := scanner.Scan(&t.ID, &t.ChildID, &t.Amount, &kind, &participantID, &t.Note, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	t.Kind = model.TransactionKind(kind)
	if participantID.Valid {
		t.ParticipantID = &participantID.Int64
	}
	return &t, nil
}

const transactionCols = `id, child_id, amount, kind, participant_id, note, created_at`

func appendTransaction(tx *sql.Tx, childID, amount int64, kind model.TransactionKind, participantID *int64, note string) (int64, error) {
	var pid any
	if participantID != nil {
		pid = *participantID
	}

	result, err := tx.Exec(
		`INSERT INTO balance_transactions (child_id, amount, kind, participant_id, note) VALUES (?, ?, ?, ?, ?)`,
		childID, amount, string(kind), pid, note,
	)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE children SET balance = balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		amount, childID,
	); err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Adjust records a manual correction. Amount may be negative.
func (s *LedgerStore) Adjust(childID, amount int64, note string) (*model.BalanceTransaction, error) {
	return s.write(childID, amount, model.TxAdjustment, note, false)
}

// Payout records money handed to the child. It fails with
// ErrInsufficientBalance rather than letting the balance go negative.
func (s *LedgerStore) Payout(childID, amount int64, note string) (*model.BalanceTransaction, error) {
	return s.write(childID, -amount, model.TxPayout, note, true)
}

func (s *LedgerStore) write(childID, amount int64, kind model.TransactionKind, note string, guard bool) (*model.BalanceTransaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if guard {
		var balance int64
		err := tx.QueryRow(`SELECT balance FROM children WHERE id = ?`, childID).Scan(&balance)
		if err != nil {
			return nil, fmt.Errorf("query balance: %w", err)
		}
		if balance+amount < 0 {
			return nil, ErrInsufficientBalance
		}
	}

	id, err := appendTransaction(tx, childID, amount, kind, nil, note)
	if err != nil {
		return nil, err
	}

	t, err := scanTransaction(tx.QueryRow(`SELECT `+transactionCols+` FROM balance_transactions WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return t, nil
}

// ListByChild returns the most recent entries first.
func (s *LedgerStore) ListByChild(childID int64, limit int) ([]model.BalanceTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM balance_transactions WHERE child_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		childID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.BalanceTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

func (s *LedgerStore) GetBalance(childID int64) (*model.Balance, error) {
	var b model.Balance
	err := s.db.QueryRow(
		`SELECT c.id, c.name, c.balance,
		        COALESCE(SUM(CASE WHEN t.kind != 'payout' AND t.amount > 0 THEN t.amount END), 0),
		        COALESCE(-SUM(CASE WHEN t.kind = 'payout' THEN t.amount END), 0)
		 FROM children c
		 LEFT JOIN balance_transactions t ON t.child_id = c.id
		 WHERE c.id = ?
		 GROUP BY c.id`,
		childID,
	).Scan(&b.ChildID, &b.ChildName, &b.Balance, &b.TotalEarned, &b.TotalPaid)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	b.Display = money.Format(b.Balance)
	return &b, nil
}
