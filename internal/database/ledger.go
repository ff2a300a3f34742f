package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"loyalty-points-api/internal/models"
)

// ApplyDelta is the single entry point for balance changes. It adjusts the
// customer's balance with a relative update and appends the matching audit
// row in one SQL transaction, so the running total and the transaction
// history never diverge and concurrent deltas for the same customer cannot
// lose an update. Negative deltas that would take the balance below zero
// return ErrInsufficientPoints. Returns the new balance.
func (db *DB) ApplyDelta(ctx context.Context, customerID string, delta int64, description string) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	earned := delta
	if earned < 0 {
		earned = 0
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE customers
		 SET points = points + ?, total_points_earned = total_points_earned + ?
		 WHERE id = ? AND points + ? >= 0`,
		delta, earned, customerID, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		// Either the customer is unknown or the debit was too large.
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM customers WHERE id = ?`, customerID).Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to resolve customer: %w", err)
		}
		if count == 0 {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientPoints
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, customer_id, points_change, description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), customerID, delta, description, now.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to append transaction: %w", err)
	}

	var newTotal int64
	if err := tx.QueryRowContext(ctx,
		`SELECT points FROM customers WHERE id = ?`, customerID).Scan(&newTotal); err != nil {
		return 0, fmt.Errorf("failed to read new balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delta: %w", err)
	}

	return newTotal, nil
}

// ListTransactions returns a customer's ledger history, most recent first.
func (db *DB) ListTransactions(ctx context.Context, customerID string) ([]models.Transaction, error) {
	query := `SELECT id, customer_id, points_change, description, created_at
		FROM transactions WHERE customer_id = ? ORDER BY rowid DESC`

	rows, err := db.conn.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		var createdAtStr string

		if err := rows.Scan(
			&txn.ID,
			&txn.CustomerID,
			&txn.PointsChange,
			&txn.Description,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		txn.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
