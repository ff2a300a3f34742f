package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"loyalty-points-api/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("database: not found")
	// ErrDuplicateToken is returned when a used-token insert loses the
	// uniqueness race; the token was already redeemed.
	ErrDuplicateToken = errors.New("database: token already recorded")
	// ErrInsufficientPoints is returned when a debit would take a balance
	// below zero.
	ErrInsufficientPoints = errors.New("database: insufficient points")
)

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
			total_points_earned INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS used_qr_codes (
			qr_token TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			amount_spent REAL NOT NULL,
			points_awarded INTEGER NOT NULL,
			used_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			points_change INTEGER NOT NULL,
			description TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rewards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			points_cost INTEGER NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(customer_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_used_qr_customer ON used_qr_codes(customer_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// CreateCustomer inserts a new customer account with a zero balance.
func (db *DB) CreateCustomer(ctx context.Context, customer models.Customer) error {
	query := `INSERT INTO customers (id, name, points, total_points_earned, created_at)
		VALUES (?, ?, 0, 0, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// GetCustomer fetches a customer by id.
func (db *DB) GetCustomer(ctx context.Context, customerID string) (models.Customer, error) {
	query := `SELECT id, name, points, total_points_earned, created_at
		FROM customers WHERE id = ?`

	var customer models.Customer
	var createdAtStr string

	err := db.conn.QueryRowContext(ctx, query, customerID).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Points,
		&customer.TotalPointsEarned,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return models.Customer{}, ErrNotFound
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("failed to get customer: %w", err)
	}

	customer.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return models.Customer{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return customer, nil
}

// IsTokenUsed reports whether a used-token row exists for the given token.
func (db *DB) IsTokenUsed(ctx context.Context, token string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM used_qr_codes WHERE qr_token = ?`, token).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check used token: %w", err)
	}
	return count > 0, nil
}

// InsertUsedToken records a token as consumed. The primary key on qr_token
// is the atomic gate against double-spend: when two redemptions race on the
// same token exactly one insert succeeds and the loser gets
// ErrDuplicateToken.
func (db *DB) InsertUsedToken(ctx context.Context, used models.UsedToken) error {
	query := `INSERT INTO used_qr_codes (qr_token, customer_id, amount_spent, points_awarded, used_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		used.QRToken,
		used.CustomerID,
		used.AmountSpent,
		used.PointsAwarded,
		used.UsedAt.Format(time.RFC3339),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicateToken
		}
		return fmt.Errorf("failed to insert used token: %w", err)
	}

	return nil
}

// UpsertReward creates or updates a reward catalog entry.
func (db *DB) UpsertReward(ctx context.Context, reward models.Reward) error {
	query := `INSERT INTO rewards (id, name, description, points_cost, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			points_cost = excluded.points_cost,
			active = excluded.active`

	_, err := db.conn.ExecContext(ctx, query,
		reward.ID,
		reward.Name,
		reward.Description,
		reward.PointsCost,
		reward.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reward: %w", err)
	}

	return nil
}

// GetReward fetches a reward by id.
func (db *DB) GetReward(ctx context.Context, rewardID string) (models.Reward, error) {
	query := `SELECT id, name, description, points_cost, active FROM rewards WHERE id = ?`

	var reward models.Reward
	err := db.conn.QueryRowContext(ctx, query, rewardID).Scan(
		&reward.ID,
		&reward.Name,
		&reward.Description,
		&reward.PointsCost,
		&reward.Active,
	)
	if err == sql.ErrNoRows {
		return models.Reward{}, ErrNotFound
	}
	if err != nil {
		return models.Reward{}, fmt.Errorf("failed to get reward: %w", err)
	}

	return reward, nil
}

// ListActiveRewards returns the active reward catalog.
func (db *DB) ListActiveRewards(ctx context.Context) ([]models.Reward, error) {
	query := `SELECT id, name, description, points_cost, active
		FROM rewards WHERE active = 1 ORDER BY points_cost ASC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var reward models.Reward
		if err := rows.Scan(
			&reward.ID,
			&reward.Name,
			&reward.Description,
			&reward.PointsCost,
			&reward.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, reward)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rewards: %w", err)
	}

	return rewards, nil
}
