package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"loyalty-points-api/internal/models"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	dbPath := fmt.Sprintf("./test_db_%d.db", time.Now().UnixNano())
	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func createTestCustomer(t *testing.T, db *DB, name string) models.Customer {
	customer := models.Customer{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.CreateCustomer(context.Background(), customer); err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}
	return customer
}

func TestCreateAndGetCustomer(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	customer := createTestCustomer(t, db, "Maria")

	got, err := db.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("Failed to get customer: %v", err)
	}

	if got.Name != "Maria" {
		t.Errorf("Expected name Maria, got %s", got.Name)
	}
	if got.Points != 0 {
		t.Errorf("Expected zero starting balance, got %d", got.Points)
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.GetCustomer(context.Background(), uuid.New().String())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInsertUsedToken_DuplicateConflict(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	used := models.UsedToken{
		QRToken:       "cust:1761040800000:abcdef0123456789",
		CustomerID:    uuid.New().String(),
		AmountSpent:   12.50,
		PointsAwarded: 125,
		UsedAt:        time.Now().UTC(),
	}

	if err := db.InsertUsedToken(ctx, used); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := db.InsertUsedToken(ctx, used)
	if !errors.Is(err, ErrDuplicateToken) {
		t.Errorf("Expected ErrDuplicateToken, got %v", err)
	}

	isUsed, err := db.IsTokenUsed(ctx, used.QRToken)
	if err != nil {
		t.Fatalf("IsTokenUsed failed: %v", err)
	}
	if !isUsed {
		t.Error("Expected token to be marked used")
	}
}

func TestApplyDelta_CreditAndDebit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	customer := createTestCustomer(t, db, "Ion")

	newTotal, err := db.ApplyDelta(ctx, customer.ID, 125, "Purchase: 12.50€")
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if newTotal != 125 {
		t.Errorf("Expected balance 125, got %d", newTotal)
	}

	newTotal, err = db.ApplyDelta(ctx, customer.ID, -100, "Redeemed: Cappuccino")
	if err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if newTotal != 25 {
		t.Errorf("Expected balance 25, got %d", newTotal)
	}

	got, err := db.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer failed: %v", err)
	}
	if got.TotalPointsEarned != 125 {
		t.Errorf("Expected lifetime earnings 125, got %d", got.TotalPointsEarned)
	}
}

func TestApplyDelta_InsufficientPoints(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	customer := createTestCustomer(t, db, "Ana")

	if _, err := db.ApplyDelta(ctx, customer.ID, 50, "Purchase: 5.00€"); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	_, err := db.ApplyDelta(ctx, customer.ID, -100, "Redeemed: Espresso")
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Errorf("Expected ErrInsufficientPoints, got %v", err)
	}

	// The failed debit must leave no audit row behind.
	transactions, err := db.ListTransactions(ctx, customer.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(transactions) != 1 {
		t.Errorf("Expected 1 transaction, got %d", len(transactions))
	}
}

func TestApplyDelta_UnknownCustomer(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.ApplyDelta(context.Background(), uuid.New().String(), 10, "Purchase: 1.00€")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLedgerInvariant_SumEqualsBalance(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	customer := createTestCustomer(t, db, "Radu")

	deltas := []int64{125, 80, -100, 42, -50}
	for _, delta := range deltas {
		if _, err := db.ApplyDelta(ctx, customer.ID, delta, "test"); err != nil {
			t.Fatalf("ApplyDelta(%d) failed: %v", delta, err)
		}
	}

	got, err := db.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer failed: %v", err)
	}

	transactions, err := db.ListTransactions(ctx, customer.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}

	var sum int64
	for _, txn := range transactions {
		sum += txn.PointsChange
	}

	if sum != got.Points {
		t.Errorf("Ledger invariant broken: sum of changes %d != balance %d", sum, got.Points)
	}
}

func TestListTransactions_MostRecentFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	customer := createTestCustomer(t, db, "Elena")

	if _, err := db.ApplyDelta(ctx, customer.ID, 10, "first"); err != nil {
		t.Fatalf("ApplyDelta failed: %v", err)
	}
	if _, err := db.ApplyDelta(ctx, customer.ID, 20, "second"); err != nil {
		t.Fatalf("ApplyDelta failed: %v", err)
	}

	transactions, err := db.ListTransactions(ctx, customer.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}

	if len(transactions) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(transactions))
	}
	if transactions[0].Description != "second" {
		t.Errorf("Expected most recent transaction first, got %s", transactions[0].Description)
	}
}

func TestRewards_UpsertGetList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	reward := models.Reward{
		ID:         uuid.New().String(),
		Name:       "Cappuccino",
		PointsCost: 100,
		Active:     true,
	}

	if err := db.UpsertReward(ctx, reward); err != nil {
		t.Fatalf("UpsertReward failed: %v", err)
	}

	got, err := db.GetReward(ctx, reward.ID)
	if err != nil {
		t.Fatalf("GetReward failed: %v", err)
	}
	if got.Name != "Cappuccino" || got.PointsCost != 100 {
		t.Errorf("Unexpected reward: %+v", got)
	}

	// Upsert updates in place
	reward.PointsCost = 120
	reward.Active = false
	if err := db.UpsertReward(ctx, reward); err != nil {
		t.Fatalf("Second UpsertReward failed: %v", err)
	}

	rewards, err := db.ListActiveRewards(ctx)
	if err != nil {
		t.Fatalf("ListActiveRewards failed: %v", err)
	}
	if len(rewards) != 0 {
		t.Errorf("Expected no active rewards after deactivation, got %d", len(rewards))
	}
}
