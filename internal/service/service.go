package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"loyalty-points-api/internal/cache"
	"loyalty-points-api/internal/database"
	"loyalty-points-api/internal/events"
	"loyalty-points-api/internal/models"
	"loyalty-points-api/internal/qr"
	"loyalty-points-api/internal/validation"
)

// PointsPerUnit is the fixed conversion rate: 1 unit of currency = 10
// points. The customer-side preview and the redemption here must use the
// same formula and rounding or they will disagree.
const PointsPerUnit = 10

const customerCacheTTL = 30 * time.Second

// PointsForAmount converts a purchase amount into a point award. Floor, not
// round.
func PointsForAmount(amount float64) int64 {
	return int64(math.Floor(amount * PointsPerUnit))
}

// Service provides business logic for the loyalty points API.
type Service struct {
	db     *database.DB
	cache  cache.Cache
	events *events.Manager
	issuer *qr.Issuer
	tracer trace.Tracer
}

// Options holds optional collaborators for a service instance.
type Options struct {
	Cache  cache.Cache     // nil disables profile caching
	Events *events.Manager // nil disables event publishing
}

// NewService creates a new service instance.
func NewService(db *database.DB) *Service {
	return NewServiceWithOptions(db, Options{})
}

// NewServiceWithOptions creates a new service instance with custom options.
func NewServiceWithOptions(db *database.DB, opts Options) *Service {
	return &Service{
		db:     db,
		cache:  opts.Cache,
		events: opts.Events,
		issuer: qr.NewIssuer(),
		tracer: otel.Tracer("loyalty-points-api"),
	}
}

// Redeem validates a scanned QR payload against a purchase amount and
// credits the points. Validation order is fixed and every failure before the
// used-token insert leaves no state behind:
//
//	amount > 0 and finite
//	payload decodes
//	payload carries customer_id, token and timestamp
//	token not already used
//	token within the validity window
//	customer exists
//
// The used-token insert is the atomic double-spend gate and happens strictly
// before the balance is touched.
func (s *Service) Redeem(ctx context.Context, qrData json.RawMessage, amount float64, now time.Time) (models.AddPointsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.Redeem")
	defer span.End()

	if err := validation.ValidateAmount(amount); err != nil {
		return models.AddPointsResponse{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	payload, err := qr.Decode(qrData)
	if err != nil {
		return models.AddPointsResponse{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if !payload.Complete() {
		return models.AddPointsResponse{}, ErrIncompleteToken
	}

	span.SetAttributes(attribute.String("loyalty.customer_id", payload.CustomerID))

	used, err := s.db.IsTokenUsed(ctx, payload.Token)
	if err != nil {
		return models.AddPointsResponse{}, fmt.Errorf("%w: checking token: %v", ErrStorage, err)
	}
	if used {
		return models.AddPointsResponse{}, ErrTokenAlreadyUsed
	}

	if now.Sub(payload.IssuedAt) > qr.ValidityWindow {
		return models.AddPointsResponse{}, ErrTokenExpired
	}

	customer, err := s.db.GetCustomer(ctx, payload.CustomerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.AddPointsResponse{}, ErrCustomerNotFound
		}
		return models.AddPointsResponse{}, fmt.Errorf("%w: fetching customer: %v", ErrStorage, err)
	}

	points := PointsForAmount(amount)

	// The unique key on qr_token makes this insert the conflict gate: if
	// two redemptions race on the same token, only one gets past here.
	err = s.db.InsertUsedToken(ctx, models.UsedToken{
		QRToken:       payload.Token,
		CustomerID:    payload.CustomerID,
		AmountSpent:   amount,
		PointsAwarded: points,
		UsedAt:        now,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateToken) {
			return models.AddPointsResponse{}, ErrTokenAlreadyUsed
		}
		return models.AddPointsResponse{}, fmt.Errorf("%w: marking token used: %v", ErrStorage, err)
	}

	newTotal, err := s.db.ApplyDelta(ctx, payload.CustomerID, points,
		fmt.Sprintf("Purchase: %.2f€", amount))
	if err != nil {
		// The token is consumed but the credit did not land. Log enough to
		// reconcile by hand and surface an operational error, never success.
		log.Printf("PARTIAL COMMIT: token=%s customer=%s points=%d step=apply-delta err=%v",
			payload.Token, payload.CustomerID, points, err)
		span.RecordError(err)
		return models.AddPointsResponse{}, fmt.Errorf("%w: token=%s customer=%s: %v",
			ErrPartialCommit, payload.Token, payload.CustomerID, err)
	}

	s.invalidateCustomer(ctx, payload.CustomerID)
	if s.events != nil {
		s.events.PublishPointsRedeemed(ctx, payload.CustomerID, points, newTotal, amount)
	}

	name := payload.DisplayName
	if name == "" {
		name = customer.Name
	}

	return models.AddPointsResponse{
		Success:      true,
		PointsAdded:  points,
		NewTotal:     newTotal,
		AmountSpent:  amount,
		CustomerName: name,
	}, nil
}

// RedeemReward spends points on a catalog reward. The debit and its audit
// row are applied atomically by the ledger; balances never go negative.
func (s *Service) RedeemReward(ctx context.Context, customerID, rewardID string) (models.RedeemRewardResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.RedeemReward")
	defer span.End()

	if customerID == "" || rewardID == "" {
		return models.RedeemRewardResponse{}, ErrRewardNotFound
	}

	reward, err := s.db.GetReward(ctx, rewardID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.RedeemRewardResponse{}, ErrRewardNotFound
		}
		return models.RedeemRewardResponse{}, fmt.Errorf("%w: fetching reward: %v", ErrStorage, err)
	}
	if !reward.Active {
		return models.RedeemRewardResponse{}, ErrRewardNotFound
	}

	newTotal, err := s.db.ApplyDelta(ctx, customerID, -reward.PointsCost,
		fmt.Sprintf("Redeemed: %s", reward.Name))
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return models.RedeemRewardResponse{}, ErrCustomerNotFound
		case errors.Is(err, database.ErrInsufficientPoints):
			return models.RedeemRewardResponse{}, ErrInsufficientPoints
		default:
			return models.RedeemRewardResponse{}, fmt.Errorf("%w: applying debit: %v", ErrStorage, err)
		}
	}

	s.invalidateCustomer(ctx, customerID)
	if s.events != nil {
		s.events.PublishRewardRedeemed(ctx, customerID, reward.ID, reward.PointsCost)
	}

	return models.RedeemRewardResponse{
		Success:     true,
		PointsSpent: reward.PointsCost,
		NewTotal:    newTotal,
		RewardName:  reward.Name,
	}, nil
}

// CreateCustomer registers a new account with a zero balance.
func (s *Service) CreateCustomer(ctx context.Context, name string) (models.Customer, error) {
	name = validation.SanitizeString(name)
	if err := validation.ValidateCustomerName(name); err != nil {
		return models.Customer{}, err
	}

	customer := models.Customer{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.CreateCustomer(ctx, customer); err != nil {
		return models.Customer{}, fmt.Errorf("%w: creating customer: %v", ErrStorage, err)
	}

	if s.events != nil {
		s.events.PublishCustomerCreated(ctx, customer.ID, customer.Name)
	}

	return customer, nil
}

// GetCustomer fetches a customer profile, serving repeated reads from the
// cache when one is configured.
func (s *Service) GetCustomer(ctx context.Context, customerID string) (models.Customer, error) {
	if s.cache != nil {
		var cached models.Customer
		if err := cache.GetJSON(ctx, s.cache, customerCacheKey(customerID), &cached); err == nil {
			return cached, nil
		}
	}

	customer, err := s.db.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.Customer{}, ErrCustomerNotFound
		}
		return models.Customer{}, fmt.Errorf("%w: fetching customer: %v", ErrStorage, err)
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, customerCacheKey(customerID), customer, customerCacheTTL); err != nil {
			log.Printf("cache set failed for customer %s: %v", customerID, err)
		}
	}

	return customer, nil
}

// ListTransactions returns a customer's ledger history, most recent first.
func (s *Service) ListTransactions(ctx context.Context, customerID string) ([]models.Transaction, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	transactions, err := s.db.ListTransactions(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing transactions: %v", ErrStorage, err)
	}
	return transactions, nil
}

// IssueToken mints a fresh QR token for a customer and returns the encoded
// payload. Issuance writes nothing; only redemption touches the ledger.
func (s *Service) IssueToken(ctx context.Context, customerID string) (models.IssueTokenResponse, error) {
	customer, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return models.IssueTokenResponse{}, err
	}

	token := s.issuer.Issue(customer.ID)
	payload, err := qr.Encode(s.issuer.Payload(customer.ID, customer.Name, token))
	if err != nil {
		return models.IssueTokenResponse{}, fmt.Errorf("%w: encoding payload: %v", ErrStorage, err)
	}

	return models.IssueTokenResponse{
		Payload:   payload,
		Token:     token.Value,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// UpsertReward creates or updates a reward catalog entry.
func (s *Service) UpsertReward(ctx context.Context, reward models.Reward) (models.Reward, error) {
	reward.Name = validation.SanitizeString(reward.Name)
	reward.Description = validation.SanitizeString(reward.Description)
	if err := validation.ValidateReward(reward.Name, reward.PointsCost); err != nil {
		return models.Reward{}, err
	}
	if reward.ID == "" {
		reward.ID = uuid.New().String()
	}

	if err := s.db.UpsertReward(ctx, reward); err != nil {
		return models.Reward{}, fmt.Errorf("%w: upserting reward: %v", ErrStorage, err)
	}
	return reward, nil
}

// ListRewards returns the active reward catalog.
func (s *Service) ListRewards(ctx context.Context) ([]models.Reward, error) {
	rewards, err := s.db.ListActiveRewards(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing rewards: %v", ErrStorage, err)
	}
	return rewards, nil
}

func (s *Service) invalidateCustomer(ctx context.Context, customerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, customerCacheKey(customerID)); err != nil {
		log.Printf("cache invalidation failed for customer %s: %v", customerID, err)
	}
}

func customerCacheKey(customerID string) string {
	return "customer:" + customerID
}
