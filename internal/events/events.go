package events

import (
	"context"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// EventPointsRedeemed is emitted when a QR token is redeemed for points
	EventPointsRedeemed EventType = "points.redeemed"
	// EventRewardRedeemed is emitted when points are spent on a reward
	EventRewardRedeemed EventType = "reward.redeemed"
	// EventCustomerCreated is emitted when a customer account is registered
	EventCustomerCreated EventType = "customer.created"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// PointsRedeemedData contains data for points redeemed events.
type PointsRedeemedData struct {
	CustomerID  string
	PointsAdded int64
	NewTotal    int64
	AmountSpent float64
}

// RewardRedeemedData contains data for reward redeemed events.
type RewardRedeemedData struct {
	CustomerID  string
	RewardID    string
	PointsSpent int64
}

// CustomerCreatedData contains data for customer created events.
type CustomerCreatedData struct {
	CustomerID string
	Name       string
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously so redemption latency never depends on subscribers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, handler := range handlers {
		go func(h Handler) {
			_ = h(ctx, event)
		}(handler)
	}
}

// PublishPointsRedeemed publishes a points redeemed event.
func (m *Manager) PublishPointsRedeemed(ctx context.Context, customerID string, points, newTotal int64, amount float64) {
	m.Publish(ctx, EventPointsRedeemed, PointsRedeemedData{
		CustomerID:  customerID,
		PointsAdded: points,
		NewTotal:    newTotal,
		AmountSpent: amount,
	})
}

// PublishRewardRedeemed publishes a reward redeemed event.
func (m *Manager) PublishRewardRedeemed(ctx context.Context, customerID, rewardID string, pointsSpent int64) {
	m.Publish(ctx, EventRewardRedeemed, RewardRedeemedData{
		CustomerID:  customerID,
		RewardID:    rewardID,
		PointsSpent: pointsSpent,
	})
}

// PublishCustomerCreated publishes a customer created event.
func (m *Manager) PublishCustomerCreated(ctx context.Context, customerID, name string) {
	m.Publish(ctx, EventCustomerCreated, CustomerCreatedData{
		CustomerID: customerID,
		Name:       name,
	})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
