package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is a live order's position on the kitchen board.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "New"
	OrderStatusPreparing OrderStatus = "Preparing"
	OrderStatusReady     OrderStatus = "Ready"
	OrderStatusCompleted OrderStatus = "Completed"
)

// ParseOrderStatus accepts a status name case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range []OrderStatus{OrderStatusNew, OrderStatusPreparing, OrderStatusReady, OrderStatusCompleted} {
		if equalFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// LiveOrder is an order placed against one restaurant. Line prices are snapshots taken at placement.
type LiveOrder struct {
	ID           uuid.UUID   `json:"id"`
	RestaurantID uuid.UUID   `json:"restaurantId"`
	TableNumber  string      `json:"tableNumber,omitempty"`
	CustomerName string      `json:"customerName,omitempty"`
	Notes        string      `json:"notes,omitempty"`
	Status       OrderStatus `json:"status"`
	Total        float64     `json:"total"`
	Currency     string      `json:"currency"`
	PlacedAt     time.Time   `json:"placedAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Items        []OrderLine `json:"items"`
}

// OrderLine is one menu item on an order.
type OrderLine struct {
	ID         uuid.UUID           `json:"id"`
	OrderID    uuid.UUID           `json:"orderId"`
	MenuItemID uuid.UUID           `json:"menuItemId"`
	Name       string              `json:"name"`
	Quantity   int                 `json:"quantity"`
	UnitPrice  float64             `json:"price"`
	Modifiers  []OrderLineModifier `json:"modifiers"`
	LineTotal  float64             `json:"lineTotal"`
}

// OrderLineModifier is a snapshot of a chosen modifier item.
type OrderLineModifier struct {
	ModifierItemID uuid.UUID `json:"modifierItemId"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
}

// OrderStatusLog records one transition of an order.
type OrderStatusLog struct {
	ID        int64       `json:"id"`
	OrderID   uuid.UUID   `json:"orderId"`
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changedBy"`
	ChangedAt time.Time   `json:"changedAt"`
}
