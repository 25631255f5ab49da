package orders

import (
	"fmt"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
)

// successor is the only legal next state of each status. Completed has none.
var successor = map[models.OrderStatus]models.OrderStatus{
	models.OrderStatusNew:       models.OrderStatusPreparing,
	models.OrderStatusPreparing: models.OrderStatusReady,
	models.OrderStatusReady:     models.OrderStatusCompleted,
}

// Next returns the status that follows s, or false when s is terminal or unknown.
func Next(s models.OrderStatus) (models.OrderStatus, bool) {
	n, ok := successor[s]
	return n, ok
}

// Terminal reports whether no transition leaves s.
func Terminal(s models.OrderStatus) bool {
	_, ok := successor[s]
	return !ok
}

// CheckTransition fails with an invalid-transition error unless to is the successor of from.
func CheckTransition(from, to models.OrderStatus) error {
	next, ok := successor[from]
	if !ok {
		return apperr.InvalidTransition(fmt.Sprintf("order is %s and cannot change status", from))
	}
	if next != to {
		return apperr.InvalidTransition(fmt.Sprintf("cannot move order from %s to %s", from, to))
	}
	return nil
}
