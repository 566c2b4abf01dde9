// Package eventsapi is the HTTP service vuload drives by default: it answers
// GET /events/{user_id} with the number of latest events stored for that user.
package eventsapi

import (
	"context"
	"time"
)

// DefaultLimit caps how many events a lookup returns.
const DefaultLimit = 20

type Event struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store returns the newest events for a user, newest first.
type Store interface {
	LatestEvents(ctx context.Context, userID int64, limit int) ([]Event, error)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, userID int64, limit int) ([]Event, error)

func (f StoreFunc) LatestEvents(ctx context.Context, userID int64, limit int) ([]Event, error) {
	return f(ctx, userID, limit)
}
