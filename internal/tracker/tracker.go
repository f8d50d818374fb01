// Package tracker provides the issue-tracker client used for context
// aggregation. Reads are cacheable; see CachedClient.
package tracker

import (
	"context"
	"errors"
)

// Ticket is one issue-tracker record.
type Ticket struct {
	Key     string
	Summary string
	Status  string
	Links   []string // keys of linked tickets
}

// Client is the issue-tracker surface consumed by the aggregator.
type Client interface {
	// GetTicket fetches a ticket by key, including its linked-ticket keys.
	GetTicket(ctx context.Context, key string) (*Ticket, error)
	// Search returns tickets matching a free-text query.
	Search(ctx context.Context, query string) ([]Ticket, error)
}

// ErrNotConfigured is returned by Disabled for every call.
var ErrNotConfigured = errors.New("tracker: not configured")

// Disabled is a Client for deployments without an issue tracker. Every
// call fails, which the aggregator records as a degraded source.
type Disabled struct{}

func (Disabled) GetTicket(ctx context.Context, key string) (*Ticket, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Search(ctx context.Context, query string) ([]Ticket, error) {
	return nil, ErrNotConfigured
}
