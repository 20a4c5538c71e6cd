package session

import (
	"context"

	"agility-scorer/internal/domain"
)

// Handler receives every update written to a subscribed record, including
// this device's own writes. It must not block.
type Handler func(domain.SessionRecord)

type Subscription interface {
	Close() error
}

// Remote is the shared record store keyed by session code.
type Remote interface {
	// Create fails with domain.ErrSessionExists when the code is taken.
	Create(ctx context.Context, rec domain.SessionRecord) error
	// Fetch fails with domain.ErrSessionNotFound for an unknown code.
	Fetch(ctx context.Context, code string) (domain.SessionRecord, error)
	Push(ctx context.Context, rec domain.SessionRecord) error
	Subscribe(ctx context.Context, code string, h Handler) (Subscription, error)
}
