package event

import "context"

// Store reads persisted notifications.
type Store interface {
	ListEvents(ctx context.Context, opts ListOpts) ([]*Event, error)
}
