package tracking

import (
	"context"

	"cloud-hospital/queue/queue-tracker/pkg/msg"
)

// SnapshotFetcher performs the one-shot authoritative read of a ticket.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, queueId msg.QueueId) (*msg.TicketSnapshot, error)
}

// Dialer opens a push-update channel. The channel is ready once Dial
// returns.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Conn is one open push-update channel. ReadMessage blocks until a message
// arrives and must return after Close.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadMessage() ([]byte, error)
	Close() error
}
