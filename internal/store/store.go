// Package store is the shared document store collaborator: one round
// document per room, last-write-wins at document granularity, with a
// push-based subscription per room. Delivery to subscribers is at least
// once and unordered beyond the store's own write marker, so consumers must
// tolerate repeated and stale snapshots.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

type DocStore interface {
	// Get returns the latest document for the room.
	Get(ctx context.Context, roomID string) ([]byte, error)

	// MergeWrite stores the document unless a newer write marker is already
	// present; stale writers lose silently, matching last-write-wins.
	MergeWrite(ctx context.Context, roomID string, doc []byte, updatedAt int64) error

	// Subscribe streams documents written after the call. The returned stop
	// function releases the subscription; the channel closes afterwards.
	Subscribe(ctx context.Context, roomID string) (<-chan []byte, func(), error)
}
