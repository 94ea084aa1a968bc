// Package store is the durable side of a duel: a small create/read/
// update contract over the Duel record. The runtime session state
// (timers, membership) deliberately lives elsewhere — the store is the
// single source of truth for status and winner, and its conditional
// completion update is the serialization point for the winner race.
package store

import "context"

type Store interface {
	Create(ctx context.Context, d *Duel) error

	// Get returns apperr.NotFound when no record exists.
	Get(ctx context.Context, id string) (*Duel, error)

	// ListOngoing returns every duel still pending or active.
	ListOngoing(ctx context.Context) ([]Duel, error)

	// ListOngoingFor narrows ListOngoing to duels the identity takes
	// part in, as challenger or invited opponent.
	ListOngoingFor(ctx context.Context, identity string) ([]Duel, error)

	// Activate moves pending -> active. Calling it on an already
	// active or completed duel is a no-op.
	Activate(ctx context.Context, id string) error

	// Complete transitions to completed and records the winner only
	// if the duel is not completed yet. Returns false when another
	// submission already decided the duel. This must be atomic at the
	// store layer: several process instances may race on it.
	Complete(ctx context.Context, id, winner string) (bool, error)

	// Delete removes the record, reporting whether it existed. A
	// second delete of the same id returns (false, nil), not an error.
	Delete(ctx context.Context, id string) (bool, error)
}
