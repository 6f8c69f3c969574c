// Package ledger abstracts the pass token ledger.
//
// Passes are minted as tokens owned by the holder's subject. Token IDs are
// assigned by the ledger itself, sequentially from 0, and are never reused.
// The registry records the ID returned by Mint and treats the ledger as the
// source of truth for ownership.
package ledger

import (
	"context"
	"errors"
)

// ErrUnknownPass is returned when a pass ID has never been minted.
var ErrUnknownPass = errors.New("unknown pass id")

// Ledger mints and resolves exam passes.
type Ledger interface {
	// Mint issues a new pass owned by the given subject and returns its ID.
	// The first pass ever minted has ID 0.
	Mint(ctx context.Context, owner string) (uint64, error)

	// OwnerOf returns the subject that owns the given pass.
	// Returns ErrUnknownPass if no such pass was minted.
	OwnerOf(ctx context.Context, passID uint64) (string, error)

	// TotalMinted returns the number of passes minted so far.
	TotalMinted(ctx context.Context) (uint64, error)
}
