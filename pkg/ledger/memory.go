package ledger

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLedger is an in-process Ledger used for local runs and tests.
type MemoryLedger struct {
	mu     sync.Mutex
	owners map[uint64]string
	nextID uint64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		owners: make(map[uint64]string),
	}
}

// Mint issues the next sequential pass ID to the given owner.
func (l *MemoryLedger) Mint(_ context.Context, owner string) (uint64, error) {
	if owner == "" {
		return 0, fmt.Errorf("empty owner")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.owners[id] = owner
	l.nextID++
	return id, nil
}

// OwnerOf returns the owner of the given pass.
func (l *MemoryLedger) OwnerOf(_ context.Context, passID uint64) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	owner, ok := l.owners[passID]
	if !ok {
		return "", ErrUnknownPass
	}
	return owner, nil
}

// TotalMinted returns the number of passes minted so far.
func (l *MemoryLedger) TotalMinted(_ context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextID, nil
}
