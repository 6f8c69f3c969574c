package regstore

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

// stripeCount is the number of lock stripes for per-key serialization.
const stripeCount = 64

// stripedLocks serializes operations on the same key without a global lock.
type stripedLocks [stripeCount]sync.Mutex

func (s *stripedLocks) forKey(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s[h.Sum32()%stripeCount]
}

type bindingKey struct {
	role        credential.Role
	fingerprint string
}

type profileKey struct {
	role    credential.Role
	subject string
}

// memoryStore is an in-memory Store used for local runs and tests.
//
// Register/revoke serialize per fingerprint and pass issuance serializes per
// subject, mirroring the lock granularity of the postgres store. The maps
// themselves are guarded by mu; the striped locks are held across whole
// operations so that invariant checks and writes are atomic per key.
type memoryStore struct {
	mu          sync.RWMutex
	eligibility map[bindingKey]*whitelist.Entry
	profiles    map[profileKey]*participant.Profile
	bindings    map[bindingKey]string
	counters    map[credential.Role]int64
	events      []*events.Event

	fpLocks      stripedLocks
	subjectLocks stripedLocks
}

// NewMemoryStore creates an empty in-memory registry store.
func NewMemoryStore() *memoryStore {
	return &memoryStore{
		eligibility: make(map[bindingKey]*whitelist.Entry),
		profiles:    make(map[profileKey]*participant.Profile),
		bindings:    make(map[bindingKey]string),
		counters:    make(map[credential.Role]int64),
	}
}

func (s *memoryStore) AddEligibility(_ context.Context, entry *whitelist.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := bindingKey{role: entry.Role, fingerprint: entry.Fingerprint}
	if _, ok := s.eligibility[key]; ok {
		return ErrEligibilityExists
	}
	clone := *entry
	s.eligibility[key] = &clone
	return nil
}

func (s *memoryStore) RemoveEligibility(_ context.Context, role credential.Role, fingerprint string) (*participant.Profile, error) {
	lock := s.fpLocks.forKey(string(role) + fingerprint)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := bindingKey{role: role, fingerprint: fingerprint}
	subject, bound := s.bindings[key]
	if !bound {
		return nil, ErrNotBound
	}

	pk := profileKey{role: role, subject: subject}
	profile := s.profiles[pk]
	delete(s.profiles, pk)
	delete(s.bindings, key)
	delete(s.eligibility, key)

	clone := *profile
	return &clone, nil
}

func (s *memoryStore) IsEligible(_ context.Context, role credential.Role, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.eligibility[bindingKey{role: role, fingerprint: fingerprint}]
	return ok, nil
}

func (s *memoryStore) ListEligibility(_ context.Context, role credential.Role) ([]*EligibleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*EligibleEntry
	for key, entry := range s.eligibility {
		if key.role != role {
			continue
		}
		clone := *entry
		_, bound := s.bindings[key]
		entries = append(entries, &EligibleEntry{Entry: &clone, Bound: bound})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].Fingerprint < entries[j].Fingerprint
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *memoryStore) CreateProfile(_ context.Context, profile *participant.Profile) (*participant.Profile, error) {
	lock := s.fpLocks.forKey(string(profile.Role) + profile.Fingerprint)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := bindingKey{role: profile.Role, fingerprint: profile.Fingerprint}
	if _, ok := s.eligibility[key]; !ok {
		return nil, ErrNotEligible
	}
	if _, ok := s.bindings[key]; ok {
		return nil, ErrFingerprintBound
	}
	pk := profileKey{role: profile.Role, subject: profile.Subject}
	if _, ok := s.profiles[pk]; ok {
		return nil, ErrProfileExists
	}

	s.counters[profile.Role]++
	clone := *profile
	clone.SeqNo = s.counters[profile.Role]

	s.profiles[pk] = &clone
	s.bindings[key] = profile.Subject

	out := clone
	return &out, nil
}

func (s *memoryStore) RevokeProfile(_ context.Context, role credential.Role, fingerprint string) (*participant.Profile, error) {
	lock := s.fpLocks.forKey(string(role) + fingerprint)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := bindingKey{role: role, fingerprint: fingerprint}
	subject, bound := s.bindings[key]
	if !bound {
		return nil, ErrNotBound
	}

	pk := profileKey{role: role, subject: subject}
	profile := s.profiles[pk]
	delete(s.profiles, pk)
	delete(s.bindings, key)

	clone := *profile
	return &clone, nil
}

func (s *memoryStore) GetProfile(_ context.Context, role credential.Role, subject string) (*participant.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[profileKey{role: role, subject: subject}]
	if !ok {
		return nil, ErrProfileNotFound
	}
	clone := *profile
	return &clone, nil
}

func (s *memoryStore) MarkPaid(_ context.Context, subject string, fee decimal.Decimal) (*participant.Profile, error) {
	lock := s.subjectLocks.forKey(subject)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[profileKey{role: credential.RoleStudent, subject: subject}]
	if !ok {
		return nil, ErrProfileNotFound
	}
	if profile.Paid {
		return nil, ErrAlreadyPaid
	}

	profile.Paid = true
	profile.FeeAmount = fee
	clone := *profile
	return &clone, nil
}

func (s *memoryStore) IssuePass(ctx context.Context, subject string, mint MintFunc) (*participant.Profile, error) {
	// Per-subject lock held across the mint call: exactly one of two
	// concurrent requests mints, the other observes PassRequested.
	lock := s.subjectLocks.forKey(subject)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	profile, ok := s.profiles[profileKey{role: credential.RoleStudent, subject: subject}]
	var paid, requested bool
	if ok {
		paid = profile.Paid
		requested = profile.PassRequested
	}
	s.mu.RUnlock()

	if !ok {
		return nil, ErrProfileNotFound
	}
	if !paid {
		return nil, ErrFeesUnpaid
	}
	if requested {
		return nil, ErrPassIssued
	}

	passID, err := mint(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	profile.PassRequested = true
	profile.PassID = &passID
	clone := *profile
	return &clone, nil
}

func (s *memoryStore) RecordEvent(_ context.Context, ev *events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *ev
	s.events = append(s.events, &clone)
	return nil
}

func (s *memoryStore) ListEvents(_ context.Context, limit int) ([]*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]*events.Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *s.events[i]
		out = append(out, &clone)
	}
	return out, nil
}
