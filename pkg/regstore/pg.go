package regstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the registry store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func isIntegrityViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.IntegrityViolation()
}

func (s *pgStore) AddEligibility(ctx context.Context, entry *whitelist.Entry) error {
	_, err := s.db.NewInsert().
		Model(toEligibilityDao(entry)).
		Exec(ctx)
	if err != nil {
		if isIntegrityViolation(err) {
			return ErrEligibilityExists
		}
		return fmt.Errorf("failed to add eligibility: %w", err)
	}
	return nil
}

func (s *pgStore) RemoveEligibility(ctx context.Context, role credential.Role, fingerprint string) (*participant.Profile, error) {
	var removed *participant.Profile

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Lock the eligibility row so register/revoke on the same
		// fingerprint cannot interleave with the removal.
		entry := new(EligibilityDao)
		err := tx.NewSelect().
			Model(entry).
			Where("e.role = ? AND e.fingerprint = ?", string(role), fingerprint).
			For("UPDATE").
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to lock eligibility: %w", err)
		}

		profile := new(ProfileDao)
		err = tx.NewSelect().
			Model(profile).
			Where("p.role = ? AND p.fingerprint = ?", string(role), fingerprint).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotBound
			}
			return fmt.Errorf("failed to get bound profile: %w", err)
		}

		if _, err := tx.NewDelete().
			Model((*ProfileDao)(nil)).
			Where("id = ?", profile.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete bound profile: %w", err)
		}

		if _, err := tx.NewDelete().
			Model((*EligibilityDao)(nil)).
			Where("role = ? AND fingerprint = ?", string(role), fingerprint).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete eligibility: %w", err)
		}

		removed = toProfile(profile)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *pgStore) IsEligible(ctx context.Context, role credential.Role, fingerprint string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*EligibilityDao)(nil)).
		Where("role = ? AND fingerprint = ?", string(role), fingerprint).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check eligibility: %w", err)
	}
	return exists, nil
}

func (s *pgStore) ListEligibility(ctx context.Context, role credential.Role) ([]*EligibleEntry, error) {
	var daos []EligibilityDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("role = ?", string(role)).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligibility: %w", err)
	}

	var bound []string
	err = s.db.NewSelect().
		Model((*ProfileDao)(nil)).
		Column("fingerprint").
		Where("role = ?", string(role)).
		Scan(ctx, &bound)
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}
	boundSet := make(map[string]bool, len(bound))
	for _, fp := range bound {
		boundSet[fp] = true
	}

	entries := make([]*EligibleEntry, len(daos))
	for i := range daos {
		entries[i] = &EligibleEntry{
			Entry: toEntry(&daos[i]),
			Bound: boundSet[daos[i].Fingerprint],
		}
	}
	return entries, nil
}

func (s *pgStore) CreateProfile(ctx context.Context, profile *participant.Profile) (*participant.Profile, error) {
	var created *participant.Profile

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// The locked eligibility row is the fingerprint-granularity lock:
		// concurrent register/revoke for the same fingerprint serialize
		// here without blocking unrelated registrations.
		entry := new(EligibilityDao)
		err := tx.NewSelect().
			Model(entry).
			Where("e.role = ? AND e.fingerprint = ?", string(profile.Role), profile.Fingerprint).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotEligible
			}
			return fmt.Errorf("failed to lock eligibility: %w", err)
		}

		bound, err := tx.NewSelect().
			Model((*ProfileDao)(nil)).
			Where("role = ? AND fingerprint = ?", string(profile.Role), profile.Fingerprint).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check binding: %w", err)
		}
		if bound {
			return ErrFingerprintBound
		}

		registered, err := tx.NewSelect().
			Model((*ProfileDao)(nil)).
			Where("role = ? AND subject = ?", string(profile.Role), profile.Subject).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check registration: %w", err)
		}
		if registered {
			return ErrProfileExists
		}

		seq, err := nextSeq(ctx, tx, profile.Role)
		if err != nil {
			return err
		}

		dao := toProfileDao(profile)
		dao.SeqNo = seq
		if _, err := tx.NewInsert().Model(dao).Exec(ctx); err != nil {
			if isIntegrityViolation(err) {
				// Binding conflicts are prevented by the eligibility row
				// lock, so a unique violation here is the (role, subject)
				// index: the same caller raced two registrations with
				// different credentials.
				return ErrProfileExists
			}
			return fmt.Errorf("failed to create profile: %w", err)
		}

		created = toProfile(dao)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// nextSeq allocates the next sequence number for a role. Counters start at 1
// and never go backwards, even when profiles are revoked.
func nextSeq(ctx context.Context, tx bun.Tx, role credential.Role) (int64, error) {
	_, err := tx.NewInsert().
		Model(&CounterDao{Role: string(role)}).
		On("CONFLICT (role) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to init counter: %w", err)
	}

	counter := &CounterDao{}
	err = tx.NewUpdate().
		Model(counter).
		Set("last_seq = last_seq + 1").
		Where("role = ?", string(role)).
		Returning("last_seq").
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to bump counter: %w", err)
	}
	return counter.LastSeq, nil
}

func (s *pgStore) RevokeProfile(ctx context.Context, role credential.Role, fingerprint string) (*participant.Profile, error) {
	var removed *participant.Profile

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		entry := new(EligibilityDao)
		err := tx.NewSelect().
			Model(entry).
			Where("e.role = ? AND e.fingerprint = ?", string(role), fingerprint).
			For("UPDATE").
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to lock eligibility: %w", err)
		}

		profile := new(ProfileDao)
		err = tx.NewSelect().
			Model(profile).
			Where("p.role = ? AND p.fingerprint = ?", string(role), fingerprint).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotBound
			}
			return fmt.Errorf("failed to get bound profile: %w", err)
		}

		if _, err := tx.NewDelete().
			Model((*ProfileDao)(nil)).
			Where("id = ?", profile.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}

		removed = toProfile(profile)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *pgStore) GetProfile(ctx context.Context, role credential.Role, subject string) (*participant.Profile, error) {
	dao := new(ProfileDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("p.role = ? AND p.subject = ?", string(role), subject).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return toProfile(dao), nil
}

func (s *pgStore) MarkPaid(ctx context.Context, subject string, fee decimal.Decimal) (*participant.Profile, error) {
	var updated *participant.Profile

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dao := new(ProfileDao)
		err := tx.NewSelect().
			Model(dao).
			Where("p.role = ? AND p.subject = ?", string(credential.RoleStudent), subject).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("failed to get profile: %w", err)
		}
		if dao.Paid {
			return ErrAlreadyPaid
		}

		feeStr := fee.String()
		_, err = tx.NewUpdate().
			Model((*ProfileDao)(nil)).
			Set("paid = TRUE").
			Set("fee_amount = ?::DECIMAL", feeStr).
			Where("id = ?", dao.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark paid: %w", err)
		}

		dao.Paid = true
		dao.FeeAmount = &feeStr
		updated = toProfile(dao)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *pgStore) IssuePass(ctx context.Context, subject string, mint MintFunc) (*participant.Profile, error) {
	var issued *participant.Profile

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// The locked profile row linearizes issuance: a concurrent request
		// for the same subject blocks here and then observes pass_requested.
		dao := new(ProfileDao)
		err := tx.NewSelect().
			Model(dao).
			Where("p.role = ? AND p.subject = ?", string(credential.RoleStudent), subject).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("failed to get profile: %w", err)
		}
		if !dao.Paid {
			return ErrFeesUnpaid
		}
		if dao.PassRequested {
			return ErrPassIssued
		}

		passID, err := mint(ctx)
		if err != nil {
			return fmt.Errorf("ledger mint failed: %w", err)
		}

		passIDCol := int64(passID)
		_, err = tx.NewUpdate().
			Model((*ProfileDao)(nil)).
			Set("pass_requested = TRUE").
			Set("pass_id = ?", passIDCol).
			Where("id = ?", dao.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to record pass: %w", err)
		}

		dao.PassRequested = true
		dao.PassID = &passIDCol
		issued = toProfile(dao)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

func (s *pgStore) RecordEvent(ctx context.Context, ev *events.Event) error {
	_, err := s.db.NewInsert().
		Model(toEventDao(ev)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

func (s *pgStore) ListEvents(ctx context.Context, limit int) ([]*events.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var daos []EventDao
	err := s.db.NewSelect().
		Model(&daos).
		Order("recorded_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	evs := make([]*events.Event, len(daos))
	for i := range daos {
		evs[i] = toEvent(&daos[i])
	}
	return evs, nil
}
