package regstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

// EligibilityDao is a data access object that maps directly to the 'eligibility' table in PostgreSQL.
type EligibilityDao struct {
	bun.BaseModel `bun:"table:eligibility,alias:e"`
	Role          string    `bun:"role,pk,type:varchar(16)"`
	Fingerprint   string    `bun:"fingerprint,pk,type:varchar(66)"`
	Note          *string   `bun:"note,type:varchar(500)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// toEligibilityDao converts a whitelist.Entry to EligibilityDao.
func toEligibilityDao(entry *whitelist.Entry) *EligibilityDao {
	dao := &EligibilityDao{
		Role:        string(entry.Role),
		Fingerprint: entry.Fingerprint,
	}
	if entry.Note != "" {
		dao.Note = &entry.Note
	}
	return dao
}

// toEntry converts an EligibilityDao to whitelist.Entry.
func toEntry(dao *EligibilityDao) *whitelist.Entry {
	entry := &whitelist.Entry{
		Role:        credential.Role(dao.Role),
		Fingerprint: dao.Fingerprint,
		CreatedAt:   dao.CreatedAt,
	}
	if dao.Note != nil {
		entry.Note = *dao.Note
	}
	return entry
}

// ProfileDao is a data access object that maps directly to the 'profiles' table in PostgreSQL.
// A profile row is also the fingerprint binding and the consumed marker: its
// existence means the fingerprint is bound, so revocation is a single-row
// delete with no orphaned state possible.
type ProfileDao struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Role          string    `bun:"role,notnull,type:varchar(16)"`
	Subject       string    `bun:"subject,notnull,type:varchar(255)"`
	Name          string    `bun:"name,notnull,type:varchar(255)"`
	NaturalID     string    `bun:"natural_id,notnull,type:varchar(255)"`
	Fingerprint   string    `bun:"fingerprint,notnull,type:varchar(66)"`
	SeqNo         int64     `bun:"seq_no,notnull"`
	Paid          bool      `bun:"paid,notnull,default:false"`
	FeeAmount     *string   `bun:"fee_amount,nullzero,type:numeric(38,18)"`
	PassRequested bool      `bun:"pass_requested,notnull,default:false"`
	PassID        *int64    `bun:"pass_id"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// toProfileDao converts a participant.Profile to ProfileDao.
func toProfileDao(p *participant.Profile) *ProfileDao {
	dao := &ProfileDao{
		Role:          string(p.Role),
		Subject:       p.Subject,
		Name:          p.Name,
		NaturalID:     p.NaturalID,
		Fingerprint:   p.Fingerprint,
		SeqNo:         p.SeqNo,
		Paid:          p.Paid,
		PassRequested: p.PassRequested,
	}
	if !p.FeeAmount.IsZero() {
		fee := p.FeeAmount.String()
		dao.FeeAmount = &fee
	}
	if p.PassID != nil {
		id := int64(*p.PassID)
		dao.PassID = &id
	}
	return dao
}

// toProfile converts a ProfileDao to participant.Profile.
func toProfile(dao *ProfileDao) *participant.Profile {
	p := &participant.Profile{
		Role:          credential.Role(dao.Role),
		Subject:       dao.Subject,
		Name:          dao.Name,
		NaturalID:     dao.NaturalID,
		Fingerprint:   dao.Fingerprint,
		SeqNo:         dao.SeqNo,
		Paid:          dao.Paid,
		PassRequested: dao.PassRequested,
		CreatedAt:     dao.CreatedAt,
	}
	if dao.FeeAmount != nil {
		if fee, err := decimal.NewFromString(*dao.FeeAmount); err == nil {
			p.FeeAmount = fee
		}
	}
	if dao.PassID != nil {
		id := uint64(*dao.PassID)
		p.PassID = &id
	}
	return p
}

// CounterDao is a data access object that maps directly to the 'registry_counters' table in PostgreSQL.
// LastSeq holds the most recently assigned sequence number for the role;
// counters only ever increase, even across revocations.
type CounterDao struct {
	bun.BaseModel `bun:"table:registry_counters,alias:c"`
	Role          string `bun:"role,pk,type:varchar(16)"`
	LastSeq       int64  `bun:"last_seq,notnull,default:0"`
}

// EventDao is a data access object that maps directly to the 'registry_events' table in PostgreSQL.
type EventDao struct {
	bun.BaseModel `bun:"table:registry_events,alias:ev"`
	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	Kind          string    `bun:"kind,notnull,type:varchar(40)"`
	Subject       string    `bun:"subject,notnull,type:varchar(255)"`
	Role          string    `bun:"role,notnull,type:varchar(16)"`
	Fingerprint   *string   `bun:"fingerprint,type:varchar(66)"`
	Name          *string   `bun:"name,type:varchar(255)"`
	NaturalID     *string   `bun:"natural_id,type:varchar(255)"`
	SeqNo         *int64    `bun:"seq_no"`
	PassID        *int64    `bun:"pass_id"`
	RecordedAt    time.Time `bun:"recorded_at,nullzero,default:current_timestamp"`
}

// toEventDao converts an events.Event to EventDao.
func toEventDao(ev *events.Event) *EventDao {
	dao := &EventDao{
		ID:         ev.ID,
		Kind:       string(ev.Kind),
		Subject:    ev.Subject,
		Role:       string(ev.Role),
		RecordedAt: ev.RecordedAt,
	}
	if ev.Fingerprint != "" {
		dao.Fingerprint = &ev.Fingerprint
	}
	if ev.Name != "" {
		dao.Name = &ev.Name
	}
	if ev.NaturalID != "" {
		dao.NaturalID = &ev.NaturalID
	}
	if ev.SeqNo != 0 {
		dao.SeqNo = &ev.SeqNo
	}
	if ev.PassID != nil {
		id := int64(*ev.PassID)
		dao.PassID = &id
	}
	return dao
}

// toEvent converts an EventDao to events.Event.
func toEvent(dao *EventDao) *events.Event {
	ev := &events.Event{
		ID:         dao.ID,
		Kind:       events.Kind(dao.Kind),
		Subject:    dao.Subject,
		Role:       credential.Role(dao.Role),
		RecordedAt: dao.RecordedAt,
	}
	if dao.Fingerprint != nil {
		ev.Fingerprint = *dao.Fingerprint
	}
	if dao.Name != nil {
		ev.Name = *dao.Name
	}
	if dao.NaturalID != nil {
		ev.NaturalID = *dao.NaturalID
	}
	if dao.SeqNo != nil {
		ev.SeqNo = *dao.SeqNo
	}
	if dao.PassID != nil {
		id := uint64(*dao.PassID)
		ev.PassID = &id
	}
	return ev
}
