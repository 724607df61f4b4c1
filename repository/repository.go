package repository

import (
	"context"
	"errors"
	"time"

	domainAccount "github.com/ymzk/threadpilot/domains/account"
	domainOutcome "github.com/ymzk/threadpilot/domains/outcome"
	domainSchedule "github.com/ymzk/threadpilot/domains/schedule"
	domainTemplate "github.com/ymzk/threadpilot/domains/template"
)

// ErrNotFound is returned for lookups that match no row, including account
// reads filtered to enabled=true.
var ErrNotFound = errors.New("record not found")

type IAccountStore interface {
	// GetEnabled reads an account by id, filtered to enabled=true.
	GetEnabled(ctx context.Context, id string) (domainAccount.Account, error)
	// MostRecentEnabled returns the most recently updated enabled account.
	// Used by the manual post surface when no account id is given; account
	// identity is always resolved by an explicit query, never by ambient
	// process state.
	MostRecentEnabled(ctx context.Context) (domainAccount.Account, error)
	Upsert(ctx context.Context, acct domainAccount.Account) (domainAccount.Account, error)
	List(ctx context.Context) ([]domainAccount.Account, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

type IScheduleStore interface {
	// Due selects active schedules with next_run <= now, earliest first,
	// bounded to limit rows.
	Due(ctx context.Context, now time.Time, limit int) ([]domainSchedule.Schedule, error)
	// Claim conditionally pushes next_run to holdUntil, guarded by the
	// next_run value the caller read. A false return means another
	// invocation already claimed the schedule.
	Claim(ctx context.Context, id string, expectedNextRun, holdUntil time.Time) (bool, error)
	// Advance rewrites the bookkeeping fields after a processing attempt.
	Advance(ctx context.Context, id string, lastRun, nextRun time.Time) error
	Create(ctx context.Context, sch domainSchedule.Schedule) error
	List(ctx context.Context) ([]domainSchedule.Schedule, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type ITemplateStore interface {
	// PickNext atomically selects and marks used the next unused template
	// of the account, clearing the used flags to restart the rotation when
	// the pool is exhausted. Returns "" when the account owns no templates.
	PickNext(ctx context.Context, accountID string) (string, error)
	GetByID(ctx context.Context, id string) (domainTemplate.Template, error)
	Create(ctx context.Context, tpl domainTemplate.Template) error
	List(ctx context.Context, accountID string) ([]domainTemplate.Template, error)
	Delete(ctx context.Context, id string) error
}

type IOutcomeStore interface {
	// Append durably writes one immutable outcome record.
	Append(ctx context.Context, rec domainOutcome.Record) error
	ListRecent(ctx context.Context, limit int) ([]domainOutcome.Record, error)
}
