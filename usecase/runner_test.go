package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainAccount "github.com/ymzk/threadpilot/domains/account"
	domainOutcome "github.com/ymzk/threadpilot/domains/outcome"
	domainRunner "github.com/ymzk/threadpilot/domains/runner"
	domainSchedule "github.com/ymzk/threadpilot/domains/schedule"
	domainTemplate "github.com/ymzk/threadpilot/domains/template"
	"github.com/ymzk/threadpilot/repository"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeAccounts struct {
	accounts map[string]domainAccount.Account
}

func (f *fakeAccounts) GetEnabled(_ context.Context, id string) (domainAccount.Account, error) {
	acct, ok := f.accounts[id]
	if !ok || !acct.Enabled {
		return domainAccount.Account{}, repository.ErrNotFound
	}
	return acct, nil
}

func (f *fakeAccounts) MostRecentEnabled(context.Context) (domainAccount.Account, error) {
	for _, acct := range f.accounts {
		if acct.Enabled {
			return acct, nil
		}
	}
	return domainAccount.Account{}, repository.ErrNotFound
}

func (f *fakeAccounts) Upsert(_ context.Context, acct domainAccount.Account) (domainAccount.Account, error) {
	f.accounts[acct.ID] = acct
	return acct, nil
}

func (f *fakeAccounts) List(context.Context) ([]domainAccount.Account, error) { return nil, nil }

func (f *fakeAccounts) SetEnabled(context.Context, string, bool) error { return nil }

type advanceCall struct {
	LastRun time.Time
	NextRun time.Time
}

type fakeSchedules struct {
	due       []domainSchedule.Schedule
	denyClaim map[string]bool
	claimed   []string
	advanced  map[string]advanceCall
}

func newFakeSchedules(due ...domainSchedule.Schedule) *fakeSchedules {
	return &fakeSchedules{
		due:       due,
		denyClaim: map[string]bool{},
		advanced:  map[string]advanceCall{},
	}
}

func (f *fakeSchedules) Due(context.Context, time.Time, int) ([]domainSchedule.Schedule, error) {
	return f.due, nil
}

func (f *fakeSchedules) Claim(_ context.Context, id string, _, _ time.Time) (bool, error) {
	if f.denyClaim[id] {
		return false, nil
	}
	f.claimed = append(f.claimed, id)
	return true, nil
}

func (f *fakeSchedules) Advance(_ context.Context, id string, lastRun, nextRun time.Time) error {
	f.advanced[id] = advanceCall{LastRun: lastRun, NextRun: nextRun}
	return nil
}

func (f *fakeSchedules) Create(context.Context, domainSchedule.Schedule) error { return nil }

func (f *fakeSchedules) List(context.Context) ([]domainSchedule.Schedule, error) { return nil, nil }

func (f *fakeSchedules) SetActive(context.Context, string, bool) error { return nil }

func (f *fakeSchedules) Delete(context.Context, string) error { return nil }

type fakeTemplates struct {
	templates map[string]domainTemplate.Template
	pickNext  string
	pickErr   error
	pickCalls int
}

func (f *fakeTemplates) PickNext(context.Context, string) (string, error) {
	f.pickCalls++
	return f.pickNext, f.pickErr
}

func (f *fakeTemplates) GetByID(_ context.Context, id string) (domainTemplate.Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return domainTemplate.Template{}, repository.ErrNotFound
	}
	return tpl, nil
}

func (f *fakeTemplates) Create(context.Context, domainTemplate.Template) error { return nil }

func (f *fakeTemplates) List(context.Context, string) ([]domainTemplate.Template, error) {
	return nil, nil
}

func (f *fakeTemplates) Delete(context.Context, string) error { return nil }

type fakeOutcomes struct {
	records []domainOutcome.Record
}

func (f *fakeOutcomes) Append(_ context.Context, rec domainOutcome.Record) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeOutcomes) ListRecent(context.Context, int) ([]domainOutcome.Record, error) {
	return f.records, nil
}

type publishCall struct {
	Token     string
	Text      string
	MediaURLs []string
}

type fakePublisher struct {
	calls  []publishCall
	result domainRunner.PublishResult
	err    error
	errFor map[string]error
}

func (f *fakePublisher) Publish(_ context.Context, token, text string, mediaURLs []string) (domainRunner.PublishResult, error) {
	f.calls = append(f.calls, publishCall{Token: token, Text: text, MediaURLs: mediaURLs})
	if f.errFor != nil {
		if err, ok := f.errFor[token]; ok {
			return domainRunner.PublishResult{}, err
		}
	}
	return f.result, f.err
}

type fakeRewriter struct {
	out   string
	err   error
	calls int
}

func (f *fakeRewriter) Rewrite(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.out, f.err
}

type fakeLocker struct {
	held bool
}

func (f *fakeLocker) AcquireLock(context.Context, string, time.Duration) (bool, error) {
	return !f.held, nil
}

func (f *fakeLocker) ReleaseLock(context.Context, string) {}

type runnerFixture struct {
	accounts  *fakeAccounts
	schedules *fakeSchedules
	templates *fakeTemplates
	outcomes  *fakeOutcomes
	publisher *fakePublisher
}

func dueSchedule(id, accountID string, mode domainSchedule.Mode) domainSchedule.Schedule {
	return domainSchedule.Schedule{
		ID:              id,
		AccountID:       accountID,
		Mode:            mode,
		IntervalMinutes: 60,
		Active:          true,
		NextRun:         testNow.Add(-time.Minute),
	}
}

func newTestRunner(t *testing.T, fx runnerFixture, rewriter Rewriter, locker RunLocker) *serviceRunner {
	t.Helper()

	svc := NewRunnerService(RunnerDeps{
		Accounts:       fx.accounts,
		Schedules:      fx.schedules,
		Templates:      fx.templates,
		Outcomes:       fx.outcomes,
		Publisher:      fx.publisher,
		Rewriter:       rewriter,
		Locker:         locker,
		BatchSize:      10,
		ClaimWindow:    2 * time.Minute,
		UTCOffsetHours: 9,
	}).(*serviceRunner)

	svc.now = func() time.Time { return testNow }
	svc.jitter = func() time.Duration { return 7 * time.Second }
	svc.resolver.now = svc.now
	return svc
}

func defaultFixture(due ...domainSchedule.Schedule) runnerFixture {
	return runnerFixture{
		accounts: &fakeAccounts{accounts: map[string]domainAccount.Account{
			"acct-1": {ID: "acct-1", AccessToken: "token-1", Enabled: true},
		}},
		schedules: newFakeSchedules(due...),
		templates: &fakeTemplates{
			pickNext: "tpl-1",
			templates: map[string]domainTemplate.Template{
				"tpl-1": {ID: "tpl-1", AccountID: "acct-1", Body: "hello world"},
			},
		},
		outcomes:  &fakeOutcomes{},
		publisher: &fakePublisher{result: domainRunner.PublishResult{PostID: "post-1"}},
	}
}

func TestRunDuePublishesAndAdvances(t *testing.T) {
	fx := defaultFixture(dueSchedule("sch-1", "acct-1", domainSchedule.ModeTemplate))
	svc := newTestRunner(t, fx, nil, nil)

	summary, err := svc.RunDue(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Ran)
	require.True(t, summary.Results[0].OK)
	require.Equal(t, "post-1", summary.Results[0].PostID)

	require.Len(t, fx.publisher.calls, 1)
	require.Equal(t, "token-1", fx.publisher.calls[0].Token)
	require.Equal(t, "hello world", fx.publisher.calls[0].Text)

	require.Len(t, fx.outcomes.records, 1)
	rec := fx.outcomes.records[0]
	require.Equal(t, domainOutcome.ActionPost, rec.Action)
	require.True(t, rec.OK)

	adv, ok := fx.schedules.advanced["sch-1"]
	require.True(t, ok)
	require.Equal(t, testNow, adv.LastRun)
	require.Equal(t, testNow.Add(60*time.Minute+7*time.Second), adv.NextRun)
}

func TestRunDueDryRunSkipsPlatformButAdvances(t *testing.T) {
	fx := defaultFixture(dueSchedule("sch-1", "acct-1", domainSchedule.ModeTemplate))
	svc := newTestRunner(t, fx, nil, nil)

	summary, err := svc.RunDue(context.Background(), true)
	require.NoError(t, err)
	require.True(t, summary.Results[0].OK)
	require.True(t, summary.Results[0].Dry)

	require.Empty(t, fx.publisher.calls)

	require.Len(t, fx.outcomes.records, 1)
	var result map[string]bool
	require.NoError(t, json.Unmarshal(fx.outcomes.records[0].Result, &result))
	require.True(t, result["dry"])

	require.Contains(t, fx.schedules.advanced, "sch-1")
}

func TestRunDueDisabledAccountSkipsBeforeResolver(t *testing.T) {
	fx := defaultFixture(dueSchedule("sch-1", "acct-gone", domainSchedule.ModeTemplate))
	svc := newTestRunner(t, fx, nil, nil)

	summary, err := svc.RunDue(context.Background(), false)
	require.NoError(t, err)
	require.True(t, summary.Results[0].OK)
	require.Equal(t, domainOutcome.ReasonAccountUnavailable, summary.Results[0].Reason)

	// Neither the template rotation nor the platform is touched.
	require.Zero(t, fx.templates.pickCalls)
	require.Empty(t, fx.publisher.calls)

	require.Len(t, fx.outcomes.records, 1)
	require.Equal(t, domainOutcome.ActionSkip, fx.outcomes.records[0].Action)
	require.True(t, fx.outcomes.records[0].OK)

	// A dead account must not leave the schedule re-triggering forever.
	require.Contains(t, fx.schedules.advanced, "sch-1")
}

func TestRunDueNoTemplateSkips(t *testing.T) {
	fx := defaultFixture(dueSchedule("sch-1", "acct-1", domainSchedule.ModeTemplate))
	fx.templates.pickNext = ""
	svc := newTestRunner(t, fx, nil, nil)

	summary, err := svc.RunDue(context.Background(), false)
	require.NoError(t, err)
	require.True(t, summary.Results[0].OK)
	require.Equal(t, domainOutcome.ReasonTemplateNotFound, summary.Results[0].Reason)
	require.Empty(t, fx.publisher.calls)
	require.Contains(t, fx.schedules.advanced, "sch-1")
}

func TestRunDueOutOfWindowSkips(t *testing.T) {
	fx := defaultFixture(dueSchedule("sch-1", "acct-1", domainSchedule.ModeTemplate))
	// testNow is 12:00 UTC = 21:00 at UTC+9; the window has long closed.
	fx.templates.templates["tpl-1"] = domainTemplate.Template{
		ID: "tpl-1", AccountID: "acct-1", Body: "morning post",
		TimeStart: "06:00", TimeEnd: "09:00",
	}
	svc := newTestRunner(t, fx, nil, nil)

	summary, err := svc.RunDue(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, domainOutcome.ReasonOutOfTimeWindow, summary.Results[0].Reason)
	require.Empty(t, fx.publisher.calls)
	require.Contains(t, fx.schedules.advanced, "sch-1")
}

func TestRunDueFailureIsolation(t *testing.T) {
	fx := defaultFixture(
		dueSchedule("sch-bad", "acct-bad", domainSchedule.ModeTemplate),
		dueSchedule("sch-good", "acct-1", domainSchedule.ModeTemplate),
	)
	fx.accounts.accounts["acct-bad"] = domainAccount.Account{ID: "acct-bad", AccessToken: "token-bad", Enabled: true}
	fx.publisher.errFor = map[string]error{"token-bad": errors.New("upstream exploded")}
	svc := newTestRunner(t, fx, nil, nil)

	summary, err := svc.RunDue(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Ran)

	require.False(t, summary.Results[0].OK)
	require.Contains(t, summary.Results[0].Error, "upstream exploded")
	require.True(t, summary.Results[1].OK)

	// Both schedules advanced, both outcomes written in batch order.
	require.Contains(t, fx.schedules.advanced, "sch-bad")
	require.Contains(t, fx.schedules.advanced, "sch-good")
	require.Len(t, fx.outcomes.records, 2)
	require.False(t, fx.outcomes.records[0].OK)
	require.True(t, fx.outcomes.records[1].OK)
}

func TestRunDueAdvanceNeverShrinksInterval(t *testing.T) {
	fx := defaultFixture(dueSchedule("sch-1", "acct-1", domainSchedule.ModeTemplate))
	svc := newTestRunner(t, fx, nil, nil)

	_, err := svc.RunDue(context.Background(), false)
	require.NoError(t, err)

	adv := fx.schedules.advanced["sch-1"]
	require.GreaterOrEqual(t, adv.NextRun.Sub(adv.LastRun), 60*time.Minute)
}

func TestRunDueClaimMissLeavesScheduleAlone(t *testing.T) {
	fx := defaultFixture(dueSchedule("sch-1", "acct-1", domainSchedule.ModeTemplate))
	fx.schedules.denyClaim["sch-1"] = true
	svc := newTestRunner(t, fx, nil, nil)

	summary, err := svc.RunDue(context.Background(), false)
	require.NoError(t, err)
	require.True(t, summary.Results[0].OK)
	require.Equal(t, reasonAlreadyClaimed, summary.Results[0].Reason)

	// The claiming invocation owns advancement and auditing.
	require.Empty(t, fx.outcomes.records)
	require.Empty(t, fx.schedules.advanced)
	require.Empty(t, fx.publisher.calls)
}

func TestRunDueLockHeldReturnsErrRunInProgress(t *testing.T) {
	fx := defaultFixture(dueSchedule("sch-1", "acct-1", domainSchedule.ModeTemplate))
	svc := newTestRunner(t, fx, nil, &fakeLocker{held: true})

	_, err := svc.RunDue(context.Background(), false)
	require.ErrorIs(t, err, domainRunner.ErrRunInProgress)
	require.Empty(t, fx.publisher.calls)
	require.Empty(t, fx.schedules.advanced)
}

func TestRunDueNotifiesOutcomes(t *testing.T) {
	fx := defaultFixture(dueSchedule("sch-1", "acct-1", domainSchedule.ModeTemplate))
	var notified []domainOutcome.Record
	svc := NewRunnerService(RunnerDeps{
		Accounts:       fx.accounts,
		Schedules:      fx.schedules,
		Templates:      fx.templates,
		Outcomes:       fx.outcomes,
		Publisher:      fx.publisher,
		Notify:         func(rec domainOutcome.Record) { notified = append(notified, rec) },
		BatchSize:      10,
		ClaimWindow:    2 * time.Minute,
		UTCOffsetHours: 9,
	}).(*serviceRunner)
	svc.now = func() time.Time { return testNow }
	svc.jitter = func() time.Duration { return 0 }
	svc.resolver.now = svc.now

	_, err := svc.RunDue(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, notified, 1)
	require.Equal(t, domainOutcome.ActionPost, notified[0].Action)
}
