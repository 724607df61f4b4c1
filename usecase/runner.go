package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainOutcome "github.com/ymzk/threadpilot/domains/outcome"
	domainRunner "github.com/ymzk/threadpilot/domains/runner"
	domainSchedule "github.com/ymzk/threadpilot/domains/schedule"
	"github.com/ymzk/threadpilot/repository"
)

const (
	runLockName = "runner"
	runLockTTL  = 55 * time.Second

	// Jitter added to every advanced next_run so schedules sharing an
	// interval drift apart instead of firing in lockstep.
	maxAdvanceJitter = 30 * time.Second

	// reasonAlreadyClaimed marks schedules another invocation claimed
	// between our due query and our claim attempt.
	reasonAlreadyClaimed = "already_claimed"
)

// RunLocker serializes coordinator invocations across processes. Optional;
// without one the conditional claim still prevents double-publishing.
type RunLocker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string)
}

// RunnerDeps wires the coordinator. Rewriter, Locker and Notify may be nil.
type RunnerDeps struct {
	Accounts  repository.IAccountStore
	Schedules repository.IScheduleStore
	Templates repository.ITemplateStore
	Outcomes  repository.IOutcomeStore
	Publisher Publisher
	Rewriter  Rewriter
	Locker    RunLocker
	// Notify receives every appended outcome record, e.g. for the
	// websocket feed.
	Notify func(domainOutcome.Record)

	BatchSize      int
	ClaimWindow    time.Duration
	UTCOffsetHours int
}

type serviceRunner struct {
	accounts  repository.IAccountStore
	schedules repository.IScheduleStore
	outcomes  repository.IOutcomeStore
	resolver  *contentResolver
	publisher Publisher
	locker    RunLocker
	notify    func(domainOutcome.Record)

	batchSize   int
	claimWindow time.Duration

	// Test seams; production keeps the defaults.
	now    func() time.Time
	jitter func() time.Duration
}

func NewRunnerService(deps RunnerDeps) domainRunner.IRunnerUsecase {
	return &serviceRunner{
		accounts:    deps.Accounts,
		schedules:   deps.Schedules,
		outcomes:    deps.Outcomes,
		resolver:    newContentResolver(deps.Templates, deps.Rewriter, deps.UTCOffsetHours),
		publisher:   deps.Publisher,
		locker:      deps.Locker,
		notify:      deps.Notify,
		batchSize:   deps.BatchSize,
		claimWindow: deps.ClaimWindow,
		now:         time.Now,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxAdvanceJitter)))
		},
	}
}

// RunDue processes the current batch of due schedules strictly in order,
// earliest next_run first. A failing schedule is recorded and the loop
// continues; only the due query itself is batch-fatal.
func (s *serviceRunner) RunDue(ctx context.Context, dryRun bool) (domainRunner.RunSummary, error) {
	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ctx, runLockName, runLockTTL)
		if err != nil {
			logrus.WithError(err).Warn("[RUNNER] Run lock unavailable, relying on schedule claims")
		} else if !acquired {
			return domainRunner.RunSummary{}, domainRunner.ErrRunInProgress
		} else {
			defer s.locker.ReleaseLock(ctx, runLockName)
		}
	}

	due, err := s.schedules.Due(ctx, s.now(), s.batchSize)
	if err != nil {
		return domainRunner.RunSummary{}, fmt.Errorf("select due schedules: %w", err)
	}

	summary := domainRunner.RunSummary{Ran: len(due)}
	for _, sch := range due {
		summary.Results = append(summary.Results, s.processSchedule(ctx, sch, dryRun))
	}

	logrus.WithFields(logrus.Fields{
		"ran": summary.Ran,
		"dry": dryRun,
	}).Info("[RUNNER] Batch completed")
	return summary, nil
}

func (s *serviceRunner) processSchedule(ctx context.Context, sch domainSchedule.Schedule, dryRun bool) (res domainRunner.RunResult) {
	res = domainRunner.RunResult{ScheduleID: sch.ID, Dry: dryRun}

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[RUNNER] Recovered from panic while processing schedule %s: %v", sch.ID, r)
			msg := fmt.Sprintf("panic: %v", r)
			s.appendOutcome(ctx, sch.AccountID, domainOutcome.ActionPost,
				domainOutcome.Payload{ScheduleID: sch.ID}, errorResult(msg), false)
			s.advance(ctx, sch)
			res = domainRunner.RunResult{ScheduleID: sch.ID, Dry: dryRun, Error: msg}
		}
	}()

	claimed, err := s.schedules.Claim(ctx, sch.ID, sch.NextRun, s.now().Add(s.claimWindow))
	if err != nil {
		res.Error = fmt.Sprintf("claim schedule: %v", err)
		return res
	}
	if !claimed {
		// Another invocation owns this schedule; it advances and logs it.
		res.OK = true
		res.Reason = reasonAlreadyClaimed
		return res
	}

	acct, err := s.accounts.GetEnabled(ctx, sch.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			payload := domainOutcome.Payload{
				ScheduleID: sch.ID,
				Reason:     domainOutcome.ReasonAccountUnavailable,
			}
			s.appendOutcome(ctx, sch.AccountID, domainOutcome.ActionSkip, payload, skipResult(domainOutcome.ReasonAccountUnavailable), true)
			s.advance(ctx, sch)
			res.OK = true
			res.Reason = domainOutcome.ReasonAccountUnavailable
			return res
		}
		return s.failSchedule(ctx, sch, res, domainOutcome.Payload{ScheduleID: sch.ID}, fmt.Errorf("resolve account: %w", err))
	}

	content, err := s.resolver.Resolve(ctx, acct.ID, sch.Mode)
	payload := domainOutcome.Payload{
		Text:         content.Text,
		MediaURLs:    content.MediaURLs,
		ScheduleID:   sch.ID,
		MinutesOfDay: content.MinutesOfDay,
	}
	if err != nil {
		return s.failSchedule(ctx, sch, res, payload, fmt.Errorf("resolve content: %w", err))
	}
	if content.SkipReason != "" {
		payload.Reason = content.SkipReason
		s.appendOutcome(ctx, acct.ID, domainOutcome.ActionSkip, payload, skipResult(content.SkipReason), true)
		s.advance(ctx, sch)
		res.OK = true
		res.Reason = content.SkipReason
		return res
	}

	if dryRun {
		s.appendOutcome(ctx, acct.ID, domainOutcome.ActionPost, payload, map[string]bool{"dry": true}, true)
		s.advance(ctx, sch)
		res.OK = true
		return res
	}

	published, err := s.publisher.Publish(ctx, acct.AccessToken, content.Text, content.MediaURLs)
	if err != nil {
		return s.failSchedule(ctx, sch, res, payload, fmt.Errorf("publish: %w", err))
	}

	s.appendOutcome(ctx, acct.ID, domainOutcome.ActionPost, payload, published, true)
	s.advance(ctx, sch)
	res.OK = true
	res.PostID = published.PostID
	return res
}

// failSchedule records a failed attempt, still advances the schedule and
// folds the error into the per-schedule result.
func (s *serviceRunner) failSchedule(ctx context.Context, sch domainSchedule.Schedule, res domainRunner.RunResult, payload domainOutcome.Payload, err error) domainRunner.RunResult {
	logrus.WithError(err).WithField("schedule", sch.ID).Error("[RUNNER] Schedule processing failed")
	s.appendOutcome(ctx, sch.AccountID, domainOutcome.ActionPost, payload, errorResult(err.Error()), false)
	s.advance(ctx, sch)
	res.Error = err.Error()
	return res
}

// advance pushes the schedule forward unconditionally so no outcome can
// leave it stuck or rapidly re-triggering.
func (s *serviceRunner) advance(ctx context.Context, sch domainSchedule.Schedule) {
	now := s.now()
	next := now.Add(time.Duration(sch.IntervalMinutes)*time.Minute + s.jitter())
	if err := s.schedules.Advance(ctx, sch.ID, now, next); err != nil {
		logrus.WithError(err).WithField("schedule", sch.ID).Error("[RUNNER] Failed to advance schedule")
	}
}

// appendOutcome durably writes one audit record before the batch loop moves
// on. Append failure is logged, never propagated.
func (s *serviceRunner) appendOutcome(ctx context.Context, accountID string, action domainOutcome.Action, payload domainOutcome.Payload, result any, ok bool) {
	payloadJSON, _ := json.Marshal(payload)
	resultJSON, _ := json.Marshal(result)

	rec := domainOutcome.Record{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Action:    action,
		Payload:   payloadJSON,
		Result:    resultJSON,
		OK:        ok,
		CreatedAt: s.now(),
	}
	if err := s.outcomes.Append(ctx, rec); err != nil {
		logrus.WithError(err).Error("[RUNNER] Failed to append outcome record")
		return
	}
	if s.notify != nil {
		s.notify(rec)
	}
}

func errorResult(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func skipResult(reason string) map[string]string {
	return map[string]string{"skipped": reason}
}
