package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainSchedule "github.com/ymzk/threadpilot/domains/schedule"
	"github.com/ymzk/threadpilot/repository"
	"github.com/ymzk/threadpilot/validations"
)

type serviceSchedule struct {
	schedules repository.IScheduleStore
}

func NewScheduleService(schedules repository.IScheduleStore) domainSchedule.IScheduleUsecase {
	return &serviceSchedule{schedules: schedules}
}

// Create registers a recurring schedule. NextRun starts at now so the first
// due batch picks it up immediately.
func (s *serviceSchedule) Create(ctx context.Context, req domainSchedule.CreateScheduleRequest) (domainSchedule.Schedule, error) {
	if err := validations.ValidateCreateSchedule(ctx, req); err != nil {
		return domainSchedule.Schedule{}, err
	}

	now := time.Now()
	sch := domainSchedule.Schedule{
		ID:              uuid.NewString(),
		AccountID:       req.AccountID,
		Mode:            domainSchedule.Mode(req.Mode),
		IntervalMinutes: req.IntervalMinutes,
		Active:          true,
		NextRun:         now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.schedules.Create(ctx, sch); err != nil {
		return domainSchedule.Schedule{}, err
	}

	logrus.WithFields(logrus.Fields{
		"schedule": sch.ID,
		"account":  sch.AccountID,
		"interval": sch.IntervalMinutes,
	}).Info("[SCHEDULE] Created")
	return sch, nil
}

func (s *serviceSchedule) List(ctx context.Context) ([]domainSchedule.Schedule, error) {
	return s.schedules.List(ctx)
}

func (s *serviceSchedule) SetActive(ctx context.Context, id string, active bool) error {
	return s.schedules.SetActive(ctx, id, active)
}

func (s *serviceSchedule) Delete(ctx context.Context, id string) error {
	return s.schedules.Delete(ctx, id)
}
