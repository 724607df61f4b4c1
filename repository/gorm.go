package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	domainAccount "github.com/ymzk/threadpilot/domains/account"
	domainOutcome "github.com/ymzk/threadpilot/domains/outcome"
	domainSchedule "github.com/ymzk/threadpilot/domains/schedule"
	domainTemplate "github.com/ymzk/threadpilot/domains/template"
	"github.com/ymzk/threadpilot/pkg/crypto"
)

// --- Persistence Models ---

type accountModel struct {
	ID            string         `gorm:"primaryKey;column:id"`
	ThreadsUserID string         `gorm:"column:threads_user_id;uniqueIndex"`
	AccessToken   string         `gorm:"column:access_token;not null"`
	ProxyURL      sql.NullString `gorm:"column:proxy_url"`
	Enabled       bool           `gorm:"column:enabled;default:true"`
	CreatedAt     time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;not null;index"`
}

func (accountModel) TableName() string { return "accounts" }

type scheduleModel struct {
	ID              string    `gorm:"primaryKey;column:id"`
	AccountID       string    `gorm:"column:account_id;not null;index"`
	Mode            string    `gorm:"column:mode;default:'TEMPLATE'"`
	IntervalMinutes int       `gorm:"column:interval_minutes;not null"`
	Active          bool      `gorm:"column:active;default:true;index"`
	LastRun         time.Time `gorm:"column:last_run"`
	NextRun         time.Time `gorm:"column:next_run;index"`
	CreatedAt       time.Time `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null"`
}

func (scheduleModel) TableName() string { return "schedules" }

type templateModel struct {
	ID        string         `gorm:"primaryKey;column:id"`
	AccountID string         `gorm:"column:account_id;not null;index"`
	Body      string         `gorm:"column:body"`
	MediaURL  sql.NullString `gorm:"column:media_url"`
	TimeStart sql.NullString `gorm:"column:time_start"`
	TimeEnd   sql.NullString `gorm:"column:time_end"`
	Used      bool           `gorm:"column:used;default:false;index"`
	UsedAt    time.Time      `gorm:"column:used_at"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
}

func (templateModel) TableName() string { return "templates" }

type logModel struct {
	ID        string    `gorm:"primaryKey;column:id"`
	AccountID string    `gorm:"column:account_id;not null;index"`
	Action    string    `gorm:"column:action;not null"`
	Payload   string    `gorm:"column:payload;type:text"`
	Result    string    `gorm:"column:result;type:text"`
	OK        bool      `gorm:"column:ok"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index"`
}

func (logModel) TableName() string { return "logs" }

// --- Repository Implementation ---

// GormRepository implements every store interface on one gorm handle so
// sqlite and postgres deployments share a single code path.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&accountModel{},
		&scheduleModel{},
		&templateModel{},
		&logModel{},
	)
}

// --- Accounts ---

func toAccountDomain(m accountModel) (domainAccount.Account, error) {
	token, err := crypto.Decrypt(m.AccessToken)
	if err != nil {
		return domainAccount.Account{}, err
	}
	return domainAccount.Account{
		ID:            m.ID,
		ThreadsUserID: m.ThreadsUserID,
		AccessToken:   token,
		ProxyURL:      m.ProxyURL.String,
		Enabled:       m.Enabled,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func (r *GormRepository) GetEnabled(ctx context.Context, id string) (domainAccount.Account, error) {
	var m accountModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND enabled = ?", id, true).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainAccount.Account{}, ErrNotFound
	}
	if err != nil {
		return domainAccount.Account{}, err
	}
	return toAccountDomain(m)
}

func (r *GormRepository) MostRecentEnabled(ctx context.Context) (domainAccount.Account, error) {
	var m accountModel
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("updated_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainAccount.Account{}, ErrNotFound
	}
	if err != nil {
		return domainAccount.Account{}, err
	}
	return toAccountDomain(m)
}

func (r *GormRepository) Upsert(ctx context.Context, acct domainAccount.Account) (domainAccount.Account, error) {
	sealed, err := crypto.Encrypt(acct.AccessToken)
	if err != nil {
		return domainAccount.Account{}, err
	}

	now := time.Now().UTC()
	var existing accountModel
	lookupErr := r.db.WithContext(ctx).
		Where("threads_user_id = ?", acct.ThreadsUserID).
		First(&existing).Error

	switch {
	case lookupErr == nil:
		existing.AccessToken = sealed
		existing.Enabled = true
		existing.UpdatedAt = now
		if acct.ProxyURL != "" {
			existing.ProxyURL = sql.NullString{String: acct.ProxyURL, Valid: true}
		}
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return domainAccount.Account{}, err
		}
		return toAccountDomain(existing)
	case errors.Is(lookupErr, gorm.ErrRecordNotFound):
		m := accountModel{
			ID:            acct.ID,
			ThreadsUserID: acct.ThreadsUserID,
			AccessToken:   sealed,
			Enabled:       true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if acct.ProxyURL != "" {
			m.ProxyURL = sql.NullString{String: acct.ProxyURL, Valid: true}
		}
		if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
			return domainAccount.Account{}, err
		}
		return toAccountDomain(m)
	default:
		return domainAccount.Account{}, lookupErr
	}
}

func (r *GormRepository) List(ctx context.Context) ([]domainAccount.Account, error) {
	var rows []accountModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]domainAccount.Account, 0, len(rows))
	for _, m := range rows {
		acct, err := toAccountDomain(m)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

func (r *GormRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res := r.db.WithContext(ctx).Model(&accountModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"enabled": enabled, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Schedules ---

func toScheduleDomain(m scheduleModel) domainSchedule.Schedule {
	return domainSchedule.Schedule{
		ID:              m.ID,
		AccountID:       m.AccountID,
		Mode:            domainSchedule.Mode(m.Mode),
		IntervalMinutes: m.IntervalMinutes,
		Active:          m.Active,
		LastRun:         m.LastRun,
		NextRun:         m.NextRun,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (r *GormRepository) Due(ctx context.Context, now time.Time, limit int) ([]domainSchedule.Schedule, error) {
	var rows []scheduleModel
	err := r.db.WithContext(ctx).
		Where("active = ? AND next_run <= ?", true, now).
		Order("next_run ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	schedules := make([]domainSchedule.Schedule, 0, len(rows))
	for _, m := range rows {
		schedules = append(schedules, toScheduleDomain(m))
	}
	return schedules, nil
}

func (r *GormRepository) Claim(ctx context.Context, id string, expectedNextRun, holdUntil time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&scheduleModel{}).
		Where("id = ? AND next_run = ?", id, expectedNextRun).
		Update("next_run", holdUntil)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepository) Advance(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	return r.db.WithContext(ctx).Model(&scheduleModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_run":   lastRun,
			"next_run":   nextRun,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *GormRepository) Create(ctx context.Context, sch domainSchedule.Schedule) error {
	m := scheduleModel{
		ID:              sch.ID,
		AccountID:       sch.AccountID,
		Mode:            string(sch.Mode),
		IntervalMinutes: sch.IntervalMinutes,
		Active:          sch.Active,
		LastRun:         sch.LastRun,
		NextRun:         sch.NextRun,
		CreatedAt:       sch.CreatedAt,
		UpdatedAt:       sch.UpdatedAt,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *GormRepository) ListSchedules(ctx context.Context) ([]domainSchedule.Schedule, error) {
	var rows []scheduleModel
	if err := r.db.WithContext(ctx).Order("next_run ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	schedules := make([]domainSchedule.Schedule, 0, len(rows))
	for _, m := range rows {
		schedules = append(schedules, toScheduleDomain(m))
	}
	return schedules, nil
}

func (r *GormRepository) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).Model(&scheduleModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&scheduleModel{}, "id = ?", id).Error
}

// --- Templates ---

func toTemplateDomain(m templateModel) domainTemplate.Template {
	return domainTemplate.Template{
		ID:        m.ID,
		AccountID: m.AccountID,
		Body:      m.Body,
		MediaURL:  m.MediaURL.String,
		TimeStart: m.TimeStart.String,
		TimeEnd:   m.TimeEnd.String,
		Used:      m.Used,
		UsedAt:    m.UsedAt,
		CreatedAt: m.CreatedAt,
	}
}

func (r *GormRepository) PickNext(ctx context.Context, accountID string) (string, error) {
	var picked string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tpl templateModel
		err := tx.Where("account_id = ? AND used = ?", accountID, false).
			Order("created_at ASC").
			First(&tpl).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Pool exhausted: restart the rotation.
			var total int64
			if err := tx.Model(&templateModel{}).Where("account_id = ?", accountID).Count(&total).Error; err != nil {
				return err
			}
			if total == 0 {
				return nil
			}
			if err := tx.Model(&templateModel{}).Where("account_id = ?", accountID).Update("used", false).Error; err != nil {
				return err
			}
			if err := tx.Where("account_id = ? AND used = ?", accountID, false).
				Order("created_at ASC").
				First(&tpl).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := tx.Model(&templateModel{}).Where("id = ?", tpl.ID).
			Updates(map[string]any{"used": true, "used_at": time.Now().UTC()}).Error; err != nil {
			return err
		}
		picked = tpl.ID
		return nil
	})
	return picked, err
}

func (r *GormRepository) GetByID(ctx context.Context, id string) (domainTemplate.Template, error) {
	var m templateModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainTemplate.Template{}, ErrNotFound
	}
	if err != nil {
		return domainTemplate.Template{}, err
	}
	return toTemplateDomain(m), nil
}

func (r *GormRepository) CreateTemplate(ctx context.Context, tpl domainTemplate.Template) error {
	m := templateModel{
		ID:        tpl.ID,
		AccountID: tpl.AccountID,
		Body:      tpl.Body,
		CreatedAt: tpl.CreatedAt,
	}
	if tpl.MediaURL != "" {
		m.MediaURL = sql.NullString{String: tpl.MediaURL, Valid: true}
	}
	if tpl.TimeStart != "" {
		m.TimeStart = sql.NullString{String: tpl.TimeStart, Valid: true}
	}
	if tpl.TimeEnd != "" {
		m.TimeEnd = sql.NullString{String: tpl.TimeEnd, Valid: true}
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *GormRepository) ListTemplates(ctx context.Context, accountID string) ([]domainTemplate.Template, error) {
	q := r.db.WithContext(ctx).Order("created_at ASC")
	if accountID != "" {
		q = q.Where("account_id = ?", accountID)
	}
	var rows []templateModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	templates := make([]domainTemplate.Template, 0, len(rows))
	for _, m := range rows {
		templates = append(templates, toTemplateDomain(m))
	}
	return templates, nil
}

func (r *GormRepository) DeleteTemplate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&templateModel{}, "id = ?", id).Error
}

// --- Outcome log ---

func (r *GormRepository) Append(ctx context.Context, rec domainOutcome.Record) error {
	m := logModel{
		ID:        rec.ID,
		AccountID: rec.AccountID,
		Action:    string(rec.Action),
		Payload:   string(rec.Payload),
		Result:    string(rec.Result),
		OK:        rec.OK,
		CreatedAt: rec.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *GormRepository) ListRecent(ctx context.Context, limit int) ([]domainOutcome.Record, error) {
	var rows []logModel
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]domainOutcome.Record, 0, len(rows))
	for _, m := range rows {
		records = append(records, domainOutcome.Record{
			ID:        m.ID,
			AccountID: m.AccountID,
			Action:    domainOutcome.Action(m.Action),
			Payload:   json.RawMessage(m.Payload),
			Result:    json.RawMessage(m.Result),
			OK:        m.OK,
			CreatedAt: m.CreatedAt,
		})
	}
	return records, nil
}

// --- Store adapters ---

// The admin-facing interfaces name List/Create/Delete per entity while the
// single gorm struct needs distinct method names. These thin views pin the
// right methods to the right interface.

type templateStoreView struct{ *GormRepository }

func (v templateStoreView) Create(ctx context.Context, tpl domainTemplate.Template) error {
	return v.CreateTemplate(ctx, tpl)
}

func (v templateStoreView) List(ctx context.Context, accountID string) ([]domainTemplate.Template, error) {
	return v.ListTemplates(ctx, accountID)
}

func (v templateStoreView) Delete(ctx context.Context, id string) error {
	return v.DeleteTemplate(ctx, id)
}

// Templates exposes the repository as an ITemplateStore.
func (r *GormRepository) Templates() ITemplateStore {
	return templateStoreView{r}
}

type scheduleStoreView struct{ *GormRepository }

func (v scheduleStoreView) List(ctx context.Context) ([]domainSchedule.Schedule, error) {
	return v.ListSchedules(ctx)
}

// Schedules exposes the repository as an IScheduleStore.
func (r *GormRepository) Schedules() IScheduleStore {
	return scheduleStoreView{r}
}

// IsPostgresURI reports whether uri addresses postgres; anything else is
// treated as a sqlite DSN.
func IsPostgresURI(uri string) bool {
	return strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://")
}
