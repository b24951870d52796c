package meals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/659954771/meal-app/internal/people"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrMissingIdentity indicates the session carries no usable identity.
	ErrMissingIdentity = errors.New("meals: identity required")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingSchedule   = errors.New("schedule is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew       = "meals.service.new"
	opRecordAction     = "meals.record_action"
	opStatus           = "meals.status"
	opListDay          = "meals.list_day"
	opListRange        = "meals.list_range"
	opAudit            = "meals.audit"
	opImport           = "meals.import_actions"
	fieldPhone         = "phone"
	fieldDate          = "date"
	fieldMeal          = "meal_type"
	queryKey           = "date = ? AND phone = ? AND meal_type = ?"
	queryLive          = "invalidated = ?"
	orderRecorded      = "recorded_at ASC, action_id ASC"
	reasonMissingDB    = "missing_database"
	reasonMissingIDs   = "missing_id_provider"
	reasonMissingSched = "missing_schedule"
	reasonIdentity     = "missing_identity"
	reasonMeal         = "invalid_meal_type"
	reasonAction       = "invalid_action"
	reasonSlot         = "slot_not_allowed"
	reasonDeadline     = "deadline_passed"
	reasonIDFailed     = "id_generation_failed"
	reasonStore        = "store_failed"
	reasonQuery        = "query_failed"
)

// ServiceError carries a stable "operation.reason" code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine readable error code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: operation + "." + reason, err: cause}
}

// Recorder receives counters about action log activity.
type Recorder interface {
	ObserveAction(meal, action string)
	ObserveRejection(reason string)
	ObserveStoreError(operation string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAction(string, string) {}
func (noopRecorder) ObserveRejection(string)      {}
func (noopRecorder) ObserveStoreError(string)     {}

// Change describes an accepted mutation of the action log.
type Change struct {
	Date     string
	Identity people.Identity
	Meal     MealType
	Action   Action
	Status   Status
	At       time.Time
}

// ServiceConfig describes the dependencies of the action log.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Schedule   *Schedule
	Logger     *zap.Logger
	Recorder   Recorder
	OnChange   func(Change)
}

// Service owns the meal action log. All mutations are serialized through a single writer so
// the keyed delete-then-insert never loses an update to a concurrent writer.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	schedule   *Schedule
	logger     *zap.Logger
	recorder   Recorder
	onChange   func(Change)
	writeMu    sync.Mutex
}

// NewService constructs the action log service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDB, errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, reasonMissingIDs, errMissingIDProvider)
	}
	if cfg.Schedule == nil {
		return nil, newServiceError(opServiceNew, reasonMissingSched, errMissingSchedule)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	var recorder Recorder = noopRecorder{}
	if cfg.Recorder != nil {
		recorder = cfg.Recorder
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		schedule:   cfg.Schedule,
		logger:     logger,
		recorder:   recorder,
		onChange:   cfg.OnChange,
	}, nil
}

// Schedule exposes the deadline and slot rules the service enforces.
func (s *Service) Schedule() *Schedule {
	return s.schedule
}

// RecordAction replaces the caller's action for (date, meal) and returns the resolved status.
// Reset removes the row so the default policy applies again.
func (s *Service) RecordAction(ctx context.Context, session Session, meal MealType, date time.Time, action Action) (Status, error) {
	if s.db == nil {
		return Status{}, newServiceError(opRecordAction, reasonMissingDB, errMissingDatabase)
	}
	identity := people.NormalizeIdentity(session.Identity.String())
	if identity.IsZero() {
		return Status{}, newServiceError(opRecordAction, reasonIdentity, ErrMissingIdentity)
	}
	if meal != MealLunch && meal != MealDinner {
		return Status{}, newServiceError(opRecordAction, reasonMeal, ErrInvalidMealType)
	}
	switch action.Kind {
	case ActionBooked, ActionCanceled, ActionReset:
	case ActionLate:
		if !s.schedule.AllowsSlot(meal, action.Slot) {
			s.recorder.ObserveRejection(reasonSlot)
			return Status{}, newServiceError(opRecordAction, reasonSlot, ErrSlotNotAllowed)
		}
	default:
		return Status{}, newServiceError(opRecordAction, reasonAction, ErrInvalidAction)
	}

	now := s.clock()
	day := s.schedule.Today(date)
	if s.schedule.Locked(meal, day, now) {
		s.recorder.ObserveRejection(reasonDeadline)
		return Status{}, newServiceError(opRecordAction, reasonDeadline, ErrDeadlinePassed)
	}

	dateKey := FormatDate(day)
	var row *MealAction
	if action.Stored() {
		actionID, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opRecordAction, reasonIDFailed, err, zap.String(fieldPhone, identity.String()))
			return Status{}, newServiceError(opRecordAction, reasonIDFailed, err)
		}
		local := now.In(s.schedule.Location())
		row = &MealAction{
			ActionID:   actionID,
			Date:       dateKey,
			Phone:      identity.String(),
			Name:       session.Name,
			MealType:   meal.String(),
			Action:     action.Token(),
			Time:       local.Format(recordTimeLayout),
			RecordedAt: now.UnixNano(),
		}
	}

	s.writeMu.Lock()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceKeyed(tx, dateKey, identity, meal, row)
	})
	s.writeMu.Unlock()
	if err != nil {
		s.recorder.ObserveStoreError(opRecordAction)
		s.logError(opRecordAction, reasonStore, err,
			zap.String(fieldPhone, identity.String()),
			zap.String(fieldDate, dateKey),
			zap.String(fieldMeal, meal.String()))
		return Status{}, newServiceError(opRecordAction, reasonStore, err)
	}

	var applied *Action
	if action.Stored() {
		applied = &action
	}
	status := Resolve(applied, IsSunday(day), session.LeaveState)

	s.recorder.ObserveAction(meal.String(), action.Token())
	s.logger.Info("meal action recorded",
		zap.String(fieldPhone, identity.String()),
		zap.String(fieldDate, dateKey),
		zap.String(fieldMeal, meal.String()),
		zap.String("action", action.Token()),
		zap.String("status", status.String()))
	if s.onChange != nil {
		s.onChange(Change{Date: dateKey, Identity: identity, Meal: meal, Action: action, Status: status, At: now})
	}
	return status, nil
}

// replaceKeyed deletes the live row of the key and inserts row when present. Invalidated rows
// of the key are left in place.
func replaceKeyed(tx *gorm.DB, dateKey string, identity people.Identity, meal MealType, row *MealAction) error {
	if err := tx.Where(queryKey, dateKey, identity.String(), meal.String()).
		Where(queryLive, false).
		Delete(&MealAction{}).Error; err != nil {
		return err
	}
	if row == nil {
		return nil
	}
	return tx.Create(row).Error
}

// Status resolves the caller's status for one meal on a date.
func (s *Service) Status(ctx context.Context, session Session, meal MealType, date time.Time) (Status, error) {
	statuses, err := s.DayStatus(ctx, session, date)
	if err != nil {
		return Status{}, err
	}
	return statuses[meal], nil
}

// DayStatus resolves the caller's status for both meals on a date.
func (s *Service) DayStatus(ctx context.Context, session Session, date time.Time) (map[MealType]Status, error) {
	if s.db == nil {
		return nil, newServiceError(opStatus, reasonMissingDB, errMissingDatabase)
	}
	identity := people.NormalizeIdentity(session.Identity.String())
	if identity.IsZero() {
		return nil, newServiceError(opStatus, reasonIdentity, ErrMissingIdentity)
	}
	day := s.schedule.Today(date)
	dateKey := FormatDate(day)

	var rows []MealAction
	if err := s.db.WithContext(ctx).
		Where("date = ? AND phone = ?", dateKey, identity.String()).
		Where(queryLive, false).
		Order(orderRecorded).
		Find(&rows).Error; err != nil {
		s.recorder.ObserveStoreError(opStatus)
		s.logError(opStatus, reasonQuery, err, zap.String(fieldPhone, identity.String()), zap.String(fieldDate, dateKey))
		return nil, newServiceError(opStatus, reasonQuery, err)
	}

	byMeal := make(map[MealType][]MealAction, len(MealTypes))
	for _, row := range rows {
		meal, err := ParseMealType(row.MealType)
		if err != nil {
			continue
		}
		byMeal[meal] = append(byMeal[meal], row)
	}
	statuses := make(map[MealType]Status, len(MealTypes))
	for _, meal := range MealTypes {
		statuses[meal] = ResolveRecords(byMeal[meal], day, session.LeaveState)
	}
	return statuses, nil
}

// ListDay returns the live rows of a single date.
func (s *Service) ListDay(ctx context.Context, date time.Time) ([]MealAction, error) {
	dateKey := FormatDate(s.schedule.Today(date))
	return s.listBetween(ctx, opListDay, dateKey, dateKey)
}

// ListRange returns the live rows between two dates, both inclusive.
func (s *Service) ListRange(ctx context.Context, from, to time.Time) ([]MealAction, error) {
	return s.listBetween(ctx, opListRange, FormatDate(s.schedule.Today(from)), FormatDate(s.schedule.Today(to)))
}

func (s *Service) listBetween(ctx context.Context, operation, from, to string) ([]MealAction, error) {
	if s.db == nil {
		return nil, newServiceError(operation, reasonMissingDB, errMissingDatabase)
	}
	var rows []MealAction
	if err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Where(queryLive, false).
		Order("date ASC, " + orderRecorded).
		Find(&rows).Error; err != nil {
		s.recorder.ObserveStoreError(operation)
		s.logError(operation, reasonQuery, err, zap.String("from", from), zap.String("to", to))
		return nil, newServiceError(operation, reasonQuery, err)
	}
	return rows, nil
}

// AuditQuery filters the raw action log. Empty fields match everything.
type AuditQuery struct {
	Date  string
	Phone string
	Meal  MealType
}

// Audit returns raw rows, including those invalidated by a removal.
func (s *Service) Audit(ctx context.Context, query AuditQuery) ([]MealAction, error) {
	if s.db == nil {
		return nil, newServiceError(opAudit, reasonMissingDB, errMissingDatabase)
	}
	statement := s.db.WithContext(ctx).Model(&MealAction{})
	if query.Date != "" {
		statement = statement.Where("date = ?", query.Date)
	}
	if query.Phone != "" {
		identity := people.NormalizeIdentity(query.Phone)
		if identity.IsZero() {
			return nil, nil
		}
		statement = statement.Where("phone = ?", identity.String())
	}
	if query.Meal != "" {
		statement = statement.Where("meal_type = ?", query.Meal.String())
	}
	var rows []MealAction
	if err := statement.Order("date ASC, " + orderRecorded).Find(&rows).Error; err != nil {
		s.recorder.ObserveStoreError(opAudit)
		s.logError(opAudit, reasonQuery, err)
		return nil, newServiceError(opAudit, reasonQuery, err)
	}
	return rows, nil
}

// InvalidateIdentity marks the history of a removed person. It matches people.RemovalHook.
func (s *Service) InvalidateIdentity(tx *gorm.DB, identity people.Identity) error {
	return tx.Model(&MealAction{}).
		Where("phone = ?", identity.String()).
		Update("invalidated", true).Error
}

// ImportResult summarizes a bulk action import.
type ImportResult struct {
	Applied int
	Skipped int
}

// ImportActions loads legacy rows. Rows sharing a key collapse to the last one in input order
// and replace whatever the log holds for that key. Deadlines are not enforced.
func (s *Service) ImportActions(ctx context.Context, rows []MealAction) (ImportResult, error) {
	if s.db == nil {
		return ImportResult{}, newServiceError(opImport, reasonMissingDB, errMissingDatabase)
	}

	type key struct {
		date  string
		phone string
		meal  MealType
	}
	var result ImportResult
	latest := make(map[key]MealAction, len(rows))
	order := make([]key, 0, len(rows))
	for _, row := range rows {
		identity := people.NormalizeIdentity(row.Phone)
		meal, mealErr := ParseMealType(row.MealType)
		action, actionErr := ParseAction(row.Action)
		date, dateErr := ParseDate(row.Date, s.schedule.Location())
		if identity.IsZero() || mealErr != nil || actionErr != nil || dateErr != nil || !action.Stored() {
			result.Skipped++
			continue
		}
		normalized := MealAction{
			Date:       FormatDate(date),
			Phone:      identity.String(),
			Name:       row.Name,
			MealType:   meal.String(),
			Action:     action.Token(),
			Time:       row.Time,
			RecordedAt: row.RecordedAt,
		}
		if normalized.RecordedAt == 0 {
			normalized.RecordedAt = legacyRecordedAt(normalized.Date, normalized.Time, s.schedule.Location())
		}
		k := key{date: normalized.Date, phone: normalized.Phone, meal: meal}
		if _, seen := latest[k]; seen {
			result.Skipped++
		} else {
			order = append(order, k)
		}
		latest[k] = normalized
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, k := range order {
			row := latest[k]
			actionID, err := s.idProvider.NewID()
			if err != nil {
				return err
			}
			row.ActionID = actionID
			if err := replaceKeyed(tx, k.date, people.Identity(k.phone), k.meal, &row); err != nil {
				return err
			}
			result.Applied++
		}
		return nil
	})
	if err != nil {
		s.recorder.ObserveStoreError(opImport)
		s.logError(opImport, reasonStore, err)
		return ImportResult{}, newServiceError(opImport, reasonStore, err)
	}
	return result, nil
}

func legacyRecordedAt(date, clock string, location *time.Location) int64 {
	parsed, err := time.ParseInLocation(DateLayout+" "+recordTimeLayout, date+" "+clock, location)
	if err != nil {
		parsed, err = time.ParseInLocation(DateLayout, date, location)
		if err != nil {
			return 0
		}
	}
	return parsed.UnixNano()
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	logger := noOpLogger
	if s != nil && s.logger != nil {
		logger = s.logger
	}
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	logger.Error("meals service error", attrs...)
}
