package people

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidIdentity indicates the phone number did not normalize to a usable identity.
	ErrInvalidIdentity = errors.New("people: invalid identity")
	// ErrInvalidName indicates an empty display name.
	ErrInvalidName = errors.New("people: invalid name")
	// ErrPersonExists indicates the identity is already registered.
	ErrPersonExists = errors.New("people: person already exists")
	// ErrNameExists indicates another person already uses the display name.
	ErrNameExists = errors.New("people: name already exists")
	// ErrPersonNotFound indicates no person is registered under the identity.
	ErrPersonNotFound = errors.New("people: person not found")

	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew     = "people.service.new"
	opRegister       = "people.register"
	opLookup         = "people.lookup"
	opList           = "people.list"
	opSetLeaveState  = "people.set_leave_state"
	opRemove         = "people.remove"
	opImport         = "people.import"
	fieldPhone       = "phone"
	queryPhone       = "phone = ?"
	queryNameKey     = "name_key = ?"
	reasonMissingDB  = "missing_database"
	reasonQuery      = "query_failed"
	reasonWrite      = "write_failed"
	reasonNotFound   = "not_found"
	reasonIdentity   = "invalid_identity"
	reasonName       = "invalid_name"
	reasonLeaveState = "invalid_leave_state"
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

// RemovalHook runs inside the removal transaction so dependent records can be invalidated atomically.
type RemovalHook func(tx *gorm.DB, identity Identity) error

// ServiceConfig describes the dependencies of the people registry.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Location *time.Location
	Logger   *zap.Logger
	OnRemove RemovalHook
}

// Service manages the roster of registered people.
type Service struct {
	db       *gorm.DB
	now      func() time.Time
	location *time.Location
	logger   *zap.Logger
	onRemove RemovalHook
}

// NewService constructs the registry.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDB, errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:       cfg.Database,
		now:      clock,
		location: location,
		logger:   logger,
		onRemove: cfg.OnRemove,
	}, nil
}

// Register creates a person for a phone number seen for the first time.
func (s *Service) Register(ctx context.Context, rawPhone, displayName string) (Person, error) {
	if s.db == nil {
		return Person{}, newServiceError(opRegister, reasonMissingDB, errMissingDatabase)
	}
	identity := NormalizeIdentity(rawPhone)
	if identity.IsZero() {
		return Person{}, newServiceError(opRegister, reasonIdentity, ErrInvalidIdentity)
	}
	name := cleanName(displayName)
	if name == "" {
		return Person{}, newServiceError(opRegister, reasonName, ErrInvalidName)
	}

	person := Person{
		Phone:        identity.String(),
		Name:         name,
		NameKey:      normalizeName(name),
		RegisteredOn: s.now().In(s.location).Format(DateLayout),
		Status:       string(LeaveStateActive),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Person{}).Where(queryPhone, person.Phone).Count(&count).Error; err != nil {
			return newServiceError(opRegister, reasonQuery, err)
		}
		if count > 0 {
			return newServiceError(opRegister, "person_exists", ErrPersonExists)
		}
		if err := tx.Model(&Person{}).Where(queryNameKey, person.NameKey).Count(&count).Error; err != nil {
			return newServiceError(opRegister, reasonQuery, err)
		}
		if count > 0 {
			return newServiceError(opRegister, "name_exists", ErrNameExists)
		}
		if err := tx.Create(&person).Error; err != nil {
			return newServiceError(opRegister, reasonWrite, err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrPersonExists) && !errors.Is(err, ErrNameExists) {
			s.logError(opRegister, reasonWrite, err, zap.String(fieldPhone, person.Phone))
		}
		return Person{}, err
	}

	s.logger.Info("person registered", zap.String(fieldPhone, person.Phone))
	return person, nil
}

// Lookup finds a person by a raw phone number. Unusable input is reported as not found.
func (s *Service) Lookup(ctx context.Context, rawPhone string) (Person, bool, error) {
	return s.Get(ctx, NormalizeIdentity(rawPhone))
}

// Get finds a person by canonical identity.
func (s *Service) Get(ctx context.Context, identity Identity) (Person, bool, error) {
	if identity.IsZero() {
		return Person{}, false, nil
	}
	if s.db == nil {
		return Person{}, false, newServiceError(opLookup, reasonMissingDB, errMissingDatabase)
	}
	var person Person
	err := s.db.WithContext(ctx).Where(queryPhone, identity.String()).Take(&person).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Person{}, false, nil
	}
	if err != nil {
		s.logError(opLookup, reasonQuery, err, zap.String(fieldPhone, identity.String()))
		return Person{}, false, newServiceError(opLookup, reasonQuery, err)
	}
	return person, true, nil
}

// List returns the full roster ordered by display name.
func (s *Service) List(ctx context.Context) ([]Person, error) {
	if s.db == nil {
		return nil, newServiceError(opList, reasonMissingDB, errMissingDatabase)
	}
	var roster []Person
	if err := s.db.WithContext(ctx).Order("name_key ASC").Find(&roster).Error; err != nil {
		s.logError(opList, reasonQuery, err)
		return nil, newServiceError(opList, reasonQuery, err)
	}
	return roster, nil
}

// SetLeaveState updates whether a person is on leave.
func (s *Service) SetLeaveState(ctx context.Context, identity Identity, state LeaveState) (Person, error) {
	if s.db == nil {
		return Person{}, newServiceError(opSetLeaveState, reasonMissingDB, errMissingDatabase)
	}
	if state != LeaveStateActive && state != LeaveStateOnLeave {
		return Person{}, newServiceError(opSetLeaveState, reasonLeaveState, ErrInvalidLeaveState)
	}
	var person Person
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(queryPhone, identity.String()).Take(&person).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newServiceError(opSetLeaveState, reasonNotFound, ErrPersonNotFound)
			}
			return newServiceError(opSetLeaveState, reasonQuery, err)
		}
		person.Status = string(state)
		if err := tx.Model(&Person{}).Where(queryPhone, person.Phone).Update("status", person.Status).Error; err != nil {
			return newServiceError(opSetLeaveState, reasonWrite, err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrPersonNotFound) {
			s.logError(opSetLeaveState, reasonWrite, err, zap.String(fieldPhone, identity.String()))
		}
		return Person{}, err
	}
	s.logger.Info("leave state updated",
		zap.String(fieldPhone, person.Phone),
		zap.String("status", person.Status))
	return person, nil
}

// Remove deletes a person and invalidates their history through the removal hook.
func (s *Service) Remove(ctx context.Context, identity Identity) error {
	if s.db == nil {
		return newServiceError(opRemove, reasonMissingDB, errMissingDatabase)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where(queryPhone, identity.String()).Delete(&Person{})
		if result.Error != nil {
			return newServiceError(opRemove, reasonWrite, result.Error)
		}
		if result.RowsAffected == 0 {
			return newServiceError(opRemove, reasonNotFound, ErrPersonNotFound)
		}
		if s.onRemove != nil {
			if err := s.onRemove(tx, identity); err != nil {
				return newServiceError(opRemove, "cascade_failed", err)
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrPersonNotFound) {
			s.logError(opRemove, reasonWrite, err, zap.String(fieldPhone, identity.String()))
		}
		return err
	}
	s.logger.Info("person removed", zap.String(fieldPhone, identity.String()))
	return nil
}

// ImportResult summarizes a bulk roster import.
type ImportResult struct {
	Created int
	Updated int
	Skipped int
}

// Import upserts roster rows keyed by identity. Rows whose identity is empty or whose display
// name belongs to a different identity are skipped.
func (s *Service) Import(ctx context.Context, rows []Person) (ImportResult, error) {
	if s.db == nil {
		return ImportResult{}, newServiceError(opImport, reasonMissingDB, errMissingDatabase)
	}
	var result ImportResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			identity := NormalizeIdentity(row.Phone)
			name := cleanName(row.Name)
			if identity.IsZero() || name == "" {
				result.Skipped++
				continue
			}
			incoming := Person{
				Phone:   identity.String(),
				Name:    name,
				NameKey: normalizeName(name),
				Status:  string(row.LeaveState()),
			}
			if registeredOn, ok := parseRegistrationDate(row.RegisteredOn); ok {
				incoming.RegisteredOn = registeredOn
			} else if row.RegisteredOn != "" {
				s.logger.Warn("import ignored malformed registration date",
					zap.String(fieldPhone, incoming.Phone),
					zap.String("reg_date", row.RegisteredOn))
			}

			var owner Person
			err := tx.Where(queryNameKey, incoming.NameKey).Take(&owner).Error
			if err == nil && owner.Phone != incoming.Phone {
				s.logger.Warn("import skipped duplicate name",
					zap.String(fieldPhone, incoming.Phone),
					zap.String("owner_phone", owner.Phone))
				result.Skipped++
				continue
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return newServiceError(opImport, reasonQuery, err)
			}

			var existing Person
			err = tx.Where(queryPhone, incoming.Phone).Take(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if incoming.RegisteredOn == "" {
					incoming.RegisteredOn = s.now().In(s.location).Format(DateLayout)
				}
				if err := tx.Create(&incoming).Error; err != nil {
					return newServiceError(opImport, reasonWrite, err)
				}
				result.Created++
			case err != nil:
				return newServiceError(opImport, reasonQuery, err)
			default:
				if incoming.RegisteredOn == "" {
					incoming.RegisteredOn = existing.RegisteredOn
				}
				if err := tx.Save(&incoming).Error; err != nil {
					return newServiceError(opImport, reasonWrite, err)
				}
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		s.logError(opImport, reasonWrite, err)
		return ImportResult{}, err
	}
	return result, nil
}

// parseRegistrationDate accepts only YYYY-MM-DD dates and returns them in canonical form.
func parseRegistrationDate(raw string) (string, bool) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return parsed.Format(DateLayout), true
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
	logger.Error("people service error", attrs...)
}
