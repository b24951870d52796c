package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	errMissingRoster  = errors.New("roster source is required")
	errMissingActions = errors.New("action source is required")
)

// RosterSource lists registered people.
type RosterSource interface {
	List(ctx context.Context) ([]people.Person, error)
}

// ActionSource lists live action rows between two dates, both inclusive.
type ActionSource interface {
	ListRange(ctx context.Context, from, to time.Time) ([]meals.MealAction, error)
}

// ServiceConfig describes the dependencies of the report service.
type ServiceConfig struct {
	Roster   RosterSource
	Actions  ActionSource
	Location *time.Location
	Logger   *zap.Logger
}

// Service loads snapshots and builds reports from them.
type Service struct {
	roster   RosterSource
	actions  ActionSource
	location *time.Location
	logger   *zap.Logger
}

// NewService constructs the report service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Roster == nil {
		return nil, errMissingRoster
	}
	if cfg.Actions == nil {
		return nil, errMissingActions
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{roster: cfg.Roster, actions: cfg.Actions, location: location, logger: logger}, nil
}

// Location returns the zone report dates are evaluated in.
func (s *Service) Location() *time.Location {
	return s.location
}

// snapshot loads the roster and the action rows of the range in parallel.
func (s *Service) snapshot(ctx context.Context, from, to time.Time) (Snapshot, error) {
	g, ctx := errgroup.WithContext(ctx)

	var snapshot Snapshot
	g.Go(func() error {
		roster, err := s.roster.List(ctx)
		if err != nil {
			return fmt.Errorf("reports: load roster: %w", err)
		}
		snapshot.People = roster
		return nil
	})
	g.Go(func() error {
		actions, err := s.actions.ListRange(ctx, from, to)
		if err != nil {
			return fmt.Errorf("reports: load actions: %w", err)
		}
		snapshot.Actions = actions
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// Daily returns the eating totals of a date.
func (s *Service) Daily(ctx context.Context, date time.Time) (DayCounts, error) {
	snapshot, err := s.snapshot(ctx, date, date)
	if err != nil {
		return DayCounts{}, err
	}
	return DailyCounts(snapshot, date.In(s.location)), nil
}

// Roster returns the admin table of a date.
func (s *Service) Roster(ctx context.Context, date time.Time) (Roster, error) {
	snapshot, err := s.snapshot(ctx, date, date)
	if err != nil {
		return Roster{}, err
	}
	return BuildRoster(snapshot, date.In(s.location)), nil
}

// LateBoard returns the chef's late pickup buckets of a meal on a date.
func (s *Service) LateBoard(ctx context.Context, date time.Time, meal meals.MealType) (LateBoard, error) {
	snapshot, err := s.snapshot(ctx, date, date)
	if err != nil {
		return LateBoard{}, err
	}
	return BuildLateBoard(snapshot, date.In(s.location), meal), nil
}

// Monthly returns the daily series and per-person totals of a month.
func (s *Service) Monthly(ctx context.Context, year int, month time.Month) (MonthlyReport, error) {
	days := DaysOfMonth(year, month, s.location)
	snapshot, err := s.snapshot(ctx, days[0], days[len(days)-1])
	if err != nil {
		return MonthlyReport{}, err
	}
	report := BuildMonthlyReport(snapshot, year, month, s.location)
	s.logger.Debug("monthly report built",
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int("people", len(report.People)))
	return report, nil
}
