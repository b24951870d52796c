package sheets

import (
	"context"
	"errors"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
	"go.uber.org/zap"
)

var (
	errMissingPeople = errors.New("sheets: people importer required")
	errMissingMeals  = errors.New("sheets: meals importer required")
)

// PeopleImporter upserts roster rows.
type PeopleImporter interface {
	Import(ctx context.Context, rows []people.Person) (people.ImportResult, error)
}

// ActionImporter upserts action rows.
type ActionImporter interface {
	ImportActions(ctx context.Context, rows []meals.MealAction) (meals.ImportResult, error)
}

// Summary reports what an import changed.
type Summary struct {
	PeopleCreated  int `json:"people_created"`
	PeopleUpdated  int `json:"people_updated"`
	ActionsApplied int `json:"actions_applied"`
	RowsSkipped    int `json:"rows_skipped"`
}

// Importer pushes a decoded workbook into the registry and the action log.
type Importer struct {
	people PeopleImporter
	meals  ActionImporter
	logger *zap.Logger
}

// NewImporter constructs an Importer.
func NewImporter(peopleImporter PeopleImporter, actionImporter ActionImporter, logger *zap.Logger) (*Importer, error) {
	if peopleImporter == nil {
		return nil, errMissingPeople
	}
	if actionImporter == nil {
		return nil, errMissingMeals
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{people: peopleImporter, meals: actionImporter, logger: logger}, nil
}

// Import loads the roster first so action rows reference known identities.
func (i *Importer) Import(ctx context.Context, workbook Workbook) (Summary, error) {
	summary := Summary{RowsSkipped: workbook.Skipped}

	peopleResult, err := i.people.Import(ctx, workbook.People)
	if err != nil {
		return Summary{}, err
	}
	summary.PeopleCreated = peopleResult.Created
	summary.PeopleUpdated = peopleResult.Updated
	summary.RowsSkipped += peopleResult.Skipped

	if len(workbook.Actions) > 0 {
		actionResult, err := i.meals.ImportActions(ctx, workbook.Actions)
		if err != nil {
			return Summary{}, err
		}
		summary.ActionsApplied = actionResult.Applied
		summary.RowsSkipped += actionResult.Skipped
	}

	i.logger.Info("workbook imported",
		zap.Int("people_created", summary.PeopleCreated),
		zap.Int("people_updated", summary.PeopleUpdated),
		zap.Int("actions_applied", summary.ActionsApplied),
		zap.Int("rows_skipped", summary.RowsSkipped))
	return summary, nil
}
