package database

import (
	"errors"
	"time"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeIdentities = "2026-10-01_normalize_legacy_identities"
	migrationBackfillLeaveState  = "2026-10-01_backfill_leave_state"
	migrationLiveActionKey       = "2026-10-20_live_action_key"

	legacyActionKeyIndex = "idx_meal_actions_key"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB, *zap.Logger) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	migrations := []migrationDefinition{
		{name: migrationNormalizeIdentities, apply: normalizeIdentities},
		{name: migrationBackfillLeaveState, apply: backfillLeaveState},
		{name: migrationLiveActionKey, apply: dropLegacyActionKey},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx, logger); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		logger.Info("database migration applied", zap.String("migration", migration.name))
	}
	return nil
}

// normalizeIdentities rewrites phones stored before normalization existed, such as
// spreadsheet numbers that lost their leading zero or carry a ".0" tail.
// A person whose normalized phone is already taken is dropped in favour of the existing row.
// Action rows that collide on their key keep the most recent record.
func normalizeIdentities(tx *gorm.DB, logger *zap.Logger) error {
	var roster []people.Person
	if err := tx.Find(&roster).Error; err != nil {
		return err
	}
	for _, person := range roster {
		identity := people.NormalizeIdentity(person.Phone)
		if identity.String() == person.Phone {
			continue
		}
		if identity.IsZero() {
			logger.Warn("dropping person with unusable phone", zap.String("phone", person.Phone))
			if err := tx.Where("phone = ?", person.Phone).Delete(&people.Person{}).Error; err != nil {
				return err
			}
			continue
		}
		var existing int64
		if err := tx.Model(&people.Person{}).Where("phone = ?", identity.String()).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			logger.Warn("dropping duplicate person", zap.String("phone", person.Phone), zap.String("identity", identity.String()))
			if err := tx.Where("phone = ?", person.Phone).Delete(&people.Person{}).Error; err != nil {
				return err
			}
			continue
		}
		if err := tx.Model(&people.Person{}).Where("phone = ?", person.Phone).Update("phone", identity.String()).Error; err != nil {
			return err
		}
	}

	var actions []meals.MealAction
	if err := tx.Find(&actions).Error; err != nil {
		return err
	}
	for _, action := range actions {
		identity := people.NormalizeIdentity(action.Phone)
		if identity.String() == action.Phone {
			continue
		}
		if identity.IsZero() {
			if err := tx.Where("action_id = ?", action.ActionID).Delete(&meals.MealAction{}).Error; err != nil {
				return err
			}
			continue
		}
		if !action.Invalidated {
			var current meals.MealAction
			err := tx.Where("date = ? AND phone = ? AND meal_type = ? AND invalidated = ?", action.Date, identity.String(), action.MealType, false).
				Take(&current).Error
			switch {
			case err == nil && current.RecordedAt >= action.RecordedAt:
				if err := tx.Where("action_id = ?", action.ActionID).Delete(&meals.MealAction{}).Error; err != nil {
					return err
				}
				continue
			case err == nil:
				if err := tx.Where("action_id = ?", current.ActionID).Delete(&meals.MealAction{}).Error; err != nil {
					return err
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}
		if err := tx.Model(&meals.MealAction{}).Where("action_id = ?", action.ActionID).Update("phone", identity.String()).Error; err != nil {
			return err
		}
	}
	return nil
}

func backfillLeaveState(tx *gorm.DB, _ *zap.Logger) error {
	return tx.Model(&people.Person{}).
		Where("status IS NULL OR status = ''").
		Update("status", string(people.LeaveStateActive)).Error
}

// dropLegacyActionKey removes the unique index that covered invalidated rows too. The live-row
// index replacing it is created by AutoMigrate.
func dropLegacyActionKey(tx *gorm.DB, _ *zap.Logger) error {
	migrator := tx.Migrator()
	if !migrator.HasIndex(&meals.MealAction{}, legacyActionKeyIndex) {
		return nil
	}
	return migrator.DropIndex(&meals.MealAction{}, legacyActionKeyIndex)
}
