package meals

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MealType names one of the two independently tracked daily meals.
type MealType string

const (
	// MealLunch is the midday meal.
	MealLunch MealType = "Lunch"
	// MealDinner is the evening meal.
	MealDinner MealType = "Dinner"
)

// MealTypes lists every meal in display order.
var MealTypes = []MealType{MealLunch, MealDinner}

// DateLayout is the calendar date format stored in the action log.
const DateLayout = "2006-01-02"

const (
	slotLayout       = "15:04"
	recordTimeLayout = "15:04:05"
	tokenBooked      = "BOOKED"
	tokenCanceled    = "CANCELED"
	tokenLatePrefix  = "LATE_"
	tokenDelete      = "DELETE"
)

var (
	// ErrInvalidMealType indicates an unknown meal token.
	ErrInvalidMealType = errors.New("meals: invalid meal type")
	// ErrInvalidAction indicates an unknown or malformed action token.
	ErrInvalidAction = errors.New("meals: invalid action")
	// ErrInvalidSlot indicates a late pickup slot that is not a HH:MM time.
	ErrInvalidSlot = errors.New("meals: invalid late slot")
	// ErrInvalidDate indicates a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("meals: invalid date")
)

// ParseMealType decodes a meal token case-insensitively.
func ParseMealType(raw string) (MealType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "lunch":
		return MealLunch, nil
	case "dinner":
		return MealDinner, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMealType, raw)
	}
}

// String returns the storage token of the meal.
func (m MealType) String() string {
	return string(m)
}

// ActionKind enumerates the manual actions a person can take on a meal.
type ActionKind int

const (
	// ActionBooked opts into a meal.
	ActionBooked ActionKind = iota + 1
	// ActionCanceled opts out of a meal.
	ActionCanceled
	// ActionLate opts into a meal at an alternate pickup time.
	ActionLate
	// ActionReset removes the manual action so the default policy applies again.
	ActionReset
)

// Action is a manual meal action. Slot is set only for ActionLate.
type Action struct {
	Kind ActionKind
	Slot string
}

// Booked returns the opt-in action.
func Booked() Action { return Action{Kind: ActionBooked} }

// Canceled returns the opt-out action.
func Canceled() Action { return Action{Kind: ActionCanceled} }

// Reset returns the action that removes any manual choice.
func Reset() Action { return Action{Kind: ActionReset} }

// Late returns a late pickup action for the given HH:MM slot.
func Late(slot string) (Action, error) {
	normalized, err := normalizeSlot(slot)
	if err != nil {
		return Action{}, err
	}
	return Action{Kind: ActionLate, Slot: normalized}, nil
}

// ParseAction decodes a stored action token.
// DELETE is accepted as the legacy spelling of a reset instruction; it is never stored.
func ParseAction(token string) (Action, error) {
	value := strings.ToUpper(strings.TrimSpace(token))
	switch {
	case value == tokenBooked:
		return Booked(), nil
	case value == tokenCanceled:
		return Canceled(), nil
	case value == tokenDelete || value == "RESET":
		return Reset(), nil
	case strings.HasPrefix(value, tokenLatePrefix):
		action, err := Late(strings.TrimPrefix(value, tokenLatePrefix))
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, token)
		}
		return action, nil
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, token)
	}
}

// Token encodes the action for storage. Reset has no stored form and encodes as DELETE.
func (a Action) Token() string {
	switch a.Kind {
	case ActionBooked:
		return tokenBooked
	case ActionCanceled:
		return tokenCanceled
	case ActionLate:
		return tokenLatePrefix + a.Slot
	default:
		return tokenDelete
	}
}

// Stored reports whether the action is persisted as a row.
func (a Action) Stored() bool {
	return a.Kind == ActionBooked || a.Kind == ActionCanceled || a.Kind == ActionLate
}

func normalizeSlot(raw string) (string, error) {
	parsed, err := time.Parse(slotLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, raw)
	}
	return parsed.Format(slotLayout), nil
}

// ParseDate parses a YYYY-MM-DD calendar date into midnight of the given location.
func ParseDate(raw string, location *time.Location) (time.Time, error) {
	if location == nil {
		location = time.UTC
	}
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return parsed, nil
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MealAction is one row of the action log. At most one live row exists per
// (date, phone, meal_type); rows invalidated by a removal are kept for audit outside that key.
type MealAction struct {
	ActionID    string `gorm:"column:action_id;primaryKey;size:64;not null"`
	Date        string `gorm:"column:date;size:10;not null;uniqueIndex:idx_meal_actions_live_key,priority:1,where:invalidated = 0;index:idx_meal_actions_date"`
	Phone       string `gorm:"column:phone;size:32;not null;uniqueIndex:idx_meal_actions_live_key,priority:2,where:invalidated = 0"`
	Name        string `gorm:"column:name;size:190;not null;default:''"`
	MealType    string `gorm:"column:meal_type;size:16;not null;uniqueIndex:idx_meal_actions_live_key,priority:3,where:invalidated = 0"`
	Action      string `gorm:"column:action;size:32;not null"`
	Time        string `gorm:"column:time;size:8;not null;default:''"`
	RecordedAt  int64  `gorm:"column:recorded_at;not null;default:0"`
	Invalidated bool   `gorm:"column:invalidated;not null;default:false"`
}

// TableName provides the explicit table binding for GORM.
func (MealAction) TableName() string {
	return "meal_actions"
}

// Decoded returns the typed action of the row.
func (r MealAction) Decoded() (Action, error) {
	return ParseAction(r.Action)
}
