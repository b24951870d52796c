package people

import (
	"errors"
	"fmt"
	"strings"
)

// LeaveState captures whether a person currently follows the default meal policy.
type LeaveState string

const (
	// LeaveStateActive follows the day-of-week default policy.
	LeaveStateActive LeaveState = "active"
	// LeaveStateOnLeave defaults to not eating unless a meal is booked manually.
	LeaveStateOnLeave LeaveState = "leave"
)

// DateLayout is the calendar date format used for registration dates.
const DateLayout = "2006-01-02"

// ErrInvalidLeaveState indicates an unknown leave state token.
var ErrInvalidLeaveState = errors.New("people: invalid leave state")

// ParseLeaveState decodes a stored or user supplied leave state.
// An empty value maps to LeaveStateActive for rows written before the column existed.
func ParseLeaveState(raw string) (LeaveState, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(LeaveStateActive):
		return LeaveStateActive, nil
	case string(LeaveStateOnLeave), "on_leave":
		return LeaveStateOnLeave, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLeaveState, raw)
	}
}

// OnLeave reports whether the state inverts the default policy.
func (s LeaveState) OnLeave() bool {
	return s == LeaveStateOnLeave
}

// Person is a registered employee.
type Person struct {
	Phone        string `gorm:"column:phone;primaryKey;size:32;not null"`
	Name         string `gorm:"column:name;size:190;not null"`
	NameKey      string `gorm:"column:name_key;size:190;not null;uniqueIndex:idx_people_name_key"`
	RegisteredOn string `gorm:"column:reg_date;size:10;not null"`
	Status       string `gorm:"column:status;size:16;not null;default:'active'"`
}

// TableName exposes the table backing the roster.
func (Person) TableName() string {
	return "people"
}

// Identity returns the canonical identity of the person.
func (p Person) Identity() Identity {
	return Identity(p.Phone)
}

// LeaveState decodes the stored status, treating unknown values as active.
func (p Person) LeaveState() LeaveState {
	state, err := ParseLeaveState(p.Status)
	if err != nil {
		return LeaveStateActive
	}
	return state
}
