package meals

import "github.com/659954771/meal-app/internal/people"

// Session is the per-request view of the signed-in person, loaded once and passed explicitly
// into every action log call.
type Session struct {
	Identity   people.Identity
	Name       string
	LeaveState people.LeaveState
}

// NewSession builds a session from a registered person.
func NewSession(person people.Person) Session {
	return Session{
		Identity:   person.Identity(),
		Name:       person.Name,
		LeaveState: person.LeaveState(),
	}
}
