package models

import "time"

// DateLayout is the calendar format used for DateOfBirth on the wire.
const DateLayout = "2006-01-02"

// Patient is one patient record. ID is supplied by the caller; zero means the
// record is new and has no identifier yet.
type Patient struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Email       string    `json:"email"`
}

// FieldChange is a single column assignment produced by Changes.
type FieldChange struct {
	Column string
	Value  any
}

// Changes returns the columns whose values differ between p and incoming.
// DateOfBirth is compared by calendar date only.
func (p Patient) Changes(incoming Patient) []FieldChange {
	var out []FieldChange
	if p.Name != incoming.Name {
		out = append(out, FieldChange{Column: "name", Value: incoming.Name})
	}
	if p.Surname != incoming.Surname {
		out = append(out, FieldChange{Column: "surname", Value: incoming.Surname})
	}
	if p.DateOfBirth.Format(DateLayout) != incoming.DateOfBirth.Format(DateLayout) {
		out = append(out, FieldChange{Column: "date_of_birth", Value: incoming.DateOfBirth})
	}
	if p.Email != incoming.Email {
		out = append(out, FieldChange{Column: "email", Value: incoming.Email})
	}
	return out
}

// Apply returns p with changes assigned.
func (p Patient) Apply(changes []FieldChange) Patient {
	for _, c := range changes {
		switch c.Column {
		case "name":
			p.Name = c.Value.(string)
		case "surname":
			p.Surname = c.Value.(string)
		case "date_of_birth":
			p.DateOfBirth = c.Value.(time.Time)
		case "email":
			p.Email = c.Value.(string)
		}
	}
	return p
}
