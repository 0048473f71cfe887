package models

import "strings"

// Employee represents an employee entity stored in the employees table.
// ID is zero until the employee has been saved for the first time.
type Employee struct {
	ID        int64  `db:"id"         json:"id"         yaml:"-"`
	FirstName string `db:"first_name" json:"firstName"  yaml:"first_name"`
	LastName  string `db:"last_name"  json:"lastName"   yaml:"last_name"`
	Email     string `db:"email"      json:"email"      yaml:"email"`
}

// NewEmployee returns an unsaved employee with the given names and email.
func NewEmployee(firstName, lastName, email string) Employee {
	return Employee{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
	}
}

// FullName joins first and last name, skipping empty parts.
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// IsNew reports whether the employee has not been persisted yet.
func (e Employee) IsNew() bool {
	return e.ID == 0
}
