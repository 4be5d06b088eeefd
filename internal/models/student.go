package models

import "time"

// Student represents a learner that can be booked into sessions.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Subject   string    `db:"subject" json:"subject"`
	HoursLeft int       `db:"hours_left" json:"hours_left"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search string
}

// BookingCandidate is a student annotated with whether they already have a
// session in the week being booked.
type BookingCandidate struct {
	Student
	ScheduledThisWeek bool `json:"scheduled_this_week"`
}
