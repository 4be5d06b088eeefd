package models

import "time"

// EnrollmentStatus is the attendance state of a student within a session.
type EnrollmentStatus string

const (
	EnrollmentStatusScheduled EnrollmentStatus = "scheduled"
	EnrollmentStatusPresent   EnrollmentStatus = "present"
	EnrollmentStatusNoShow    EnrollmentStatus = "no-show"
)

// Valid returns true when the status is a supported value.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusScheduled, EnrollmentStatusPresent, EnrollmentStatusNoShow:
		return true
	default:
		return false
	}
}

// Session is a concrete (date, tutor, time) occurrence. At most one exists per key.
type Session struct {
	ID        string       `db:"id" json:"id"`
	Date      string       `db:"session_date" json:"date"`
	TutorID   string       `db:"tutor_id" json:"tutor_id"`
	Time      string       `db:"time" json:"time"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	Students  []Enrollment `db:"-" json:"students"`
}

// EnrollmentCount returns the number of students holding a seat.
func (s *Session) EnrollmentCount() int {
	if s == nil {
		return 0
	}
	return len(s.Students)
}

// Enrollment is a student's participation record within a session.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Name      string           `db:"name" json:"name"`
	Topic     string           `db:"topic" json:"topic"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// SessionKey identifies a session slot.
type SessionKey struct {
	Date    string
	TutorID string
	Time    string
}

// Key returns the identifying triple of the session.
func (s Session) Key() SessionKey {
	return SessionKey{Date: s.Date, TutorID: s.TutorID, Time: s.Time}
}
