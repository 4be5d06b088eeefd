package models

import (
	"slices"
	"time"

	"github.com/lib/pq"
)

// Tutor is a staff member offering recurring weekly availability.
// Availability holds weekday numbers (1=Mon … 7=Sun) and AvailabilityBlocks
// holds the discrete time slots offered on each of those days.
type Tutor struct {
	ID                 string         `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	Category           string         `db:"category" json:"category"`
	Subjects           pq.StringArray `db:"subjects" json:"subjects"`
	Availability       pq.Int64Array  `db:"availability" json:"availability"`
	AvailabilityBlocks pq.StringArray `db:"availability_blocks" json:"availability_blocks"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// WorksOn reports whether the tutor works on the given weekday.
func (t Tutor) WorksOn(weekday int) bool {
	return slices.Contains(t.Availability, int64(weekday))
}

// Offers reports whether the tutor offers the time slot on their working days.
func (t Tutor) Offers(slot string) bool {
	return slices.Contains(t.AvailabilityBlocks, slot)
}

// AvailableAt combines WorksOn and Offers.
func (t Tutor) AvailableAt(weekday int, slot string) bool {
	return t.WorksOn(weekday) && t.Offers(slot)
}

// TutorFilter captures filtering options for listing tutors.
type TutorFilter struct {
	Category string
	Search   string
}
