package schedule

import (
	"cmp"
	"slices"
	"time"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
)

// HasOpenSeat reports whether a slot can take another enrollment. A slot with
// no session yet is always open.
func HasOpenSeat(session *models.Session, maxCapacity int) bool {
	return session == nil || HasRoom(session.EnrollmentCount(), maxCapacity)
}

// HasRoom reports whether a session holding enrolled students can take one more.
func HasRoom(enrolled, maxCapacity int) bool {
	return enrolled < maxCapacity
}

// SessionIndex looks sessions up by (date, tutor, time).
type SessionIndex map[models.SessionKey]*models.Session

// IndexSessions builds a SessionIndex over sessions.
func IndexSessions(sessions []models.Session) SessionIndex {
	idx := make(SessionIndex, len(sessions))
	for i := range sessions {
		idx[sessions[i].Key()] = &sessions[i]
	}
	return idx
}

// DeriveSeats lists every bookable (tutor, date, time) in the week starting at
// weekStart. Tutors are filtered by category when category is non-empty.
// Full slots are omitted. Results are ordered by date, then time.
func (g Grid) DeriveSeats(weekStart time.Time, tutors []models.Tutor, sessions []models.Session, category string) []models.Seat {
	idx := IndexSessions(sessions)
	seats := make([]models.Seat, 0)
	for _, tutor := range tutors {
		if category != "" && tutor.Category != category {
			continue
		}
		for date := range WeekDates(weekStart, g.WeekDays) {
			dow := WeekdayOf(date)
			if !tutor.WorksOn(dow) {
				continue
			}
			iso := ISODate(date)
			for _, slot := range g.Slots {
				if !tutor.Offers(slot) {
					continue
				}
				session := idx[models.SessionKey{Date: iso, TutorID: tutor.ID, Time: slot}]
				if !HasOpenSeat(session, g.Capacity) {
					continue
				}
				occupied := session.EnrollmentCount()
				seats = append(seats, models.Seat{
					Tutor:          tutor,
					Date:           iso,
					DayName:        DayNames[dow],
					DayNum:         dow,
					Time:           slot,
					Occupied:       occupied,
					SeatsRemaining: g.Capacity - occupied,
				})
			}
		}
	}
	slices.SortStableFunc(seats, func(a, b models.Seat) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return seats
}
