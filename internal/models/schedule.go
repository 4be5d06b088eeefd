package models

// Seat is a derived, not-yet-booked opportunity to enroll a student.
type Seat struct {
	Tutor          Tutor  `json:"tutor"`
	Date           string `json:"date"`
	DayName        string `json:"day_name"`
	DayNum         int    `json:"day_num"`
	Time           string `json:"time"`
	Occupied       int    `json:"occupied"`
	SeatsRemaining int    `json:"seats_remaining"`
}

// WeekView is everything the admin grid renders for one week.
type WeekView struct {
	WeekStart string    `json:"week_start"`
	Dates     []string  `json:"dates"`
	TimeSlots []string  `json:"time_slots"`
	Capacity  int       `json:"capacity"`
	Tutors    []Tutor   `json:"tutors"`
	Students  []Student `json:"students"`
	Sessions  []Session `json:"sessions"`
}

// BookedWeek reports the outcome of one iteration of a (possibly recurring) booking.
type BookedWeek struct {
	Date            string `json:"date"`
	SessionID       string `json:"session_id"`
	EnrollmentID    string `json:"enrollment_id"`
	SessionCreated  bool   `json:"session_created"`
	AlreadyEnrolled bool   `json:"already_enrolled"`
}

// BookingResult lists every committed week of a booking. When an iteration
// fails, FailedDate names it and Weeks holds only the weeks before it.
type BookingResult struct {
	TutorID    string       `json:"tutor_id"`
	StudentID  string       `json:"student_id"`
	Time       string       `json:"time"`
	Requested  int          `json:"requested_weeks"`
	Weeks      []BookedWeek `json:"weeks"`
	FailedDate string       `json:"failed_date,omitempty"`
}

// TutorWeek is the tutor portal view: a tutor's own sessions and open seats.
type TutorWeek struct {
	WeekStart string    `json:"week_start"`
	Dates     []string  `json:"dates"`
	Tutor     Tutor     `json:"tutor"`
	Sessions  []Session `json:"sessions"`
	OpenSeats []Seat    `json:"open_seats"`
}
