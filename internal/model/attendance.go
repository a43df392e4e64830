package model

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type AttendanceStatus string

const (
	AttendanceStatusNotCheckedIn AttendanceStatus = "not-checked-in"
	AttendanceStatusPresent      AttendanceStatus = "present"
	AttendanceStatusLate         AttendanceStatus = "late"
	AttendanceStatusHalfDay      AttendanceStatus = "half-day"
	AttendanceStatusAbsent       AttendanceStatus = "absent"
)

// Valid reports whether s is one of the known statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusNotCheckedIn, AttendanceStatusPresent, AttendanceStatusLate,
		AttendanceStatusHalfDay, AttendanceStatusAbsent:
		return true
	}
	return false
}

// AttendanceRecord is one employee's attendance for one day bucket.
// (employee_id, date) is unique in the store.
type AttendanceRecord struct {
	ID         bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	EmployeeID string           `bson:"employee_id" json:"employee_id"`
	Date       string           `bson:"date" json:"date"` // YYYY-MM-DD in the business time zone
	CheckIn    *time.Time       `bson:"check_in,omitempty" json:"check_in"`
	CheckOut   *time.Time       `bson:"check_out,omitempty" json:"check_out"`
	Status     AttendanceStatus `bson:"status" json:"status"`
	TotalHours float64          `bson:"total_hours" json:"total_hours"`
	Notes      string           `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt  time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `bson:"updated_at" json:"updated_at"`
}

// CheckedIn reports whether the record carries a check-in timestamp.
func (r *AttendanceRecord) CheckedIn() bool { return r != nil && r.CheckIn != nil }

// CheckedOut reports whether the record carries a check-out timestamp.
func (r *AttendanceRecord) CheckedOut() bool { return r != nil && r.CheckOut != nil }

// WorkedHours returns the hours between check-in and check-out rounded to
// two decimals, or 0 if either timestamp is missing.
func (r *AttendanceRecord) WorkedHours() float64 {
	if !r.CheckedIn() || !r.CheckedOut() {
		return 0
	}
	return RoundHours(r.CheckOut.Sub(*r.CheckIn))
}

// RoundHours converts d to hours rounded to two decimal places.
func RoundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

// StatusForHours is the status assigned at check-out.
func StatusForHours(hours, fullDay float64) AttendanceStatus {
	if hours >= fullDay {
		return AttendanceStatusPresent
	}
	return AttendanceStatusHalfDay
}

type AttendanceEventType string

const (
	EventCheckIn  AttendanceEventType = "attendance:checkin"
	EventCheckOut AttendanceEventType = "attendance:checkout"
	EventUpdated  AttendanceEventType = "attendance:updated"
	EventDeleted  AttendanceEventType = "attendance:deleted"
)

// AttendanceEvent is published to notifiers after a successful write.
type AttendanceEvent struct {
	Type   AttendanceEventType `json:"type"`
	Record *AttendanceRecord   `json:"record"`
	At     time.Time           `json:"at"`
}

// AttendanceSummary aggregates one employee's records over a date range.
type AttendanceSummary struct {
	EmployeeID string  `bson:"_id" json:"employee_id"`
	Days       int     `bson:"days" json:"days"`
	Present    int     `bson:"present" json:"present"`
	Late       int     `bson:"late" json:"late"`
	HalfDay    int     `bson:"half_day" json:"half_day"`
	Absent     int     `bson:"absent" json:"absent"`
	Open       int     `bson:"open" json:"open"` // checked in, never checked out
	TotalHours float64 `bson:"total_hours" json:"total_hours"`
	LeaveDays  int     `bson:"-" json:"leave_days"`
}

// DailyStats is a snapshot of a single day bucket.
type DailyStats struct {
	Date       string   `json:"date"`
	CheckedIn  int      `json:"checked_in"`
	CheckedOut int      `json:"checked_out"`
	Working    []string `json:"working"`
	OnLeave    []string `json:"on_leave"`
}
