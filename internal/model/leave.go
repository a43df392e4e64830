package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type LeaveType string

const (
	LeaveTypeAnnual    LeaveType = "annual"
	LeaveTypeSick      LeaveType = "sick"
	LeaveTypeEmergency LeaveType = "emergency"
	LeaveTypeUnpaid    LeaveType = "unpaid"
)

func (t LeaveType) Valid() bool {
	switch t {
	case LeaveTypeAnnual, LeaveTypeSick, LeaveTypeEmergency, LeaveTypeUnpaid:
		return true
	}
	return false
}

type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

type LeaveRequest struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	EmployeeID   string        `bson:"employee_id" json:"employee_id"`
	Type         LeaveType     `bson:"type" json:"type"`
	StartDate    string        `bson:"start_date" json:"start_date"` // YYYY-MM-DD
	EndDate      string        `bson:"end_date" json:"end_date"`     // YYYY-MM-DD, inclusive
	Days         int           `bson:"days" json:"days"`
	Reason       string        `bson:"reason" json:"reason"`
	Status       LeaveStatus   `bson:"status" json:"status"`
	ReviewerID   string        `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	ReviewedAt   *time.Time    `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	RejectReason string        `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}

// Covers reports whether date (YYYY-MM-DD) falls inside the request.
func (l *LeaveRequest) Covers(date string) bool {
	return l.StartDate <= date && date <= l.EndDate
}
