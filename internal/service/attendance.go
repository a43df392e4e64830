package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"hrm-attendance/internal/model"
	"hrm-attendance/internal/store"
)

const (
	DefaultHistoryLimit = 30
	MaxHistoryLimit     = 366
	DefaultFullDayHours = 8.0
)

// Clock supplies the current instant. The business day is derived from it.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// AttendanceRepository is the persistence contract of the attendance manager.
// *store.AttendanceStore implements it against MongoDB.
type AttendanceRepository interface {
	FindByEmployeeDate(ctx context.Context, employeeID, date string) (*model.AttendanceRecord, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*model.AttendanceRecord, error)
	UpsertCheckIn(ctx context.Context, employeeID, date string, at time.Time) (*model.AttendanceRecord, error)
	CompleteCheckOut(ctx context.Context, id bson.ObjectID, at time.Time, hours float64, status model.AttendanceStatus) (bool, error)
	ListByEmployee(ctx context.Context, employeeID string, limit int) ([]*model.AttendanceRecord, error)
	List(ctx context.Context, f store.AttendanceFilter) ([]*model.AttendanceRecord, error)
	Insert(ctx context.Context, record *model.AttendanceRecord) error
	Replace(ctx context.Context, record *model.AttendanceRecord) error
	Delete(ctx context.Context, id bson.ObjectID) error
	DeleteOrphans(ctx context.Context, date string) (int64, error)
	Summarize(ctx context.Context, from, to string) ([]*model.AttendanceSummary, error)
}

type AttendanceOptions struct {
	Clock        Clock
	Location     *time.Location // business time zone; defaults to time.Local
	FullDayHours float64        // hours at or above which check-out yields "present"
	HistoryLimit int
}

// AttendanceManager owns the check-in/check-out lifecycle of the per-day
// attendance record. It keeps no state of its own; the store's unique
// (employee_id, date) index and conditional writes serialize racing requests.
type AttendanceManager struct {
	store        AttendanceRepository
	clock        Clock
	loc          *time.Location
	fullDay      float64
	historyLimit int
}

func NewAttendanceManager(store AttendanceRepository, opts AttendanceOptions) *AttendanceManager {
	m := &AttendanceManager{
		store:        store,
		clock:        opts.Clock,
		loc:          opts.Location,
		fullDay:      opts.FullDayHours,
		historyLimit: opts.HistoryLimit,
	}
	if m.clock == nil {
		m.clock = SystemClock
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.fullDay <= 0 {
		m.fullDay = DefaultFullDayHours
	}
	if m.historyLimit <= 0 {
		m.historyLimit = DefaultHistoryLimit
	}
	return m
}

// Today returns the current day bucket.
func (m *AttendanceManager) Today() string {
	return m.dayOf(m.clock.Now())
}

func (m *AttendanceManager) dayOf(t time.Time) string {
	return t.In(m.loc).Format(time.DateOnly)
}

// CheckIn opens today's record for employeeID. The first successful write
// wins: a concurrent request that loses the race on the unique index gets
// ErrAlreadyCheckedIn and never overwrites the winner's timestamp.
func (m *AttendanceManager) CheckIn(ctx context.Context, employeeID string) (*model.AttendanceRecord, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, invalid("attendance.err.employee_required", "")
	}
	now := m.clock.Now()
	today := m.dayOf(now)

	record, err := m.store.FindByEmployeeDate(ctx, employeeID, today)
	if err != nil {
		return nil, fmt.Errorf("get today record: %w", err)
	}
	if record.CheckedIn() {
		return nil, ErrAlreadyCheckedIn
	}

	record, err = m.store.UpsertCheckIn(ctx, employeeID, today, now)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrAlreadyCheckedIn
	}
	if err != nil {
		return nil, fmt.Errorf("check in: %w", err)
	}
	return record, nil
}

// CheckOut closes today's record for employeeID and derives hours and status.
func (m *AttendanceManager) CheckOut(ctx context.Context, employeeID string) (*model.AttendanceRecord, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, invalid("attendance.err.employee_required", "")
	}
	now := m.clock.Now()
	today := m.dayOf(now)

	record, err := m.store.FindByEmployeeDate(ctx, employeeID, today)
	if err != nil {
		return nil, fmt.Errorf("get today record: %w", err)
	}
	if !record.CheckedIn() {
		return nil, ErrCheckInRequired
	}
	if record.CheckedOut() {
		return nil, ErrAlreadyCheckedOut
	}

	hours := m.hoursBetween(*record.CheckIn, now)
	status := model.StatusForHours(hours, m.fullDay)

	ok, err := m.store.CompleteCheckOut(ctx, record.ID, now, hours, status)
	if err != nil {
		return nil, fmt.Errorf("check out: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyCheckedOut
	}

	record.CheckOut = &now
	record.TotalHours = hours
	record.Status = status
	record.UpdatedAt = now
	return record, nil
}

func (m *AttendanceManager) hoursBetween(in, out time.Time) float64 {
	if out.Before(in) {
		return 0
	}
	return model.RoundHours(out.Sub(in))
}

// TodayRecord returns today's record for employeeID, or nil if there is none.
func (m *AttendanceManager) TodayRecord(ctx context.Context, employeeID string) (*model.AttendanceRecord, error) {
	record, err := m.store.FindByEmployeeDate(ctx, employeeID, m.Today())
	if err != nil {
		return nil, fmt.Errorf("get today record: %w", err)
	}
	return record, nil
}

// GetHistory returns up to limit of the employee's records, newest first.
// A non-positive limit uses the configured default.
func (m *AttendanceManager) GetHistory(ctx context.Context, employeeID string, limit int) ([]*model.AttendanceRecord, error) {
	if limit <= 0 {
		limit = m.historyLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	records, err := m.store.ListByEmployee(ctx, employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

// RecordInput is the admin representation of a record. Admin writes bypass
// the check-in/check-out state machine but still validate the record shape.
type RecordInput struct {
	EmployeeID string                 `json:"employee_id"`
	Date       string                 `json:"date"`
	CheckIn    *time.Time             `json:"check_in"`
	CheckOut   *time.Time             `json:"check_out"`
	Status     model.AttendanceStatus `json:"status"`
	Notes      string                 `json:"notes"`
}

func (m *AttendanceManager) apply(record *model.AttendanceRecord, in RecordInput) error {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	if in.EmployeeID == "" {
		return invalid("attendance.err.employee_required", "")
	}
	if _, err := time.Parse(time.DateOnly, in.Date); err != nil {
		return invalid("attendance.err.invalid_date", in.Date)
	}
	if in.CheckOut != nil && in.CheckIn == nil {
		return ErrCheckInRequired
	}
	if in.CheckOut != nil && in.CheckOut.Before(*in.CheckIn) {
		return invalid("attendance.err.checkout_before_checkin", "")
	}
	if in.Status != "" && !in.Status.Valid() {
		return invalid("attendance.err.invalid_status", string(in.Status))
	}

	record.EmployeeID = in.EmployeeID
	record.Date = in.Date
	record.CheckIn = in.CheckIn
	record.CheckOut = in.CheckOut
	record.Notes = strings.TrimSpace(in.Notes)
	record.TotalHours = record.WorkedHours()

	switch {
	case in.Status != "":
		record.Status = in.Status
	case record.CheckedOut():
		record.Status = model.StatusForHours(record.TotalHours, m.fullDay)
	case record.CheckedIn():
		record.Status = model.AttendanceStatusPresent
	default:
		record.Status = model.AttendanceStatusNotCheckedIn
	}
	return nil
}

// Create inserts a record on behalf of an administrator.
func (m *AttendanceManager) Create(ctx context.Context, in RecordInput) (*model.AttendanceRecord, error) {
	record := &model.AttendanceRecord{}
	if err := m.apply(record, in); err != nil {
		return nil, err
	}
	if err := m.store.Insert(ctx, record); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateRecord
		}
		return nil, fmt.Errorf("create record: %w", err)
	}
	return record, nil
}

// Update replaces the mutable fields of an existing record.
func (m *AttendanceManager) Update(ctx context.Context, id string, in RecordInput) (*model.AttendanceRecord, error) {
	record, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.apply(record, in); err != nil {
		return nil, err
	}
	if err := m.store.Replace(ctx, record); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, ErrDuplicateRecord
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("update record: %w", err)
	}
	return record, nil
}

func (m *AttendanceManager) Get(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	record, err := m.store.FindByID(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// Delete removes a record and returns what was removed.
func (m *AttendanceManager) Delete(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	record, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.store.Delete(ctx, record.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("delete record: %w", err)
	}
	return record, nil
}

func (m *AttendanceManager) List(ctx context.Context, f store.AttendanceFilter) ([]*model.AttendanceRecord, error) {
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return nil, invalid("attendance.err.invalid_date", d)
		}
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("attendance.err.invalid_status", string(f.Status))
	}
	records, err := m.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Repair deletes records of a day bucket that have no employee reference.
// An empty date means today.
func (m *AttendanceManager) Repair(ctx context.Context, date string) (string, int64, error) {
	if date == "" {
		date = m.Today()
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", 0, invalid("attendance.err.invalid_date", date)
	}
	n, err := m.store.DeleteOrphans(ctx, date)
	if err != nil {
		return date, 0, fmt.Errorf("repair %s: %w", date, err)
	}
	return date, n, nil
}
