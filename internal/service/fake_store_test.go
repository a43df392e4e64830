package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"hrm-attendance/internal/model"
	"hrm-attendance/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// fakeAttendanceStore mirrors the unique (employee_id, date) index and the
// conditional writes of store.AttendanceStore.
type fakeAttendanceStore struct {
	mu      sync.Mutex
	records map[bson.ObjectID]*model.AttendanceRecord

	// beforeUpsert runs between the manager's lookup and its upsert.
	beforeUpsert func()
	failWith     error
}

func newFakeAttendanceStore() *fakeAttendanceStore {
	return &fakeAttendanceStore{records: map[bson.ObjectID]*model.AttendanceRecord{}}
}

func clone(r *model.AttendanceRecord) *model.AttendanceRecord {
	c := *r
	return &c
}

func (f *fakeAttendanceStore) find(employeeID, date string) *model.AttendanceRecord {
	for _, r := range f.records {
		if r.EmployeeID == employeeID && r.Date == date {
			return r
		}
	}
	return nil
}

func (f *fakeAttendanceStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeAttendanceStore) put(r *model.AttendanceRecord) *model.AttendanceRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = bson.NewObjectID()
	}
	f.records[r.ID] = clone(r)
	return r
}

func (f *fakeAttendanceStore) FindByEmployeeDate(_ context.Context, employeeID, date string) (*model.AttendanceRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.find(employeeID, date); r != nil {
		return clone(r), nil
	}
	return nil, nil
}

func (f *fakeAttendanceStore) FindByID(_ context.Context, id bson.ObjectID) (*model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		return clone(r), nil
	}
	return nil, nil
}

func (f *fakeAttendanceStore) UpsertCheckIn(_ context.Context, employeeID, date string, at time.Time) (*model.AttendanceRecord, error) {
	if f.beforeUpsert != nil {
		f.beforeUpsert()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.find(employeeID, date)
	switch {
	case r == nil:
		r = &model.AttendanceRecord{ID: bson.NewObjectID(), EmployeeID: employeeID, Date: date, CreatedAt: at}
		f.records[r.ID] = r
	case r.CheckIn != nil:
		return nil, fmt.Errorf("upsert check-in: %w", store.ErrDuplicate)
	}
	r.CheckIn = &at
	r.Status = model.AttendanceStatusPresent
	r.UpdatedAt = at
	return clone(r), nil
}

func (f *fakeAttendanceStore) CompleteCheckOut(_ context.Context, id bson.ObjectID, at time.Time, hours float64, status model.AttendanceStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok || r.CheckIn == nil || r.CheckOut != nil {
		return false, nil
	}
	r.CheckOut = &at
	r.TotalHours = hours
	r.Status = status
	r.UpdatedAt = at
	return true, nil
}

func (f *fakeAttendanceStore) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]*model.AttendanceRecord, error) {
	return f.List(ctx, store.AttendanceFilter{EmployeeID: employeeID, Limit: limit})
}

func (f *fakeAttendanceStore) List(_ context.Context, flt store.AttendanceFilter) ([]*model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AttendanceRecord
	for _, r := range f.records {
		if flt.EmployeeID != "" && r.EmployeeID != flt.EmployeeID {
			continue
		}
		if flt.From != "" && r.Date < flt.From {
			continue
		}
		if flt.To != "" && r.Date > flt.To {
			continue
		}
		if flt.Status != "" && r.Status != flt.Status {
			continue
		}
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeAttendanceStore) Insert(_ context.Context, record *model.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.find(record.EmployeeID, record.Date) != nil {
		return fmt.Errorf("insert attendance: %w", store.ErrDuplicate)
	}
	record.ID = bson.NewObjectID()
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	f.records[record.ID] = clone(record)
	return nil
}

func (f *fakeAttendanceStore) Replace(_ context.Context, record *model.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[record.ID]; !ok {
		return store.ErrNotFound
	}
	if other := f.find(record.EmployeeID, record.Date); other != nil && other.ID != record.ID {
		return fmt.Errorf("replace attendance: %w", store.ErrDuplicate)
	}
	record.UpdatedAt = time.Now()
	f.records[record.ID] = clone(record)
	return nil
}

func (f *fakeAttendanceStore) Delete(_ context.Context, id bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeAttendanceStore) DeleteOrphans(_ context.Context, date string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.records {
		if r.Date == date && r.EmployeeID == "" {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeAttendanceStore) Summarize(_ context.Context, from, to string) ([]*model.AttendanceSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byEmployee := map[string]*model.AttendanceSummary{}
	for _, r := range f.records {
		if r.EmployeeID == "" || r.Date < from || r.Date > to {
			continue
		}
		s, ok := byEmployee[r.EmployeeID]
		if !ok {
			s = &model.AttendanceSummary{EmployeeID: r.EmployeeID}
			byEmployee[r.EmployeeID] = s
		}
		s.Days++
		switch r.Status {
		case model.AttendanceStatusPresent:
			s.Present++
		case model.AttendanceStatusLate:
			s.Late++
		case model.AttendanceStatusHalfDay:
			s.HalfDay++
		case model.AttendanceStatusAbsent:
			s.Absent++
		}
		if r.CheckIn != nil && r.CheckOut == nil {
			s.Open++
		}
		s.TotalHours += r.TotalHours
	}
	out := make([]*model.AttendanceSummary, 0, len(byEmployee))
	for _, s := range byEmployee {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

type fakeLeaveStore struct {
	mu       sync.Mutex
	requests map[bson.ObjectID]*model.LeaveRequest
	failWith error
}

func newFakeLeaveStore() *fakeLeaveStore {
	return &fakeLeaveStore{requests: map[bson.ObjectID]*model.LeaveRequest{}}
}

func (f *fakeLeaveStore) Create(_ context.Context, req *model.LeaveRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = bson.NewObjectID()
	req.CreatedAt = time.Now()
	c := *req
	f.requests[req.ID] = &c
	return nil
}

func (f *fakeLeaveStore) GetByID(_ context.Context, id bson.ObjectID) (*model.LeaveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.requests[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (f *fakeLeaveStore) Review(_ context.Context, req *model.LeaveRequest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.requests[req.ID]
	if !ok || cur.Status != model.LeaveStatusPending {
		return false, nil
	}
	c := *req
	f.requests[req.ID] = &c
	return true, nil
}

func (f *fakeLeaveStore) filter(keep func(*model.LeaveRequest) bool) []*model.LeaveRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.LeaveRequest
	for _, r := range f.requests {
		if keep(r) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate < out[j].StartDate })
	return out
}

func (f *fakeLeaveStore) ListByEmployee(_ context.Context, employeeID string) ([]*model.LeaveRequest, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.filter(func(r *model.LeaveRequest) bool { return r.EmployeeID == employeeID }), nil
}

func (f *fakeLeaveStore) ListByStatus(_ context.Context, status model.LeaveStatus) ([]*model.LeaveRequest, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.filter(func(r *model.LeaveRequest) bool { return r.Status == status }), nil
}

func (f *fakeLeaveStore) ListOverlapping(_ context.Context, from, to string, status model.LeaveStatus) ([]*model.LeaveRequest, error) {
	return f.filter(func(r *model.LeaveRequest) bool {
		return r.Status == status && r.StartDate <= to && r.EndDate >= from
	}), nil
}
