package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"hrm-attendance/internal/model"
)

const maxLeaveReason = 500

type LeaveRepository interface {
	Create(ctx context.Context, req *model.LeaveRequest) error
	GetByID(ctx context.Context, id bson.ObjectID) (*model.LeaveRequest, error)
	Review(ctx context.Context, req *model.LeaveRequest) (bool, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*model.LeaveRequest, error)
	ListByStatus(ctx context.Context, status model.LeaveStatus) ([]*model.LeaveRequest, error)
	ListOverlapping(ctx context.Context, from, to string, status model.LeaveStatus) ([]*model.LeaveRequest, error)
}

type LeaveService struct {
	store LeaveRepository
	clock Clock
	loc   *time.Location
}

func NewLeaveService(store LeaveRepository, clock Clock, loc *time.Location) *LeaveService {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.Local
	}
	return &LeaveService{store: store, clock: clock, loc: loc}
}

type LeaveInput struct {
	Type      model.LeaveType `json:"type"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Reason    string          `json:"reason"`
}

// Submit files a pending leave request for employeeID.
func (s *LeaveService) Submit(ctx context.Context, employeeID string, in LeaveInput) (*model.LeaveRequest, error) {
	if !in.Type.Valid() {
		return nil, invalid("leave.err.invalid_type", string(in.Type))
	}
	if in.EndDate == "" {
		in.EndDate = in.StartDate
	}
	start, err := time.Parse(time.DateOnly, in.StartDate)
	if err != nil {
		return nil, invalid("leave.err.invalid_date", in.StartDate)
	}
	end, err := time.Parse(time.DateOnly, in.EndDate)
	if err != nil {
		return nil, invalid("leave.err.invalid_date", in.EndDate)
	}
	if end.Before(start) {
		return nil, invalid("leave.err.end_before_start", "")
	}
	today := s.clock.Now().In(s.loc).Format(time.DateOnly)
	if in.StartDate < today {
		return nil, invalid("leave.err.past_date", in.StartDate)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" || len(reason) > maxLeaveReason {
		return nil, invalid("leave.err.reason", "")
	}

	req := &model.LeaveRequest{
		EmployeeID: employeeID,
		Type:       in.Type,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Days:       int(end.Sub(start).Hours()/24) + 1,
		Reason:     reason,
		Status:     model.LeaveStatusPending,
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create leave request: %w", err)
	}
	return req, nil
}

func (s *LeaveService) Mine(ctx context.Context, employeeID string) ([]*model.LeaveRequest, error) {
	reqs, err := s.store.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	return reqs, nil
}

func (s *LeaveService) Pending(ctx context.Context) ([]*model.LeaveRequest, error) {
	reqs, err := s.store.ListByStatus(ctx, model.LeaveStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending leave requests: %w", err)
	}
	return reqs, nil
}

func (s *LeaveService) Approve(ctx context.Context, requestID, reviewerID string) (*model.LeaveRequest, error) {
	return s.review(ctx, requestID, reviewerID, model.LeaveStatusApproved, "")
}

func (s *LeaveService) Reject(ctx context.Context, requestID, reviewerID, reason string) (*model.LeaveRequest, error) {
	return s.review(ctx, requestID, reviewerID, model.LeaveStatusRejected, strings.TrimSpace(reason))
}

func (s *LeaveService) review(ctx context.Context, requestID, reviewerID string, status model.LeaveStatus, rejectReason string) (*model.LeaveRequest, error) {
	id, err := bson.ObjectIDFromHex(requestID)
	if err != nil {
		return nil, ErrLeaveNotFound
	}

	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get leave request: %w", err)
	}
	if req == nil {
		return nil, ErrLeaveNotFound
	}
	if req.Status != model.LeaveStatusPending {
		return nil, ErrLeaveNotPending
	}

	now := s.clock.Now()
	req.Status = status
	req.ReviewerID = reviewerID
	req.ReviewedAt = &now
	req.RejectReason = rejectReason

	ok, err := s.store.Review(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update leave request: %w", err)
	}
	if !ok {
		return nil, ErrLeaveNotPending
	}
	return req, nil
}
