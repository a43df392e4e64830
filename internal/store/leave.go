package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"hrm-attendance/internal/model"
)

type LeaveStore struct {
	leave *mongo.Collection
}

func NewLeaveStore(ctx context.Context, db *MongoDB) (*LeaveStore, error) {
	leave := db.Collection("leave_requests")

	if _, err := leave.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "employee_id", Value: 1}, {Key: "start_date", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "start_date", Value: 1}, {Key: "end_date", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create leave_requests indexes: %w", err)
	}

	return &LeaveStore{leave: leave}, nil
}

// Create inserts a new leave request and sets the ID on the struct.
func (s *LeaveStore) Create(ctx context.Context, req *model.LeaveRequest) error {
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	res, err := s.leave.InsertOne(ctx, req)
	if err != nil {
		return wrapWriteErr("insert leave request", err)
	}
	req.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

// GetByID retrieves a leave request by its ObjectID, or nil if not found.
func (s *LeaveStore) GetByID(ctx context.Context, id bson.ObjectID) (*model.LeaveRequest, error) {
	var req model.LeaveRequest
	err := s.leave.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find leave request: %w", err)
	}
	return &req, nil
}

// Review moves a pending request to its reviewed state. It reports false if
// the request was no longer pending.
func (s *LeaveStore) Review(ctx context.Context, req *model.LeaveRequest) (bool, error) {
	req.UpdatedAt = time.Now()
	res, err := s.leave.ReplaceOne(ctx, bson.M{
		"_id":    req.ID,
		"status": model.LeaveStatusPending,
	}, req)
	if err != nil {
		return false, fmt.Errorf("update leave request: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// ListByEmployee returns an employee's requests, most recent start date first.
func (s *LeaveStore) ListByEmployee(ctx context.Context, employeeID string) ([]*model.LeaveRequest, error) {
	return s.find(ctx, bson.M{"employee_id": employeeID},
		options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}}))
}

// ListByStatus returns requests in the given status, oldest first.
func (s *LeaveStore) ListByStatus(ctx context.Context, status model.LeaveStatus) ([]*model.LeaveRequest, error) {
	return s.find(ctx, bson.M{"status": status},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// ListOverlapping returns requests in status that overlap [from, to].
func (s *LeaveStore) ListOverlapping(ctx context.Context, from, to string, status model.LeaveStatus) ([]*model.LeaveRequest, error) {
	return s.find(ctx, bson.M{
		"status":     status,
		"start_date": bson.M{"$lte": to},
		"end_date":   bson.M{"$gte": from},
	}, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
}

func (s *LeaveStore) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*model.LeaveRequest, error) {
	cursor, err := s.leave.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find leave requests: %w", err)
	}
	var results []*model.LeaveRequest
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode leave requests: %w", err)
	}
	return results, nil
}
