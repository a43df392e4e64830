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

// AttendanceFilter narrows admin listings. Zero values are ignored.
type AttendanceFilter struct {
	EmployeeID string
	From       string // inclusive, YYYY-MM-DD
	To         string // inclusive, YYYY-MM-DD
	Status     model.AttendanceStatus
	Limit      int
}

type AttendanceStore struct {
	attendance *mongo.Collection
}

func NewAttendanceStore(ctx context.Context, db *MongoDB) (*AttendanceStore, error) {
	attendance := db.Collection("attendance")

	if _, err := attendance.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "employee_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "employee_id", Value: 1}, {Key: "date", Value: -1}}},
	}); err != nil {
		return nil, fmt.Errorf("create attendance indexes: %w", err)
	}

	return &AttendanceStore{attendance: attendance}, nil
}

// FindByEmployeeDate returns the record for (employeeID, date), or nil if not found.
func (s *AttendanceStore) FindByEmployeeDate(ctx context.Context, employeeID, date string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := s.attendance.FindOne(ctx, bson.M{
		"employee_id": employeeID,
		"date":        date,
	}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// FindByID returns the record with the given ID, or nil if not found.
func (s *AttendanceStore) FindByID(ctx context.Context, id bson.ObjectID) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := s.attendance.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// UpsertCheckIn stamps check-in on the (employeeID, date) record in a single
// conditional write. The filter only matches a record without a check-in, so
// if one already exists with a check-in the upsert falls through to an
// insert and the unique index rejects it with ErrDuplicate.
// employee_id, date and created_at are only written on insert.
func (s *AttendanceStore) UpsertCheckIn(ctx context.Context, employeeID, date string, at time.Time) (*model.AttendanceRecord, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var record model.AttendanceRecord
	err := s.attendance.FindOneAndUpdate(ctx, checkInFilter(employeeID, date), checkInUpdate(at), opts).Decode(&record)
	if err != nil {
		return nil, wrapWriteErr("upsert check-in", err)
	}
	return &record, nil
}

// checkInFilter only matches a record that has no check-in yet.
func checkInFilter(employeeID, date string) bson.M {
	return bson.M{
		"employee_id": employeeID,
		"date":        date,
		"check_in":    nil,
	}
}

func checkInUpdate(at time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"check_in":   at,
			"status":     model.AttendanceStatusPresent,
			"updated_at": at,
		},
		"$setOnInsert": bson.M{
			"total_hours": 0.0,
			"created_at":  at,
		},
	}
}

// CompleteCheckOut sets check-out fields on a checked-in record that has not
// been checked out yet. It reports false if no such record matched.
func (s *AttendanceStore) CompleteCheckOut(ctx context.Context, id bson.ObjectID, at time.Time, hours float64, status model.AttendanceStatus) (bool, error) {
	res, err := s.attendance.UpdateOne(ctx, checkOutFilter(id), checkOutUpdate(at, hours, status))
	if err != nil {
		return false, fmt.Errorf("complete check-out: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func checkOutFilter(id bson.ObjectID) bson.M {
	return bson.M{
		"_id":       id,
		"check_in":  bson.M{"$ne": nil},
		"check_out": nil,
	}
}

func checkOutUpdate(at time.Time, hours float64, status model.AttendanceStatus) bson.M {
	return bson.M{
		"$set": bson.M{
			"check_out":   at,
			"total_hours": hours,
			"status":      status,
			"updated_at":  at,
		},
	}
}

// ListByEmployee returns the most recent records for an employee, newest first.
func (s *AttendanceStore) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]*model.AttendanceRecord, error) {
	return s.List(ctx, AttendanceFilter{EmployeeID: employeeID, Limit: limit})
}

// List returns records matching f ordered by date descending.
func (s *AttendanceStore) List(ctx context.Context, f AttendanceFilter) ([]*model.AttendanceRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "employee_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cursor, err := s.attendance.Find(ctx, attendanceFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	var results []*model.AttendanceRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode attendance: %w", err)
	}
	return results, nil
}

func attendanceFilter(f AttendanceFilter) bson.M {
	filter := bson.M{}
	if f.EmployeeID != "" {
		filter["employee_id"] = f.EmployeeID
	}
	if f.From != "" || f.To != "" {
		date := bson.M{}
		if f.From != "" {
			date["$gte"] = f.From
		}
		if f.To != "" {
			date["$lte"] = f.To
		}
		filter["date"] = date
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

// Insert creates a record and sets the ID on the struct.
func (s *AttendanceStore) Insert(ctx context.Context, record *model.AttendanceRecord) error {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	res, err := s.attendance.InsertOne(ctx, record)
	if err != nil {
		return wrapWriteErr("insert attendance", err)
	}
	record.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

// Replace overwrites an existing record.
func (s *AttendanceStore) Replace(ctx context.Context, record *model.AttendanceRecord) error {
	record.UpdatedAt = time.Now()
	res, err := s.attendance.ReplaceOne(ctx, bson.M{"_id": record.ID}, record)
	if err != nil {
		return wrapWriteErr("replace attendance", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AttendanceStore) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.attendance.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrphans removes records of a day bucket that carry no employee
// reference. Records of real employees are never matched.
func (s *AttendanceStore) DeleteOrphans(ctx context.Context, date string) (int64, error) {
	res, err := s.attendance.DeleteMany(ctx, orphanFilter(date))
	if err != nil {
		return 0, fmt.Errorf("delete orphan attendance: %w", err)
	}
	return res.DeletedCount, nil
}

// orphanFilter matches a missing, null or empty employee_id.
func orphanFilter(date string) bson.M {
	return bson.M{
		"date":        date,
		"employee_id": bson.M{"$in": bson.A{nil, ""}},
	}
}

// Summarize aggregates records per employee over [from, to].
func (s *AttendanceStore) Summarize(ctx context.Context, from, to string) ([]*model.AttendanceSummary, error) {
	countStatus := func(status model.AttendanceStatus) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$status", status}}, 1, 0}}}
	}
	isSet := func(field string) bson.M {
		return bson.M{"$ne": bson.A{bson.M{"$ifNull": bson.A{field, nil}}, nil}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"date":        bson.M{"$gte": from, "$lte": to},
			"employee_id": bson.M{"$nin": bson.A{nil, ""}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$employee_id",
			"days":     bson.M{"$sum": 1},
			"present":  countStatus(model.AttendanceStatusPresent),
			"late":     countStatus(model.AttendanceStatusLate),
			"half_day": countStatus(model.AttendanceStatusHalfDay),
			"absent":   countStatus(model.AttendanceStatusAbsent),
			"open": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{isSet("$check_in"), bson.M{"$not": bson.A{isSet("$check_out")}}}},
				1, 0,
			}}},
			"total_hours": bson.M{"$sum": "$total_hours"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := s.attendance.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate attendance: %w", err)
	}
	var results []*model.AttendanceSummary
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode attendance summary: %w", err)
	}
	return results, nil
}
