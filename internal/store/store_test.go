package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"hrm-attendance/internal/model"
)

func TestAttendanceFilter(t *testing.T) {
	tests := []struct {
		name string
		in   AttendanceFilter
		want bson.M
	}{
		{"empty", AttendanceFilter{}, bson.M{}},
		{"employee", AttendanceFilter{EmployeeID: "emp-1", Limit: 30}, bson.M{"employee_id": "emp-1"}},
		{"open range", AttendanceFilter{From: "2026-03-01"}, bson.M{"date": bson.M{"$gte": "2026-03-01"}}},
		{
			"everything",
			AttendanceFilter{EmployeeID: "emp-1", From: "2026-03-01", To: "2026-03-31", Status: model.AttendanceStatusHalfDay},
			bson.M{
				"employee_id": "emp-1",
				"date":        bson.M{"$gte": "2026-03-01", "$lte": "2026-03-31"},
				"status":      model.AttendanceStatusHalfDay,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, attendanceFilter(tt.in))
		})
	}
}

func TestWrapWriteErr(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
	err := wrapWriteErr("insert attendance", dup)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "insert attendance")

	other := errors.New("server selection timeout")
	err = wrapWriteErr("insert attendance", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, ErrDuplicate)
}

func TestCheckInDocuments(t *testing.T) {
	at := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)

	filter := checkInFilter("emp-1", "2026-03-02")
	assert.Equal(t, bson.M{"employee_id": "emp-1", "date": "2026-03-02", "check_in": nil}, filter)
	v, ok := filter["check_in"]
	require.True(t, ok, "an already stamped record must not match, so the loser hits the unique index")
	assert.Nil(t, v)

	update := checkInUpdate(at)
	assert.Equal(t, bson.M{
		"$set": bson.M{
			"check_in":   at,
			"status":     model.AttendanceStatusPresent,
			"updated_at": at,
		},
		"$setOnInsert": bson.M{
			"total_hours": 0.0,
			"created_at":  at,
		},
	}, update)

	set := update["$set"].(bson.M)
	onInsert := update["$setOnInsert"].(bson.M)
	for _, key := range []string{"created_at", "total_hours", "employee_id", "date", "check_out"} {
		assert.NotContains(t, set, key, "%s must not be rewritten on an existing record", key)
	}
	for key := range onInsert {
		assert.NotContains(t, set, key, "mongo rejects a path in both $set and $setOnInsert")
	}
}

func TestCheckOutDocuments(t *testing.T) {
	id := bson.NewObjectID()
	at := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, bson.M{
		"_id":       id,
		"check_in":  bson.M{"$ne": nil},
		"check_out": nil,
	}, checkOutFilter(id))

	update := checkOutUpdate(at, 8.5, model.AttendanceStatusPresent)
	assert.Equal(t, bson.M{"$set": bson.M{
		"check_out":   at,
		"total_hours": 8.5,
		"status":      model.AttendanceStatusPresent,
		"updated_at":  at,
	}}, update)
	assert.NotContains(t, update["$set"].(bson.M), "check_in", "check-out never touches check-in")
}

func TestOrphanFilter(t *testing.T) {
	filter := orphanFilter("2026-03-02")
	assert.Equal(t, bson.M{
		"date":        "2026-03-02",
		"employee_id": bson.M{"$in": bson.A{nil, ""}},
	}, filter)

	in := filter["employee_id"].(bson.M)["$in"].(bson.A)
	assert.Contains(t, in, nil, "null also matches a missing field")
	assert.Contains(t, in, "")
	assert.Len(t, in, 2, "real employee ids are never matched")
}
