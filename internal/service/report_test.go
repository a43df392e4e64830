package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hrm-attendance/internal/model"
)

func seedReport(t *testing.T) (*ReportService, *fakeAttendanceStore) {
	t.Helper()
	att := newFakeAttendanceStore()
	lv := newFakeLeaveStore()

	in := func(d, c string) *time.Time { v := at(d, c); return &v }
	att.put(&model.AttendanceRecord{EmployeeID: "emp-1", Date: "2026-03-02", CheckIn: in("2026-03-02", "09:00:00"), CheckOut: in("2026-03-02", "17:30:00"), TotalHours: 8.5, Status: model.AttendanceStatusPresent})
	att.put(&model.AttendanceRecord{EmployeeID: "emp-1", Date: "2026-03-03", CheckIn: in("2026-03-03", "09:00:00"), CheckOut: in("2026-03-03", "13:00:00"), TotalHours: 4, Status: model.AttendanceStatusHalfDay})
	att.put(&model.AttendanceRecord{EmployeeID: "emp-2", Date: "2026-03-03", CheckIn: in("2026-03-03", "10:00:00"), Status: model.AttendanceStatusPresent})
	att.put(&model.AttendanceRecord{EmployeeID: "emp-3", Date: "2026-03-03", Status: model.AttendanceStatusAbsent})
	att.put(&model.AttendanceRecord{EmployeeID: "", Date: "2026-03-03", Status: model.AttendanceStatusPresent})

	ctx := context.Background()
	require.NoError(t, lv.Create(ctx, &model.LeaveRequest{EmployeeID: "emp-4", StartDate: "2026-02-27", EndDate: "2026-03-03", Status: model.LeaveStatusApproved}))
	require.NoError(t, lv.Create(ctx, &model.LeaveRequest{EmployeeID: "emp-3", StartDate: "2026-03-03", EndDate: "2026-03-03", Status: model.LeaveStatusApproved}))
	require.NoError(t, lv.Create(ctx, &model.LeaveRequest{EmployeeID: "emp-1", StartDate: "2026-03-03", EndDate: "2026-03-04", Status: model.LeaveStatusPending}))

	return NewReportService(att, lv, jakarta), att
}

func TestReportSummary(t *testing.T) {
	svc, _ := seedReport(t)

	rows, err := svc.Summary(context.Background(), "2026-03-01", "2026-03-31")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	byID := map[string]*model.AttendanceSummary{}
	for _, r := range rows {
		byID[r.EmployeeID] = r
	}
	assert.Equal(t, 2, byID["emp-1"].Days)
	assert.Equal(t, 1, byID["emp-1"].Present)
	assert.Equal(t, 1, byID["emp-1"].HalfDay)
	assert.Equal(t, 12.5, byID["emp-1"].TotalHours)
	assert.Equal(t, 0, byID["emp-1"].LeaveDays, "pending leave is not counted")
	assert.Equal(t, 1, byID["emp-2"].Open)
	assert.Equal(t, 1, byID["emp-3"].Absent)
	assert.Equal(t, 1, byID["emp-3"].LeaveDays)
	assert.Equal(t, 3, byID["emp-4"].LeaveDays, "leave is clipped to the range")
	assert.Equal(t, 0, byID["emp-4"].Days)
}

func TestReportSummaryRejectsBadRange(t *testing.T) {
	svc, _ := seedReport(t)
	var verr *ValidationError

	_, err := svc.Summary(context.Background(), "2026-03-31", "2026-03-01")
	assert.ErrorAs(t, err, &verr)
	_, err = svc.Summary(context.Background(), "2025-01-01", "2026-03-01")
	assert.ErrorAs(t, err, &verr)
	_, err = svc.Summary(context.Background(), "march", "2026-03-01")
	assert.ErrorAs(t, err, &verr)
}

func TestReportStats(t *testing.T) {
	svc, _ := seedReport(t)

	stats, err := svc.Stats(context.Background(), "2026-03-03")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CheckedIn)
	assert.Equal(t, 1, stats.CheckedOut)
	assert.Equal(t, []string{"emp-2"}, stats.Working)
	assert.Equal(t, []string{"emp-3", "emp-4"}, stats.OnLeave)
}

func TestReportExport(t *testing.T) {
	svc, _ := seedReport(t)

	data, err := svc.Export(context.Background(), "2026-03-01", "2026-03-31")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Attendance")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, "emp-1", rows[1][1])
	assert.Equal(t, "2026-03-03", rows[1][2])
	assert.Equal(t, "09:00:00", rows[1][3])
	assert.Equal(t, "13:00:00", rows[1][4])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, summary, 5)
	assert.Equal(t, summaryHeaders, summary[0])
	assert.Equal(t, "emp-1", summary[1][0])
}
