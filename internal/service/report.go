package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"hrm-attendance/internal/model"
	"hrm-attendance/internal/store"
)

const maxReportDays = 366

// ReportService is the read side over attendance and leave. It never writes.
type ReportService struct {
	attendance AttendanceRepository
	leave      LeaveRepository
	loc        *time.Location
}

func NewReportService(attendance AttendanceRepository, leave LeaveRepository, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{attendance: attendance, leave: leave, loc: loc}
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("report.err.invalid_range", from)
	}
	end, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("report.err.invalid_range", to)
	}
	if end.Before(start) || end.Sub(start).Hours()/24 >= maxReportDays {
		return time.Time{}, time.Time{}, invalid("report.err.invalid_range", from+".."+to)
	}
	return start, end, nil
}

// Summary aggregates attendance and approved leave per employee over [from, to].
func (s *ReportService) Summary(ctx context.Context, from, to string) ([]*model.AttendanceSummary, error) {
	start, end, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}

	rows, err := s.attendance.Summarize(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("summarize attendance: %w", err)
	}
	byEmployee := make(map[string]*model.AttendanceSummary, len(rows))
	for _, r := range rows {
		r.TotalHours = math.Round(r.TotalHours*100) / 100
		byEmployee[r.EmployeeID] = r
	}

	leaves, err := s.leave.ListOverlapping(ctx, from, to, model.LeaveStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved leave: %w", err)
	}
	for _, l := range leaves {
		days := overlapDays(l, start, end)
		if days == 0 {
			continue
		}
		sum, ok := byEmployee[l.EmployeeID]
		if !ok {
			sum = &model.AttendanceSummary{EmployeeID: l.EmployeeID}
			byEmployee[l.EmployeeID] = sum
		}
		sum.LeaveDays += days
	}

	out := make([]*model.AttendanceSummary, 0, len(byEmployee))
	for _, sum := range byEmployee {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func overlapDays(l *model.LeaveRequest, start, end time.Time) int {
	ls, err1 := time.Parse(time.DateOnly, l.StartDate)
	le, err2 := time.Parse(time.DateOnly, l.EndDate)
	if err1 != nil || err2 != nil {
		return 0
	}
	if ls.Before(start) {
		ls = start
	}
	if le.After(end) {
		le = end
	}
	if le.Before(ls) {
		return 0
	}
	return int(le.Sub(ls).Hours()/24) + 1
}

// Stats is a snapshot of one day bucket.
func (s *ReportService) Stats(ctx context.Context, date string) (*model.DailyStats, error) {
	if _, _, err := parseRange(date, date); err != nil {
		return nil, err
	}
	records, err := s.attendance.List(ctx, store.AttendanceFilter{From: date, To: date})
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	stats := &model.DailyStats{Date: date, Working: []string{}, OnLeave: []string{}}
	for _, r := range employeeRecords(records) {
		if r.CheckedIn() {
			stats.CheckedIn++
		}
		if r.CheckedOut() {
			stats.CheckedOut++
		} else if r.CheckedIn() {
			stats.Working = append(stats.Working, r.EmployeeID)
		}
	}

	leaves, err := s.leave.ListOverlapping(ctx, date, date, model.LeaveStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved leave: %w", err)
	}
	seen := map[string]bool{}
	for _, l := range leaves {
		if l.Covers(date) && !seen[l.EmployeeID] {
			seen[l.EmployeeID] = true
			stats.OnLeave = append(stats.OnLeave, l.EmployeeID)
		}
	}
	sort.Strings(stats.Working)
	sort.Strings(stats.OnLeave)
	return stats, nil
}

var exportHeaders = []string{"No", "Employee", "Date", "Check In", "Check Out", "Hours", "Status", "Notes"}

var summaryHeaders = []string{"Employee", "Days", "Present", "Late", "Half Day", "Absent", "Open", "Leave Days", "Total Hours"}

// Export renders records and the per-employee summary for [from, to] as an
// xlsx workbook.
func (s *ReportService) Export(ctx context.Context, from, to string) ([]byte, error) {
	if _, _, err := parseRange(from, to); err != nil {
		return nil, err
	}
	records, err := s.attendance.List(ctx, store.AttendanceFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	summary, err := s.Summary(ctx, from, to)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	defer file.Close()

	sheet := "Attendance"
	if err := file.SetSheetName(file.GetSheetName(file.GetActiveSheetIndex()), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRow(file, sheet, 1, toAny(exportHeaders)); err != nil {
		return nil, err
	}
	for i, r := range employeeRecords(records) {
		row := []any{i + 1, r.EmployeeID, r.Date, s.clockTime(r.CheckIn), s.clockTime(r.CheckOut), r.TotalHours, string(r.Status), r.Notes}
		if err := writeRow(file, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := file.NewSheet("Summary"); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeRow(file, "Summary", 1, toAny(summaryHeaders)); err != nil {
		return nil, err
	}
	for i, sum := range summary {
		row := []any{sum.EmployeeID, sum.Days, sum.Present, sum.Late, sum.HalfDay, sum.Absent, sum.Open, sum.LeaveDays, sum.TotalHours}
		if err := writeRow(file, "Summary", i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// employeeRecords drops records without an employee reference.
func employeeRecords(records []*model.AttendanceRecord) []*model.AttendanceRecord {
	out := records[:0:0]
	for _, r := range records {
		if r.EmployeeID != "" {
			out = append(out, r)
		}
	}
	return out
}

func (s *ReportService) clockTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(s.loc).Format("15:04:05")
}

func writeRow(file *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
