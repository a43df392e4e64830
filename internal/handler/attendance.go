package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"hrm-attendance/internal/model"
	"hrm-attendance/internal/service"
	"hrm-attendance/internal/store"
)

// AttendanceService is implemented by *service.AttendanceManager.
type AttendanceService interface {
	Today() string
	CheckIn(ctx context.Context, employeeID string) (*model.AttendanceRecord, error)
	CheckOut(ctx context.Context, employeeID string) (*model.AttendanceRecord, error)
	TodayRecord(ctx context.Context, employeeID string) (*model.AttendanceRecord, error)
	GetHistory(ctx context.Context, employeeID string, limit int) ([]*model.AttendanceRecord, error)
	Create(ctx context.Context, in service.RecordInput) (*model.AttendanceRecord, error)
	Update(ctx context.Context, id string, in service.RecordInput) (*model.AttendanceRecord, error)
	Get(ctx context.Context, id string) (*model.AttendanceRecord, error)
	Delete(ctx context.Context, id string) (*model.AttendanceRecord, error)
	List(ctx context.Context, f store.AttendanceFilter) ([]*model.AttendanceRecord, error)
	Repair(ctx context.Context, date string) (string, int64, error)
}

// ReportService is implemented by *service.ReportService.
type ReportService interface {
	Summary(ctx context.Context, from, to string) ([]*model.AttendanceSummary, error)
	Stats(ctx context.Context, date string) (*model.DailyStats, error)
	Export(ctx context.Context, from, to string) ([]byte, error)
}

// EventPublisher is implemented by *service.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, typ model.AttendanceEventType, record *model.AttendanceRecord)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AttendanceHandler struct {
	attendance AttendanceService
	reports    ReportService
	events     EventPublisher
	live       http.Handler
	auth       *Auth
}

// NewAttendanceHandler wires the attendance routes. events and live may be
// nil.
func NewAttendanceHandler(attendance AttendanceService, reports ReportService, events EventPublisher, live http.Handler, auth *Auth) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, reports: reports, events: events, live: live, auth: auth}
}

// publish runs the notifiers before the response is written. Each notifier
// bounds its own latency; failures are logged by the publisher.
func (h *AttendanceHandler) publish(r *http.Request, typ model.AttendanceEventType, record *model.AttendanceRecord) {
	if h.events != nil {
		h.events.Publish(context.WithoutCancel(r.Context()), typ, record)
	}
}

// todayView lets clients decide which action button to offer.
type todayView struct {
	Date        string                  `json:"date"`
	Record      *model.AttendanceRecord `json:"record"`
	CanCheckIn  bool                    `json:"can_check_in"`
	CanCheckOut bool                    `json:"can_check_out"`
}

// HandleCheckIn opens today's record for the caller.
func (h *AttendanceHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	record, err := h.attendance.CheckIn(r.Context(), claims.EmployeeID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestLog(r).WithFields(logrus.Fields{"employee_id": record.EmployeeID, "date": record.Date}).Info("Checked in")
	h.publish(r, model.EventCheckIn, record)
	ok(w, r, http.StatusOK, record, "attendance.checked_in")
}

// HandleCheckOut closes today's record for the caller.
func (h *AttendanceHandler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	record, err := h.attendance.CheckOut(r.Context(), claims.EmployeeID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestLog(r).WithFields(logrus.Fields{
		"employee_id": record.EmployeeID,
		"date":        record.Date,
		"hours":       record.TotalHours,
		"status":      record.Status,
	}).Info("Checked out")
	h.publish(r, model.EventCheckOut, record)
	ok(w, r, http.StatusOK, record, "attendance.checked_out")
}

func (h *AttendanceHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	record, err := h.attendance.TodayRecord(r.Context(), claims.EmployeeID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := todayView{
		Date:        h.attendance.Today(),
		Record:      record,
		CanCheckIn:  !record.CheckedIn(),
		CanCheckOut: record.CheckedIn() && !record.CheckedOut(),
	}
	if record != nil {
		view.Date = record.Date
	}
	ok(w, r, http.StatusOK, view, "")
}

// HandleMyAttendance returns the caller's most recent records, newest first.
func (h *AttendanceHandler) HandleMyAttendance(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		fail(w, r, http.StatusBadRequest, "err.bad_request")
		return
	}
	claims := ClaimsFrom(r.Context())
	records, err := h.attendance.GetHistory(r.Context(), claims.EmployeeID(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, http.StatusOK, orEmpty(records), "")
}

func (h *AttendanceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		fail(w, r, http.StatusBadRequest, "err.bad_request")
		return
	}
	q := r.URL.Query()
	records, err := h.attendance.List(r.Context(), store.AttendanceFilter{
		EmployeeID: q.Get("employee_id"),
		From:       q.Get("from"),
		To:         q.Get("to"),
		Status:     model.AttendanceStatus(q.Get("status")),
		Limit:      limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, http.StatusOK, orEmpty(records), "")
}

func (h *AttendanceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.attendance.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, http.StatusOK, record, "")
}

func (h *AttendanceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "err.bad_request")
		return
	}
	record, err := h.attendance.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestLog(r).WithFields(logrus.Fields{"id": record.ID.Hex(), "by": ClaimsFrom(r.Context()).EmployeeID()}).Info("Attendance record created")
	h.publish(r, model.EventUpdated, record)
	ok(w, r, http.StatusCreated, record, "attendance.created")
}

func (h *AttendanceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "err.bad_request")
		return
	}
	record, err := h.attendance.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestLog(r).WithFields(logrus.Fields{"id": record.ID.Hex(), "by": ClaimsFrom(r.Context()).EmployeeID()}).Info("Attendance record updated")
	h.publish(r, model.EventUpdated, record)
	ok(w, r, http.StatusOK, record, "attendance.updated")
}

func (h *AttendanceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	record, err := h.attendance.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestLog(r).WithFields(logrus.Fields{"id": record.ID.Hex(), "by": ClaimsFrom(r.Context()).EmployeeID()}).Info("Attendance record deleted")
	h.publish(r, model.EventDeleted, record)
	ok(w, r, http.StatusOK, record, "attendance.deleted")
}

// HandleRepair removes records of a day bucket that carry no employee
// reference. Defaults to today.
func (h *AttendanceHandler) HandleRepair(w http.ResponseWriter, r *http.Request) {
	date, n, err := h.attendance.Repair(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestLog(r).WithFields(logrus.Fields{
		"date":    date,
		"removed": n,
		"by":      ClaimsFrom(r.Context()).EmployeeID(),
	}).Warn("Removed malformed attendance records")
	ok(w, r, http.StatusOK, map[string]any{"date": date, "removed": n}, "attendance.repaired",
		map[string]any{"Count": n, "Date": date})
}

// reportRange reads from/to, defaulting to the current month up to today.
func (h *AttendanceHandler) reportRange(r *http.Request) (string, string) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	today := h.attendance.Today()
	if to == "" {
		to = today
	}
	if from == "" {
		if t, err := time.Parse(time.DateOnly, to); err == nil {
			from = t.AddDate(0, 0, 1-t.Day()).Format(time.DateOnly)
		} else {
			from = to
		}
	}
	return from, to
}

func (h *AttendanceHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	from, to := h.reportRange(r)
	rows, err := h.reports.Summary(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"from": from, "to": to, "employees": orEmpty(rows)}, "")
}

func (h *AttendanceHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.attendance.Today()
	}
	stats, err := h.reports.Stats(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, http.StatusOK, stats, "")
}

func (h *AttendanceHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	from, to := h.reportRange(r)
	data, err := h.reports.Export(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance_%s_%s.xlsx"`, from, to))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		requestLog(r).WithError(err).Warn("Writing export")
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

// RegisterRoutes registers all attendance routes on the given mux.
func (h *AttendanceHandler) RegisterRoutes(mux *http.ServeMux) {
	a := h.auth
	staff := []Role{RoleAdmin, RoleHR}

	mux.Handle("POST /api/attendance/checkin", a.Require(h.HandleCheckIn))
	mux.Handle("POST /api/attendance/checkout", a.Require(h.HandleCheckOut))
	mux.Handle("GET /api/attendance/today", a.Require(h.HandleToday))
	mux.Handle("GET /api/attendance/my-attendance", a.Require(h.HandleMyAttendance))

	mux.Handle("GET /api/attendance", a.Require(h.HandleList, staff...))
	mux.Handle("POST /api/attendance", a.Require(h.HandleCreate, staff...))
	mux.Handle("GET /api/attendance/{id}", a.Require(h.HandleGet, staff...))
	mux.Handle("PUT /api/attendance/{id}", a.Require(h.HandleUpdate, staff...))
	mux.Handle("DELETE /api/attendance/{id}", a.Require(h.HandleDelete, staff...))
	mux.Handle("GET /api/attendance/report", a.Require(h.HandleReport, staff...))
	mux.Handle("GET /api/attendance/stats", a.Require(h.HandleStats, staff...))
	mux.Handle("GET /api/attendance/export", a.Require(h.HandleExport, staff...))
	mux.Handle("POST /api/attendance/repair", a.Require(h.HandleRepair, RoleAdmin))
	if h.live != nil {
		mux.Handle("GET /api/attendance/live", a.Require(h.live.ServeHTTP, staff...))
	}
}
