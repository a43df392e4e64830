package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"hrm-attendance/internal/i18n"
	"hrm-attendance/internal/service"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("Encoding response")
	}
}

// ok writes a success envelope. messageID is optional.
func ok(w http.ResponseWriter, r *http.Request, status int, data any, messageID string, params ...map[string]any) {
	env := envelope{Success: true, Data: data}
	if messageID != "" {
		env.Message = i18n.T(r.Context(), messageID, params...)
	}
	writeJSON(w, status, env)
}

func fail(w http.ResponseWriter, r *http.Request, status int, messageID string, params ...map[string]any) {
	writeJSON(w, status, envelope{Success: false, Message: i18n.T(r.Context(), messageID, params...)})
}

// writeError maps service errors onto status codes and localized messages.
// Anything unrecognised is an infrastructure failure: it is logged and the
// caller gets a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(w, r, http.StatusBadRequest, verr.Key, map[string]any{"Detail": verr.Detail})
	case errors.Is(err, service.ErrAlreadyCheckedIn):
		fail(w, r, http.StatusBadRequest, "attendance.already_checked_in")
	case errors.Is(err, service.ErrCheckInRequired):
		fail(w, r, http.StatusBadRequest, "attendance.check_in_required")
	case errors.Is(err, service.ErrAlreadyCheckedOut):
		fail(w, r, http.StatusBadRequest, "attendance.already_checked_out")
	case errors.Is(err, service.ErrRecordNotFound):
		fail(w, r, http.StatusNotFound, "attendance.not_found")
	case errors.Is(err, service.ErrDuplicateRecord):
		fail(w, r, http.StatusConflict, "attendance.duplicate")
	case errors.Is(err, service.ErrLeaveNotFound):
		fail(w, r, http.StatusNotFound, "leave.not_found")
	case errors.Is(err, service.ErrLeaveNotPending):
		fail(w, r, http.StatusConflict, "leave.not_pending")
	default:
		requestLog(r).WithError(err).Error("Request failed")
		fail(w, r, http.StatusInternalServerError, "err.internal")
		return
	}
	requestLog(r).WithField("reason", err.Error()).Info("Request rejected")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
