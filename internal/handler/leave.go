package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"hrm-attendance/internal/model"
	"hrm-attendance/internal/service"
)

// LeaveService is implemented by *service.LeaveService.
type LeaveService interface {
	Submit(ctx context.Context, employeeID string, in service.LeaveInput) (*model.LeaveRequest, error)
	Mine(ctx context.Context, employeeID string) ([]*model.LeaveRequest, error)
	Pending(ctx context.Context) ([]*model.LeaveRequest, error)
	Approve(ctx context.Context, requestID, reviewerID string) (*model.LeaveRequest, error)
	Reject(ctx context.Context, requestID, reviewerID, reason string) (*model.LeaveRequest, error)
}

type LeaveHandler struct {
	svc  LeaveService
	auth *Auth
}

func NewLeaveHandler(svc LeaveService, auth *Auth) *LeaveHandler {
	return &LeaveHandler{svc: svc, auth: auth}
}

func (h *LeaveHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var in service.LeaveInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "err.bad_request")
		return
	}
	req, err := h.svc.Submit(r.Context(), ClaimsFrom(r.Context()).EmployeeID(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestLog(r).WithFields(logrus.Fields{
		"leave_id":    req.ID.Hex(),
		"employee_id": req.EmployeeID,
		"days":        req.Days,
	}).Info("Leave request submitted")
	ok(w, r, http.StatusCreated, req, "leave.submitted")
}

func (h *LeaveHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.Mine(r.Context(), ClaimsFrom(r.Context()).EmployeeID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, http.StatusOK, orEmpty(reqs), "")
}

func (h *LeaveHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.Pending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, http.StatusOK, orEmpty(reqs), "")
}

func (h *LeaveHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Approve(r.Context(), r.PathValue("id"), ClaimsFrom(r.Context()).EmployeeID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestLog(r).WithFields(logrus.Fields{"leave_id": req.ID.Hex(), "reviewer": req.ReviewerID}).Info("Leave request approved")
	ok(w, r, http.StatusOK, req, "leave.approved")
}

type rejectBody struct {
	Reason string `json:"reason"`
}

func (h *LeaveHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var body rejectBody
	if err := decodeJSON(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
		fail(w, r, http.StatusBadRequest, "err.bad_request")
		return
	}
	req, err := h.svc.Reject(r.Context(), r.PathValue("id"), ClaimsFrom(r.Context()).EmployeeID(), body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestLog(r).WithFields(logrus.Fields{"leave_id": req.ID.Hex(), "reviewer": req.ReviewerID}).Info("Leave request rejected")
	ok(w, r, http.StatusOK, req, "leave.rejected")
}

func (h *LeaveHandler) RegisterRoutes(mux *http.ServeMux) {
	a := h.auth
	mux.Handle("POST /api/leave", a.Require(h.HandleSubmit))
	mux.Handle("GET /api/leave/mine", a.Require(h.HandleMine))
	mux.Handle("GET /api/leave/pending", a.Require(h.HandlePending, RoleAdmin, RoleHR))
	mux.Handle("POST /api/leave/{id}/approve", a.Require(h.HandleApprove, RoleAdmin, RoleHR))
	mux.Handle("POST /api/leave/{id}/reject", a.Require(h.HandleReject, RoleAdmin, RoleHR))
}
