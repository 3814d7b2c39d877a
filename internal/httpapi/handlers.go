package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leavedesk/leavedesk/internal/leave"
	"github.com/leavedesk/leavedesk/internal/requestctx"
)

type Handler struct {
	Service *leave.Service
}

func NewHandler(service *leave.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.handleListEmployees)
		r.Post("/", h.handleRegisterEmployee)
		r.Get("/{id}", h.handleGetEmployee)
		r.Put("/{id}", h.handleUpdateEmployee)
		r.Delete("/{id}", h.handleDeleteEmployee)
		r.Get("/{id}/balance", h.handleLeaveBalance)
		r.Get("/{id}/leave-requests", h.handleRequestsByEmployee)
	})
	r.Route("/leave-requests", func(r chi.Router) {
		r.Get("/", h.handleListRequests)
		r.Post("/", h.handleSubmitRequest)
		r.Get("/pending", h.handlePendingRequests)
		r.Get("/{id}", h.handleGetRequest)
		r.Put("/{id}", h.handleUpdateRequest)
		r.Delete("/{id}", h.handleDeleteRequest)
		r.Post("/{id}/approve", h.handleApproveRequest)
		r.Post("/{id}/reject", h.handleRejectRequest)
	})
}

type employeePayload struct {
	Name               string `json:"name"`
	Department         string `json:"department"`
	Position           string `json:"position"`
	RemainingLeaveDays uint32 `json:"remainingLeaveDays"`
}

type submitPayload struct {
	EmployeeID uint64 `json:"employeeId"`
	StartDate  uint64 `json:"startDate"`
	EndDate    uint64 `json:"endDate"`
	Reason     string `json:"reason"`
}

type updateRequestPayload struct {
	StartDate uint64 `json:"startDate"`
	EndDate   uint64 `json:"endDate"`
	Reason    string `json:"reason"`
}

type balanceResponse struct {
	EmployeeID         uint64 `json:"employeeId"`
	RemainingLeaveDays uint32 `json:"remainingLeaveDays"`
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := h.Service.ListEmployees(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	Success(w, emps, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleRegisterEmployee(w http.ResponseWriter, r *http.Request) {
	var payload employeePayload
	if !decode(w, r, &payload) {
		return
	}
	emp, err := h.Service.RegisterEmployee(r.Context(), payload.Name, payload.Department, payload.Position, payload.RemainingLeaveDays)
	if err != nil {
		fail(w, r, err)
		return
	}
	Created(w, emp, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	emp, err := h.Service.GetEmployee(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	Success(w, emp, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var payload employeePayload
	if !decode(w, r, &payload) {
		return
	}
	emp, err := h.Service.UpdateEmployee(r.Context(), id, payload.Name, payload.Department, payload.Position, payload.RemainingLeaveDays)
	if err != nil {
		fail(w, r, err)
		return
	}
	Success(w, emp, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteEmployee(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	Success(w, nil, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleLeaveBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	days, err := h.Service.CalculateLeaveBalance(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	Success(w, balanceResponse{EmployeeID: id, RemainingLeaveDays: days}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleRequestsByEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	reqs, err := h.Service.GetLeaveRequestsByEmployeeID(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	Success(w, reqs, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Service.ListLeaveRequests(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	Success(w, reqs, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Service.GetPendingLeaveRequests(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	Success(w, reqs, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if !decode(w, r, &payload) {
		return
	}
	req, err := h.Service.SubmitLeaveRequest(r.Context(), payload.EmployeeID, payload.StartDate, payload.EndDate, payload.Reason)
	if err != nil {
		fail(w, r, err)
		return
	}
	Created(w, req, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, err := h.Service.GetLeaveRequest(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	Success(w, req, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var payload updateRequestPayload
	if !decode(w, r, &payload) {
		return
	}
	req, err := h.Service.UpdateLeaveRequest(r.Context(), id, payload.StartDate, payload.EndDate, payload.Reason)
	if err != nil {
		fail(w, r, err)
		return
	}
	Success(w, req, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteLeaveRequest(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	Success(w, nil, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Service.ApproveLeaveRequest(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	Success(w, nil, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Service.RejectLeaveRequest(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	Success(w, nil, requestctx.GetRequestID(r.Context()))
}

func idParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		Fail(w, http.StatusBadRequest, "invalid_input", "invalid id "+strconv.Quote(raw), requestctx.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			fail(w, r, err)
		} else {
			Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", requestctx.GetRequestID(r.Context()))
		}
		return false
	}
	return true
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := errorResponse(err)
	Fail(w, status, code, msg, requestctx.GetRequestID(r.Context()))
}
