package leave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leavedesk/leavedesk/internal/requestctx"
	"github.com/leavedesk/leavedesk/store"
)

// Operation names, used for metrics, logs and journal records.
const (
	OpGetLeaveRequest            = "get_leave_request"
	OpSubmitLeaveRequest         = "submit_leave_request"
	OpUpdateLeaveRequest         = "update_leave_request"
	OpDeleteLeaveRequest         = "delete_leave_request"
	OpListLeaveRequests          = "list_leave_requests"
	OpGetLeaveRequestsByEmployee = "get_leave_requests_by_employee_id"
	OpGetPendingLeaveRequests    = "get_pending_leave_requests"
	OpApproveLeaveRequest        = "approve_leave_request"
	OpRejectLeaveRequest         = "reject_leave_request"
	OpGetEmployee                = "get_employee"
	OpRegisterEmployee           = "register_employee"
	OpUpdateEmployee             = "update_employee"
	OpDeleteEmployee             = "delete_employee"
	OpListEmployees              = "list_employees"
	OpCalculateLeaveBalance      = "calculate_leave_balance"
)

// MetricsRecorder observes the outcome of every operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type Options struct {
	// StrictEmployeeRefs rejects leave requests for unknown employees.
	StrictEmployeeRefs bool
	// GuardTransitions only allows approving or rejecting Pending requests.
	GuardTransitions bool

	Journal ChangeLog
	Metrics MetricsRecorder
	Logger  *slog.Logger
}

// Service implements the employee and leave request operations. Every
// operation runs in a single store transaction.
type Service struct {
	app    *App
	opt    Options
	logger *slog.Logger

	journalMu sync.Mutex
}

func NewService(app *App, opt Options) *Service {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{app: app, opt: opt, logger: logger}
}

func (s *Service) App() *App {
	return s.app
}

// Ready reports whether the store can serve a read transaction.
func (s *Service) Ready(ctx context.Context) error {
	return s.app.DB.Read(func(tx *store.Tx) error {
		_, err := s.app.Schema.IDs.Peek(tx)
		return err
	})
}

func (s *Service) GetLeaveRequest(ctx context.Context, id uint64) (LeaveRequest, error) {
	var req LeaveRequest
	err := s.read(ctx, OpGetLeaveRequest, func(tx *store.Tx) (err error) {
		req, err = s.app.Requests.Get(tx, id)
		return
	})
	return req, err
}

func (s *Service) SubmitLeaveRequest(ctx context.Context, employeeID, startDate, endDate uint64, reason string) (LeaveRequest, error) {
	var req LeaveRequest
	err := s.write(ctx, OpSubmitLeaveRequest, func(tx *store.Tx) (*Change, error) {
		if s.opt.StrictEmployeeRefs {
			ok, err := s.app.Employees.Exists(tx, employeeID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, invalidInputf("employee with id=%d does not exist", employeeID)
			}
		}
		var err error
		req, err = s.app.Requests.Submit(tx, employeeID, startDate, endDate, reason)
		if err != nil {
			return nil, err
		}
		return requestChange(OpSubmitLeaveRequest, req), nil
	})
	return req, err
}

func (s *Service) UpdateLeaveRequest(ctx context.Context, id, startDate, endDate uint64, reason string) (LeaveRequest, error) {
	var req LeaveRequest
	err := s.write(ctx, OpUpdateLeaveRequest, func(tx *store.Tx) (*Change, error) {
		var err error
		req, err = s.app.Requests.Update(tx, id, startDate, endDate, reason)
		if err != nil {
			return nil, err
		}
		return requestChange(OpUpdateLeaveRequest, req), nil
	})
	return req, err
}

func (s *Service) DeleteLeaveRequest(ctx context.Context, id uint64) error {
	return s.write(ctx, OpDeleteLeaveRequest, func(tx *store.Tx) (*Change, error) {
		if err := s.app.Requests.Delete(tx, id); err != nil {
			return nil, err
		}
		return &Change{Op: OpDeleteLeaveRequest, Collection: requestsTable, ID: id}, nil
	})
}

func (s *Service) ListLeaveRequests(ctx context.Context) ([]LeaveRequest, error) {
	var reqs []LeaveRequest
	err := s.read(ctx, OpListLeaveRequests, func(tx *store.Tx) (err error) {
		reqs, err = s.app.Requests.List(tx)
		return
	})
	return reqs, err
}

func (s *Service) GetLeaveRequestsByEmployeeID(ctx context.Context, employeeID uint64) ([]LeaveRequest, error) {
	var reqs []LeaveRequest
	err := s.read(ctx, OpGetLeaveRequestsByEmployee, func(tx *store.Tx) (err error) {
		reqs, err = s.app.Requests.ListByEmployee(tx, employeeID)
		return
	})
	return reqs, err
}

func (s *Service) GetPendingLeaveRequests(ctx context.Context) ([]LeaveRequest, error) {
	var reqs []LeaveRequest
	err := s.read(ctx, OpGetPendingLeaveRequests, func(tx *store.Tx) (err error) {
		reqs, err = s.app.Requests.ListPending(tx)
		return
	})
	return reqs, err
}

func (s *Service) ApproveLeaveRequest(ctx context.Context, id uint64) error {
	return s.transition(ctx, OpApproveLeaveRequest, id, Approved)
}

func (s *Service) RejectLeaveRequest(ctx context.Context, id uint64) error {
	return s.transition(ctx, OpRejectLeaveRequest, id, Rejected)
}

func (s *Service) transition(ctx context.Context, op string, id uint64, status Status) error {
	return s.write(ctx, op, func(tx *store.Tx) (*Change, error) {
		if s.opt.GuardTransitions {
			cur, err := s.app.Requests.Get(tx, id)
			if err != nil {
				return nil, err
			}
			if cur.Status != Pending {
				return nil, invalidInputf("leave request with id=%d is already %v", id, cur.Status)
			}
		}
		req, err := s.app.Requests.SetStatus(tx, id, status)
		if err != nil {
			return nil, err
		}
		return requestChange(op, req), nil
	})
}

func (s *Service) GetEmployee(ctx context.Context, id uint64) (Employee, error) {
	var emp Employee
	err := s.read(ctx, OpGetEmployee, func(tx *store.Tx) (err error) {
		emp, err = s.app.Employees.Get(tx, id)
		return
	})
	return emp, err
}

func (s *Service) RegisterEmployee(ctx context.Context, name, department, position string, remainingLeaveDays uint32) (Employee, error) {
	var emp Employee
	err := s.write(ctx, OpRegisterEmployee, func(tx *store.Tx) (*Change, error) {
		var err error
		emp, err = s.app.Employees.Register(tx, name, department, position, remainingLeaveDays)
		if err != nil {
			return nil, err
		}
		return employeeChange(OpRegisterEmployee, emp), nil
	})
	return emp, err
}

func (s *Service) UpdateEmployee(ctx context.Context, id uint64, name, department, position string, remainingLeaveDays uint32) (Employee, error) {
	var emp Employee
	err := s.write(ctx, OpUpdateEmployee, func(tx *store.Tx) (*Change, error) {
		var err error
		emp, err = s.app.Employees.Update(tx, id, name, department, position, remainingLeaveDays)
		if err != nil {
			return nil, err
		}
		return employeeChange(OpUpdateEmployee, emp), nil
	})
	return emp, err
}

// DeleteEmployee removes the employee only; their leave requests remain.
func (s *Service) DeleteEmployee(ctx context.Context, id uint64) error {
	return s.write(ctx, OpDeleteEmployee, func(tx *store.Tx) (*Change, error) {
		if err := s.app.Employees.Delete(tx, id); err != nil {
			return nil, err
		}
		return &Change{Op: OpDeleteEmployee, Collection: employeesTable, ID: id}, nil
	})
}

func (s *Service) ListEmployees(ctx context.Context) ([]Employee, error) {
	var emps []Employee
	err := s.read(ctx, OpListEmployees, func(tx *store.Tx) (err error) {
		emps, err = s.app.Employees.List(tx)
		return
	})
	return emps, err
}

func (s *Service) CalculateLeaveBalance(ctx context.Context, id uint64) (uint32, error) {
	var days uint32
	err := s.read(ctx, OpCalculateLeaveBalance, func(tx *store.Tx) (err error) {
		days, err = s.app.Employees.LeaveBalance(tx, id)
		return
	})
	return days, err
}

func (s *Service) read(ctx context.Context, op string, f func(tx *store.Tx) error) error {
	start := time.Now()
	err := s.app.DB.Read(f)
	s.finish(ctx, op, start, err)
	return err
}

func (s *Service) write(ctx context.Context, op string, f func(tx *store.Tx) (*Change, error)) error {
	start := time.Now()
	if s.opt.Journal != nil {
		// Journal records must follow commit order.
		s.journalMu.Lock()
		defer s.journalMu.Unlock()
	}
	var change *Change
	err := s.app.DB.Write(func(tx *store.Tx) error {
		var err error
		change, err = f(tx)
		return err
	})
	if err == nil && change != nil {
		s.record(ctx, change)
	}
	s.finish(ctx, op, start, err)
	return err
}

func (s *Service) finish(ctx context.Context, op string, start time.Time, err error) {
	elapsed := time.Since(start)
	if s.opt.Metrics != nil {
		s.opt.Metrics.Observe(ctx, op, err == nil, elapsed)
	}
	if err == nil {
		return
	}
	level := slog.LevelDebug
	switch KindOf(err) {
	case NotFound, InvalidInput:
	case Serialization:
		level = slog.LevelWarn
	default:
		level = slog.LevelError
	}
	s.logger.LogAttrs(ctx, level, "leave: operation failed", slog.String("op", op), slog.String("request_id", requestctx.GetRequestID(ctx)), slog.Any("err", err))
}

// record appends a committed change to the journal. The store is
// authoritative, so journal failures are only logged. Callers hold journalMu.
func (s *Service) record(ctx context.Context, c *Change) {
	if s.opt.Journal == nil {
		return
	}
	c.RequestID = requestctx.GetRequestID(ctx)
	data, err := c.Encode()
	if err == nil {
		err = s.opt.Journal.WriteRecord(0, data)
		if err == nil {
			err = s.opt.Journal.Commit()
		}
	}
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "leave: journal write failed", slog.String("op", c.Op), slog.Uint64("id", c.ID), slog.Any("err", err))
	}
}

func employeeChange(op string, emp Employee) *Change {
	return &Change{Op: op, Collection: employeesTable, ID: emp.ID, Employee: &emp}
}

func requestChange(op string, req LeaveRequest) *Change {
	return &Change{Op: op, Collection: requestsTable, ID: req.ID, Request: &req}
}
