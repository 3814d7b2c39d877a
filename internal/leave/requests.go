package leave

import (
	"github.com/leavedesk/leavedesk/store"
)

type RequestRepository struct {
	table *store.Table[LeaveRequest]
	ids   *store.Sequence
}

func (r *RequestRepository) Get(tx *store.Tx, id uint64) (LeaveRequest, error) {
	row, err := r.table.Get(tx, id)
	if err != nil {
		return LeaveRequest{}, classify(err, RequestCollection, id)
	}
	if row == nil {
		return LeaveRequest{}, notFound(RequestCollection, id)
	}
	return *row, nil
}

// Submit allocates an id and stores a new Pending request. The employee id
// is not checked here.
func (r *RequestRepository) Submit(tx *store.Tx, employeeID, startDate, endDate uint64, reason string) (LeaveRequest, error) {
	id, err := r.ids.Next(tx)
	if err != nil {
		return LeaveRequest{}, err
	}
	req := LeaveRequest{
		ID:         id,
		EmployeeID: employeeID,
		StartDate:  startDate,
		EndDate:    endDate,
		Reason:     reason,
		Status:     Pending,
	}
	if _, err := r.table.Put(tx, id, &req); err != nil {
		return LeaveRequest{}, classify(err, RequestCollection, id)
	}
	return req, nil
}

// Update overwrites the dates and the reason. Status and employee id are
// left as they are.
func (r *RequestRepository) Update(tx *store.Tx, id, startDate, endDate uint64, reason string) (LeaveRequest, error) {
	req, err := r.Get(tx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	req.StartDate = startDate
	req.EndDate = endDate
	req.Reason = reason
	if _, err := r.table.Put(tx, id, &req); err != nil {
		return LeaveRequest{}, classify(err, RequestCollection, id)
	}
	return req, nil
}

func (r *RequestRepository) Delete(tx *store.Tx, id uint64) error {
	ok, err := r.table.Remove(tx, id)
	if err != nil {
		return classify(err, RequestCollection, id)
	}
	if !ok {
		return notFound(RequestCollection, id)
	}
	return nil
}

func (r *RequestRepository) Approve(tx *store.Tx, id uint64) (LeaveRequest, error) {
	return r.SetStatus(tx, id, Approved)
}

func (r *RequestRepository) Reject(tx *store.Tx, id uint64) (LeaveRequest, error) {
	return r.SetStatus(tx, id, Rejected)
}

// SetStatus overwrites the status regardless of its current value.
func (r *RequestRepository) SetStatus(tx *store.Tx, id uint64, status Status) (LeaveRequest, error) {
	req, err := r.Get(tx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	req.Status = status
	if _, err := r.table.Put(tx, id, &req); err != nil {
		return LeaveRequest{}, classify(err, RequestCollection, id)
	}
	return req, nil
}

func (r *RequestRepository) List(tx *store.Tx) ([]LeaveRequest, error) {
	return r.filter(tx, func(*LeaveRequest) bool { return true })
}

// ListByEmployee scans every request. An employee without requests yields
// an empty slice, not an error.
func (r *RequestRepository) ListByEmployee(tx *store.Tx, employeeID uint64) ([]LeaveRequest, error) {
	return r.filter(tx, func(req *LeaveRequest) bool { return req.EmployeeID == employeeID })
}

func (r *RequestRepository) ListPending(tx *store.Tx) ([]LeaveRequest, error) {
	return r.filter(tx, func(req *LeaveRequest) bool { return req.Status == Pending })
}

func (r *RequestRepository) filter(tx *store.Tx, keep func(*LeaveRequest) bool) ([]LeaveRequest, error) {
	result := []LeaveRequest{}
	err := r.table.Walk(tx, func(k uint64, row *LeaveRequest) error {
		if keep(row) {
			result = append(result, *row)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, RequestCollection, 0)
	}
	return result, nil
}
