package leave

import (
	"github.com/leavedesk/leavedesk/store"
)

type EmployeeRepository struct {
	table *store.Table[Employee]
	ids   *store.Sequence
}

func (r *EmployeeRepository) Get(tx *store.Tx, id uint64) (Employee, error) {
	row, err := r.table.Get(tx, id)
	if err != nil {
		return Employee{}, classify(err, EmployeeCollection, id)
	}
	if row == nil {
		return Employee{}, notFound(EmployeeCollection, id)
	}
	return *row, nil
}

func (r *EmployeeRepository) Exists(tx *store.Tx, id uint64) (bool, error) {
	ok, err := r.table.Exists(tx, id)
	return ok, classify(err, EmployeeCollection, id)
}

// Register allocates an id and stores a new employee.
func (r *EmployeeRepository) Register(tx *store.Tx, name, department, position string, remainingLeaveDays uint32) (Employee, error) {
	id, err := r.ids.Next(tx)
	if err != nil {
		return Employee{}, err
	}
	emp := Employee{
		ID:                 id,
		Name:               name,
		Department:         department,
		Position:           position,
		RemainingLeaveDays: remainingLeaveDays,
	}
	if _, err := r.table.Put(tx, id, &emp); err != nil {
		return Employee{}, classify(err, EmployeeCollection, id)
	}
	return emp, nil
}

// Update overwrites every mutable field of an existing employee.
func (r *EmployeeRepository) Update(tx *store.Tx, id uint64, name, department, position string, remainingLeaveDays uint32) (Employee, error) {
	emp, err := r.Get(tx, id)
	if err != nil {
		return Employee{}, err
	}
	emp.Name = name
	emp.Department = department
	emp.Position = position
	emp.RemainingLeaveDays = remainingLeaveDays
	if _, err := r.table.Put(tx, id, &emp); err != nil {
		return Employee{}, classify(err, EmployeeCollection, id)
	}
	return emp, nil
}

func (r *EmployeeRepository) Delete(tx *store.Tx, id uint64) error {
	ok, err := r.table.Remove(tx, id)
	if err != nil {
		return classify(err, EmployeeCollection, id)
	}
	if !ok {
		return notFound(EmployeeCollection, id)
	}
	return nil
}

// List returns all employees by ascending id.
func (r *EmployeeRepository) List(tx *store.Tx) ([]Employee, error) {
	result := []Employee{}
	err := r.table.Walk(tx, func(k uint64, row *Employee) error {
		result = append(result, *row)
		return nil
	})
	if err != nil {
		return nil, classify(err, EmployeeCollection, 0)
	}
	return result, nil
}

func (r *EmployeeRepository) LeaveBalance(tx *store.Tx, id uint64) (uint32, error) {
	emp, err := r.Get(tx, id)
	if err != nil {
		return 0, err
	}
	return emp.RemainingLeaveDays, nil
}
