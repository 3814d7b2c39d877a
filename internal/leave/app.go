package leave

import (
	"github.com/leavedesk/leavedesk/store"
)

// MaxRecordSize bounds the encoded size of employees and leave requests.
const MaxRecordSize = 1024

const (
	employeesTable = "employees"
	requestsTable  = "leave_requests"
	idsSequence    = "ids"
)

// Schema declares the tables and the shared id sequence.
type Schema struct {
	*store.Schema
	Employees *store.Table[Employee]
	Requests  *store.Table[LeaveRequest]
	IDs       *store.Sequence
}

func NewSchema() *Schema {
	scm := store.NewSchema()
	return &Schema{
		Schema:    scm,
		Employees: store.AddTable[Employee](scm, employeesTable, 1, MaxRecordSize),
		Requests:  store.AddTable[LeaveRequest](scm, requestsTable, 1, MaxRecordSize),
		IDs:       store.AddSequence(scm, idsSequence),
	}
}

// App owns the database, the id sequence and both repositories.
type App struct {
	DB        *store.DB
	Schema    *Schema
	Employees *EmployeeRepository
	Requests  *RequestRepository
}

func NewApp(db *store.DB, scm *Schema) *App {
	return &App{
		DB:        db,
		Schema:    scm,
		Employees: &EmployeeRepository{table: scm.Employees, ids: scm.IDs},
		Requests:  &RequestRepository{table: scm.Requests, ids: scm.IDs},
	}
}

// Open opens the database at path with a fresh schema.
func Open(path string, opt store.Options) (*App, error) {
	scm := NewSchema()
	db, err := store.Open(path, scm.Schema, opt)
	if err != nil {
		return nil, err
	}
	return NewApp(db, scm), nil
}

func (app *App) Close() error {
	return app.DB.Close()
}
