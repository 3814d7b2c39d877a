package leave

import (
	"encoding/json"
	"fmt"
)

type Employee struct {
	ID                 uint64 `msgpack:"id" json:"id"`
	Name               string `msgpack:"n" json:"name"`
	Department         string `msgpack:"d" json:"department"`
	Position           string `msgpack:"p" json:"position"`
	RemainingLeaveDays uint32 `msgpack:"rld" json:"remainingLeaveDays"`
}

type LeaveRequest struct {
	ID         uint64 `msgpack:"id" json:"id"`
	EmployeeID uint64 `msgpack:"emp" json:"employeeId"`
	StartDate  uint64 `msgpack:"sd" json:"startDate"`
	EndDate    uint64 `msgpack:"ed" json:"endDate"`
	Reason     string `msgpack:"r" json:"reason"`
	Status     Status `msgpack:"st" json:"status"`
}

// Status is stored as a small integer and rendered by name in JSON.
type Status uint8

const (
	Pending Status = iota
	Approved
	Rejected
)

var statusNames = [...]string{
	Pending:  "Pending",
	Approved: "Approved",
	Rejected: "Rejected",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func ParseStatus(str string) (Status, error) {
	for i, name := range statusNames {
		if name == str {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown leave request status %q", str)
}

func (s Status) MarshalJSON() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid leave request status %d", uint8(s))
	}
	return json.Marshal(statusNames[s])
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
