package leave

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Change describes one committed mutation, as written to the change journal.
type Change struct {
	Op         string        `msgpack:"op" json:"op"`
	Collection string        `msgpack:"c" json:"collection"`
	ID         uint64        `msgpack:"id" json:"id"`
	RequestID  string        `msgpack:"rid,omitempty" json:"requestId,omitempty"`
	Employee   *Employee     `msgpack:"emp,omitempty" json:"employee,omitempty"`
	Request    *LeaveRequest `msgpack:"req,omitempty" json:"leaveRequest,omitempty"`
}

func (c *Change) Encode() ([]byte, error) {
	return msgpack.Marshal(c)
}

func DecodeChange(data []byte) (*Change, error) {
	c := new(Change)
	if err := msgpack.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ChangeLog receives encoded changes. *journal.Journal implements it.
type ChangeLog interface {
	WriteRecord(timestamp uint32, data []byte) error
	Commit() error
}
