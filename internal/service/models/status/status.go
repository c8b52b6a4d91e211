package status

import (
	"database/sql/driver"
	"errors"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPreparing Status = "Preparing"
	StatusReady     Status = "Ready"
	StatusServed    Status = "Served"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// ParseStatus validates a raw status value. No transition ordering is
// enforced: staff dashboards may reassign any status to any order.
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case StatusPending.String():
		return StatusPending, nil
	case StatusPreparing.String():
		return StatusPreparing, nil
	case StatusReady.String():
		return StatusReady, nil
	case StatusServed.String():
		return StatusServed, nil
	case StatusCompleted.String():
		return StatusCompleted, nil
	case StatusCancelled.String():
		return StatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}
