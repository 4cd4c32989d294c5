package csmacd

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ConfigError reports a simulation parameter that cannot be used
type ConfigError struct {
	Field  string
	Reason string
}

func (ce *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", ce.Field, ce.Reason)
}

// OverflowError is returned when a node's queue is at capacity and
// another arrival is pushed
type OverflowError struct {
	Node     int
	Capacity int
}

func (oe *OverflowError) Error() string {
	return fmt.Sprintf("node %d: event queue overflow at capacity %d", oe.Node, oe.Capacity)
}

// EmptyQueueError marks a pop from a node queue that holds nothing.
// The engine never does this, so it is raised as a panic
type EmptyQueueError struct {
	Node int
	Op   string
}

func (ee *EmptyQueueError) Error() string {
	return fmt.Sprintf("node %d: %s on empty event queue", ee.Node, ee.Op)
}

// ReportErrs folds the non-nil errors of the list into one error.
// It returns nil when there are none, and a lone error unwrapped
func ReportErrs(errs []error) (err error) {
	for _, e := range errs {
		switch {
		case e == nil:
			// ignore
		case err == nil:
			err = e
		default:
			err = multierror.Append(err, e)
		}
	}
	return err
}
