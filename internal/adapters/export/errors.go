package export

import (
	"fmt"
	"time"
)

// ProtocolError is an unrecoverable bulk-export API failure: a
// non-transient HTTP status, an exhausted retry budget, an undecodable
// response, or a job that reached ERROR state.
type ProtocolError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("export: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("export: %s: %s", e.Op, e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TimeoutError signals that the export job did not leave the polling phase
// before the wall-clock deadline. It is distinct from ProtocolError so
// callers can decide to retry later rather than treat the job as broken.
type TimeoutError struct {
	ExportID string
	Waited   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("export: job %s did not finish within %s", e.ExportID, e.Waited)
}
