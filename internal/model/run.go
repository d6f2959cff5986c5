package model

import (
	"errors"
	"time"

	"github.com/sells-group/pjm-brief/internal/failure"
)

// RunState is a step of the daily brief state machine.
type RunState string

const (
	StateStart        RunState = "start"
	StateDataFetched  RunState = "data_fetched"
	StateSummarized   RunState = "summarized"
	StateNarrated     RunState = "narrated"
	StateWritten      RunState = "written"
	StateNotified     RunState = "notified"
	StateNotifyFailed RunState = "notify_failed"
	StateDone         RunState = "done"
)

// Outcome is the result of one brief run. State is always StateDone once the
// orchestrator returns; Reached records the last step that succeeded.
type Outcome struct {
	RunID      string
	State      RunState
	Reached    RunState
	Date       time.Time
	ReportPath string
	Narrative  string
	Notified   bool
	Err        error
}

// Failed reports whether the run ended without producing a report.
func (o *Outcome) Failed() bool {
	return failure.Fatal(o.Err)
}

// Partial reports whether the report was written but not delivered.
func (o *Outcome) Partial() bool {
	return !o.Failed() && o.Reached == StateNotifyFailed
}

// Cause returns the root cause message of the run error, or "".
func (o *Outcome) Cause() string {
	if o.Err == nil {
		return ""
	}
	err := o.Err
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
