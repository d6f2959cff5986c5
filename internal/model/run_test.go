package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/pjm-brief/internal/failure"
)

func TestOutcome_Success(t *testing.T) {
	o := &Outcome{State: StateDone, Reached: StateNotified, Notified: true}
	assert.False(t, o.Failed())
	assert.False(t, o.Partial())
	assert.Empty(t, o.Cause())
}

func TestOutcome_Fatal(t *testing.T) {
	o := &Outcome{
		State:   StateDone,
		Reached: StateStart,
		Err:     failure.Wrap(errors.New("connection refused"), failure.DataAccess, "store: latest date"),
	}
	assert.True(t, o.Failed())
	assert.False(t, o.Partial())
	assert.Equal(t, "connection refused", o.Cause())
}

func TestOutcome_NotifyFailedIsPartial(t *testing.T) {
	o := &Outcome{
		State:   StateDone,
		Reached: StateNotifyFailed,
		Err:     failure.New(failure.Configuration, "notify: mail.to is required"),
	}
	assert.False(t, o.Failed())
	assert.True(t, o.Partial())
	assert.Equal(t, "notify: mail.to is required", o.Cause())
}
