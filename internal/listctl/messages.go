package listctl

import (
	"context"
	"errors"
	"time"
)

// Msg is a completion delivered back to a controller.
type Msg any

// Cmd is a unit of asynchronous work. It runs off the event loop and returns
// the Msg to feed into Controller.Update, or nil.
type Cmd func() Msg

// BatchMsg carries commands that may run concurrently.
type BatchMsg []Cmd

// Batch combines commands, dropping nil ones.
func Batch(cmds ...Cmd) Cmd {
	var valid []Cmd
	for _, c := range cmds {
		if c != nil {
			valid = append(valid, c)
		}
	}
	switch len(valid) {
	case 0:
		return nil
	case 1:
		return valid[0]
	}
	return func() Msg { return BatchMsg(valid) }
}

type listLoadedMsg[T any] struct {
	owner   uint64
	seq     uint64
	result  PageResult[T]
	err     error
	elapsed time.Duration
}

type optionsLoadedMsg struct {
	owner   uint64
	level   int
	seq     uint64
	options []Option
	err     error
}

type searchSettledMsg struct {
	owner   uint64
	version uint64
}

type deleteFinishedMsg struct {
	owner uint64
	id    string
	err   error
}

// Outcome classifies a finished list fetch for observers.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "empty"
	OutcomeError   Outcome = "error"
	OutcomeStale   Outcome = "stale"
)

// Observer receives list fetch outcomes, e.g. for metrics.
type Observer interface {
	ObserveList(screen string, outcome Outcome, elapsed time.Duration)
}

const (
	// GenericLoadFailure is shown when a failing list call carries no message.
	GenericLoadFailure = "Unable to load records."
	// GenericDeleteFailure is shown when a failing delete carries no message.
	GenericDeleteFailure = "Unable to delete record."
)

// UserMessager is implemented by errors that carry text safe to display.
type UserMessager interface {
	UserMessage() string
}

// Message returns the user-visible text of err, or fallback.
func Message(err error, fallback string) string {
	var um UserMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

func waitQuiet(ctx context.Context, d time.Duration, msg Msg) Cmd {
	return func() Msg {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			return msg
		}
	}
}
