// Package simerr defines the fatal-error taxonomy of spec.md §7. All five
// kinds are fatal at the rank that detects them: callers return them as
// plain errors internally, sim.Driver.Run returns them, and cmd/gomero's
// main escalates them to chk.Panic, matching gofem's own fem.FEM.Run →
// main.go recover-and-report convention (see SPEC_FULL.md, "Errors").
package simerr

import "fmt"

// Kind identifies which of the five fatal categories an error belongs to.
type Kind int

const (
	ConfigurationError Kind = iota
	InvariantViolation
	ExchangeError
	ChannelTypeConflict
	RestartError
)

func (k Kind) String() string {
	switch k {
	case ConfigurationError:
		return "ConfigurationError"
	case InvariantViolation:
		return "InvariantViolation"
	case ExchangeError:
		return "ExchangeError"
	case ChannelTypeConflict:
		return "ChannelTypeConflict"
	case RestartError:
		return "RestartError"
	default:
		return "UnknownError"
	}
}

// Error carries the kind plus the task/component context spec.md §7
// requires every fatal log line to capture: the failing task name and the
// PV/OV/interaction name(s) involved.
type Error struct {
	Kind      Kind
	Task      string // failing task name, empty if not task-scoped
	Component string // PV/OV/interaction/channel name involved
	Msg       string
}

func (e *Error) Error() string {
	switch {
	case e.Task != "" && e.Component != "":
		return fmt.Sprintf("%s: task=%q component=%q: %s", e.Kind, e.Task, e.Component, e.Msg)
	case e.Component != "":
		return fmt.Sprintf("%s: component=%q: %s", e.Kind, e.Component, e.Msg)
	case e.Task != "":
		return fmt.Sprintf("%s: task=%q: %s", e.Kind, e.Task, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

// New builds a simerr.Error with no task/component context.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Newf builds a simerr.Error naming the component involved (a PV, OV, or
// interaction name), per spec.md §7's user-visible-behaviour contract.
func Newf(kind Kind, component, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Component: component, Msg: fmt.Sprintf(format, args...)}
}

// WithTask returns a copy of e annotated with the failing task name.
func (e *Error) WithTask(task string) *Error {
	cp := *e
	cp.Task = task
	return &cp
}

// Is supports errors.Is(err, simerr.ConfigurationError) style checks by
// kind; two *Error values are "the same" for errors.Is purposes iff their
// Kind matches.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
