package result

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gaspardpetit/obix/sdk/contract"
)

// Error is one recorded failure. Its fields are filled by the constructors
// and must be treated as read-only once the Error is pushed, since the Stack,
// its subscribers and callers of Entries share the same value. Contract is
// the contract the server returned, not a copy.
type Error struct {
	Time       time.Time
	Status     Status
	Component  string
	AuxCode    int
	AuxMessage string
	Cause      error
	// Contract holds the server error contract for server-side failures.
	Contract *contract.Contract
}

// NewError returns an Error for status raised by component.
func NewError(component string, status Status, aux string) *Error {
	return &Error{Time: time.Now().UTC(), Status: status, Component: component, AuxMessage: aux}
}

// NewAuxError returns an Error carrying an auxiliary code, such as an HTTP
// status, next to its message.
func NewAuxError(component string, status Status, auxCode int, aux string) *Error {
	e := NewError(component, status, aux)
	e.AuxCode = auxCode
	return e
}

// Wrap returns an Error for status caused by err.
func Wrap(component string, status Status, err error) *Error {
	e := NewError(component, status, "")
	if err != nil {
		e.Cause = err
		e.AuxMessage = err.Error()
	}
	return e
}

// StatusForErrContract maps the is attribute of an err contract to a status.
func StatusForErrContract(c *contract.Contract) Status {
	switch {
	case c.Implements(contract.BadURIErr):
		return StatusServerUnknownURI
	case c.Implements(contract.UnsupportedErr):
		return StatusServerUnsupported
	default:
		return StatusServerError
	}
}

// FromErrContract builds the Error for an err contract returned by a server.
// The auxiliary message is made of the contract's href and displayName.
func FromErrContract(component string, c *contract.Contract) *Error {
	var parts []string
	if h := c.Href(); h != "" {
		parts = append(parts, h)
	}
	if dn := c.DisplayName(); dn != "" {
		parts = append(parts, dn)
	}
	if len(parts) == 0 && c.Display() != "" {
		parts = append(parts, c.Display())
	}
	e := NewError(component, StatusForErrContract(c), strings.Join(parts, " - "))
	e.Contract = c
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	b.WriteString(e.Status.Message())
	if e.AuxMessage != "" {
		b.WriteString(": ")
		b.WriteString(e.AuxMessage)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches a StatusError carrying the same status.
func (e *Error) Is(target error) bool {
	var se StatusError
	if errors.As(target, &se) {
		return se.Status == e.Status
	}
	return false
}

// String renders e in the error history format.
func (e *Error) String() string {
	ts := e.Time.Local().Format(time.DateTime)
	if e.Cause != nil {
		return fmt.Sprintf("[%s - %s] Exception %d: %T: %s", e.Component, ts, e.Status.Code(), e.Cause, e.Cause.Error())
	}
	s := fmt.Sprintf("[%s - %s] Error %d: %s", e.Component, ts, e.Status.Code(), e.Status.Message())
	if e.AuxMessage != "" {
		s += fmt.Sprintf(" (%d: %s)", e.AuxCode, e.AuxMessage)
	}
	return s
}
