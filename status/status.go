// Package status holds the structured result values that flow through the
// interpreter in place of panics. A Status carries a symbolic Code, optional
// message parameters and an optional nested cause.
package status

import (
	"errors"
	"fmt"
	"strings"
)

type Status struct {
	Code   Code
	Params []any
	Cause  error
	Line   int // last statement line seen before the failure, 0 if unknown
}

// New builds a Status for code with message parameters.
func New(code Code, params ...any) *Status {
	return &Status{Code: code, Params: params}
}

// Wrap builds a Status whose cause is err. I/O failures from collaborators
// are surfaced this way without altering the underlying error.
func Wrap(code Code, err error, params ...any) *Status {
	return &Status{Code: code, Params: params, Cause: err}
}

func (s *Status) Error() string {
	var b strings.Builder
	b.WriteString(s.Message())
	if s.Line > 0 {
		fmt.Fprintf(&b, " in line %d", s.Line)
	}
	if s.Cause != nil {
		b.WriteString(": ")
		b.WriteString(s.Cause.Error())
	}
	return b.String()
}

// Message formats the code description with the parameters, ignoring the cause.
func (s *Status) Message() string {
	tmpl := s.Code.Description()
	verbs := strings.Count(tmpl, "%s")
	args := make([]any, verbs)
	for i := range args {
		if i < len(s.Params) {
			args[i] = fmt.Sprint(s.Params[i])
		} else {
			args[i] = "?"
		}
	}
	if verbs == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

func (s *Status) Unwrap() error {
	return s.Cause
}

// Is reports code equality, so errors.Is(err, status.New(status.DivZero))
// matches regardless of parameters.
func (s *Status) Is(target error) bool {
	t, ok := target.(*Status)
	if !ok {
		return false
	}
	return t.Code == s.Code
}

// WithLine records the line number for diagnostics and returns s.
func (s *Status) WithLine(line int) *Status {
	s.Line = line
	return s
}

// CodeOf extracts the code from err. Plain errors are reported as faults.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var s *Status
	if errors.As(err, &s) {
		return s.Code
	}
	return Fault
}

// From converts any error into a Status, keeping an existing Status intact.
func From(err error) *Status {
	if err == nil {
		return nil
	}
	var s *Status
	if errors.As(err, &s) {
		return s
	}
	return Wrap(Fault, err, err.Error())
}
