package model

import "fmt"

// Severity grades a validation status.
type Severity int

const (
	// SeverityOK means no problem.
	SeverityOK Severity = iota
	// SeverityWarning flags a suspicious but usable value.
	SeverityWarning
	// SeverityError flags an invalid value.
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is the result of validation. The zero value is OK.
type Status struct {
	Severity Severity
	Message  string
	Children []Status
}

// OK is the status of a valid value.
var OK = Status{}

// Errorf returns an error status.
func Errorf(format string, args ...any) Status {
	return Status{Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

// Warningf returns a warning status.
func Warningf(format string, args ...any) Status {
	return Status{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}

// IsOK reports whether the severity is SeverityOK.
func (s Status) IsOK() bool {
	return s.Severity == SeverityOK
}

// Equal compares severity, message and children.
func (s Status) Equal(o Status) bool {
	if s.Severity != o.Severity || s.Message != o.Message || len(s.Children) != len(o.Children) {
		return false
	}
	for i := range s.Children {
		if !s.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// String renders the status for diagnostics.
func (s Status) String() string {
	if s.IsOK() {
		return "ok"
	}
	return s.Severity.String() + ": " + s.Message
}

// Worst aggregates statuses. The result carries the highest severity and
// the message of the first status with that severity; every non-OK input
// becomes a child.
func Worst(statuses ...Status) Status {
	var out Status
	for _, s := range statuses {
		if s.IsOK() {
			continue
		}
		out.Children = append(out.Children, s)
		if s.Severity > out.Severity {
			out.Severity = s.Severity
			out.Message = s.Message
		}
	}
	if len(out.Children) == 1 {
		return out.Children[0]
	}
	return out
}
