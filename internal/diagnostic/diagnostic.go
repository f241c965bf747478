// Package diagnostic provides error reporting for the mid-end passes.
//
// Mid-end passes operate on trees the front end already validated, so the
// only failures they can hit are internal: a broken invariant means a bug
// in an earlier pass or in the pass itself. Those abort compilation
// through ICEf rather than flowing through a user-visible error channel.
package diagnostic

import "fmt"

// Severity represents the severity level of a diagnostic.
type Severity uint8

const (
	// Internal is a compiler bug; compilation aborts.
	Internal Severity = iota
	// Warning is a non-blocking issue.
	Warning
	// Info is an informational message.
	Info
)

func (s Severity) String() string {
	switch s {
	case Internal:
		return "internal error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Diagnostic is a single message produced by a pass.
type Diagnostic struct {
	Severity Severity
	Pass     string // pass that produced the message
	Message  string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Pass, d.Message)
}

// InternalError is the panic payload of ICEf. The top-level driver
// recovers it and reports the failure with the standard prefix before
// exiting non-zero.
type InternalError struct {
	Diagnostic
}

// ICEf aborts the current pass with an internal compiler error.
func ICEf(pass, format string, args ...interface{}) {
	panic(&InternalError{Diagnostic{
		Severity: Internal,
		Pass:     pass,
		Message:  fmt.Sprintf(format, args...),
	}})
}

// AsInternal returns the InternalError carried by a recovered panic
// value, or nil if the panic was not raised through ICEf.
func AsInternal(recovered interface{}) *InternalError {
	if e, ok := recovered.(*InternalError); ok {
		return e
	}
	return nil
}
