package diag

import "fmt"

// Location pinpoints a diagnostic within the IR being emitted: a function
// name plus an optional debug line/file annotation carried on the
// instruction that triggered it (§4.4's `//@line N "file"` comments).
type Location struct {
	Func string
	Line int
	File string
}

// Diagnostic is one warning-channel entry.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	At       Location
}

// Fatal is the abort-channel error type (§7). It is a plain Go error —
// module emission returns it like any other error — but its distinct type
// lets a host (the CLI driver) recognize "this is the core's longjmp" and
// treat it as non-recoverable, without the core itself performing any
// local recovery or process exit.
type Fatal struct {
	Code    Code
	Message string
	At      Location
}

func (f *Fatal) Error() string {
	if f.At.Func != "" {
		return f.Code.String() + ": " + f.Message + " (in " + f.At.Func + ")"
	}
	return f.Code.String() + ": " + f.Message
}

// NewFatal constructs a Fatal error for the given code and location.
func NewFatal(code Code, at Location, format string, args ...any) *Fatal {
	return &Fatal{Code: code, Message: fmt.Sprintf(format, args...), At: at}
}
