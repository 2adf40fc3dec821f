package command

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the category of a command error.
// The set of kinds is closed; handlers switch over all of them.
type Kind int

const (
	// NoPrivateMessage is a guild-only command used in a direct message.
	NoPrivateMessage Kind = 1 + iota
	// OnCooldown is a command used again before its cooldown elapsed.
	OnCooldown
	// MissingArgument is a command given fewer arguments than it requires.
	MissingArgument
	// BadArgument is a command given an argument it cannot interpret.
	BadArgument
	// Disabled is a disabled command.
	Disabled
	// InvokeError is a failure in the command body.
	InvokeError
	// MissingPermissions is a member lacking permissions the command needs.
	MissingPermissions
	// NotFound is a command name that does not exist.
	NotFound
	// CheckFailure is any other failed check, including owner-only commands.
	CheckFailure
)

func (k Kind) String() string {
	switch k {
	case NoPrivateMessage:
		return "NoPrivateMessage"
	case OnCooldown:
		return "OnCooldown"
	case MissingArgument:
		return "MissingArgument"
	case BadArgument:
		return "BadArgument"
	case Disabled:
		return "Disabled"
	case InvokeError:
		return "InvokeError"
	case MissingPermissions:
		return "MissingPermissions"
	case NotFound:
		return "NotFound"
	case CheckFailure:
		return "CheckFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is an error from invoking a command.
type Error struct {
	// Kind is the category of the error.
	Kind Kind
	// Command is the name of the command that failed.
	Command string
	// RetryAfter is the time until the command is off cooldown.
	// It is set only for [OnCooldown].
	RetryAfter time.Duration
	// Missing is the names of missing permissions.
	// It is set only for [MissingPermissions].
	Missing []string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Command != "" {
		b.WriteString(e.Command)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	switch {
	case e.Kind == OnCooldown:
		fmt.Fprintf(&b, " (retry after %v)", e.RetryAfter)
	case e.Kind == MissingPermissions:
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Badf returns a [BadArgument] error with a formatted message.
func Badf(format string, args ...any) error {
	return &Error{Kind: BadArgument, Err: fmt.Errorf(format, args...)}
}

