// Package neserr defines the error taxonomy surfaced across package
// boundaries: malformed ROM images, mappers the loader doesn't implement,
// runaway frames, and a halted CPU.
package neserr

import "fmt"

// Kind classifies an error so callers can branch on it (via OfKind, or
// errors.Is against the Err* sentinels) instead of parsing message text.
type Kind int

const (
	// MalformedROM means the iNES image failed header or size validation.
	MalformedROM Kind = iota
	// UnsupportedMapper means the cartridge names a mapper number with no
	// implementation.
	UnsupportedMapper
	// FrameRunaway means StepFrame ran past its instruction budget without
	// the PPU completing a frame.
	FrameRunaway
	// CpuHalted means a KIL/JAM opcode was executed. Not fatal to the
	// process: the CPU simply stops advancing until reset.
	CpuHalted
)

func (k Kind) String() string {
	switch k {
	case MalformedROM:
		return "malformed ROM"
	case UnsupportedMapper:
		return "unsupported mapper"
	case FrameRunaway:
		return "frame runaway"
	case CpuHalted:
		return "CPU halted"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with context and an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Sentinel errors for errors.Is comparisons against a Kind, e.g.
// errors.Is(err, neserr.ErrFrameRunaway). Kind itself is not an error and
// cannot be passed to errors.Is directly.
var (
	ErrMalformedROM      error = &Error{Kind: MalformedROM}
	ErrUnsupportedMapper error = &Error{Kind: UnsupportedMapper}
	ErrFrameRunaway      error = &Error{Kind: FrameRunaway}
	ErrCpuHalted         error = &Error{Kind: CpuHalted}
)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, neserr.ErrMalformedROM)-style comparisons by
// matching on Kind alone, ignoring Message and Cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// OfKind reports whether err is a *neserr.Error of the given kind.
func OfKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}
