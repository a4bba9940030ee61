package schema

import (
	"errors"
	"fmt"
)

// ErrorKind identifies one member of the error taxonomy of spec §7. It is
// attached to every error this package returns so callers can switch on
// kind rather than string-matching messages.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindShortBuffer
	KindParseError
	KindUndefinedVariable
	KindMatchNoCase
	KindFlagMismatch
	KindMissingInput
	KindUnsupported
	KindOutOfRange
	KindUnknownTag
	KindTrailingBytes
	KindNoPortSchema
)

func (k ErrorKind) String() string {
	switch k {
	case KindShortBuffer:
		return "short-buffer"
	case KindParseError:
		return "parse-error"
	case KindUndefinedVariable:
		return "undefined-variable"
	case KindMatchNoCase:
		return "match-no-case"
	case KindFlagMismatch:
		return "flag-mismatch"
	case KindMissingInput:
		return "missing-input"
	case KindUnsupported:
		return "unsupported"
	case KindOutOfRange:
		return "out-of-range"
	case KindUnknownTag:
		return "unknown-tag"
	case KindTrailingBytes:
		return "trailing-bytes"
	case KindNoPortSchema:
		return "no-port-schema"
	default:
		return "none"
	}
}

// Sentinel errors for the fatal kinds in the taxonomy (spec §7); a strict
// trailing-bytes failure has no sentinel of its own and wraps
// ErrUnsupported, with KindTrailingBytes set on the result. Matched
// with errors.Is against the error returned from Decode/Encode/Build, the
// way glint's ErrInvalidDocument/ErrSchemaNotFound and walker.go's
// ErrSkipVisit are matched.
var (
	ErrShortBuffer       = errors.New("short-buffer")
	ErrParseError        = errors.New("parse-error")
	ErrUndefinedVariable = errors.New("undefined-variable")
	ErrMatchNoCase       = errors.New("match-no-case")
	ErrFlagMismatch      = errors.New("flag-mismatch")
	ErrMissingInput      = errors.New("missing-input")
	ErrUnsupported       = errors.New("unsupported")
	ErrNoPortSchema      = errors.New("no-port-schema")
)

// kindFor maps a sentinel to its ErrorKind, used to fill the Kind of a
// DecodeResult or EncodeResult from an arbitrary wrapped error.
func kindFor(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrShortBuffer):
		return KindShortBuffer
	case errors.Is(err, ErrParseError):
		return KindParseError
	case errors.Is(err, ErrUndefinedVariable):
		return KindUndefinedVariable
	case errors.Is(err, ErrMatchNoCase):
		return KindMatchNoCase
	case errors.Is(err, ErrFlagMismatch):
		return KindFlagMismatch
	case errors.Is(err, ErrMissingInput):
		return KindMissingInput
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrNoPortSchema):
		return KindNoPortSchema
	default:
		return KindNone
	}
}

// errFieldf wraps a sentinel with field-specific context, the way glint's
// decoder wraps ErrInvalidDocument with fmt.Errorf("...: %w", ...).
func errFieldf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

// Warning is one non-fatal condition accumulated during decode (spec §7:
// unknown-tag, trailing-bytes when non-strict). Out-of-range values are
// reported through DecodeResult.Quality, not as warnings.
type Warning struct {
	Kind  ErrorKind
	Field string
	Msg   string
}

func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Msg)
	}
	return fmt.Sprintf("%s (%s): %s", w.Kind, w.Field, w.Msg)
}
