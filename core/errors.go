package core

import (
	"errors"
	"fmt"
)

// Code enumerates every failure class the codec can report. The set is
// closed: callers can switch on it exhaustively.
type Code int

const (
	CodeOk Code = iota
	CodeNotImplemented
	CodeUnexpected
	CodeOutOfBoundBuffer
	CodeNullReference
	CodeMemoryAllocationError
	CodeInvalidExiHeader
	CodeInconsistentProcState
	CodeInvalidExiInput
	CodeBufferEndReached
	CodeParsingComplete
	CodeInvalidExiConfiguration
	CodeNoPrefixesPreservedXmlSchema
	CodeInvalidStringOperation
	CodeHeaderOptionsMismatch
	CodeHandlerStop
)

var codeNames = map[Code]string{
	CodeOk:                           "Ok",
	CodeNotImplemented:               "NotImplemented",
	CodeUnexpected:                   "Unexpected",
	CodeOutOfBoundBuffer:             "OutOfBoundBuffer",
	CodeNullReference:                "NullReference",
	CodeMemoryAllocationError:        "MemoryAllocationError",
	CodeInvalidExiHeader:             "InvalidExiHeader",
	CodeInconsistentProcState:        "InconsistentProcState",
	CodeInvalidExiInput:              "InvalidExiInput",
	CodeBufferEndReached:             "BufferEndReached",
	CodeParsingComplete:              "ParsingComplete",
	CodeInvalidExiConfiguration:      "InvalidExiConfiguration",
	CodeNoPrefixesPreservedXmlSchema: "NoPrefixesPreservedXmlSchema",
	CodeInvalidStringOperation:       "InvalidStringOperation",
	CodeHeaderOptionsMismatch:        "HeaderOptionsMismatch",
	CodeHandlerStop:                  "HandlerStop",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// CodecError carries a Code, a human message and, when known, the bit offset
// in the stream the failure refers to (-1 otherwise).
type CodecError struct {
	Code   Code
	Offset int64
	Msg    string
}

func (e *CodecError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s @bit %d: %s", e.Code, e.Offset, e.Msg)
	}
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is matches CodecErrors by code so that errors.Is(err, NewError(code, ""))
// style checks work across wrapping.
func (e *CodecError) Is(target error) bool {
	t, ok := target.(*CodecError)
	return ok && t.Code == e.Code
}

// NewError builds a CodecError with an unknown offset.
func NewError(code Code, msg string) *CodecError {
	return &CodecError{Code: code, Offset: -1, Msg: msg}
}

// Errorf builds a CodecError with a formatted message.
func Errorf(code Code, format string, a ...any) *CodecError {
	return &CodecError{Code: code, Offset: -1, Msg: fmt.Sprintf(format, a...)}
}

func errAt(code Code, offsetBits int64, msg string) *CodecError {
	return &CodecError{Code: code, Offset: offsetBits, Msg: msg}
}

// CodeOf extracts the Code of err, or CodeUnexpected for foreign errors and
// CodeOk for nil.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOk
	}
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeUnexpected
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// ErrHandlerStop is returned by content handlers to request a clean early
// termination of the decode loop.
var ErrHandlerStop = NewError(CodeHandlerStop, "handler requested stop")

// errComplete is the internal end-of-stream control signal. It never
// escapes the codec API: the loops translate it into a nil return.
var errComplete = NewError(CodeParsingComplete, "end of stream")
