package core

import (
	"errors"
	"io"
	"strconv"

	Text "github.com/linkdotnet/golang-stringbuilder"
)

// DiagnosticSink renders codec failures as single text lines on a writer.
// It is borrowed by the codec, never owned; writes are sequential within one
// codec instance.
type DiagnosticSink struct {
	writer io.Writer
}

func NewDiagnosticSink(writer io.Writer) *DiagnosticSink {
	return &DiagnosticSink{writer: writer}
}

// ReportError emits one line for err: error name, bit offset when known and
// the contextual message.
func (s *DiagnosticSink) ReportError(err error) {
	if s == nil || s.writer == nil || err == nil {
		return
	}

	sb := Text.StringBuilder{}
	var ce *CodecError
	if errors.As(err, &ce) {
		sb.Append(ce.Code.String())
		if ce.Offset >= 0 {
			sb.Append(" @bit ")
			sb.Append(strconv.FormatInt(ce.Offset, 10))
		}
		if ce.Msg != "" {
			sb.Append(": ")
			sb.Append(ce.Msg)
		}
	} else {
		sb.Append(CodeUnexpected.String())
		sb.Append(": ")
		sb.Append(err.Error())
	}
	sb.Append("\n")

	io.WriteString(s.writer, sb.ToString())
}

// Warning emits a non-fatal informational line.
func (s *DiagnosticSink) Warning(msg string) {
	if s == nil || s.writer == nil {
		return
	}
	sb := Text.StringBuilder{}
	sb.Append("warning: ")
	sb.Append(msg)
	sb.Append("\n")
	io.WriteString(s.writer, sb.ToString())
}
