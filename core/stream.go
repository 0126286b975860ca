package core

/*
	StreamEncoder implementation
*/

// StreamEncoder writes a whole EXI stream: header first, then the body in
// the alignment the options call for.
type StreamEncoder struct {
	header *Header
	opts   *Options
	body   *BodyEncoder
	finish func() error
	diag   *DiagnosticSink
}

// NewStreamEncoder prepares an encoder for the given header. The body uses
// header.Opts when present, opts otherwise (the out-of-band case).
func NewStreamEncoder(header *Header, opts *Options) (*StreamEncoder, error) {
	if header == nil {
		header = NewHeader()
	}
	effective := header.Opts
	if effective == nil {
		effective = opts
	}
	if effective == nil {
		effective = NewDefaultOptions()
	}
	if err := effective.Validate(); err != nil {
		return nil, err
	}
	return &StreamEncoder{header: header, opts: effective}, nil
}

func (se *StreamEncoder) SetDiagnostics(sink *DiagnosticSink) {
	se.diag = sink
}

// Start writes the header into wb and returns the body encoder, ready for
// the event sequence.
func (se *StreamEncoder) Start(wb *WriteBuffer) (*BodyEncoder, error) {
	w := NewBitWriter(wb)
	if err := NewHeaderEncoder().Write(w, se.header); err != nil {
		se.report(err)
		return nil, err
	}

	body, err := NewBodyEncoder(se.opts)
	if err != nil {
		return nil, err
	}
	body.SetDiagnostics(se.diag)

	switch se.opts.Alignment {
	case AlignmentBitPacked:
		ch := NewBitEncoderChannel(w)
		body.SetChannel(ch)
		se.finish = ch.Flush
	case AlignmentByteAligned:
		if err := w.AlignToByte(); err != nil {
			return nil, err
		}
		body.SetChannel(NewByteEncoderChannel(wb))
		se.finish = wb.Flush
	case AlignmentPreCompression:
		if err := w.AlignToByte(); err != nil {
			return nil, err
		}
		body.SetChannel(NewByteEncoderChannel(wb))
		body.setBlockFlush(wb.Flush)
		se.finish = wb.Flush
	case AlignmentCompression:
		if err := w.AlignToByte(); err != nil {
			return nil, err
		}
		ch, cb, err := newCompressedBody(wb)
		if err != nil {
			return nil, err
		}
		body.SetChannel(ch)
		body.setBlockFlush(cb.FlushBlock)
		se.finish = cb.Finish
	default:
		return nil, Errorf(CodeInvalidExiConfiguration, "unknown alignment %d", se.opts.Alignment)
	}

	se.body = body
	return body, nil
}

// Finish completes the stream after the last event, flushing the final
// partial byte and any compression state.
func (se *StreamEncoder) Finish() error {
	if se.finish == nil {
		return NewError(CodeInconsistentProcState, "stream encoder not started")
	}
	err := se.finish()
	se.report(err)
	return err
}

func (se *StreamEncoder) report(err error) {
	if err != nil && se.diag != nil {
		se.diag.ReportError(err)
	}
}

/*
	StreamDecoder implementation
*/

// StreamDecoder reads a whole EXI stream, configuring the body from the
// header's option set or the out-of-band defaults.
type StreamDecoder struct {
	defaults *Options
	diag     *DiagnosticSink
}

func NewStreamDecoder(defaults *Options) *StreamDecoder {
	return &StreamDecoder{defaults: defaults}
}

func (sd *StreamDecoder) SetDiagnostics(sink *DiagnosticSink) {
	sd.diag = sink
}

// Decode parses the header, then drives handler through the body events.
// The parsed header is returned alongside the body result.
func (sd *StreamDecoder) Decode(rb *ReadBuffer, handler ContentHandler) (*Header, error) {
	r := NewBitReader(rb)
	header, err := NewHeaderDecoder().Parse(r)
	if err != nil {
		if sd.diag != nil {
			sd.diag.ReportError(err)
		}
		return nil, err
	}

	opts := header.Opts
	if opts == nil {
		if sd.defaults != nil {
			opts = sd.defaults.Clone()
		} else {
			opts = NewDefaultOptions()
		}
	}

	body, err := NewBodyDecoder(opts)
	if err != nil {
		return header, err
	}
	body.SetDiagnostics(sd.diag)

	switch opts.Alignment {
	case AlignmentBitPacked:
		body.SetChannel(NewBitDecoderChannel(r))
	case AlignmentByteAligned, AlignmentPreCompression:
		r.AlignToByte()
		body.SetChannel(NewByteDecoderChannel(rb))
	case AlignmentCompression:
		r.AlignToByte()
		body.SetChannel(NewByteDecoderChannel(newDecompressedReadBuffer(rb)))
	default:
		return header, Errorf(CodeInvalidExiConfiguration, "unknown alignment %d", opts.Alignment)
	}

	return header, body.DecodeAll(handler)
}
