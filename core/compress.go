package core

import (
	"io"

	"github.com/klauspost/compress/flate"
)

/*
	Compression framing

	The compression alignment wraps the byte-aligned body in a DEFLATE
	stream; every BlockSize value items the encoder emits a sync flush so
	bounded-memory consumers see block boundaries. Pre-compression keeps
	the identical byte-aligned framing without the DEFLATE layer.
*/

// writeBufferWriter adapts a WriteBuffer to io.Writer for the compressor.
type writeBufferWriter struct {
	wb *WriteBuffer
}

func (w writeBufferWriter) Write(p []byte) (int, error) {
	if err := w.wb.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// compressedBody is the encoder-side DEFLATE chain.
type compressedBody struct {
	inner *WriteBuffer
	fw    *flate.Writer
	out   *WriteBuffer
}

// newCompressedBody builds a byte channel whose output travels deflated
// into out.
func newCompressedBody(out *WriteBuffer) (*ByteEncoderChannel, *compressedBody, error) {
	fw, err := flate.NewWriter(writeBufferWriter{wb: out}, flate.DefaultCompression)
	if err != nil {
		return nil, nil, Errorf(CodeUnexpected, "deflate setup: %v", err)
	}
	cb := &compressedBody{fw: fw, out: out}
	cb.inner = NewStreamingWriteBuffer(4096, DrainTo(fw))
	return NewByteEncoderChannel(cb.inner), cb, nil
}

// FlushBlock ends the current block with a DEFLATE sync flush.
func (cb *compressedBody) FlushBlock() error {
	if err := cb.inner.Flush(); err != nil {
		return err
	}
	if err := cb.fw.Flush(); err != nil {
		return Errorf(CodeUnexpected, "deflate flush: %v", err)
	}
	return cb.out.Flush()
}

// Finish terminates the DEFLATE stream and drains the output buffer.
func (cb *compressedBody) Finish() error {
	if err := cb.inner.Flush(); err != nil {
		return err
	}
	if err := cb.fw.Close(); err != nil {
		return Errorf(CodeUnexpected, "deflate close: %v", err)
	}
	return cb.out.Flush()
}

// newDecompressedReadBuffer exposes the deflated remainder of rb as a fresh
// byte window.
func newDecompressedReadBuffer(rb *ReadBuffer) *ReadBuffer {
	var fr io.Reader = flate.NewReader(rb)
	return NewStreamingReadBuffer(4096, FillFrom(fr))
}
