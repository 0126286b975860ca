package core

import "io"

// FillFunc pulls more input bytes into p and returns how many were written.
// A return of (0, nil) or (_, io.EOF) means the source is exhausted.
type FillFunc func(p []byte) (int, error)

// DrainFunc pushes buffered output bytes and returns how many were consumed.
type DrainFunc func(p []byte) (int, error)

// ReadBuffer is the decoder's view of the input: a contiguous byte window
// plus an optional pull hook for streaming sources. The buffer is borrowed;
// the codec never frees it.
type ReadBuffer struct {
	data []byte
	pos  int
	fill FillFunc
	base int64 // bytes discarded before data[0]
}

// NewReadBuffer wraps a complete in-memory input.
func NewReadBuffer(data []byte) *ReadBuffer {
	return &ReadBuffer{data: data}
}

// NewStreamingReadBuffer wraps a window refilled on demand through fill.
func NewStreamingReadBuffer(capacity int, fill FillFunc) *ReadBuffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &ReadBuffer{data: make([]byte, 0, capacity), fill: fill}
}

// FillFrom adapts an io.Reader into a FillFunc.
func FillFrom(r io.Reader) FillFunc {
	return func(p []byte) (int, error) {
		n, err := r.Read(p)
		if err == io.EOF {
			err = nil
		}
		return n, err
	}
}

// Append supplies more input bytes to a buffer whose previous read failed
// with BufferEndReached. Already-consumed bytes are compacted away first.
func (b *ReadBuffer) Append(p []byte) {
	if b.pos > 0 {
		b.compact()
	}
	b.data = append(b.data, p...)
}

func (b *ReadBuffer) compact() {
	n := copy(b.data, b.data[b.pos:])
	b.base += int64(b.pos)
	b.data = b.data[:n]
	b.pos = 0
}

// Remaining returns the number of unread bytes currently windowed.
func (b *ReadBuffer) Remaining() int {
	return len(b.data) - b.pos
}

// BytePosition is the absolute offset of the next unread byte.
func (b *ReadBuffer) BytePosition() int64 {
	return b.base + int64(b.pos)
}

// ensure makes at least n unread bytes available, pulling through the fill
// hook when configured. Fails with BufferEndReached otherwise.
func (b *ReadBuffer) ensure(n int) error {
	for b.Remaining() < n {
		if b.fill == nil {
			return errAt(CodeBufferEndReached, b.BytePosition()*8, "input exhausted")
		}
		b.compact()
		if len(b.data)+n > cap(b.data) {
			grown := make([]byte, len(b.data), len(b.data)+n+4096)
			copy(grown, b.data)
			b.data = grown
		}
		space := b.data[len(b.data):cap(b.data)]
		got, err := b.fill(space)
		if err != nil && err != io.EOF {
			return err
		}
		if got <= 0 {
			return errAt(CodeBufferEndReached, b.BytePosition()*8, "input source exhausted")
		}
		b.data = b.data[:len(b.data)+got]
	}
	return nil
}

// PeekByte returns the unread byte at relative offset off without consuming.
func (b *ReadBuffer) PeekByte(off int) (byte, error) {
	if err := b.ensure(off + 1); err != nil {
		return 0, err
	}
	return b.data[b.pos+off], nil
}

// ReadByte consumes one byte.
func (b *ReadBuffer) ReadByte() (byte, error) {
	if err := b.ensure(1); err != nil {
		return 0, err
	}
	c := b.data[b.pos]
	b.pos++
	return c, nil
}

// ReadFull consumes exactly len(p) bytes into p.
func (b *ReadBuffer) ReadFull(p []byte) error {
	if err := b.ensure(len(p)); err != nil {
		return err
	}
	copy(p, b.data[b.pos:])
	b.pos += len(p)
	return nil
}

// Read makes the buffer usable as an io.Reader over its window plus fill
// hook. Exhaustion surfaces as io.EOF.
func (b *ReadBuffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.Remaining() == 0 {
		if err := b.ensure(1); err != nil {
			return 0, io.EOF
		}
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}

// Skip consumes n bytes.
func (b *ReadBuffer) Skip(n int) error {
	if err := b.ensure(n); err != nil {
		return err
	}
	b.pos += n
	return nil
}

// WriteBuffer is the encoder's view of the output: a contiguous byte window
// plus an optional push hook. Without a drain hook a full buffer fails with
// BufferEndReached; with one, the whole window is drained and writing
// continues.
type WriteBuffer struct {
	data  []byte
	drain DrainFunc
	base  int64 // bytes drained before data[0]
}

// NewWriteBuffer wraps a fixed-capacity in-memory output window.
func NewWriteBuffer(capacity int) *WriteBuffer {
	return &WriteBuffer{data: make([]byte, 0, capacity)}
}

// NewStreamingWriteBuffer wraps a window drained on demand.
func NewStreamingWriteBuffer(capacity int, drain DrainFunc) *WriteBuffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &WriteBuffer{data: make([]byte, 0, capacity), drain: drain}
}

// DrainTo adapts an io.Writer into a DrainFunc.
func DrainTo(w io.Writer) DrainFunc {
	return func(p []byte) (int, error) {
		return w.Write(p)
	}
}

// Bytes returns the bytes still buffered. For a fixed buffer this is the
// entire output once encoding finished.
func (b *WriteBuffer) Bytes() []byte {
	return b.data
}

// Len returns the total number of bytes written so far, drained or not.
func (b *WriteBuffer) Len() int64 {
	return b.base + int64(len(b.data))
}

// BytePosition is the absolute offset of the next byte to be written.
func (b *WriteBuffer) BytePosition() int64 {
	return b.Len()
}

// WriteByte appends one byte, draining first when the window is full.
func (b *WriteBuffer) WriteByte(c byte) error {
	if len(b.data) == cap(b.data) {
		if err := b.Flush(); err != nil {
			return err
		}
		if len(b.data) == cap(b.data) {
			return errAt(CodeBufferEndReached, b.BytePosition()*8, "output buffer full")
		}
	}
	b.data = append(b.data, c)
	return nil
}

// Write appends p, draining as needed.
func (b *WriteBuffer) Write(p []byte) error {
	for len(p) > 0 {
		if len(b.data) == cap(b.data) {
			if err := b.Flush(); err != nil {
				return err
			}
			if len(b.data) == cap(b.data) {
				return errAt(CodeBufferEndReached, b.BytePosition()*8, "output buffer full")
			}
		}
		n := copy(b.data[len(b.data):cap(b.data)], p)
		b.data = b.data[:len(b.data)+n]
		p = p[n:]
	}
	return nil
}

// Flush pushes all buffered bytes through the drain hook. A partial drain
// fails with BufferEndReached. Without a hook Flush is a no-op so that
// in-memory outputs keep accumulating.
func (b *WriteBuffer) Flush() error {
	if b.drain == nil || len(b.data) == 0 {
		return nil
	}
	consumed, err := b.drain(b.data)
	if err != nil {
		return err
	}
	if consumed < len(b.data) {
		copy(b.data, b.data[consumed:])
		b.data = b.data[:len(b.data)-consumed]
		b.base += int64(consumed)
		return errAt(CodeBufferEndReached, b.BytePosition()*8, "output sink accepted a short write")
	}
	b.base += int64(consumed)
	b.data = b.data[:0]
	return nil
}
