package core

import (
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"github.com/exicore/exicore/utils"
)

const (
	// 9 * 7 bits hold any value below 2^63.
	maxOctetsForLong int = 9
	// 10 * 7 bits hold any uint64.
	maxOctetsForULong int = 10
)

// DecoderChannel reads EXI primitive datatypes from an aligned or
// bit-packed stream.
type DecoderChannel interface {
	// Decode reads a single byte.
	Decode() (int, error)

	// Align skips to the next byte boundary if not already there.
	Align() error

	DecodeNBitUnsignedInteger(n int) (int, error)
	DecodeBoolean() (bool, error)

	// DecodeBinary reads a length-prefixed sequence of octets.
	DecodeBinary() ([]byte, error)

	// DecodeString reads a length-prefixed sequence of UCS code points.
	DecodeString() ([]rune, error)
	DecodeStringOnly(length int) ([]rune, error)

	// DecodeUnsignedInteger reads a 7-bit-group varint that must fit an int.
	DecodeUnsignedInteger() (int, error)
	DecodeUnsignedLong() (uint64, error)
	DecodeUnsignedIntegerValue() (*IntegerValue, error)

	// DecodeIntegerValue reads a sign bit followed by an unsigned varint.
	DecodeIntegerValue() (*IntegerValue, error)
	DecodeLong() (int64, error)

	DecodeDecimalValue() (*DecimalValue, error)
	DecodeFloatValue() (*FloatValue, error)
	DecodeDateTimeValue(kind DateTimeType) (*DateTimeValue, error)

	BitPosition() int64
}

// EncoderChannel writes EXI primitive datatypes.
type EncoderChannel interface {
	// Encode writes a single byte.
	Encode(b int) error

	// Align pads to the next byte boundary if not already there.
	Align() error

	// Flush aligns and drains the underlying buffer.
	Flush() error

	EncodeBytes(p []byte) error
	EncodeNBitUnsignedInteger(b, n int) error
	EncodeBoolean(b bool) error
	EncodeBinary(p []byte) error
	EncodeString(s string) error
	EncodeStringOnly(s string) error
	EncodeUnsignedInteger(n int) error
	EncodeUnsignedLong(l uint64) error
	EncodeUnsignedIntegerValue(iv *IntegerValue) error
	EncodeInteger(n int) error
	EncodeLong(l int64) error
	EncodeIntegerValue(iv *IntegerValue) error
	EncodeDecimal(negative bool, integral, revFractional *IntegerValue) error
	EncodeFloat(fv *FloatValue) error
	EncodeDateTime(dt *DateTimeValue) error

	BitPosition() int64
}

/*
	AbstractDecoderChannel implementation
*/

// AbstractDecoderChannel supplies the composite datatype decoders on top of
// the primitive hooks of a concrete channel.
type AbstractDecoderChannel struct {
	DecoderChannel
}

func (c *AbstractDecoderChannel) DecodeString() ([]rune, error) {
	length, err := c.DecodeUnsignedInteger()
	if err != nil {
		return nil, err
	}
	return c.DecodeStringOnly(length)
}

func (c *AbstractDecoderChannel) DecodeStringOnly(length int) ([]rune, error) {
	ca := make([]rune, length)
	for i := 0; i < length; i++ {
		codePoint, err := c.DecodeUnsignedInteger()
		if err != nil {
			return nil, err
		}
		if !utils.IsValidCodePoint(codePoint) {
			return nil, errAt(CodeInvalidStringOperation, c.BitPosition(),
				"invalid UCS code point "+strconv.Itoa(codePoint))
		}
		ca[i] = rune(codePoint)
	}
	return ca, nil
}

// DecodeUnsignedInteger reads the 7-bit-group varint form: groups carry the
// value low-to-high, the top bit of each octet flags continuation.
func (c *AbstractDecoderChannel) DecodeUnsignedInteger() (int, error) {
	l, err := c.DecodeUnsignedLong()
	if err != nil {
		return 0, err
	}
	if l > uint64(int(^uint(0)>>1)) {
		return 0, errAt(CodeInvalidExiInput, c.BitPosition(), "unsigned varint exceeds int range")
	}
	return int(l), nil
}

func (c *AbstractDecoderChannel) DecodeUnsignedLong() (uint64, error) {
	var result uint64
	shift := 0
	for octets := 0; octets < maxOctetsForULong; octets++ {
		b, err := c.Decode()
		if err != nil {
			return 0, err
		}
		if octets == maxOctetsForULong-1 && b > 0x01 {
			return 0, errAt(CodeInvalidExiInput, c.BitPosition(), "unsigned varint exceeds 64 bits")
		}
		result |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return result, nil
		}
		shift += 7
	}
	return 0, errAt(CodeInvalidExiInput, c.BitPosition(), "unsigned varint exceeds 64 bits")
}

func (c *AbstractDecoderChannel) DecodeUnsignedIntegerValue() (*IntegerValue, error) {
	return c.decodeUnsignedIntegerValue(false)
}

// decodeUnsignedIntegerValue reads an unbounded unsigned varint, promoting
// to an arbitrary-precision integer past 63 bits.
func (c *AbstractDecoderChannel) decodeUnsignedIntegerValue(negative bool) (*IntegerValue, error) {
	var result int64
	shift := 0
	for octets := 0; octets < maxOctetsForLong; octets++ {
		b, err := c.Decode()
		if err != nil {
			return nil, err
		}
		result |= int64(b&0x7F) << shift
		if b < 0x80 {
			if negative {
				return IntegerValueOf64(-(result + 1)), nil
			}
			return IntegerValueOf64(result), nil
		}
		shift += 7
	}

	// did not terminate within 63 bits: arbitrary-precision fallback
	bResult := apd.NewBigInt(0)
	tmp := new(apd.BigInt)
	for i := 0; i < maxOctetsForLong; i++ {
		tmp.SetInt64((result >> (7 * i)) & 0x7F)
		tmp.Lsh(tmp, uint(7*i))
		bResult.Add(bResult, tmp)
	}
	shift = 7 * maxOctetsForLong
	for {
		b, err := c.Decode()
		if err != nil {
			return nil, err
		}
		tmp.SetInt64(int64(b & 0x7F))
		tmp.Lsh(tmp, uint(shift))
		bResult.Add(bResult, tmp)
		shift += 7
		if b < 0x80 {
			break
		}
	}
	if negative {
		bResult.Add(bResult, apd.NewBigInt(1))
		bResult.Neg(bResult)
	}
	return IntegerValueOfBig(bResult), nil
}

func (c *AbstractDecoderChannel) DecodeIntegerValue() (*IntegerValue, error) {
	negative, err := c.DecodeBoolean()
	if err != nil {
		return nil, err
	}
	return c.decodeUnsignedIntegerValue(negative)
}

// DecodeLong reads a sign bit plus magnitude varint as an int64. Negative
// values carry the magnitude minus one.
func (c *AbstractDecoderChannel) DecodeLong() (int64, error) {
	negative, err := c.DecodeBoolean()
	if err != nil {
		return 0, err
	}
	m, err := c.DecodeUnsignedLong()
	if err != nil {
		return 0, err
	}
	if m > uint64(1)<<63-1 {
		return 0, errAt(CodeInvalidExiInput, c.BitPosition(), "signed varint exceeds 64 bits")
	}
	if negative {
		return -int64(m) - 1, nil
	}
	return int64(m), nil
}

func (c *AbstractDecoderChannel) DecodeDecimalValue() (*DecimalValue, error) {
	negative, err := c.DecodeBoolean()
	if err != nil {
		return nil, err
	}
	integral, err := c.decodeUnsignedIntegerValue(false)
	if err != nil {
		return nil, err
	}
	revFractional, err := c.decodeUnsignedIntegerValue(false)
	if err != nil {
		return nil, err
	}
	return NewDecimalValue(negative, integral, revFractional), nil
}

func (c *AbstractDecoderChannel) DecodeFloatValue() (*FloatValue, error) {
	mantissa, err := c.DecodeLong()
	if err != nil {
		return nil, err
	}
	exponent, err := c.DecodeLong()
	if err != nil {
		return nil, err
	}
	return NewFloatValue(mantissa, exponent), nil
}

func (c *AbstractDecoderChannel) DecodeDateTimeValue(kind DateTimeType) (*DateTimeValue, error) {
	var year, monthDay, timeVal, fractionalSecs int

	switch kind {
	case DateTimeGYear:
		y, err := c.DecodeLong()
		if err != nil {
			return nil, err
		}
		year = int(y) + DateTimeYearOffset
	case DateTimeGYearMonth, DateTimeDate:
		y, err := c.DecodeLong()
		if err != nil {
			return nil, err
		}
		year = int(y) + DateTimeYearOffset
		md, err := c.DecodeNBitUnsignedInteger(DateTimeNumberBitsMonthDay)
		if err != nil {
			return nil, err
		}
		monthDay = md
	case DateTimeDateTime:
		y, err := c.DecodeLong()
		if err != nil {
			return nil, err
		}
		year = int(y) + DateTimeYearOffset
		md, err := c.DecodeNBitUnsignedInteger(DateTimeNumberBitsMonthDay)
		if err != nil {
			return nil, err
		}
		monthDay = md
		t, f, err := c.decodeTimePortion()
		if err != nil {
			return nil, err
		}
		timeVal, fractionalSecs = t, f
	case DateTimeTime:
		t, f, err := c.decodeTimePortion()
		if err != nil {
			return nil, err
		}
		timeVal, fractionalSecs = t, f
	case DateTimeGMonth, DateTimeGMonthDay, DateTimeGDay:
		md, err := c.DecodeNBitUnsignedInteger(DateTimeNumberBitsMonthDay)
		if err != nil {
			return nil, err
		}
		monthDay = md
	default:
		return nil, Errorf(CodeUnexpected, "unsupported date-time type %d", kind)
	}

	presenceTimezone, err := c.DecodeBoolean()
	if err != nil {
		return nil, err
	}
	timezone := 0
	if presenceTimezone {
		tz, err := c.DecodeNBitUnsignedInteger(DateTimeNumberBitsTimeZone)
		if err != nil {
			return nil, err
		}
		timezone = tz - DateTimeTimeZoneOffsetInMinutes
	}

	return NewDateTimeValue(kind, year, monthDay, timeVal, fractionalSecs, presenceTimezone, timezone), nil
}

func (c *AbstractDecoderChannel) decodeTimePortion() (timeVal, fractionalSecs int, err error) {
	timeVal, err = c.DecodeNBitUnsignedInteger(DateTimeNumberBitsTime)
	if err != nil {
		return 0, 0, err
	}
	presenceFractionalSecs, err := c.DecodeBoolean()
	if err != nil {
		return 0, 0, err
	}
	if presenceFractionalSecs {
		fractionalSecs, err = c.DecodeUnsignedInteger()
		if err != nil {
			return 0, 0, err
		}
	}
	return timeVal, fractionalSecs, nil
}

/*
	AbstractEncoderChannel implementation
*/

// AbstractEncoderChannel supplies the composite datatype encoders on top of
// the primitive hooks of a concrete channel.
type AbstractEncoderChannel struct {
	EncoderChannel
}

func (c *AbstractEncoderChannel) EncodeBinary(p []byte) error {
	if err := c.EncodeUnsignedInteger(len(p)); err != nil {
		return err
	}
	return c.EncodeBytes(p)
}

func (c *AbstractEncoderChannel) EncodeString(s string) error {
	runes := []rune(s)
	if err := c.EncodeUnsignedInteger(len(runes)); err != nil {
		return err
	}
	return c.EncodeStringOnly(s)
}

func (c *AbstractEncoderChannel) EncodeStringOnly(s string) error {
	for _, r := range s {
		if err := c.EncodeUnsignedInteger(int(r)); err != nil {
			return err
		}
	}
	return nil
}

func (c *AbstractEncoderChannel) EncodeUnsignedInteger(n int) error {
	if n < 0 {
		return NewError(CodeInconsistentProcState, "negative value on unsigned channel")
	}
	return c.EncodeUnsignedLong(uint64(n))
}

func (c *AbstractEncoderChannel) EncodeUnsignedLong(l uint64) error {
	for l >= 0x80 {
		if err := c.Encode(int(l&0x7F) | 0x80); err != nil {
			return err
		}
		l >>= 7
	}
	return c.Encode(int(l))
}

func (c *AbstractEncoderChannel) encodeUnsignedBigInteger(b *apd.BigInt) error {
	if b.Sign() < 0 {
		return NewError(CodeInconsistentProcState, "negative value on unsigned channel")
	}
	if b.IsInt64() {
		return c.EncodeUnsignedLong(uint64(b.Int64()))
	}
	cur := new(apd.BigInt).Set(b)
	low := new(apd.BigInt)
	mask := apd.NewBigInt(0x7F)
	for cur.BitLen() > 7 {
		low.And(cur, mask)
		if err := c.Encode(int(low.Int64()) | 0x80); err != nil {
			return err
		}
		cur.Rsh(cur, 7)
	}
	return c.Encode(int(cur.Int64()))
}

func (c *AbstractEncoderChannel) EncodeUnsignedIntegerValue(iv *IntegerValue) error {
	if iv.IsBig() {
		return c.encodeUnsignedBigInteger(iv.ValueBig())
	}
	if iv.Value64() < 0 {
		return NewError(CodeInconsistentProcState, "negative value on unsigned channel")
	}
	return c.EncodeUnsignedLong(uint64(iv.Value64()))
}

func (c *AbstractEncoderChannel) EncodeInteger(n int) error {
	return c.EncodeLong(int64(n))
}

// EncodeLong writes a sign bit plus magnitude varint. A negative value is
// written as magnitude minus one with sign 1; zero always travels with sign
// 0 so exactly one form exists for it.
func (c *AbstractEncoderChannel) EncodeLong(l int64) error {
	if l < 0 {
		if err := c.EncodeBoolean(true); err != nil {
			return err
		}
		return c.EncodeUnsignedLong(uint64(-(l + 1)))
	}
	if err := c.EncodeBoolean(false); err != nil {
		return err
	}
	return c.EncodeUnsignedLong(uint64(l))
}

func (c *AbstractEncoderChannel) EncodeIntegerValue(iv *IntegerValue) error {
	if !iv.IsBig() {
		return c.EncodeLong(iv.Value64())
	}
	b := iv.ValueBig()
	if b.Sign() < 0 {
		if err := c.EncodeBoolean(true); err != nil {
			return err
		}
		mag := new(apd.BigInt).Neg(b)
		mag.Sub(mag, apd.NewBigInt(1))
		return c.encodeUnsignedBigInteger(mag)
	}
	if err := c.EncodeBoolean(false); err != nil {
		return err
	}
	return c.encodeUnsignedBigInteger(b)
}

func (c *AbstractEncoderChannel) EncodeDecimal(negative bool, integral, revFractional *IntegerValue) error {
	if err := c.EncodeBoolean(negative); err != nil {
		return err
	}
	if err := c.EncodeUnsignedIntegerValue(integral); err != nil {
		return err
	}
	return c.EncodeUnsignedIntegerValue(revFractional)
}

func (c *AbstractEncoderChannel) EncodeFloat(fv *FloatValue) error {
	if err := c.EncodeIntegerValue(fv.GetMantissa()); err != nil {
		return err
	}
	return c.EncodeIntegerValue(fv.GetExponent())
}

func (c *AbstractEncoderChannel) EncodeDateTime(dt *DateTimeValue) error {
	switch dt.kind {
	case DateTimeGYear:
		if err := c.EncodeLong(int64(dt.year - DateTimeYearOffset)); err != nil {
			return err
		}
	case DateTimeGYearMonth, DateTimeDate:
		if err := c.EncodeLong(int64(dt.year - DateTimeYearOffset)); err != nil {
			return err
		}
		if err := c.EncodeNBitUnsignedInteger(dt.monthDay, DateTimeNumberBitsMonthDay); err != nil {
			return err
		}
	case DateTimeDateTime:
		if err := c.EncodeLong(int64(dt.year - DateTimeYearOffset)); err != nil {
			return err
		}
		if err := c.EncodeNBitUnsignedInteger(dt.monthDay, DateTimeNumberBitsMonthDay); err != nil {
			return err
		}
		if err := c.encodeTimePortion(dt); err != nil {
			return err
		}
	case DateTimeTime:
		if err := c.encodeTimePortion(dt); err != nil {
			return err
		}
	case DateTimeGMonth, DateTimeGMonthDay, DateTimeGDay:
		if err := c.EncodeNBitUnsignedInteger(dt.monthDay, DateTimeNumberBitsMonthDay); err != nil {
			return err
		}
	default:
		return Errorf(CodeUnexpected, "unsupported date-time type %d", dt.kind)
	}

	if dt.presenceTimezone {
		if err := c.EncodeBoolean(true); err != nil {
			return err
		}
		return c.EncodeNBitUnsignedInteger(dt.timezone+DateTimeTimeZoneOffsetInMinutes, DateTimeNumberBitsTimeZone)
	}
	return c.EncodeBoolean(false)
}

func (c *AbstractEncoderChannel) encodeTimePortion(dt *DateTimeValue) error {
	if err := c.EncodeNBitUnsignedInteger(dt.time, DateTimeNumberBitsTime); err != nil {
		return err
	}
	if dt.presenceFractionalSecs && dt.fractionalSecs != 0 {
		if err := c.EncodeBoolean(true); err != nil {
			return err
		}
		return c.EncodeUnsignedInteger(dt.fractionalSecs)
	}
	return c.EncodeBoolean(false)
}

/*
	BitDecoderChannel implementation
*/

// BitDecoderChannel reads the bit-packed alignment.
type BitDecoderChannel struct {
	AbstractDecoderChannel
	reader *BitReader
}

func NewBitDecoderChannel(reader *BitReader) *BitDecoderChannel {
	c := &BitDecoderChannel{reader: reader}
	c.AbstractDecoderChannel.DecoderChannel = c
	return c
}

func (c *BitDecoderChannel) Reader() *BitReader { return c.reader }

func (c *BitDecoderChannel) Decode() (int, error) {
	b, err := c.reader.ReadBits(8)
	return b, err
}

func (c *BitDecoderChannel) Align() error {
	c.reader.AlignToByte()
	return nil
}

func (c *BitDecoderChannel) DecodeNBitUnsignedInteger(n int) (int, error) {
	if n < 0 {
		return 0, NewError(CodeOutOfBoundBuffer, "negative bit count")
	}
	if n == 0 {
		return 0, nil
	}
	return c.reader.ReadBits(n)
}

func (c *BitDecoderChannel) DecodeBoolean() (bool, error) {
	b, err := c.reader.ReadBit()
	return b == 1, err
}

func (c *BitDecoderChannel) DecodeBinary() ([]byte, error) {
	length, err := c.DecodeUnsignedInteger()
	if err != nil {
		return nil, err
	}
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		b, err := c.reader.ReadBits(8)
		if err != nil {
			return nil, err
		}
		result[i] = byte(b)
	}
	return result, nil
}

func (c *BitDecoderChannel) BitPosition() int64 {
	return c.reader.BitPosition()
}

/*
	BitEncoderChannel implementation
*/

// BitEncoderChannel writes the bit-packed alignment.
type BitEncoderChannel struct {
	AbstractEncoderChannel
	writer *BitWriter
}

func NewBitEncoderChannel(writer *BitWriter) *BitEncoderChannel {
	c := &BitEncoderChannel{writer: writer}
	c.AbstractEncoderChannel.EncoderChannel = c
	return c
}

func (c *BitEncoderChannel) Writer() *BitWriter { return c.writer }

func (c *BitEncoderChannel) Encode(b int) error {
	return c.writer.WriteBits(uint64(b&0xFF), 8)
}

func (c *BitEncoderChannel) Align() error {
	return c.writer.AlignToByte()
}

func (c *BitEncoderChannel) Flush() error {
	return c.writer.Close()
}

func (c *BitEncoderChannel) EncodeBytes(p []byte) error {
	if c.writer.IsByteAligned() {
		return c.writer.WriteBytes(p)
	}
	for _, b := range p {
		if err := c.writer.WriteBits(uint64(b), 8); err != nil {
			return err
		}
	}
	return nil
}

func (c *BitEncoderChannel) EncodeNBitUnsignedInteger(b, n int) error {
	if b < 0 || n < 0 {
		return NewError(CodeInconsistentProcState, "negative n-bit value")
	}
	return c.writer.WriteBits(uint64(b), n)
}

func (c *BitEncoderChannel) EncodeBoolean(b bool) error {
	if b {
		return c.writer.WriteBit(1)
	}
	return c.writer.WriteBit(0)
}

func (c *BitEncoderChannel) BitPosition() int64 {
	return c.writer.BitPosition()
}

/*
	ByteDecoderChannel implementation
*/

// ByteDecoderChannel reads the byte-aligned alignments. N-bit integers use
// the minimum number of bytes, least significant byte first.
type ByteDecoderChannel struct {
	AbstractDecoderChannel
	rb *ReadBuffer
}

func NewByteDecoderChannel(rb *ReadBuffer) *ByteDecoderChannel {
	c := &ByteDecoderChannel{rb: rb}
	c.AbstractDecoderChannel.DecoderChannel = c
	return c
}

func (c *ByteDecoderChannel) Decode() (int, error) {
	b, err := c.rb.ReadByte()
	return int(b), err
}

func (c *ByteDecoderChannel) Align() error { return nil }

func (c *ByteDecoderChannel) DecodeNBitUnsignedInteger(n int) (int, error) {
	if n < 0 {
		return 0, NewError(CodeOutOfBoundBuffer, "negative bit count")
	}
	bitsRead := 0
	result := 0
	for bitsRead < n {
		b, err := c.Decode()
		if err != nil {
			return 0, err
		}
		result |= b << bitsRead
		bitsRead += 8
	}
	return result, nil
}

func (c *ByteDecoderChannel) DecodeBoolean() (bool, error) {
	b, err := c.Decode()
	return b != 0, err
}

func (c *ByteDecoderChannel) DecodeBinary() ([]byte, error) {
	length, err := c.DecodeUnsignedInteger()
	if err != nil {
		return nil, err
	}
	result := make([]byte, length)
	if err := c.rb.ReadFull(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *ByteDecoderChannel) BitPosition() int64 {
	return c.rb.BytePosition() * 8
}

/*
	ByteEncoderChannel implementation
*/

// ByteEncoderChannel writes the byte-aligned alignments.
type ByteEncoderChannel struct {
	AbstractEncoderChannel
	wb *WriteBuffer
}

func NewByteEncoderChannel(wb *WriteBuffer) *ByteEncoderChannel {
	c := &ByteEncoderChannel{wb: wb}
	c.AbstractEncoderChannel.EncoderChannel = c
	return c
}

func (c *ByteEncoderChannel) Encode(b int) error {
	return c.wb.WriteByte(byte(b & 0xFF))
}

func (c *ByteEncoderChannel) Align() error { return nil }

func (c *ByteEncoderChannel) Flush() error {
	return c.wb.Flush()
}

func (c *ByteEncoderChannel) EncodeBytes(p []byte) error {
	return c.wb.Write(p)
}

func (c *ByteEncoderChannel) EncodeNBitUnsignedInteger(b, n int) error {
	if b < 0 || n < 0 {
		return NewError(CodeInconsistentProcState, "negative n-bit value")
	}
	for written := 0; written < n; written += 8 {
		if err := c.Encode((b >> written) & 0xFF); err != nil {
			return err
		}
	}
	return nil
}

func (c *ByteEncoderChannel) EncodeBoolean(b bool) error {
	if b {
		return c.Encode(1)
	}
	return c.Encode(0)
}

func (c *ByteEncoderChannel) BitPosition() int64 {
	return c.wb.BytePosition() * 8
}
