package core

import (
	"encoding/base64"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	Text "github.com/linkdotnet/golang-stringbuilder"
)

type ValueKind int

const (
	ValueKindBoolean ValueKind = iota
	ValueKindString
	ValueKindInteger
	ValueKindDecimal
	ValueKindFloat
	ValueKindDateTime
	ValueKindBinaryBase64
	ValueKindBinaryHex
)

// Value is a typed EXI value with a lexical form.
type Value interface {
	Kind() ValueKind
	ToString() string
	Equals(o Value) bool
}

/*
	StringValue implementation
*/

type StringValue struct {
	s string
}

var EmptyStringValue = NewStringValue(EmptyString)

func NewStringValue(s string) *StringValue {
	return &StringValue{s: s}
}

func NewStringValueFromRunes(r []rune) *StringValue {
	return &StringValue{s: string(r)}
}

func (v *StringValue) Kind() ValueKind  { return ValueKindString }
func (v *StringValue) ToString() string { return v.s }

func (v *StringValue) Equals(o Value) bool {
	return o != nil && v.s == o.ToString()
}

/*
	BooleanValue implementation
*/

type BooleanValue struct {
	value   bool
	lexical string
}

var (
	BooleanValueTrue  = &BooleanValue{value: true, lexical: XSDBooleanTrue}
	BooleanValueFalse = &BooleanValue{value: false, lexical: XSDBooleanFalse}
)

// BooleanValueParse accepts the four XSD lexical forms and returns nil for
// anything else.
func BooleanValueParse(s string) *BooleanValue {
	switch strings.TrimSpace(s) {
	case XSDBooleanTrue, XSDBoolean1:
		return BooleanValueTrue
	case XSDBooleanFalse, XSDBoolean0:
		return BooleanValueFalse
	default:
		return nil
	}
}

func (v *BooleanValue) Kind() ValueKind  { return ValueKindBoolean }
func (v *BooleanValue) ToBoolean() bool  { return v.value }
func (v *BooleanValue) ToString() string { return v.lexical }

func (v *BooleanValue) Equals(o Value) bool {
	ob, ok := o.(*BooleanValue)
	return ok && v.value == ob.value
}

/*
	IntegerValue implementation
*/

// IntegerValue holds an EXI integer, as an int64 while it fits and as an
// arbitrary-precision integer beyond that.
type IntegerValue struct {
	isBig bool
	l     int64
	b     *apd.BigInt
}

func IntegerValueOf64(v int64) *IntegerValue {
	return &IntegerValue{l: v}
}

// IntegerValueOfBig normalizes to the int64 form when the value fits.
func IntegerValueOfBig(b *apd.BigInt) *IntegerValue {
	if b.IsInt64() {
		return &IntegerValue{l: b.Int64()}
	}
	return &IntegerValue{isBig: true, b: b}
}

// IntegerValueParse parses a decimal integer of arbitrary size.
func IntegerValueParse(s string) (*IntegerValue, error) {
	s = strings.TrimSpace(s)
	if l, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntegerValueOf64(l), nil
	}
	b, ok := new(apd.BigInt).SetString(s, 10)
	if !ok {
		return nil, Errorf(CodeInvalidStringOperation, "not a decimal integer: %q", s)
	}
	return IntegerValueOfBig(b), nil
}

func (v *IntegerValue) Kind() ValueKind { return ValueKindInteger }
func (v *IntegerValue) IsBig() bool     { return v.isBig }

// Value64 returns the int64 form; callers check IsBig first.
func (v *IntegerValue) Value64() int64 {
	if v.isBig {
		return v.b.Int64()
	}
	return v.l
}

// Int returns the value as an int for code/width arithmetic.
func (v *IntegerValue) Int() int {
	return int(v.Value64())
}

// ValueBig returns the arbitrary-precision form, promoting on demand.
func (v *IntegerValue) ValueBig() *apd.BigInt {
	if v.isBig {
		return v.b
	}
	return apd.NewBigInt(v.l)
}

func (v *IntegerValue) Sign() int {
	if v.isBig {
		return v.b.Sign()
	}
	switch {
	case v.l < 0:
		return -1
	case v.l > 0:
		return 1
	default:
		return 0
	}
}

func (v *IntegerValue) IsNonNegative() bool {
	return v.Sign() >= 0
}

func (v *IntegerValue) Cmp(o *IntegerValue) int {
	if !v.isBig && !o.isBig {
		switch {
		case v.l < o.l:
			return -1
		case v.l > o.l:
			return 1
		default:
			return 0
		}
	}
	return v.ValueBig().Cmp(o.ValueBig())
}

func (v *IntegerValue) ToString() string {
	if v.isBig {
		return v.b.String()
	}
	return strconv.FormatInt(v.l, 10)
}

func (v *IntegerValue) Equals(o Value) bool {
	oi, ok := o.(*IntegerValue)
	return ok && v.Cmp(oi) == 0
}

/*
	DecimalValue implementation
*/

// DecimalValue keeps the EXI wire shape of a decimal: sign, integral part
// and the fractional digits in reverse order, which preserves the leading
// zeros of the fraction.
type DecimalValue struct {
	negative      bool
	integral      *IntegerValue
	revFractional *IntegerValue
}

func NewDecimalValue(negative bool, integral, revFractional *IntegerValue) *DecimalValue {
	return &DecimalValue{
		negative:      negative,
		integral:      integral,
		revFractional: revFractional,
	}
}

// DecimalValueParse parses an XSD decimal lexical form.
func DecimalValueParse(s string) (*DecimalValue, error) {
	s = strings.TrimSpace(s)
	if _, _, err := apd.NewFromString(s); err != nil {
		return nil, Errorf(CodeInvalidStringOperation, "not a decimal: %q", s)
	}
	if strings.ContainsAny(s, "eE") {
		// exponent notation is float territory
		return nil, Errorf(CodeInvalidStringOperation, "decimal with exponent: %q", s)
	}

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	intPart, fracPart := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	fracPart = strings.TrimRight(fracPart, "0")

	integral, err := IntegerValueParse(intPart)
	if err != nil {
		return nil, err
	}
	rev := "0"
	if fracPart != "" {
		rev = reverseDigits(fracPart)
	}
	revFractional, err := IntegerValueParse(rev)
	if err != nil {
		return nil, err
	}
	if negative && integral.Sign() == 0 && revFractional.Sign() == 0 {
		// single canonical form for zero
		negative = false
	}

	return NewDecimalValue(negative, integral, revFractional), nil
}

func reverseDigits(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

func (v *DecimalValue) Kind() ValueKind               { return ValueKindDecimal }
func (v *DecimalValue) IsNegative() bool              { return v.negative }
func (v *DecimalValue) GetIntegral() *IntegerValue    { return v.integral }
func (v *DecimalValue) GetRevFractional() *IntegerValue { return v.revFractional }

func (v *DecimalValue) ToString() string {
	sb := Text.StringBuilder{}
	if v.negative {
		sb.Append("-")
	}
	sb.Append(v.integral.ToString())
	if v.revFractional.Sign() != 0 {
		sb.Append(".")
		sb.Append(reverseDigits(v.revFractional.ToString()))
	}
	return sb.ToString()
}

// ToBigDecimal converts to an arbitrary-precision decimal.
func (v *DecimalValue) ToBigDecimal() (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(v.ToString())
	if err != nil {
		return nil, Errorf(CodeUnexpected, "decimal conversion: %v", err)
	}
	return d, nil
}

func (v *DecimalValue) Equals(o Value) bool {
	od, ok := o.(*DecimalValue)
	if !ok {
		return false
	}
	return v.negative == od.negative &&
		v.integral.Cmp(od.integral) == 0 &&
		v.revFractional.Cmp(od.revFractional) == 0
}

/*
	FloatValue implementation
*/

// FloatValue is an EXI float: mantissa and base-10 exponent. The special
// exponent value flags INF, -INF and NaN.
type FloatValue struct {
	mantissa *IntegerValue
	exponent *IntegerValue
}

func NewFloatValue(mantissa, exponent int64) *FloatValue {
	return &FloatValue{
		mantissa: IntegerValueOf64(mantissa),
		exponent: IntegerValueOf64(exponent),
	}
}

// FloatValueParse parses an XSD float/double lexical form into mantissa and
// exponent, normalizing away trailing mantissa zeros.
func FloatValueParse(s string) (*FloatValue, error) {
	s = strings.TrimSpace(s)
	switch s {
	case FloatInfinity:
		return NewFloatValue(FloatMantissaInfinity, FloatSpecialExponent), nil
	case FloatMinusInfinity:
		return NewFloatValue(FloatMantissaMinusInfinity, FloatSpecialExponent), nil
	case FloatNotANumber:
		return NewFloatValue(FloatMantissaNotANumber, FloatSpecialExponent), nil
	}

	mant := s
	exp := int64(0)
	if idx := strings.IndexAny(s, "eE"); idx >= 0 {
		mant = s[:idx]
		e, err := strconv.ParseInt(s[idx+1:], 10, 64)
		if err != nil {
			return nil, Errorf(CodeInvalidStringOperation, "not a float: %q", s)
		}
		exp = e
	}

	negative := false
	switch {
	case strings.HasPrefix(mant, "-"):
		negative = true
		mant = mant[1:]
	case strings.HasPrefix(mant, "+"):
		mant = mant[1:]
	}
	if idx := strings.IndexByte(mant, '.'); idx >= 0 {
		exp -= int64(len(mant) - idx - 1)
		mant = mant[:idx] + mant[idx+1:]
	}
	if mant == "" {
		return nil, Errorf(CodeInvalidStringOperation, "not a float: %q", s)
	}

	m, err := strconv.ParseInt(mant, 10, 64)
	if err != nil {
		return nil, Errorf(CodeInvalidStringOperation, "float mantissa out of range: %q", s)
	}
	if negative {
		m = -m
	}
	for m != 0 && m%10 == 0 {
		m /= 10
		exp++
	}
	if exp < FloatExponentMinRange || exp > FloatExponentMaxRange {
		return nil, Errorf(CodeInvalidStringOperation, "float exponent out of range: %q", s)
	}

	return NewFloatValue(m, exp), nil
}

func (v *FloatValue) Kind() ValueKind            { return ValueKindFloat }
func (v *FloatValue) GetMantissa() *IntegerValue { return v.mantissa }
func (v *FloatValue) GetExponent() *IntegerValue { return v.exponent }

func (v *FloatValue) IsSpecial() bool {
	return !v.exponent.IsBig() && v.exponent.Value64() == FloatSpecialExponent
}

func (v *FloatValue) ToFloat64() float64 {
	if v.IsSpecial() {
		switch v.mantissa.Value64() {
		case FloatMantissaInfinity:
			return math.Inf(1)
		case FloatMantissaMinusInfinity:
			return math.Inf(-1)
		default:
			return math.NaN()
		}
	}
	f, _ := strconv.ParseFloat(v.ToString(), 64)
	return f
}

func (v *FloatValue) ToString() string {
	if v.IsSpecial() {
		switch v.mantissa.Value64() {
		case FloatMantissaInfinity:
			return FloatInfinity
		case FloatMantissaMinusInfinity:
			return FloatMinusInfinity
		default:
			return FloatNotANumber
		}
	}
	sb := Text.StringBuilder{}
	sb.Append(v.mantissa.ToString())
	sb.Append("E")
	sb.Append(v.exponent.ToString())
	return sb.ToString()
}

func (v *FloatValue) Equals(o Value) bool {
	of, ok := o.(*FloatValue)
	if !ok {
		return false
	}
	return v.mantissa.Cmp(of.mantissa) == 0 && v.exponent.Cmp(of.exponent) == 0
}

/*
	BinaryValue implementation
*/

// BinaryValue holds octets plus the lexical flavor they travel in.
type BinaryValue struct {
	kind  ValueKind
	bytes []byte
}

func NewBinaryBase64Value(data []byte) *BinaryValue {
	return &BinaryValue{kind: ValueKindBinaryBase64, bytes: data}
}

func NewBinaryHexValue(data []byte) *BinaryValue {
	return &BinaryValue{kind: ValueKindBinaryHex, bytes: data}
}

func BinaryBase64ValueParse(s string) *BinaryValue {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return NewBinaryBase64Value(data)
}

func BinaryHexValueParse(s string) *BinaryValue {
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return NewBinaryHexValue(data)
}

func (v *BinaryValue) Kind() ValueKind { return v.kind }
func (v *BinaryValue) ToBytes() []byte { return v.bytes }

func (v *BinaryValue) ToString() string {
	if v.kind == ValueKindBinaryHex {
		return strings.ToUpper(hex.EncodeToString(v.bytes))
	}
	return base64.StdEncoding.EncodeToString(v.bytes)
}

func (v *BinaryValue) Equals(o Value) bool {
	ob, ok := o.(*BinaryValue)
	if !ok || len(v.bytes) != len(ob.bytes) {
		return false
	}
	for i := range v.bytes {
		if v.bytes[i] != ob.bytes[i] {
			return false
		}
	}
	return true
}
