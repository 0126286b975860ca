package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerValueParse(t *testing.T) {
	v, err := IntegerValueParse("42")
	require.NoError(t, err)
	assert.False(t, v.IsBig())
	assert.Equal(t, int64(42), v.Value64())

	v, err = IntegerValueParse("-9223372036854775808")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), v.Value64())

	v, err = IntegerValueParse("18446744073709551616") // 2^64
	require.NoError(t, err)
	assert.True(t, v.IsBig())
	assert.Equal(t, "18446744073709551616", v.ToString())

	_, err = IntegerValueParse("12abc")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInvalidStringOperation))
}

func TestIntegerValueCmp(t *testing.T) {
	small, _ := IntegerValueParse("5")
	large, _ := IntegerValueParse("340282366920938463463374607431768211456")
	assert.Equal(t, -1, small.Cmp(large))
	assert.Equal(t, 1, large.Cmp(small))
	assert.Equal(t, 0, small.Cmp(IntegerValueOf64(5)))
}

func TestBooleanValueParse(t *testing.T) {
	assert.True(t, BooleanValueParse("true").ToBoolean())
	assert.True(t, BooleanValueParse(" 1 ").ToBoolean())
	assert.False(t, BooleanValueParse("false").ToBoolean())
	assert.False(t, BooleanValueParse("0").ToBoolean())
	assert.Nil(t, BooleanValueParse("TRUE"))
	assert.Nil(t, BooleanValueParse("yes"))
}

func TestDecimalValueParse(t *testing.T) {
	dv, err := DecimalValueParse("-12.0340")
	require.NoError(t, err)
	assert.True(t, dv.IsNegative())
	assert.Equal(t, "12", dv.GetIntegral().ToString())
	// fraction digits reversed, trailing zeros dropped: "034" -> "430"
	assert.Equal(t, "430", dv.GetRevFractional().ToString())
	assert.Equal(t, "-12.034", dv.ToString())

	dv, err = DecimalValueParse("-0.0")
	require.NoError(t, err)
	assert.False(t, dv.IsNegative(), "zero has one canonical form")
	assert.Equal(t, "0", dv.ToString())

	_, err = DecimalValueParse("1e3")
	require.Error(t, err)
	_, err = DecimalValueParse("abc")
	require.Error(t, err)
}

func TestDecimalToBigDecimal(t *testing.T) {
	dv, err := DecimalValueParse("3.14159")
	require.NoError(t, err)
	d, err := dv.ToBigDecimal()
	require.NoError(t, err)
	assert.Equal(t, "3.14159", d.String())
}

func TestFloatValueParse(t *testing.T) {
	fv, err := FloatValueParse("1.25")
	require.NoError(t, err)
	assert.Equal(t, int64(125), fv.GetMantissa().Value64())
	assert.Equal(t, int64(-2), fv.GetExponent().Value64())
	assert.Equal(t, 1.25, fv.ToFloat64())

	fv, err = FloatValueParse("-3E8")
	require.NoError(t, err)
	assert.Equal(t, int64(-3), fv.GetMantissa().Value64())
	assert.Equal(t, int64(8), fv.GetExponent().Value64())

	fv, err = FloatValueParse("INF")
	require.NoError(t, err)
	assert.True(t, fv.IsSpecial())
	assert.True(t, math.IsInf(fv.ToFloat64(), 1))

	fv, err = FloatValueParse("NaN")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(fv.ToFloat64()))

	_, err = FloatValueParse("1E99999")
	require.Error(t, err)
}

func TestBinaryValueParse(t *testing.T) {
	bv := BinaryHexValueParse("0fb7")
	require.NotNil(t, bv)
	assert.Equal(t, []byte{0x0F, 0xB7}, bv.ToBytes())
	assert.Equal(t, "0FB7", bv.ToString())

	bv = BinaryBase64ValueParse("aGVsbG8=")
	require.NotNil(t, bv)
	assert.Equal(t, []byte("hello"), bv.ToBytes())
	assert.Equal(t, "aGVsbG8=", bv.ToString())

	assert.Nil(t, BinaryHexValueParse("xyz"))
	assert.Nil(t, BinaryBase64ValueParse("!!!"))
}

func TestStringValueEquals(t *testing.T) {
	a := NewStringValue("abc")
	b := NewStringValueFromRunes([]rune{'a', 'b', 'c'})
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(NewStringValue("abd")))
	assert.Equal(t, "", EmptyStringValue.ToString())
}
