package core

/*
	Typed value coder

	Sits between a caller that knows a value's datatype and the channel
	layer. The encoder validates the lexical form first (IsValid), then
	writes the typed representation; values whose datatype is string, and
	every value when lexical fidelity is on, travel through the string
	channel instead so their exact lexical form survives.
*/

type DatatypeKind int

const (
	DatatypeString DatatypeKind = iota
	DatatypeBoolean
	DatatypeDecimal
	DatatypeFloat
	DatatypeInteger
	DatatypeUnsignedInteger
	DatatypeNBitUnsignedInteger
	DatatypeBinaryBase64
	DatatypeBinaryHex
	DatatypeDateTime
)

// Datatype selects a typed channel representation. DateTime carries its
// sub-kind; the n-bit form carries its bounds.
type Datatype struct {
	Kind      DatatypeKind
	DateTime  DateTimeType
	NBitLower int64
	NBitBits  int
}

func StringDatatype() Datatype  { return Datatype{Kind: DatatypeString} }
func BooleanDatatype() Datatype { return Datatype{Kind: DatatypeBoolean} }
func DecimalDatatype() Datatype { return Datatype{Kind: DatatypeDecimal} }
func FloatDatatype() Datatype   { return Datatype{Kind: DatatypeFloat} }
func IntegerDatatype() Datatype { return Datatype{Kind: DatatypeInteger} }

func UnsignedIntegerDatatype() Datatype {
	return Datatype{Kind: DatatypeUnsignedInteger}
}

func NBitUnsignedIntegerDatatype(lower int64, bits int) Datatype {
	return Datatype{Kind: DatatypeNBitUnsignedInteger, NBitLower: lower, NBitBits: bits}
}

func DateTimeDatatype(kind DateTimeType) Datatype {
	return Datatype{Kind: DatatypeDateTime, DateTime: kind}
}

/*
	TypedEncoder implementation
*/

// TypedEncoder validates lexical forms and emits their typed channel
// representation. IsValid caches the parsed value for the WriteValue that
// follows it.
type TypedEncoder struct {
	strings *StringEncoder
	lexical bool

	lastDatatype Datatype
	lastString   string
	lastBool     *BooleanValue
	lastDecimal  *DecimalValue
	lastFloat    *FloatValue
	lastInteger  *IntegerValue
	lastBinary   *BinaryValue
	lastDateTime *DateTimeValue
}

func NewTypedEncoder(strings *StringEncoder, fo *FidelityOptions) *TypedEncoder {
	return &TypedEncoder{
		strings: strings,
		lexical: fo != nil && fo.lexicalValues,
	}
}

// IsValid reports whether value is representable in the datatype's typed
// form. An invalid value leaves the caller the string-channel fallback.
func (e *TypedEncoder) IsValid(dt Datatype, value string) bool {
	e.lastDatatype = dt
	e.lastString = value
	if e.lexical || dt.Kind == DatatypeString {
		return true
	}

	switch dt.Kind {
	case DatatypeBoolean:
		e.lastBool = BooleanValueParse(value)
		return e.lastBool != nil
	case DatatypeDecimal:
		dv, err := DecimalValueParse(value)
		e.lastDecimal = dv
		return err == nil
	case DatatypeFloat:
		fv, err := FloatValueParse(value)
		e.lastFloat = fv
		return err == nil
	case DatatypeInteger:
		iv, err := IntegerValueParse(value)
		e.lastInteger = iv
		return err == nil
	case DatatypeUnsignedInteger:
		iv, err := IntegerValueParse(value)
		e.lastInteger = iv
		return err == nil && iv.IsNonNegative()
	case DatatypeNBitUnsignedInteger:
		iv, err := IntegerValueParse(value)
		if err != nil || iv.IsBig() {
			return false
		}
		e.lastInteger = iv
		offset := iv.Value64() - dt.NBitLower
		return offset >= 0 && (dt.NBitBits >= 64 || offset < int64(1)<<dt.NBitBits)
	case DatatypeBinaryBase64:
		e.lastBinary = BinaryBase64ValueParse(value)
		return e.lastBinary != nil
	case DatatypeBinaryHex:
		e.lastBinary = BinaryHexValueParse(value)
		return e.lastBinary != nil
	case DatatypeDateTime:
		dtv, err := DateTimeValueParse(value, dt.DateTime)
		e.lastDateTime = dtv
		return err == nil
	default:
		return false
	}
}

// WriteValue emits the value cached by the preceding IsValid call.
func (e *TypedEncoder) WriteValue(uriID, localID int, channel EncoderChannel) error {
	dt := e.lastDatatype
	if e.lexical || dt.Kind == DatatypeString {
		return e.strings.WriteValue(uriID, localID, channel, e.lastString)
	}

	switch dt.Kind {
	case DatatypeBoolean:
		return channel.EncodeBoolean(e.lastBool.ToBoolean())
	case DatatypeDecimal:
		return channel.EncodeDecimal(e.lastDecimal.IsNegative(),
			e.lastDecimal.GetIntegral(), e.lastDecimal.GetRevFractional())
	case DatatypeFloat:
		return channel.EncodeFloat(e.lastFloat)
	case DatatypeInteger:
		return channel.EncodeIntegerValue(e.lastInteger)
	case DatatypeUnsignedInteger:
		return channel.EncodeUnsignedIntegerValue(e.lastInteger)
	case DatatypeNBitUnsignedInteger:
		offset := int(e.lastInteger.Value64() - dt.NBitLower)
		return channel.EncodeNBitUnsignedInteger(offset, dt.NBitBits)
	case DatatypeBinaryBase64, DatatypeBinaryHex:
		return channel.EncodeBinary(e.lastBinary.ToBytes())
	case DatatypeDateTime:
		return channel.EncodeDateTime(e.lastDateTime)
	default:
		return Errorf(CodeUnexpected, "unsupported datatype kind %d", dt.Kind)
	}
}

/*
	TypedDecoder implementation
*/

// TypedDecoder reads the typed channel representation selected by the
// datatype the caller supplies; it must match the encoder's choice.
type TypedDecoder struct {
	strings *StringDecoder
	lexical bool
}

func NewTypedDecoder(strings *StringDecoder, fo *FidelityOptions) *TypedDecoder {
	return &TypedDecoder{
		strings: strings,
		lexical: fo != nil && fo.lexicalValues,
	}
}

func (d *TypedDecoder) ReadValue(dt Datatype, uriID, localID int, channel DecoderChannel) (Value, error) {
	if d.lexical || dt.Kind == DatatypeString {
		return d.strings.ReadValue(uriID, localID, channel)
	}

	switch dt.Kind {
	case DatatypeBoolean:
		b, err := channel.DecodeBoolean()
		if err != nil {
			return nil, err
		}
		if b {
			return BooleanValueTrue, nil
		}
		return BooleanValueFalse, nil
	case DatatypeDecimal:
		return channel.DecodeDecimalValue()
	case DatatypeFloat:
		return channel.DecodeFloatValue()
	case DatatypeInteger:
		return channel.DecodeIntegerValue()
	case DatatypeUnsignedInteger:
		return channel.DecodeUnsignedIntegerValue()
	case DatatypeNBitUnsignedInteger:
		offset, err := channel.DecodeNBitUnsignedInteger(dt.NBitBits)
		if err != nil {
			return nil, err
		}
		return IntegerValueOf64(dt.NBitLower + int64(offset)), nil
	case DatatypeBinaryBase64:
		data, err := channel.DecodeBinary()
		if err != nil {
			return nil, err
		}
		return NewBinaryBase64Value(data), nil
	case DatatypeBinaryHex:
		data, err := channel.DecodeBinary()
		if err != nil {
			return nil, err
		}
		return NewBinaryHexValue(data), nil
	case DatatypeDateTime:
		return channel.DecodeDateTimeValue(dt.DateTime)
	default:
		return nil, Errorf(CodeUnexpected, "unsupported datatype kind %d", dt.Kind)
	}
}
