package core

const (
	XMLNullNS_URI           string = ""
	XML_NS_URI              string = "http://www.w3.org/XML/1998/namespace"
	XMLSchemaInstanceNS_URI string = "http://www.w3.org/2001/XMLSchema-instance"
	XMLSchemaNS_URI         string = "http://www.w3.org/2001/XMLSchema"
	XML_NS_AttributeNS_URI  string = "http://www.w3.org/2000/xmlns/"
	XML_NS_Attribute        string = "xmlns"

	XML_NS_Prefix string = "xml"
	XSIPrefix     string = "xsi"
	XSIType       string = "type"
	XSINil        string = "nil"

	EmptyString string = ""

	XSDBooleanTrue  string = "true"
	XSDBoolean1     string = "1"
	XSDBooleanFalse string = "false"
	XSDBoolean0     string = "0"

	NotFound int = -1

	DefaultBlockSize              int = 1000000
	DefaultValueMaxLength         int = -1
	DefaultValuePartitionCapacity int = -1

	/*
	 * Float & Double values: mantissa/exponent specials.
	 * An exponent of -(2^14) flags INF, -INF and NaN.
	 */
	FloatInfinity      string = "INF"
	FloatMinusInfinity string = "-INF"
	FloatNotANumber    string = "NaN"

	FloatSpecialExponent       int64 = -16384
	FloatMantissaInfinity      int64 = 1
	FloatMantissaMinusInfinity int64 = -1
	FloatMantissaNotANumber    int64 = 0

	/* -(2^14-1) .. 2^14-1 */
	FloatExponentMinRange int64 = -16383
	FloatExponentMaxRange int64 = 16383
	FloatMantissaMinRange int64 = -9223372036854775808
	FloatMantissaMaxRange int64 = 9223372036854775807
)

// ExiCookie is the optional 4-byte stream prefix "$EXI".
var ExiCookie = [4]byte{0x24, 0x45, 0x58, 0x49}

// DistinguishingBits is the mandatory 2-bit field following the cookie.
const (
	DistinguishingBitsValue int = 0x2
	DistinguishingBitsCount int = 2
)

// Pre-seeded local names of the XML namespace (sorted).
var xmlLocalNames = []string{"base", "id", "lang", "space"}

// Pre-seeded local names of the XML Schema Instance namespace (sorted).
var xsiLocalNames = []string{"nil", "type"}

// Pre-seeded local names of the XML Schema namespace (sorted), used when the
// options announce the built-in schema types.
var xsdLocalNames = []string{
	"ENTITIES", "ENTITY", "ID", "IDREF", "IDREFS", "NCName", "NMTOKEN",
	"NMTOKENS", "NOTATION", "Name", "QName", "anySimpleType", "anyType",
	"anyURI", "base64Binary", "boolean", "byte", "date", "dateTime",
	"decimal", "double", "duration", "float", "gDay", "gMonth", "gMonthDay",
	"gYear", "gYearMonth", "hexBinary", "int", "integer", "language",
	"long", "negativeInteger", "nonNegativeInteger", "nonPositiveInteger",
	"normalizedString", "positiveInteger", "short", "string", "time",
	"token", "unsignedByte", "unsignedInt", "unsignedLong", "unsignedShort",
}
