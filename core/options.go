package core

import "github.com/exicore/exicore/utils"

// Alignment selects how the body maps onto bytes.
type Alignment int

const (
	AlignmentBitPacked Alignment = iota
	AlignmentByteAligned
	AlignmentPreCompression
	AlignmentCompression
)

func (a Alignment) String() string {
	switch a {
	case AlignmentBitPacked:
		return "bit-packed"
	case AlignmentByteAligned:
		return "byte-aligned"
	case AlignmentPreCompression:
		return "pre-compression"
	case AlignmentCompression:
		return "compression"
	default:
		return "unknown"
	}
}

// IsByteOriented reports whether the body is byte-aligned on the wire.
func (a Alignment) IsByteOriented() bool {
	return a != AlignmentBitPacked
}

// IsCompressed reports whether the body travels in compression framing.
func (a Alignment) IsCompressed() bool {
	return a == AlignmentPreCompression || a == AlignmentCompression
}

// DTRMapEntry maps a schema type QName onto a representation QName.
type DTRMapEntry struct {
	Type           utils.QName
	Representation utils.QName
}

// Options is the recognized EXI option set.
type Options struct {
	Alignment     Alignment
	Fidelity      *FidelityOptions
	SelfContained bool
	Fragment      bool

	BlockSize              int
	ValueMaxLength         int
	ValuePartitionCapacity int

	// SchemaID: nil means schema-less, the empty string means the
	// built-in XML Schema types, anything else names a schema.
	SchemaID *string

	DatatypeRepresentationMap []DTRMapEntry
}

func NewDefaultOptions() *Options {
	return &Options{
		Alignment:              AlignmentBitPacked,
		Fidelity:               NewDefaultFidelityOptions(),
		BlockSize:              DefaultBlockSize,
		ValueMaxLength:         DefaultValueMaxLength,
		ValuePartitionCapacity: DefaultValuePartitionCapacity,
	}
}

// Validate enforces the mutual-exclusion rules of the option set.
func (o *Options) Validate() error {
	if o.Fidelity == nil {
		return NewError(CodeNullReference, "fidelity options missing")
	}
	if o.SelfContained {
		if o.Alignment.IsCompressed() {
			return Errorf(CodeHeaderOptionsMismatch,
				"selfContained cannot be combined with %s alignment", o.Alignment)
		}
		if o.Fidelity.IsStrict() {
			return NewError(CodeHeaderOptionsMismatch, "selfContained cannot be combined with strict")
		}
		o.Fidelity.selfContained = true
	}
	if o.BlockSize <= 0 {
		return Errorf(CodeInvalidExiConfiguration, "block size %d out of range", o.BlockSize)
	}
	if o.Fidelity.IsStrict() &&
		(o.Fidelity.comments || o.Fidelity.pis || o.Fidelity.dtd || o.Fidelity.prefixes) {
		return NewError(CodeHeaderOptionsMismatch, "strict excludes the event-producing preserve flags")
	}
	return nil
}

// Clone returns a deep copy, so a decoder can own its effective options.
func (o *Options) Clone() *Options {
	clone := *o
	if o.Fidelity != nil {
		fidelity := *o.Fidelity
		clone.Fidelity = &fidelity
	}
	if o.SchemaID != nil {
		schemaID := *o.SchemaID
		clone.SchemaID = &schemaID
	}
	clone.DatatypeRepresentationMap = append([]DTRMapEntry(nil), o.DatatypeRepresentationMap...)
	return &clone
}
