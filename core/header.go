package core

import (
	"strconv"
	"strings"

	"github.com/exicore/exicore/utils"
)

// Header is the decoded EXI stream preamble. A nil Opts means the option
// set travels out of band.
type Header struct {
	HasCookie        bool
	IsPreviewVersion bool
	Version          int
	Opts             *Options
}

func NewHeader() *Header {
	return &Header{Version: 1}
}

/*
	Options document vocabulary

	The option set is carried as an EXI body fragment over the options
	schema's element names, processed in a constrained schema-less mode.
*/

const (
	optElemHeader        = "header"
	optElemLessCommon    = "lesscommon"
	optElemUncommon      = "uncommon"
	optElemAlignment     = "alignment"
	optElemByte          = "byte"
	optElemPreCompress   = "pre-compress"
	optElemSelfContained = "selfContained"
	optElemValueMaxLen   = "valueMaxLength"
	optElemValueCapacity = "valuePartitionCapacity"
	optElemDTRMap        = "datatypeRepresentationMap"
	optElemPreserve      = "preserve"
	optElemDTD           = "dtd"
	optElemPrefixes      = "prefixes"
	optElemLexical       = "lexicalValues"
	optElemComments      = "comments"
	optElemPIs           = "pis"
	optElemBlockSize     = "blockSize"
	optElemCommon        = "common"
	optElemCompression   = "compression"
	optElemFragment      = "fragment"
	optElemSchemaID      = "schemaId"
	optElemStrict        = "strict"
)

// optionsDocProfile is the fixed coding profile of the options document
// itself: bit-packed, schema-less, nothing preserved.
func optionsDocProfile() *Options {
	return NewDefaultOptions()
}

/*
	HeaderEncoder implementation
*/

type HeaderEncoder struct{}

func NewHeaderEncoder() *HeaderEncoder {
	return &HeaderEncoder{}
}

// Write emits cookie, distinguishing bits, options presence bit, preview
// field, version groups and, when present, the options document.
func (e *HeaderEncoder) Write(w *BitWriter, h *Header) error {
	if h.Version < 1 {
		return Errorf(CodeInvalidExiConfiguration, "version %d out of range", h.Version)
	}
	if h.Opts != nil {
		if err := h.Opts.Validate(); err != nil {
			return err
		}
	}

	if h.HasCookie {
		if err := w.WriteBytes(ExiCookie[:]); err != nil {
			return err
		}
	}
	if err := w.WriteBits(uint64(DistinguishingBitsValue), DistinguishingBitsCount); err != nil {
		return err
	}
	optionsPresent := 0
	if h.Opts != nil {
		optionsPresent = 1
	}
	if err := w.WriteBit(optionsPresent); err != nil {
		return err
	}
	preview := 0
	if h.IsPreviewVersion {
		preview = 1
	}
	if err := w.WriteBits(uint64(preview), 4); err != nil {
		return err
	}

	// version minus one as 4-bit groups; a group below 15 terminates
	v := h.Version - 1
	for v >= 15 {
		if err := w.WriteBits(15, 4); err != nil {
			return err
		}
		v -= 15
	}
	if err := w.WriteBits(uint64(v), 4); err != nil {
		return err
	}

	if h.Opts != nil {
		if err := e.writeOptionsDocument(w, h.Opts); err != nil {
			return err
		}
	}
	return nil
}

func (e *HeaderEncoder) writeOptionsDocument(w *BitWriter, o *Options) error {
	enc, err := NewBodyEncoder(optionsDocProfile())
	if err != nil {
		return err
	}
	enc.SetChannel(NewBitEncoderChannel(w))
	if err := enc.EncodeStartDocument(); err != nil {
		return err
	}

	ow := &optionsWriter{enc: enc}
	ow.start(optElemHeader)

	fo := o.Fidelity
	uncommon := o.Alignment == AlignmentByteAligned || o.Alignment == AlignmentPreCompression ||
		o.SelfContained || o.ValueMaxLength >= 0 || o.ValuePartitionCapacity >= 0 ||
		len(o.DatatypeRepresentationMap) > 0
	preserve := fo.dtd || fo.prefixes || fo.lexicalValues || fo.comments || fo.pis
	lessCommon := uncommon || preserve || o.BlockSize != DefaultBlockSize

	if lessCommon {
		ow.start(optElemLessCommon)
		if uncommon {
			ow.start(optElemUncommon)
			switch o.Alignment {
			case AlignmentByteAligned:
				ow.start(optElemAlignment)
				ow.empty(optElemByte)
				ow.end()
			case AlignmentPreCompression:
				ow.start(optElemAlignment)
				ow.empty(optElemPreCompress)
				ow.end()
			}
			if o.SelfContained {
				ow.empty(optElemSelfContained)
			}
			if o.ValueMaxLength >= 0 {
				ow.leaf(optElemValueMaxLen, strconv.Itoa(o.ValueMaxLength))
			}
			if o.ValuePartitionCapacity >= 0 {
				ow.leaf(optElemValueCapacity, strconv.Itoa(o.ValuePartitionCapacity))
			}
			for _, entry := range o.DatatypeRepresentationMap {
				ow.leaf(optElemDTRMap, strings.Join([]string{
					entry.Type.Space, entry.Type.Local,
					entry.Representation.Space, entry.Representation.Local,
				}, " "))
			}
			ow.end()
		}
		if preserve {
			ow.start(optElemPreserve)
			if fo.dtd {
				ow.empty(optElemDTD)
			}
			if fo.prefixes {
				ow.empty(optElemPrefixes)
			}
			if fo.lexicalValues {
				ow.empty(optElemLexical)
			}
			if fo.comments {
				ow.empty(optElemComments)
			}
			if fo.pis {
				ow.empty(optElemPIs)
			}
			ow.end()
		}
		if o.BlockSize != DefaultBlockSize {
			ow.leaf(optElemBlockSize, strconv.Itoa(o.BlockSize))
		}
		ow.end()
	}

	common := o.Alignment == AlignmentCompression || o.Fragment || o.SchemaID != nil
	if common {
		ow.start(optElemCommon)
		if o.Alignment == AlignmentCompression {
			ow.empty(optElemCompression)
		}
		if o.Fragment {
			ow.empty(optElemFragment)
		}
		if o.SchemaID != nil {
			ow.leaf(optElemSchemaID, *o.SchemaID)
		}
		ow.end()
	}
	if fo.IsStrict() {
		ow.empty(optElemStrict)
	}

	ow.end() // header
	if ow.err != nil {
		return ow.err
	}
	return enc.EncodeEndDocument()
}

// optionsWriter strings the encoder calls together, stopping at the first
// failure.
type optionsWriter struct {
	enc *BodyEncoder
	err error
}

func (ow *optionsWriter) start(name string) {
	if ow.err == nil {
		ow.err = ow.enc.EncodeStartElement(XMLNullNS_URI, name, nil)
	}
}

func (ow *optionsWriter) end() {
	if ow.err == nil {
		ow.err = ow.enc.EncodeEndElement()
	}
}

func (ow *optionsWriter) empty(name string) {
	ow.start(name)
	ow.end()
}

func (ow *optionsWriter) leaf(name, text string) {
	ow.start(name)
	if ow.err == nil {
		ow.err = ow.enc.EncodeCharacters(text)
	}
	ow.end()
}

/*
	HeaderDecoder implementation
*/

type HeaderDecoder struct{}

func NewHeaderDecoder() *HeaderDecoder {
	return &HeaderDecoder{}
}

// Parse consumes the header. The state sequence is cookie, distinguishing
// bits, options presence, preview field, version groups, options document.
func (d *HeaderDecoder) Parse(r *BitReader) (*Header, error) {
	h := NewHeader()

	first, err := r.Buffer().PeekByte(0)
	if err != nil {
		return nil, err
	}
	if first == ExiCookie[0] {
		var cookie [4]byte
		for i := range cookie {
			c, err := r.Buffer().PeekByte(i)
			if err != nil {
				return nil, err
			}
			cookie[i] = c
		}
		if cookie != ExiCookie {
			return nil, errAt(CodeInvalidExiHeader, r.BitPosition(), "malformed EXI cookie")
		}
		if err := r.Buffer().Skip(4); err != nil {
			return nil, err
		}
		h.HasCookie = true
	}

	bits, err := r.ReadBits(DistinguishingBitsCount)
	if err != nil {
		return nil, err
	}
	if bits != DistinguishingBitsValue {
		return nil, errAt(CodeInvalidExiHeader, r.BitPosition(), "distinguishing bits mismatch")
	}

	optionsPresent, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	preview, err := r.ReadBits(4)
	if err != nil {
		return nil, err
	}
	h.IsPreviewVersion = preview != 0

	version := 1
	for {
		group, err := r.ReadBits(4)
		if err != nil {
			return nil, err
		}
		version += group
		if group < 15 {
			break
		}
	}
	h.Version = version

	if optionsPresent == 1 {
		opts, err := d.readOptionsDocument(r)
		if err != nil {
			return nil, err
		}
		if err := opts.Validate(); err != nil {
			return nil, err
		}
		h.Opts = opts
	}
	return h, nil
}

func (d *HeaderDecoder) readOptionsDocument(r *BitReader) (*Options, error) {
	dec, err := NewBodyDecoder(optionsDocProfile())
	if err != nil {
		return nil, err
	}
	dec.SetChannel(NewBitDecoderChannel(r))

	builder := newOptionsBuilder()
	if err := dec.DecodeAll(builder); err != nil {
		return nil, err
	}
	if builder.err != nil {
		return nil, builder.err
	}
	return builder.opts, nil
}

// optionsBuilder reconstructs an Options value from the options document
// events.
type optionsBuilder struct {
	DefaultHandler
	opts  *Options
	path  []string
	err   error
}

func newOptionsBuilder() *optionsBuilder {
	return &optionsBuilder{opts: NewDefaultOptions()}
}

func (b *optionsBuilder) StartElement(qname QualifiedName) error {
	name := qname.LocalName
	b.path = append(b.path, name)

	switch name {
	case optElemByte:
		b.opts.Alignment = AlignmentByteAligned
	case optElemPreCompress:
		b.opts.Alignment = AlignmentPreCompression
	case optElemCompression:
		b.opts.Alignment = AlignmentCompression
	case optElemSelfContained:
		b.opts.SelfContained = true
	case optElemFragment:
		b.opts.Fragment = true
	case optElemSchemaID:
		empty := ""
		b.opts.SchemaID = &empty
	case optElemDTD:
		b.err = b.opts.Fidelity.SetFidelity(FeatureDTD, true)
	case optElemPrefixes:
		b.err = b.opts.Fidelity.SetFidelity(FeaturePrefix, true)
	case optElemLexical:
		b.err = b.opts.Fidelity.SetFidelity(FeatureLexicalValue, true)
	case optElemComments:
		b.err = b.opts.Fidelity.SetFidelity(FeatureComment, true)
	case optElemPIs:
		b.err = b.opts.Fidelity.SetFidelity(FeaturePI, true)
	case optElemStrict:
		b.err = b.opts.Fidelity.SetFidelity(FeatureStrict, true)
	}
	return b.err
}

func (b *optionsBuilder) EndElement() error {
	if len(b.path) > 0 {
		b.path = b.path[:len(b.path)-1]
	}
	return nil
}

func (b *optionsBuilder) Characters(value Value) error {
	if len(b.path) == 0 {
		return nil
	}
	text := value.ToString()
	switch b.path[len(b.path)-1] {
	case optElemValueMaxLen:
		b.opts.ValueMaxLength = b.atoi(text)
	case optElemValueCapacity:
		b.opts.ValuePartitionCapacity = b.atoi(text)
	case optElemBlockSize:
		b.opts.BlockSize = b.atoi(text)
	case optElemSchemaID:
		schemaID := text
		b.opts.SchemaID = &schemaID
	case optElemDTRMap:
		parts := strings.Split(text, " ")
		if len(parts) != 4 {
			b.err = NewError(CodeInvalidExiHeader, "malformed datatype representation map entry")
			return b.err
		}
		b.opts.DatatypeRepresentationMap = append(b.opts.DatatypeRepresentationMap, DTRMapEntry{
			Type:           utils.QName{Space: parts[0], Local: parts[1]},
			Representation: utils.QName{Space: parts[2], Local: parts[3]},
		})
	}
	return b.err
}

func (b *optionsBuilder) atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		b.err = Errorf(CodeInvalidExiHeader, "malformed numeric option %q", s)
		return 0
	}
	return v
}
