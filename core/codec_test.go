package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
	Recording handler
*/

type recEvent struct {
	Kind   string
	Uri    string
	Local  string
	Prefix string
	Value  string
	Extra  string
	Flag   bool
}

type recorder struct {
	events    []recEvent
	stopAfter int // stop with ErrHandlerStop once this many events arrived
}

func (r *recorder) add(e recEvent) error {
	r.events = append(r.events, e)
	if r.stopAfter > 0 && len(r.events) >= r.stopAfter {
		return ErrHandlerStop
	}
	return nil
}

func prefixString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (r *recorder) StartDocument() error { return r.add(recEvent{Kind: "SD"}) }
func (r *recorder) EndDocument() error   { return r.add(recEvent{Kind: "ED"}) }

func (r *recorder) StartElement(qname QualifiedName) error {
	return r.add(recEvent{Kind: "SE", Uri: qname.Uri, Local: qname.LocalName, Prefix: prefixString(qname.Prefix)})
}

func (r *recorder) EndElement() error { return r.add(recEvent{Kind: "EE"}) }

func (r *recorder) NamespaceDeclaration(uri, prefix string, isLocal bool) error {
	return r.add(recEvent{Kind: "NS", Uri: uri, Prefix: prefix, Flag: isLocal})
}

func (r *recorder) Attribute(qname QualifiedName, value Value) error {
	return r.add(recEvent{Kind: "AT", Uri: qname.Uri, Local: qname.LocalName,
		Prefix: prefixString(qname.Prefix), Value: value.ToString()})
}

func (r *recorder) Characters(value Value) error {
	return r.add(recEvent{Kind: "CH", Value: value.ToString()})
}

func (r *recorder) Comment(text string) error {
	return r.add(recEvent{Kind: "CM", Value: text})
}

func (r *recorder) ProcessingInstruction(target, data string) error {
	return r.add(recEvent{Kind: "PI", Value: target, Extra: data})
}

func (r *recorder) DocType(name, publicID, systemID, text string) error {
	return r.add(recEvent{Kind: "DT", Value: name, Extra: publicID + "|" + systemID + "|" + text})
}

func (r *recorder) EntityReference(name string) error {
	return r.add(recEvent{Kind: "ER", Value: name})
}

/*
	Round-trip helpers
*/

func encodeDocument(t *testing.T, header *Header, opts *Options, build func(*BodyEncoder)) []byte {
	t.Helper()
	wb := NewWriteBuffer(1 << 16)
	se, err := NewStreamEncoder(header, opts)
	require.NoError(t, err)
	body, err := se.Start(wb)
	require.NoError(t, err)
	require.NoError(t, body.EncodeStartDocument())
	build(body)
	require.NoError(t, body.EncodeEndDocument())
	require.NoError(t, se.Finish())
	return wb.Bytes()
}

func decodeDocument(t *testing.T, data []byte, defaults *Options) []recEvent {
	t.Helper()
	rec := &recorder{}
	_, err := NewStreamDecoder(defaults).Decode(NewReadBuffer(data), rec)
	require.NoError(t, err)
	return rec.events
}

func ptr(s string) *string { return &s }

/*
	Scenarios
*/

func TestTrivialElementRoundTrip(t *testing.T) {
	data := encodeDocument(t, NewHeader(), nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("", "a", nil))
		require.NoError(t, e.EncodeEndElement())
	})

	events := decodeDocument(t, data, nil)
	assert.Equal(t, []recEvent{
		{Kind: "SD"},
		{Kind: "SE", Local: "a"},
		{Kind: "EE"},
		{Kind: "ED"},
	}, events)
}

func TestNestedDocumentRoundTrip(t *testing.T) {
	build := func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("", "root", nil))
		require.NoError(t, e.EncodeAttribute("", "version", nil, "1.0"))
		require.NoError(t, e.EncodeStartElement("", "item", nil))
		require.NoError(t, e.EncodeAttribute("", "id", nil, "first"))
		require.NoError(t, e.EncodeCharacters("hello"))
		require.NoError(t, e.EncodeEndElement())
		require.NoError(t, e.EncodeStartElement("", "item", nil))
		require.NoError(t, e.EncodeAttribute("", "id", nil, "second"))
		require.NoError(t, e.EncodeCharacters("world"))
		require.NoError(t, e.EncodeEndElement())
		require.NoError(t, e.EncodeEndElement())
	}

	want := []recEvent{
		{Kind: "SD"},
		{Kind: "SE", Local: "root"},
		{Kind: "AT", Local: "version", Value: "1.0"},
		{Kind: "SE", Local: "item"},
		{Kind: "AT", Local: "id", Value: "first"},
		{Kind: "CH", Value: "hello"},
		{Kind: "EE"},
		{Kind: "SE", Local: "item"},
		{Kind: "AT", Local: "id", Value: "second"},
		{Kind: "CH", Value: "world"},
		{Kind: "EE"},
		{Kind: "EE"},
		{Kind: "ED"},
	}

	for _, alignment := range []Alignment{
		AlignmentBitPacked, AlignmentByteAligned, AlignmentPreCompression, AlignmentCompression,
	} {
		t.Run(alignment.String(), func(t *testing.T) {
			opts := NewDefaultOptions()
			opts.Alignment = alignment
			header := NewHeader()
			header.Opts = opts

			data := encodeDocument(t, header, nil, build)
			assert.Equal(t, want, decodeDocument(t, data, nil))
		})
	}
}

func TestOutOfBandOptions(t *testing.T) {
	opts := NewDefaultOptions()
	opts.Alignment = AlignmentByteAligned

	// header carries no options; encoder and decoder agree out of band
	data := encodeDocument(t, NewHeader(), opts, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("", "a", nil))
		require.NoError(t, e.EncodeCharacters("x"))
		require.NoError(t, e.EncodeEndElement())
	})

	events := decodeDocument(t, data, opts)
	assert.Equal(t, []recEvent{
		{Kind: "SD"},
		{Kind: "SE", Local: "a"},
		{Kind: "CH", Value: "x"},
		{Kind: "EE"},
		{Kind: "ED"},
	}, events)
}

func TestAttributeValueReuseShrinks(t *testing.T) {
	opts := NewDefaultOptions()
	opts.Fragment = true

	wb := NewWriteBuffer(1 << 12)
	w := NewBitWriter(wb)
	body, err := NewBodyEncoder(opts)
	require.NoError(t, err)
	ch := NewBitEncoderChannel(w)
	body.SetChannel(ch)

	require.NoError(t, body.EncodeStartDocument())

	require.NoError(t, body.EncodeStartElement("", "x", nil))
	before1 := ch.BitPosition()
	require.NoError(t, body.EncodeAttribute("", "y", nil, "1"))
	size1 := ch.BitPosition() - before1
	require.NoError(t, body.EncodeEndElement())

	require.NoError(t, body.EncodeStartElement("", "x", nil))
	before2 := ch.BitPosition()
	require.NoError(t, body.EncodeAttribute("", "y", nil, "1"))
	size2 := ch.BitPosition() - before2
	require.NoError(t, body.EncodeEndElement())

	require.NoError(t, body.EncodeEndDocument())
	require.NoError(t, ch.Flush())

	assert.Less(t, size2, size1, "the second y=\"1\" must be strictly smaller")

	// and the fragment still round-trips
	rec := &recorder{}
	dec, err := NewBodyDecoder(opts)
	require.NoError(t, err)
	dec.SetChannel(NewBitDecoderChannel(NewBitReader(NewReadBuffer(wb.Bytes()))))
	require.NoError(t, dec.DecodeAll(rec))
	assert.Equal(t, []recEvent{
		{Kind: "SD"},
		{Kind: "SE", Local: "x"},
		{Kind: "AT", Local: "y", Value: "1"},
		{Kind: "EE"},
		{Kind: "SE", Local: "x"},
		{Kind: "AT", Local: "y", Value: "1"},
		{Kind: "EE"},
		{Kind: "ED"},
	}, rec.events)
}

func TestNamespaceDeclarationRoundTrip(t *testing.T) {
	opts := NewDefaultOptions()
	require.NoError(t, opts.Fidelity.SetFidelity(FeaturePrefix, true))
	header := NewHeader()
	header.Opts = opts

	data := encodeDocument(t, header, nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("urn:x", "a", ptr("p")))
		require.NoError(t, e.EncodeNamespaceDeclaration("urn:x", ptr("p"), true))
		require.NoError(t, e.EncodeEndElement())
	})

	events := decodeDocument(t, data, nil)
	// the namespace declaration reaches the handler before the element
	assert.Equal(t, []recEvent{
		{Kind: "SD"},
		{Kind: "NS", Uri: "urn:x", Prefix: "p", Flag: true},
		{Kind: "SE", Uri: "urn:x", Local: "a", Prefix: "p"},
		{Kind: "EE"},
		{Kind: "ED"},
	}, events)
}

func TestCommentsAndPIs(t *testing.T) {
	opts := NewDefaultOptions()
	require.NoError(t, opts.Fidelity.SetFidelity(FeatureComment, true))
	require.NoError(t, opts.Fidelity.SetFidelity(FeaturePI, true))
	header := NewHeader()
	header.Opts = opts

	data := encodeDocument(t, header, nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeComment(" prolog "))
		require.NoError(t, e.EncodeStartElement("", "a", nil))
		require.NoError(t, e.EncodeProcessingInstruction("target", "data"))
		require.NoError(t, e.EncodeCharacters("text"))
		require.NoError(t, e.EncodeComment(" inner "))
		require.NoError(t, e.EncodeEndElement())
	})

	events := decodeDocument(t, data, nil)
	assert.Equal(t, []recEvent{
		{Kind: "SD"},
		{Kind: "CM", Value: " prolog "},
		{Kind: "SE", Local: "a"},
		{Kind: "PI", Value: "target", Extra: "data"},
		{Kind: "CH", Value: "text"},
		{Kind: "CM", Value: " inner "},
		{Kind: "EE"},
		{Kind: "ED"},
	}, events)
}

func TestUnpreservedEventsAreAbsent(t *testing.T) {
	data := encodeDocument(t, NewHeader(), nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeComment("dropped"))
		require.NoError(t, e.EncodeStartElement("", "a", nil))
		require.NoError(t, e.EncodeProcessingInstruction("t", "d"))
		require.NoError(t, e.EncodeEndElement())
	})

	events := decodeDocument(t, data, nil)
	assert.Equal(t, []recEvent{
		{Kind: "SD"},
		{Kind: "SE", Local: "a"},
		{Kind: "EE"},
		{Kind: "ED"},
	}, events)
}

func TestDocTypeAndEntityReference(t *testing.T) {
	opts := NewDefaultOptions()
	require.NoError(t, opts.Fidelity.SetFidelity(FeatureDTD, true))
	header := NewHeader()
	header.Opts = opts

	data := encodeDocument(t, header, nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeDocType("root", "pub", "sys", "<!ENTITY x 'y'>"))
		require.NoError(t, e.EncodeStartElement("", "root", nil))
		require.NoError(t, e.EncodeEntityReference("x"))
		require.NoError(t, e.EncodeEndElement())
	})

	events := decodeDocument(t, data, nil)
	assert.Equal(t, []recEvent{
		{Kind: "SD"},
		{Kind: "DT", Value: "root", Extra: "pub|sys|<!ENTITY x 'y'>"},
		{Kind: "SE", Local: "root"},
		{Kind: "ER", Value: "x"},
		{Kind: "EE"},
		{Kind: "ED"},
	}, events)
}

func TestHandlerStopUnwinds(t *testing.T) {
	data := encodeDocument(t, NewHeader(), nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("", "a", nil))
		require.NoError(t, e.EncodeCharacters("text"))
		require.NoError(t, e.EncodeEndElement())
	})

	rec := &recorder{stopAfter: 2}
	_, err := NewStreamDecoder(nil).Decode(NewReadBuffer(data), rec)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeHandlerStop))
	assert.Len(t, rec.events, 2)
}

func TestGrammarMisuseOnEncode(t *testing.T) {
	opts := NewDefaultOptions()
	body, err := NewBodyEncoder(opts)
	require.NoError(t, err)
	wb := NewWriteBuffer(256)
	body.SetChannel(NewBitEncoderChannel(NewBitWriter(wb)))

	require.NoError(t, body.EncodeStartDocument())
	// characters before any element
	err = body.EncodeCharacters("x")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInconsistentProcState))

	// end element without a start
	err = body.EncodeEndElement()
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInconsistentProcState))
}

func TestAttributeAfterContentRejected(t *testing.T) {
	opts := NewDefaultOptions()
	body, err := NewBodyEncoder(opts)
	require.NoError(t, err)
	wb := NewWriteBuffer(1024)
	body.SetChannel(NewBitEncoderChannel(NewBitWriter(wb)))

	require.NoError(t, body.EncodeStartDocument())
	require.NoError(t, body.EncodeStartElement("", "a", nil))
	require.NoError(t, body.EncodeCharacters("text"))
	err = body.EncodeAttribute("", "late", nil, "v")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInconsistentProcState))
}

func TestLockStepTables(t *testing.T) {
	opts := NewDefaultOptions()
	header := NewHeader()
	header.Opts = opts

	wb := NewWriteBuffer(1 << 14)
	se, err := NewStreamEncoder(header, nil)
	require.NoError(t, err)
	body, err := se.Start(wb)
	require.NoError(t, err)

	require.NoError(t, body.EncodeStartDocument())
	require.NoError(t, body.EncodeStartElement("urn:ns1", "root", nil))
	require.NoError(t, body.EncodeAttribute("", "a", nil, "v1"))
	require.NoError(t, body.EncodeStartElement("urn:ns2", "child", nil))
	require.NoError(t, body.EncodeCharacters("v1"))
	require.NoError(t, body.EncodeEndElement())
	require.NoError(t, body.EncodeEndElement())
	require.NoError(t, body.EncodeEndDocument())
	require.NoError(t, se.Finish())

	rec := &recorder{}
	dec, err := NewBodyDecoder(opts)
	require.NoError(t, err)
	r := NewBitReader(NewReadBuffer(wb.Bytes()))
	_, err = NewHeaderDecoder().Parse(r)
	require.NoError(t, err)
	dec.SetChannel(NewBitDecoderChannel(r))
	require.NoError(t, dec.DecodeAll(rec))

	encTable, decTable := body.Table(), dec.Table()
	require.Equal(t, encTable.NumberOfURIs(), decTable.NumberOfURIs())
	for id := 0; id < encTable.NumberOfURIs(); id++ {
		eu, _ := encTable.GetURI(id)
		du, _ := decTable.GetURI(id)
		assert.Equal(t, eu, du, "URI %d", id)
		assert.Equal(t, encTable.NumberOfLocalNames(id), decTable.NumberOfLocalNames(id))
		assert.Equal(t, encTable.NumberOfPrefixes(id), decTable.NumberOfPrefixes(id))
	}
	assert.Equal(t, encTable.NumberOfGlobalValues(), decTable.NumberOfGlobalValues())
	assert.Equal(t, encTable.URILog(), decTable.URILog())
	assert.Equal(t, encTable.GlobalValueLog(), decTable.GlobalValueLog())
}

func TestDeepNestingRoundTrip(t *testing.T) {
	const depth = 64
	data := encodeDocument(t, NewHeader(), nil, func(e *BodyEncoder) {
		for i := 0; i < depth; i++ {
			require.NoError(t, e.EncodeStartElement("", "nest", nil))
		}
		require.NoError(t, e.EncodeCharacters(strings.Repeat("x", 100)))
		for i := 0; i < depth; i++ {
			require.NoError(t, e.EncodeEndElement())
		}
	})

	events := decodeDocument(t, data, nil)
	require.Len(t, events, 2+2*depth+1)
	assert.Equal(t, recEvent{Kind: "SE", Local: "nest"}, events[1])
	assert.Equal(t, recEvent{Kind: "CH", Value: strings.Repeat("x", 100)}, events[depth+1])
}

func TestCompressionShrinksRepetitiveBody(t *testing.T) {
	build := func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("", "log", nil))
		for i := 0; i < 200; i++ {
			require.NoError(t, e.EncodeStartElement("", "entry", nil))
			require.NoError(t, e.EncodeCharacters("the same repetitive message body"))
			require.NoError(t, e.EncodeEndElement())
		}
		require.NoError(t, e.EncodeEndElement())
	}

	plain := NewDefaultOptions()
	plain.Alignment = AlignmentByteAligned
	ph := NewHeader()
	ph.Opts = plain
	plainData := encodeDocument(t, ph, nil, build)

	compressed := NewDefaultOptions()
	compressed.Alignment = AlignmentCompression
	chd := NewHeader()
	chd.Opts = compressed
	compressedData := encodeDocument(t, chd, nil, build)

	assert.Less(t, len(compressedData), len(plainData))
	assert.Equal(t, decodeDocument(t, plainData, nil), decodeDocument(t, compressedData, nil))
}

func TestSmallBlockSizeCompression(t *testing.T) {
	opts := NewDefaultOptions()
	opts.Alignment = AlignmentCompression
	opts.BlockSize = 3
	header := NewHeader()
	header.Opts = opts

	data := encodeDocument(t, header, nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("", "r", nil))
		for i := 0; i < 10; i++ {
			require.NoError(t, e.EncodeCharacters("chunk"))
		}
		require.NoError(t, e.EncodeEndElement())
	})

	events := decodeDocument(t, data, nil)
	chCount := 0
	for _, ev := range events {
		if ev.Kind == "CH" {
			chCount++
		}
	}
	assert.Equal(t, 10, chCount)
}

func TestWrappedValuesRoundTrip(t *testing.T) {
	opts := NewDefaultOptions()
	opts.ValuePartitionCapacity = 4
	header := NewHeader()
	header.Opts = opts

	values := []string{"v1", "v2", "v3", "v4", "v5", "v1", "v2"}
	data := encodeDocument(t, header, nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("", "r", nil))
		for _, v := range values {
			require.NoError(t, e.EncodeStartElement("", "i", nil))
			require.NoError(t, e.EncodeCharacters(v))
			require.NoError(t, e.EncodeEndElement())
		}
		require.NoError(t, e.EncodeEndElement())
	})

	var got []string
	for _, ev := range decodeDocument(t, data, nil) {
		if ev.Kind == "CH" {
			got = append(got, ev.Value)
		}
	}
	assert.Equal(t, values, got)
}

func TestValuePartitionCapacityZeroRoundTrip(t *testing.T) {
	opts := NewDefaultOptions()
	opts.ValuePartitionCapacity = 0
	header := NewHeader()
	header.Opts = opts

	data := encodeDocument(t, header, nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("", "r", nil))
		require.NoError(t, e.EncodeCharacters("same"))
		require.NoError(t, e.EncodeCharacters("same"))
		require.NoError(t, e.EncodeEndElement())
	})

	var got []string
	for _, ev := range decodeDocument(t, data, nil) {
		if ev.Kind == "CH" {
			got = append(got, ev.Value)
		}
	}
	assert.Equal(t, []string{"same", "same"}, got)
}

func TestFragmentRoundTrip(t *testing.T) {
	opts := NewDefaultOptions()
	opts.Fragment = true
	header := NewHeader()
	header.Opts = opts

	data := encodeDocument(t, header, nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("", "a", nil))
		require.NoError(t, e.EncodeEndElement())
		require.NoError(t, e.EncodeStartElement("", "b", nil))
		require.NoError(t, e.EncodeEndElement())
		require.NoError(t, e.EncodeStartElement("", "a", nil))
		require.NoError(t, e.EncodeEndElement())
	})

	events := decodeDocument(t, data, nil)
	assert.Equal(t, []recEvent{
		{Kind: "SD"},
		{Kind: "SE", Local: "a"},
		{Kind: "EE"},
		{Kind: "SE", Local: "b"},
		{Kind: "EE"},
		{Kind: "SE", Local: "a"},
		{Kind: "EE"},
		{Kind: "ED"},
	}, events)
}

func TestTruncatedBodyReportsError(t *testing.T) {
	data := encodeDocument(t, NewHeader(), nil, func(e *BodyEncoder) {
		require.NoError(t, e.EncodeStartElement("", "a", nil))
		require.NoError(t, e.EncodeEndElement())
	})
	// truncating mid-body yields BufferEndReached
	rec := &recorder{}
	_, err := NewStreamDecoder(nil).Decode(NewReadBuffer(data[:len(data)-1]), rec)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeBufferEndReached) || IsCode(err, CodeInvalidExiInput))
}

func TestDiagnosticSinkOutput(t *testing.T) {
	var sb strings.Builder
	sink := NewDiagnosticSink(&sb)
	sink.ReportError(errAt(CodeInvalidExiInput, 42, "bad production"))
	out := sb.String()
	assert.Contains(t, out, "InvalidExiInput")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "bad production")
	assert.True(t, strings.HasSuffix(out, "\n"))
}
