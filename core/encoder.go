package core

import "github.com/exicore/exicore/utils"

// BodyEncoder receives an XML event sequence as method calls and emits the
// EXI body, selecting grammar productions and updating the string table
// exactly the way the decoder will.
type BodyEncoder struct {
	opts    *Options
	fo      *FidelityOptions
	table   *StringTable
	strings *StringEncoder
	channel EncoderChannel
	diag    *DiagnosticSink

	docContent *Grammar
	docEnd     *Grammar
	fragment   *Grammar

	cur   *Grammar
	stack []elementContext

	// compression framing: values per block before the stream is flushed
	valuesInBlock int
	blockFlush    func() error
}

func NewBodyEncoder(opts *Options) (*BodyEncoder, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	e := &BodyEncoder{
		opts:  opts,
		fo:    opts.Fidelity,
		table: NewStringTable(opts),
	}
	e.strings = NewStringEncoder(e.table)
	if opts.Fragment {
		e.fragment = NewFragmentGrammar()
		e.cur = e.fragment
	} else {
		e.docContent, e.docEnd = NewDocumentGrammars()
		e.cur = e.docContent
	}
	return e, nil
}

// SetDiagnostics attaches a borrowed error sink.
func (e *BodyEncoder) SetDiagnostics(sink *DiagnosticSink) {
	e.diag = sink
}

// Table exposes the string table, e.g. for lock-step assertions.
func (e *BodyEncoder) Table() *StringTable {
	return e.table
}

// SetChannel attaches the encoder channel the body is written to.
func (e *BodyEncoder) SetChannel(channel EncoderChannel) {
	e.channel = channel
}

// setBlockFlush installs the per-block flush hook of the compression
// framing.
func (e *BodyEncoder) setBlockFlush(flush func() error) {
	e.blockFlush = flush
}

func (e *BodyEncoder) current() *Grammar {
	if len(e.stack) > 0 {
		return e.stack[len(e.stack)-1].grammar
	}
	return e.cur
}

func (e *BodyEncoder) setCurrent(g *Grammar) {
	if len(e.stack) > 0 {
		e.stack[len(e.stack)-1].grammar = g
	} else {
		e.cur = g
	}
}

func (e *BodyEncoder) topElement() *elementContext {
	if len(e.stack) == 0 {
		return nil
	}
	return &e.stack[len(e.stack)-1]
}

/*
	Event code emission
*/

func (e *BodyEncoder) writeFirstLevel(g *Grammar, code int) error {
	return e.channel.EncodeNBitUnsignedInteger(code, g.CodeLength(e.fo))
}

// writeHigherLevel emits the escape into the second-level code space and
// the second- or third-level code of ev.
func (e *BodyEncoder) writeHigherLevel(g *Grammar, ev EventType) error {
	if !e.fo.hasHigherLevel(g.Kind) {
		return Errorf(CodeInconsistentProcState, "%v event unavailable in %v grammar", ev, g.Kind)
	}
	if err := e.writeFirstLevel(g, g.FirstLevelCount()); err != nil {
		return err
	}

	second := e.fo.secondLevelEvents(g.Kind)
	n2 := utils.GetCodingLength(e.fo.secondLevelCharacteristics(g.Kind))
	for i, cand := range second {
		if cand == ev {
			return e.channel.EncodeNBitUnsignedInteger(i, n2)
		}
	}

	third := e.fo.thirdLevelEvents()
	for i, cand := range third {
		if cand == ev {
			if err := e.channel.EncodeNBitUnsignedInteger(len(second), n2); err != nil {
				return err
			}
			n3 := utils.GetCodingLength(len(third))
			return e.channel.EncodeNBitUnsignedInteger(i, n3)
		}
	}
	return Errorf(CodeInconsistentProcState, "%v event unavailable in %v grammar", ev, g.Kind)
}

/*
	Structure encoding
*/

func (e *BodyEncoder) encodeURI(uri string) (int, error) {
	n := e.table.URILog()
	if uriID, ok := e.table.URIID(uri); ok {
		return uriID, e.channel.EncodeNBitUnsignedInteger(uriID+1, n)
	}
	if err := e.channel.EncodeNBitUnsignedInteger(0, n); err != nil {
		return 0, err
	}
	if err := e.channel.EncodeString(uri); err != nil {
		return 0, err
	}
	_, uriID := e.table.AddURI(uri, nil)
	return uriID, nil
}

func (e *BodyEncoder) encodeLocalName(uriID int, name string) (int, error) {
	if localID, ok := e.table.LocalNameID(uriID, name); ok {
		if err := e.channel.EncodeUnsignedInteger(0); err != nil {
			return 0, err
		}
		return localID, e.channel.EncodeNBitUnsignedInteger(localID, e.table.LocalNameLog(uriID))
	}
	if err := e.channel.EncodeUnsignedInteger(utils.CodePointCount(name) + 1); err != nil {
		return 0, err
	}
	if err := e.channel.EncodeStringOnly(name); err != nil {
		return 0, err
	}
	_, localID := e.table.AddLocalName(uriID, name)
	return localID, nil
}

func (e *BodyEncoder) encodeQName(uri, localName string) (uriID, localID int, err error) {
	uriID, err = e.encodeURI(uri)
	if err != nil {
		return 0, 0, err
	}
	localID, err = e.encodeLocalName(uriID, localName)
	return uriID, localID, err
}

// encodeQNamePrefix writes the prefix compact ID of an SE or AT qname. A
// prefix not (yet) present in the partition travels as slot zero; the
// namespace declaration that follows repairs the mapping on both sides.
func (e *BodyEncoder) encodeQNamePrefix(uriID int, prefix *string) error {
	if !e.fo.prefixes {
		return nil
	}
	count := e.table.NumberOfPrefixes(uriID)
	if count == 0 {
		return nil
	}
	id := 0
	if prefix != nil {
		if known, ok := e.table.PrefixID(uriID, *prefix); ok {
			id = known
		}
	}
	return e.channel.EncodeNBitUnsignedInteger(id, e.table.PrefixLog(uriID))
}

func (e *BodyEncoder) encodeNamespacePrefix(uriID int, prefix string) error {
	n := e.table.PrefixEscapeLog(uriID)
	if id, ok := e.table.PrefixID(uriID, prefix); ok {
		return e.channel.EncodeNBitUnsignedInteger(id+1, n)
	}
	if err := e.channel.EncodeNBitUnsignedInteger(0, n); err != nil {
		return err
	}
	if err := e.channel.EncodeString(prefix); err != nil {
		return err
	}
	_, err := e.table.AddPrefix(uriID, prefix)
	return err
}

// bumpValue counts value-channel items for the compression block framing.
func (e *BodyEncoder) bumpValue() error {
	if e.blockFlush == nil {
		return nil
	}
	e.valuesInBlock++
	if e.valuesInBlock >= e.opts.BlockSize {
		e.valuesInBlock = 0
		return e.blockFlush()
	}
	return nil
}

/*
	Event intake
*/

// EncodeStartDocument establishes the document state. The SD production is
// implicit and occupies no bits.
func (e *BodyEncoder) EncodeStartDocument() error {
	if e.channel == nil {
		return NewError(CodeNullReference, "encoder channel not attached")
	}
	return nil
}

func (e *BodyEncoder) EncodeStartElement(uri, localName string, prefix *string) error {
	g := e.current()

	uriID, uriKnown := e.table.URIID(uri)
	localID, localKnown := 0, false
	if uriKnown {
		localID, localKnown = e.table.LocalNameID(uriID, localName)
	}

	if uriKnown && localKnown {
		if code, prod := g.FindStartElement(uriID, localID); prod != nil {
			if err := e.writeFirstLevel(g, code); err != nil {
				return err
			}
			if err := e.encodeQNamePrefix(uriID, prefix); err != nil {
				return err
			}
			e.setCurrent(prod.Next)
			return e.pushElement(uriID, localID, prefix)
		}
	}

	switch g.Kind {
	case GrammarDocContent, GrammarFragmentContent:
		code, prod := g.FindEvent(EventStartElementGeneric)
		if prod == nil {
			return NewError(CodeInconsistentProcState, "document grammar lost its SE(*) production")
		}
		if err := e.writeFirstLevel(g, code); err != nil {
			return err
		}
		var err error
		uriID, localID, err = e.encodeQName(uri, localName)
		if err != nil {
			return err
		}
		if err := e.encodeQNamePrefix(uriID, prefix); err != nil {
			return err
		}
		if g.Kind == GrammarFragmentContent {
			g.LearnStartElement(uriID, localID)
		}
		e.setCurrent(prod.Next)
	case GrammarStartTagContent, GrammarElementContent:
		if err := e.writeHigherLevel(g, EventStartElementGenericUndeclared); err != nil {
			return err
		}
		var err error
		uriID, localID, err = e.encodeQName(uri, localName)
		if err != nil {
			return err
		}
		if err := e.encodeQNamePrefix(uriID, prefix); err != nil {
			return err
		}
		g.LearnStartElement(uriID, localID)
		e.setCurrent(g.ElementContentGrammar())
	default:
		return Errorf(CodeInconsistentProcState, "start element in %v grammar", g.Kind)
	}
	return e.pushElement(uriID, localID, prefix)
}

func (e *BodyEncoder) pushElement(uriID, localID int, prefix *string) error {
	child := e.table.ElementGrammar(uriID, localID)
	if child == nil {
		child = NewElementGrammar()
		e.table.SetElementGrammar(uriID, localID, child)
	}
	e.stack = append(e.stack, elementContext{
		uriID: uriID, localID: localID, prefix: prefix, grammar: child,
	})
	return nil
}

func (e *BodyEncoder) EncodeNamespaceDeclaration(uri string, prefix *string, isLocalElementNS bool) error {
	if !e.fo.prefixes {
		return nil
	}
	g := e.current()
	if g.Kind != GrammarStartTagContent {
		return NewError(CodeInconsistentProcState, "namespace declaration outside a start tag")
	}
	if err := e.writeHigherLevel(g, EventNamespaceDeclaration); err != nil {
		return err
	}
	uriID, err := e.encodeURI(uri)
	if err != nil {
		return err
	}
	pfx := ""
	if prefix != nil {
		pfx = *prefix
	}
	if err := e.encodeNamespacePrefix(uriID, pfx); err != nil {
		return err
	}
	return e.channel.EncodeBoolean(isLocalElementNS)
}

func (e *BodyEncoder) EncodeAttribute(uri, localName string, prefix *string, value string) error {
	g := e.current()

	uriID, uriKnown := e.table.URIID(uri)
	localID, localKnown := 0, false
	if uriKnown {
		localID, localKnown = e.table.LocalNameID(uriID, localName)
	}

	if uriKnown && localKnown {
		if code, prod := g.FindAttribute(uriID, localID); prod != nil {
			if err := e.writeFirstLevel(g, code); err != nil {
				return err
			}
			if err := e.encodeQNamePrefix(uriID, prefix); err != nil {
				return err
			}
			e.setCurrent(prod.Next)
			if err := e.strings.WriteValue(uriID, localID, e.channel, value); err != nil {
				return err
			}
			return e.bumpValue()
		}
	}

	if g.Kind != GrammarStartTagContent {
		return NewError(CodeInconsistentProcState, "attribute outside a start tag")
	}
	if err := e.writeHigherLevel(g, EventAttributeGenericUndeclared); err != nil {
		return err
	}
	var err error
	uriID, localID, err = e.encodeQName(uri, localName)
	if err != nil {
		return err
	}
	if err := e.encodeQNamePrefix(uriID, prefix); err != nil {
		return err
	}
	if err := g.LearnAttribute(uriID, localID); err != nil {
		return err
	}
	if err := e.strings.WriteValue(uriID, localID, e.channel, value); err != nil {
		return err
	}
	return e.bumpValue()
}

func (e *BodyEncoder) EncodeCharacters(value string) error {
	top := e.topElement()
	if top == nil {
		return NewError(CodeInconsistentProcState, "characters outside an element")
	}
	g := e.current()

	if code, prod := g.FindEvent(EventCharacters); prod != nil {
		if err := e.writeFirstLevel(g, code); err != nil {
			return err
		}
		e.setCurrent(prod.Next)
	} else {
		if err := e.writeHigherLevel(g, EventCharactersUndeclared); err != nil {
			return err
		}
		g.LearnCharacters()
		e.setCurrent(g.ElementContentGrammar())
	}

	if err := e.strings.WriteValue(top.uriID, top.localID, e.channel, value); err != nil {
		return err
	}
	return e.bumpValue()
}

func (e *BodyEncoder) EncodeEndElement() error {
	if len(e.stack) == 0 {
		return NewError(CodeInconsistentProcState, "end element without a start")
	}
	g := e.current()

	if code, prod := g.FindEvent(EventEndElement); prod != nil {
		if err := e.writeFirstLevel(g, code); err != nil {
			return err
		}
	} else {
		if g.Kind != GrammarStartTagContent {
			return Errorf(CodeInconsistentProcState, "end element unavailable in %v grammar", g.Kind)
		}
		if err := e.writeHigherLevel(g, EventEndElementUndeclared); err != nil {
			return err
		}
		g.LearnEndElement()
	}

	e.stack = e.stack[:len(e.stack)-1]
	return nil
}

func (e *BodyEncoder) EncodeEndDocument() error {
	if len(e.stack) != 0 {
		return NewError(CodeInconsistentProcState, "end document inside an open element")
	}
	g := e.current()
	code, prod := g.FindEvent(EventEndDocument)
	if prod == nil {
		return Errorf(CodeInconsistentProcState, "end document unavailable in %v grammar", g.Kind)
	}
	return e.writeFirstLevel(g, code)
}

func (e *BodyEncoder) EncodeComment(text string) error {
	if !e.fo.comments {
		return nil
	}
	g := e.current()
	if err := e.writeHigherLevel(g, EventComment); err != nil {
		return err
	}
	if err := e.channel.EncodeString(text); err != nil {
		return err
	}
	e.moveToContent()
	return nil
}

func (e *BodyEncoder) EncodeProcessingInstruction(target, data string) error {
	if !e.fo.pis {
		return nil
	}
	g := e.current()
	if err := e.writeHigherLevel(g, EventProcessingInstruction); err != nil {
		return err
	}
	if err := e.channel.EncodeString(target); err != nil {
		return err
	}
	if err := e.channel.EncodeString(data); err != nil {
		return err
	}
	e.moveToContent()
	return nil
}

func (e *BodyEncoder) EncodeDocType(name, publicID, systemID, text string) error {
	if !e.fo.dtd {
		return nil
	}
	g := e.current()
	if g.Kind != GrammarDocContent {
		return NewError(CodeInconsistentProcState, "doctype after the document root started")
	}
	if err := e.writeHigherLevel(g, EventDocType); err != nil {
		return err
	}
	for _, s := range []string{name, publicID, systemID, text} {
		if err := e.channel.EncodeString(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *BodyEncoder) EncodeEntityReference(name string) error {
	if !e.fo.dtd {
		return nil
	}
	g := e.current()
	if g.Kind != GrammarStartTagContent && g.Kind != GrammarElementContent {
		return NewError(CodeInconsistentProcState, "entity reference outside an element")
	}
	if err := e.writeHigherLevel(g, EventEntityReference); err != nil {
		return err
	}
	if err := e.channel.EncodeString(name); err != nil {
		return err
	}
	e.moveToContent()
	return nil
}

func (e *BodyEncoder) moveToContent() {
	if g := e.current(); g.Kind == GrammarStartTagContent {
		e.setCurrent(g.ElementContentGrammar())
	}
}

// Flush completes the body: it aligns and drains the channel.
func (e *BodyEncoder) Flush() error {
	return e.channel.Flush()
}
