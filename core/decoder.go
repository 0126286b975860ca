package core

import "github.com/exicore/exicore/utils"

type elementContext struct {
	uriID   int
	localID int
	prefix  *string
	grammar *Grammar
}

// BodyDecoder walks the event stream of an EXI body, driving a
// ContentHandler and evolving the string table and built-in grammars in
// lock-step with the encoder that produced the stream.
type BodyDecoder struct {
	opts    *Options
	fo      *FidelityOptions
	table   *StringTable
	strings *StringDecoder
	channel DecoderChannel
	diag    *DiagnosticSink

	docContent *Grammar
	docEnd     *Grammar
	fragment   *Grammar

	cur   *Grammar // document-level state while the stack is empty
	stack []elementContext

	handler ContentHandler

	// start-tag emission is deferred so namespace declarations reach the
	// handler before the StartElement callback
	pendingStart  bool
	pendingURIID  int
	pendingLocal  int
	pendingPrefix *string
}

func NewBodyDecoder(opts *Options) (*BodyDecoder, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	d := &BodyDecoder{
		opts:  opts,
		fo:    opts.Fidelity,
		table: NewStringTable(opts),
	}
	d.strings = NewStringDecoder(d.table)
	if opts.Fragment {
		d.fragment = NewFragmentGrammar()
		d.cur = d.fragment
	} else {
		d.docContent, d.docEnd = NewDocumentGrammars()
		d.cur = d.docContent
	}
	return d, nil
}

// SetDiagnostics attaches a borrowed error sink.
func (d *BodyDecoder) SetDiagnostics(sink *DiagnosticSink) {
	d.diag = sink
}

// Table exposes the string table, e.g. for lock-step assertions.
func (d *BodyDecoder) Table() *StringTable {
	return d.table
}

// SetChannel attaches the decoder channel the body is read from.
func (d *BodyDecoder) SetChannel(channel DecoderChannel) {
	d.channel = channel
}

// DecodeAll drives the handler from start-document to end-document. The
// first failure aborts; no resynchronization is attempted.
func (d *BodyDecoder) DecodeAll(handler ContentHandler) error {
	if d.channel == nil {
		return NewError(CodeNullReference, "decoder channel not attached")
	}
	if handler == nil {
		return NewError(CodeNullReference, "content handler missing")
	}
	d.handler = handler

	err := d.run()
	if err != nil && IsCode(err, CodeParsingComplete) {
		err = nil
	}
	if err != nil && d.diag != nil {
		d.diag.ReportError(err)
	}
	return err
}

func (d *BodyDecoder) run() error {
	if err := d.handler.StartDocument(); err != nil {
		return err
	}
	for {
		if err := d.decodeNextEvent(); err != nil {
			return err
		}
	}
}

func (d *BodyDecoder) current() *Grammar {
	if len(d.stack) > 0 {
		return d.stack[len(d.stack)-1].grammar
	}
	return d.cur
}

func (d *BodyDecoder) setCurrent(g *Grammar) {
	if len(d.stack) > 0 {
		d.stack[len(d.stack)-1].grammar = g
	} else {
		d.cur = g
	}
}

func (d *BodyDecoder) topElement() *elementContext {
	if len(d.stack) == 0 {
		return nil
	}
	return &d.stack[len(d.stack)-1]
}

/*
	Event code resolution
*/

// decodeEventCode resolves the next first-, second- or third-level event.
// For first-level matches the production is returned as well.
func (d *BodyDecoder) decodeEventCode() (EventType, *Production, error) {
	g := d.current()
	code, err := d.channel.DecodeNBitUnsignedInteger(g.CodeLength(d.fo))
	if err != nil {
		return 0, nil, err
	}
	if code < g.FirstLevelCount() {
		prod := g.ProductionByCode(code)
		return prod.Event, prod, nil
	}
	if code > g.FirstLevelCount() || !d.fo.hasHigherLevel(g.Kind) {
		return 0, nil, errAt(CodeInvalidExiInput, d.channel.BitPosition(),
			"event code outside the grammar's code space")
	}

	second := d.fo.secondLevelEvents(g.Kind)
	third := d.fo.thirdLevelEvents()
	n2 := utils.GetCodingLength(d.fo.secondLevelCharacteristics(g.Kind))
	ec2, err := d.channel.DecodeNBitUnsignedInteger(n2)
	if err != nil {
		return 0, nil, err
	}
	if ec2 < len(second) {
		return second[ec2], nil, nil
	}
	if ec2 == len(second) && len(third) > 0 {
		n3 := utils.GetCodingLength(len(third))
		ec3, err := d.channel.DecodeNBitUnsignedInteger(n3)
		if err != nil {
			return 0, nil, err
		}
		if ec3 < len(third) {
			return third[ec3], nil, nil
		}
	}
	return 0, nil, errAt(CodeInvalidExiInput, d.channel.BitPosition(),
		"event code outside the grammar's code space")
}

func (d *BodyDecoder) decodeNextEvent() error {
	ev, prod, err := d.decodeEventCode()
	if err != nil {
		return err
	}

	switch ev {
	case EventStartElement:
		return d.handleStartElement(prod.UriID, prod.LocalID, prod, false)
	case EventStartElementGeneric, EventStartElementGenericUndeclared:
		uriID, localID, err := d.decodeQName()
		if err != nil {
			return err
		}
		return d.handleStartElement(uriID, localID, prod, ev == EventStartElementGenericUndeclared)

	case EventAttribute:
		return d.handleAttribute(prod.UriID, prod.LocalID, false)
	case EventAttributeGenericUndeclared:
		uriID, localID, err := d.decodeQName()
		if err != nil {
			return err
		}
		return d.handleAttribute(uriID, localID, true)

	case EventNamespaceDeclaration:
		return d.handleNamespaceDeclaration()

	case EventCharacters:
		return d.handleCharacters(prod, false)
	case EventCharactersUndeclared:
		return d.handleCharacters(nil, true)

	case EventEndElement, EventEndElementUndeclared:
		return d.handleEndElement(ev == EventEndElementUndeclared)

	case EventEndDocument:
		if err := d.flushStart(); err != nil {
			return err
		}
		if err := d.handler.EndDocument(); err != nil {
			return err
		}
		return errComplete

	case EventComment:
		return d.handleComment()
	case EventProcessingInstruction:
		return d.handleProcessingInstruction()
	case EventDocType:
		return d.handleDocType()
	case EventEntityReference:
		return d.handleEntityReference()
	case EventSelfContained:
		return errAt(CodeNotImplemented, d.channel.BitPosition(),
			"self-contained fragments are not supported")
	default:
		return Errorf(CodeUnexpected, "unhandled event %v", ev)
	}
}

/*
	Structure decoding
*/

func (d *BodyDecoder) decodeURI() (int, error) {
	id, err := d.channel.DecodeNBitUnsignedInteger(d.table.URILog())
	if err != nil {
		return 0, err
	}
	if id == 0 {
		// miss: a literal URI extends the partition
		runes, err := d.channel.DecodeString()
		if err != nil {
			return 0, err
		}
		_, uriID := d.table.AddURI(string(runes), nil)
		return uriID, nil
	}
	uriID := id - 1
	if uriID >= d.table.NumberOfURIs() {
		return 0, errAt(CodeInvalidExiInput, d.channel.BitPosition(), "URI id outside the partition")
	}
	return uriID, nil
}

func (d *BodyDecoder) decodeLocalName(uriID int) (int, error) {
	length, err := d.channel.DecodeUnsignedInteger()
	if err != nil {
		return 0, err
	}
	if length == 0 {
		// hit: compact identifier
		localID, err := d.channel.DecodeNBitUnsignedInteger(d.table.LocalNameLog(uriID))
		if err != nil {
			return 0, err
		}
		if localID >= d.table.NumberOfLocalNames(uriID) {
			return 0, errAt(CodeInvalidExiInput, d.channel.BitPosition(),
				"local-name id outside the partition")
		}
		return localID, nil
	}
	// miss: literal of length minus one
	runes, err := d.channel.DecodeStringOnly(length - 1)
	if err != nil {
		return 0, err
	}
	_, localID := d.table.AddLocalName(uriID, string(runes))
	return localID, nil
}

func (d *BodyDecoder) decodeQName() (uriID, localID int, err error) {
	uriID, err = d.decodeURI()
	if err != nil {
		return 0, 0, err
	}
	localID, err = d.decodeLocalName(uriID)
	return uriID, localID, err
}

// decodeQNamePrefix reads the prefix compact ID attached to SE and AT
// qnames when prefixes are preserved.
func (d *BodyDecoder) decodeQNamePrefix(uriID int) (*string, error) {
	if !d.fo.prefixes {
		return nil, nil
	}
	count := d.table.NumberOfPrefixes(uriID)
	if count == 0 {
		return nil, nil
	}
	prefixID, err := d.channel.DecodeNBitUnsignedInteger(d.table.PrefixLog(uriID))
	if err != nil {
		return nil, err
	}
	if prefixID >= count {
		return nil, errAt(CodeInvalidExiInput, d.channel.BitPosition(), "prefix id outside the partition")
	}
	prefix, err := d.table.GetPrefix(uriID, prefixID)
	if err != nil {
		return nil, err
	}
	return &prefix, nil
}

// decodeNamespacePrefix reads the prefix of an NS event: an escape form
// where zero introduces a literal.
func (d *BodyDecoder) decodeNamespacePrefix(uriID int) (string, error) {
	id, err := d.channel.DecodeNBitUnsignedInteger(d.table.PrefixEscapeLog(uriID))
	if err != nil {
		return "", err
	}
	if id == 0 {
		runes, err := d.channel.DecodeString()
		if err != nil {
			return "", err
		}
		prefix := string(runes)
		if _, err := d.table.AddPrefix(uriID, prefix); err != nil {
			return "", err
		}
		return prefix, nil
	}
	if id-1 >= d.table.NumberOfPrefixes(uriID) {
		return "", errAt(CodeInvalidExiInput, d.channel.BitPosition(), "prefix id outside the partition")
	}
	return d.table.GetPrefix(uriID, id-1)
}

/*
	Event handling
*/

// flushStart emits a deferred StartElement once the start tag can no
// longer gain namespace declarations.
func (d *BodyDecoder) flushStart() error {
	if !d.pendingStart {
		return nil
	}
	d.pendingStart = false
	qname, err := d.qualifiedName(d.pendingURIID, d.pendingLocal, d.pendingPrefix)
	if err != nil {
		return err
	}
	if top := d.topElement(); top != nil {
		top.prefix = d.pendingPrefix
	}
	return d.handler.StartElement(qname)
}

func (d *BodyDecoder) qualifiedName(uriID, localID int, prefix *string) (QualifiedName, error) {
	uri, err := d.table.GetURI(uriID)
	if err != nil {
		return QualifiedName{}, err
	}
	local, err := d.table.GetLocalName(uriID, localID)
	if err != nil {
		return QualifiedName{}, err
	}
	return QualifiedName{Uri: uri, LocalName: local, Prefix: prefix}, nil
}

func (d *BodyDecoder) handleStartElement(uriID, localID int, prod *Production, undeclared bool) error {
	if err := d.flushStart(); err != nil {
		return err
	}

	prefix, err := d.decodeQNamePrefix(uriID)
	if err != nil {
		return err
	}

	g := d.current()
	switch {
	case undeclared:
		g.LearnStartElement(uriID, localID)
		d.setCurrent(g.ElementContentGrammar())
	case prod != nil && prod.Next != nil:
		if g.Kind == GrammarFragmentContent && prod.Event == EventStartElementGeneric {
			g.LearnStartElement(uriID, localID)
		}
		d.setCurrent(prod.Next)
	default:
		return NewError(CodeInvalidExiInput, "start element without a follow state")
	}

	child := d.table.ElementGrammar(uriID, localID)
	if child == nil {
		child = NewElementGrammar()
		d.table.SetElementGrammar(uriID, localID, child)
	}
	d.stack = append(d.stack, elementContext{uriID: uriID, localID: localID, grammar: child})

	d.pendingStart = true
	d.pendingURIID = uriID
	d.pendingLocal = localID
	d.pendingPrefix = prefix
	return nil
}

func (d *BodyDecoder) handleAttribute(uriID, localID int, undeclared bool) error {
	prefix, err := d.decodeQNamePrefix(uriID)
	if err != nil {
		return err
	}
	if undeclared {
		if err := d.current().LearnAttribute(uriID, localID); err != nil {
			return err
		}
	}

	value, err := d.strings.ReadValue(uriID, localID, d.channel)
	if err != nil {
		return err
	}
	if err := d.flushStart(); err != nil {
		return err
	}
	qname, err := d.qualifiedName(uriID, localID, prefix)
	if err != nil {
		return err
	}
	return d.handler.Attribute(qname, value)
}

func (d *BodyDecoder) handleNamespaceDeclaration() error {
	uriID, err := d.decodeURI()
	if err != nil {
		return err
	}
	prefix, err := d.decodeNamespacePrefix(uriID)
	if err != nil {
		return err
	}
	isLocal, err := d.channel.DecodeBoolean()
	if err != nil {
		return err
	}
	if isLocal && d.pendingStart {
		p := prefix
		d.pendingPrefix = &p
	}
	uri, err := d.table.GetURI(uriID)
	if err != nil {
		return err
	}
	return d.handler.NamespaceDeclaration(uri, prefix, isLocal)
}

func (d *BodyDecoder) handleCharacters(prod *Production, undeclared bool) error {
	top := d.topElement()
	if top == nil {
		return errAt(CodeInvalidExiInput, d.channel.BitPosition(), "characters outside an element")
	}
	value, err := d.strings.ReadValue(top.uriID, top.localID, d.channel)
	if err != nil {
		return err
	}

	g := d.current()
	if undeclared {
		g.LearnCharacters()
		d.setCurrent(g.ElementContentGrammar())
	} else {
		d.setCurrent(prod.Next)
	}

	if err := d.flushStart(); err != nil {
		return err
	}
	return d.handler.Characters(value)
}

func (d *BodyDecoder) handleEndElement(undeclared bool) error {
	if len(d.stack) == 0 {
		return errAt(CodeInvalidExiInput, d.channel.BitPosition(), "end element without a start")
	}
	if undeclared {
		d.current().LearnEndElement()
	}
	if err := d.flushStart(); err != nil {
		return err
	}
	d.stack = d.stack[:len(d.stack)-1]
	return d.handler.EndElement()
}

func (d *BodyDecoder) handleComment() error {
	runes, err := d.channel.DecodeString()
	if err != nil {
		return err
	}
	if err := d.flushStart(); err != nil {
		return err
	}
	d.moveToContent()
	return d.handler.Comment(string(runes))
}

func (d *BodyDecoder) handleProcessingInstruction() error {
	target, err := d.channel.DecodeString()
	if err != nil {
		return err
	}
	data, err := d.channel.DecodeString()
	if err != nil {
		return err
	}
	if err := d.flushStart(); err != nil {
		return err
	}
	d.moveToContent()
	return d.handler.ProcessingInstruction(string(target), string(data))
}

func (d *BodyDecoder) handleDocType() error {
	name, err := d.channel.DecodeString()
	if err != nil {
		return err
	}
	publicID, err := d.channel.DecodeString()
	if err != nil {
		return err
	}
	systemID, err := d.channel.DecodeString()
	if err != nil {
		return err
	}
	text, err := d.channel.DecodeString()
	if err != nil {
		return err
	}
	return d.handler.DocType(string(name), string(publicID), string(systemID), string(text))
}

func (d *BodyDecoder) handleEntityReference() error {
	name, err := d.channel.DecodeString()
	if err != nil {
		return err
	}
	if err := d.flushStart(); err != nil {
		return err
	}
	d.moveToContent()
	return d.handler.EntityReference(string(name))
}

// moveToContent advances a start-tag state to element content after events
// that close the start tag without producing structure (CM, PI, ER).
func (d *BodyDecoder) moveToContent() {
	if g := d.current(); g.Kind == GrammarStartTagContent {
		d.setCurrent(g.ElementContentGrammar())
	}
}
