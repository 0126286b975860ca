package core

import "github.com/exicore/exicore/utils"

// GrammarKind identifies the built-in grammar states.
type GrammarKind int

const (
	GrammarDocContent GrammarKind = iota
	GrammarDocEnd
	GrammarFragmentContent
	GrammarStartTagContent
	GrammarElementContent
)

// Production is one right-hand side of a built-in grammar: an event, the
// qname identity for SE(qname)/AT(qname), and the grammar state that
// follows it. Terminal productions carry a nil next state.
type Production struct {
	Event   EventType
	UriID   int
	LocalID int
	Next    *Grammar
}

// Grammar is one evolving built-in grammar state. Productions are appended
// as they are learned; the first-level event code of the production at
// index i is len(prods)-1-i, so the most recently learned production always
// takes code zero and every older one is pushed up a slot. Encoder and
// decoder learn from the same event sequence, keeping the numbering in
// lock-step.
type Grammar struct {
	Kind  GrammarKind
	prods []Production

	elementContent *Grammar // startTag's companion content state

	learnedEE      bool
	learnedCH      bool
	learnedXsiType bool
}

// NewDocumentGrammars builds the DocContent/DocEnd pair.
func NewDocumentGrammars() (docContent, docEnd *Grammar) {
	docEnd = &Grammar{Kind: GrammarDocEnd}
	docEnd.prods = append(docEnd.prods, Production{Event: EventEndDocument})

	docContent = &Grammar{Kind: GrammarDocContent}
	docContent.prods = append(docContent.prods, Production{
		Event: EventStartElementGeneric, Next: docEnd,
	})
	return docContent, docEnd
}

// NewFragmentGrammar builds the FragmentContent state: ED plus SE(*), with
// learned elements accumulating in front.
func NewFragmentGrammar() *Grammar {
	g := &Grammar{Kind: GrammarFragmentContent}
	g.prods = append(g.prods, Production{Event: EventEndDocument})
	g.prods = append(g.prods, Production{Event: EventStartElementGeneric, Next: g})
	return g
}

// NewElementGrammar builds a fresh StartTagContent state with its
// ElementContent companion, which starts out with the lone EE production.
func NewElementGrammar() *Grammar {
	content := &Grammar{Kind: GrammarElementContent}
	content.prods = append(content.prods, Production{Event: EventEndElement})

	startTag := &Grammar{Kind: GrammarStartTagContent, elementContent: content}
	return startTag
}

// ElementContentGrammar is the content state reached after the start tag
// is done.
func (g *Grammar) ElementContentGrammar() *Grammar {
	if g.Kind == GrammarStartTagContent {
		return g.elementContent
	}
	return g
}

// FirstLevelCount is the number of declared-or-learned productions.
func (g *Grammar) FirstLevelCount() int {
	return len(g.prods)
}

// CodeLength is the width of the first-level code: the production count
// plus an escape slot whenever higher-level events are reachable.
func (g *Grammar) CodeLength(fo *FidelityOptions) int {
	n := len(g.prods)
	if fo.hasHigherLevel(g.Kind) {
		n++
	}
	return utils.GetCodingLength(n)
}

// ProductionByCode resolves a first-level event code.
func (g *Grammar) ProductionByCode(code int) *Production {
	if code < 0 || code >= len(g.prods) {
		return nil
	}
	return &g.prods[len(g.prods)-1-code]
}

func (g *Grammar) codeOf(index int) int {
	return len(g.prods) - 1 - index
}

// FindEvent locates a qname-less production (EE, ED, CH, SE(*)) and its
// current code.
func (g *Grammar) FindEvent(ev EventType) (int, *Production) {
	for i := range g.prods {
		if g.prods[i].Event == ev {
			return g.codeOf(i), &g.prods[i]
		}
	}
	return NotFound, nil
}

// FindStartElement locates a learned SE(qname) production.
func (g *Grammar) FindStartElement(uriID, localID int) (int, *Production) {
	for i := range g.prods {
		p := &g.prods[i]
		if p.Event == EventStartElement && p.UriID == uriID && p.LocalID == localID {
			return g.codeOf(i), p
		}
	}
	return NotFound, nil
}

// FindAttribute locates a learned AT(qname) production.
func (g *Grammar) FindAttribute(uriID, localID int) (int, *Production) {
	for i := range g.prods {
		p := &g.prods[i]
		if p.Event == EventAttribute && p.UriID == uriID && p.LocalID == localID {
			return g.codeOf(i), p
		}
	}
	return NotFound, nil
}

/*
	Learning

	The EXI learning rules for built-in grammars: every undeclared event
	adds a production that from then on owns first-level code zero.
*/

func (g *Grammar) LearnStartElement(uriID, localID int) {
	switch g.Kind {
	case GrammarStartTagContent:
		g.prods = append(g.prods, Production{
			Event: EventStartElement, UriID: uriID, LocalID: localID,
			Next: g.elementContent,
		})
	case GrammarElementContent:
		g.prods = append(g.prods, Production{
			Event: EventStartElement, UriID: uriID, LocalID: localID,
			Next: g,
		})
	case GrammarFragmentContent:
		if _, p := g.FindStartElement(uriID, localID); p == nil {
			g.prods = append(g.prods, Production{
				Event: EventStartElement, UriID: uriID, LocalID: localID,
				Next: g,
			})
		}
	}
}

func (g *Grammar) LearnAttribute(uriID, localID int) error {
	if g.Kind != GrammarStartTagContent {
		return Errorf(CodeInconsistentProcState, "%v grammar cannot learn AT events", g.Kind)
	}
	// xsi:type is learned at most once
	if uriID == 2 && localID == 1 {
		if g.learnedXsiType {
			return nil
		}
		g.learnedXsiType = true
	}
	g.prods = append(g.prods, Production{
		Event: EventAttribute, UriID: uriID, LocalID: localID, Next: g,
	})
	return nil
}

func (g *Grammar) LearnEndElement() {
	if g.Kind == GrammarStartTagContent && !g.learnedEE {
		g.prods = append(g.prods, Production{Event: EventEndElement})
		g.learnedEE = true
	}
}

func (g *Grammar) LearnCharacters() {
	if (g.Kind == GrammarStartTagContent || g.Kind == GrammarElementContent) && !g.learnedCH {
		g.prods = append(g.prods, Production{
			Event: EventCharacters, Next: g.ElementContentGrammar(),
		})
		g.learnedCH = true
	}
}

func (k GrammarKind) String() string {
	switch k {
	case GrammarDocContent:
		return "DocContent"
	case GrammarDocEnd:
		return "DocEnd"
	case GrammarFragmentContent:
		return "FragmentContent"
	case GrammarStartTagContent:
		return "StartTagContent"
	case GrammarElementContent:
		return "ElementContent"
	default:
		return "Grammar(?)"
	}
}
