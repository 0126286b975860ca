package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentGrammars(t *testing.T) {
	docContent, docEnd := NewDocumentGrammars()
	fo := NewDefaultFidelityOptions()

	// SE(*) is the sole production and needs no bits
	assert.Equal(t, 0, docContent.CodeLength(fo))
	code, prod := docContent.FindEvent(EventStartElementGeneric)
	require.NotNil(t, prod)
	assert.Equal(t, 0, code)
	assert.Same(t, docEnd, prod.Next)

	assert.Equal(t, 0, docEnd.CodeLength(fo))
	code, prod = docEnd.FindEvent(EventEndDocument)
	require.NotNil(t, prod)
	assert.Equal(t, 0, code)
}

func TestDocContentWidthGrowsWithDTD(t *testing.T) {
	docContent, _ := NewDocumentGrammars()
	fo := NewDefaultFidelityOptions()
	require.NoError(t, fo.SetFidelity(FeatureDTD, true))
	// SE(*) plus the second-level escape
	assert.Equal(t, 1, docContent.CodeLength(fo))
}

func TestElementGrammarLearning(t *testing.T) {
	fo := NewDefaultFidelityOptions()
	g := NewElementGrammar()

	assert.Equal(t, GrammarStartTagContent, g.Kind)
	assert.Equal(t, 0, g.FirstLevelCount())
	// empty start tag still addresses the second level
	assert.Equal(t, 0, g.CodeLength(fo))

	require.NoError(t, g.LearnAttribute(5, 0))
	code, prod := g.FindAttribute(5, 0)
	require.NotNil(t, prod)
	assert.Equal(t, 0, code)
	assert.Equal(t, 1, g.CodeLength(fo), "one production plus escape")

	// a newly learned production takes code zero, promoting the old one
	g.LearnStartElement(5, 1)
	code, prod = g.FindStartElement(5, 1)
	require.NotNil(t, prod)
	assert.Equal(t, 0, code)
	code, _ = g.FindAttribute(5, 0)
	assert.Equal(t, 1, code)

	content := g.ElementContentGrammar()
	assert.Equal(t, GrammarElementContent, content.Kind)
	code, prod = content.FindEvent(EventEndElement)
	require.NotNil(t, prod)
	assert.Equal(t, 0, code)

	// SE learned in the start tag transitions to element content
	_, prod = g.FindStartElement(5, 1)
	assert.Same(t, content, prod.Next)
}

func TestLearnEndElementOnce(t *testing.T) {
	g := NewElementGrammar()
	g.LearnEndElement()
	g.LearnEndElement()
	count := 0
	for i := 0; i < g.FirstLevelCount(); i++ {
		if g.ProductionByCode(i).Event == EventEndElement {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestLearnCharactersOnce(t *testing.T) {
	g := NewElementGrammar()
	content := g.ElementContentGrammar()
	content.LearnCharacters()
	content.LearnCharacters()
	assert.Equal(t, 2, content.FirstLevelCount()) // EE plus one CH

	_, prod := content.FindEvent(EventCharacters)
	require.NotNil(t, prod)
	assert.Same(t, content, prod.Next)
}

func TestXsiTypeLearnedOnce(t *testing.T) {
	g := NewElementGrammar()
	require.NoError(t, g.LearnAttribute(2, 1)) // xsi:type
	require.NoError(t, g.LearnAttribute(2, 1))
	assert.Equal(t, 1, g.FirstLevelCount())

	// ordinary attributes are not deduplicated by the grammar
	require.NoError(t, g.LearnAttribute(0, 0))
	assert.Equal(t, 2, g.FirstLevelCount())
}

func TestElementContentCannotLearnAttributes(t *testing.T) {
	g := NewElementGrammar().ElementContentGrammar()
	err := g.LearnAttribute(0, 0)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInconsistentProcState))
}

func TestFragmentGrammar(t *testing.T) {
	g := NewFragmentGrammar()
	fo := NewDefaultFidelityOptions()

	// SE(*) and ED: one bit
	assert.Equal(t, 1, g.CodeLength(fo))
	code, _ := g.FindEvent(EventStartElementGeneric)
	assert.Equal(t, 0, code)
	code, _ = g.FindEvent(EventEndDocument)
	assert.Equal(t, 1, code)

	g.LearnStartElement(3, 0)
	code, prod := g.FindStartElement(3, 0)
	require.NotNil(t, prod)
	assert.Equal(t, 0, code)
	assert.Same(t, g, prod.Next)

	// learning the same element again changes nothing
	g.LearnStartElement(3, 0)
	assert.Equal(t, 3, g.FirstLevelCount())
}

func TestSecondLevelEventOrder(t *testing.T) {
	fo := NewAllFidelityOptions()
	fo.selfContained = true
	events := fo.secondLevelEvents(GrammarStartTagContent)
	assert.Equal(t, []EventType{
		EventEndElementUndeclared,
		EventAttributeGenericUndeclared,
		EventNamespaceDeclaration,
		EventSelfContained,
		EventStartElementGenericUndeclared,
		EventCharactersUndeclared,
		EventEntityReference,
	}, events)

	events = fo.secondLevelEvents(GrammarElementContent)
	assert.Equal(t, []EventType{
		EventStartElementGenericUndeclared,
		EventCharactersUndeclared,
		EventEntityReference,
	}, events)

	assert.Equal(t, []EventType{EventComment, EventProcessingInstruction}, fo.thirdLevelEvents())
}

func TestLockStepGrammarEvolution(t *testing.T) {
	// the same event sequence drives two grammar sets identically
	run := func() (*Grammar, *Grammar) {
		g := NewElementGrammar()
		g.LearnAttribute(0, 0)
		g.LearnStartElement(0, 1)
		content := g.ElementContentGrammar()
		content.LearnCharacters()
		g.LearnEndElement()
		return g, content
	}
	g1, c1 := run()
	g2, c2 := run()

	require.Equal(t, g1.FirstLevelCount(), g2.FirstLevelCount())
	for i := 0; i < g1.FirstLevelCount(); i++ {
		p1, p2 := g1.ProductionByCode(i), g2.ProductionByCode(i)
		assert.Equal(t, p1.Event, p2.Event, "code %d", i)
		assert.Equal(t, p1.UriID, p2.UriID)
		assert.Equal(t, p1.LocalID, p2.LocalID)
	}
	require.Equal(t, c1.FirstLevelCount(), c2.FirstLevelCount())
}
