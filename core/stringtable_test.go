package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringTableSeeding(t *testing.T) {
	table := NewStringTable(NewDefaultOptions())

	require.Equal(t, 3, table.NumberOfURIs())
	uri, err := table.GetURI(0)
	require.NoError(t, err)
	assert.Equal(t, "", uri)
	uri, err = table.GetURI(1)
	require.NoError(t, err)
	assert.Equal(t, XML_NS_URI, uri)
	uri, err = table.GetURI(2)
	require.NoError(t, err)
	assert.Equal(t, XMLSchemaInstanceNS_URI, uri)

	// pre-seeded prefixes
	pfx, err := table.GetPrefix(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "", pfx)
	pfx, err = table.GetPrefix(1, 0)
	require.NoError(t, err)
	assert.Equal(t, "xml", pfx)
	pfx, err = table.GetPrefix(2, 0)
	require.NoError(t, err)
	assert.Equal(t, "xsi", pfx)

	// pre-seeded local names
	assert.Equal(t, 0, table.NumberOfLocalNames(0))
	assert.Equal(t, len(xmlLocalNames), table.NumberOfLocalNames(1))
	id, ok := table.LocalNameID(2, "type")
	require.True(t, ok)
	assert.Equal(t, 1, id)
	id, ok = table.LocalNameID(2, "nil")
	require.True(t, ok)
	assert.Equal(t, 0, id)
}

func TestStringTableSchemaSeeding(t *testing.T) {
	opts := NewDefaultOptions()
	schemaID := ""
	opts.SchemaID = &schemaID
	table := NewStringTable(opts)

	require.Equal(t, 4, table.NumberOfURIs())
	uri, err := table.GetURI(3)
	require.NoError(t, err)
	assert.Equal(t, XMLSchemaNS_URI, uri)
	assert.Equal(t, len(xsdLocalNames), table.NumberOfLocalNames(3))
}

func TestURILogGrowth(t *testing.T) {
	table := NewStringTable(NewDefaultOptions())
	assert.Equal(t, 2, table.URILog()) // 3 URIs + escape

	table.AddURI("urn:a", nil) // 4 + 1 -> 3 bits
	assert.Equal(t, 3, table.URILog())

	prev := table.URILog()
	for i := 0; i < 40; i++ {
		table.AddURI(fmt.Sprintf("urn:x%d", i), nil)
		cur := table.URILog()
		assert.GreaterOrEqual(t, cur, prev, "uri log must be monotonic")
		prev = cur
	}
}

func TestLocalNameAndValuePartitions(t *testing.T) {
	table := NewStringTable(NewDefaultOptions())
	_, uriID := table.AddURI("urn:test", nil)

	_, aID := table.AddLocalName(uriID, "a")
	assert.Equal(t, 0, aID)
	_, bID := table.AddLocalName(uriID, "b")
	assert.Equal(t, 1, bID)
	assert.Equal(t, 1, table.LocalNameLog(uriID))

	table.AddValue(uriID, aID, "v1")
	table.AddValue(uriID, aID, "v2")
	assert.Equal(t, 2, table.NumberOfLocalValues(uriID, aID))
	assert.Equal(t, 0, table.NumberOfLocalValues(uriID, bID))
	assert.Equal(t, 1, table.LocalValueLog(uriID, aID))
	assert.Equal(t, 2, table.NumberOfGlobalValues())

	v, err := table.GetLocalValue(uriID, aID, 1)
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	v, err = table.GetGlobalValue(0)
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	hit, ok := table.FindValue("v2")
	require.True(t, ok)
	assert.Equal(t, 1, hit.globalID)
	assert.Equal(t, uriID, hit.uriID)
	assert.Equal(t, aID, hit.localID)
	assert.Equal(t, 1, hit.localValueID)

	_, ok = table.FindValue("missing")
	assert.False(t, ok)
}

func TestOutOfRangeAccess(t *testing.T) {
	table := NewStringTable(NewDefaultOptions())
	_, err := table.GetURI(99)
	assert.True(t, IsCode(err, CodeInconsistentProcState))
	_, err = table.GetLocalName(0, 0)
	assert.True(t, IsCode(err, CodeInconsistentProcState))
	_, err = table.GetGlobalValue(0)
	assert.True(t, IsCode(err, CodeInconsistentProcState))
	_, err = table.GetPrefix(1, 5)
	assert.True(t, IsCode(err, CodeInconsistentProcState))
}

func TestValueMaxLength(t *testing.T) {
	opts := NewDefaultOptions()
	opts.ValueMaxLength = 3
	table := NewStringTable(opts)
	_, uriID := table.AddURI("urn:test", nil)
	_, lID := table.AddLocalName(uriID, "a")

	table.AddValue(uriID, lID, "abcd") // too long, silently skipped
	assert.Equal(t, 0, table.NumberOfGlobalValues())
	table.AddValue(uriID, lID, "abc")
	assert.Equal(t, 1, table.NumberOfGlobalValues())
}

func TestValuePartitionCapacityZeroDisablesTables(t *testing.T) {
	opts := NewDefaultOptions()
	opts.ValuePartitionCapacity = 0
	table := NewStringTable(opts)
	_, uriID := table.AddURI("urn:test", nil)
	_, lID := table.AddLocalName(uriID, "a")

	table.AddValue(uriID, lID, "v")
	assert.Equal(t, 0, table.NumberOfGlobalValues())
	assert.Equal(t, 0, table.NumberOfLocalValues(uriID, lID))
	_, ok := table.FindValue("v")
	assert.False(t, ok)
}

func TestValuePartitionWrap(t *testing.T) {
	opts := NewDefaultOptions()
	opts.ValuePartitionCapacity = 4
	table := NewStringTable(opts)
	_, uriID := table.AddURI("urn:test", nil)
	_, lID := table.AddLocalName(uriID, "a")

	for i := 1; i <= 4; i++ {
		table.AddValue(uriID, lID, fmt.Sprintf("v%d", i))
	}
	assert.Equal(t, 4, table.NumberOfGlobalValues())

	// the fifth value reuses v1's modular slot
	table.AddValue(uriID, lID, "v5")
	assert.Equal(t, 4, table.NumberOfGlobalValues())

	_, ok := table.FindValue("v1")
	assert.False(t, ok, "v1 must be evicted")

	hit, ok := table.FindValue("v5")
	require.True(t, ok)
	assert.Equal(t, 0, hit.globalID, "v5 occupies v1's slot")

	hit, ok = table.FindValue("v2")
	require.True(t, ok)
	assert.Equal(t, 1, hit.globalID, "v2 keeps its original modular slot")

	// v1's local slot is permanently unassigned
	_, err := table.GetLocalValue(uriID, lID, 0)
	assert.Error(t, err)
	v, err := table.GetLocalValue(uriID, lID, 1)
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}

func TestPrefixInlineSlot(t *testing.T) {
	table := NewStringTable(NewDefaultOptions())
	_, uriID := table.AddURI("urn:test", nil)
	assert.Equal(t, 0, table.NumberOfPrefixes(uriID))

	_, err := table.AddPrefix(uriID, "p")
	require.NoError(t, err)
	assert.Equal(t, 1, table.NumberOfPrefixes(uriID))

	_, err = table.AddPrefix(uriID, "q")
	require.NoError(t, err)
	assert.Equal(t, 2, table.NumberOfPrefixes(uriID))

	id, ok := table.PrefixID(uriID, "q")
	require.True(t, ok)
	assert.Equal(t, 1, id)
	pfx, err := table.GetPrefix(uriID, 0)
	require.NoError(t, err)
	assert.Equal(t, "p", pfx)
}

func TestStrRefStability(t *testing.T) {
	table := NewStringTable(NewDefaultOptions())
	ref, _ := table.AddURI("urn:stable", nil)
	before := table.Arena().Get(ref)
	for i := 0; i < 1000; i++ {
		table.AddURI(fmt.Sprintf("urn:fill%d", i), nil)
	}
	assert.Equal(t, before, table.Arena().Get(ref), "refs stay valid as the arena grows")
}

func TestElementGrammarCache(t *testing.T) {
	table := NewStringTable(NewDefaultOptions())
	_, uriID := table.AddURI("urn:test", nil)
	_, lID := table.AddLocalName(uriID, "el")

	assert.Nil(t, table.ElementGrammar(uriID, lID))
	g := NewElementGrammar()
	table.SetElementGrammar(uriID, lID, g)
	assert.Same(t, g, table.ElementGrammar(uriID, lID))
}

func TestQNameString(t *testing.T) {
	table := NewStringTable(NewDefaultOptions())
	_, uriID := table.AddURI("urn:test", nil)
	_, lID := table.AddLocalName(uriID, "el")

	qn, err := table.QNameString(uriID, lID)
	require.NoError(t, err)
	assert.Equal(t, "urn:test:el", qn)

	_, l2 := table.AddLocalName(0, "bare")
	qn, err = table.QNameString(0, l2)
	require.NoError(t, err)
	assert.Equal(t, "bare", qn)
}
