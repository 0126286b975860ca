package core

import (
	"github.com/cespare/xxhash/v2"

	"github.com/exicore/exicore/utils"
)

/*
	LocalName implementation
*/

// LocalName is one entry of a URI's local-name partition, together with the
// local value partition scoped to that (URI, LocalName) pair and the cached
// built-in element grammar for the name.
type LocalName struct {
	name  StrRef
	qname string // pre-joined "uri:local", built on first use

	// localValues holds the local value partition; evicted slots keep
	// their position as InvalidStrRef so compact IDs stay stable.
	localValues   []StrRef
	localValueLog int

	grammar *Grammar
}

// Bits is the compact-ID width derived from the local value count plus one.
func (l *LocalName) Bits() int {
	return utils.GetCodingLength(len(l.localValues) + 1)
}

// Bytes is Bits rounded up to whole octets.
func (l *LocalName) Bytes() int {
	return (l.Bits() + 7) / 8
}

/*
	uriEntry implementation
*/

type uriEntry struct {
	uri StrRef

	// Prefix partitions rarely hold more than one entry, so the first
	// prefix lives in an inline slot and only further ones spill into a
	// vector.
	prefix0        StrRef
	prefixOverflow []StrRef

	localNames   []*LocalName
	localByName  map[string]int
	localNameLog int
}

func newURIEntry(uri StrRef) *uriEntry {
	return &uriEntry{
		uri:         uri,
		prefix0:     InvalidStrRef,
		localByName: map[string]int{},
	}
}

func (u *uriEntry) prefixCount() int {
	if u.prefix0 == InvalidStrRef {
		return 0
	}
	return 1 + len(u.prefixOverflow)
}

func (u *uriEntry) prefixAt(i int) StrRef {
	if i == 0 {
		return u.prefix0
	}
	return u.prefixOverflow[i-1]
}

func (u *uriEntry) addPrefix(ref StrRef) {
	if u.prefix0 == InvalidStrRef {
		u.prefix0 = ref
	} else {
		u.prefixOverflow = append(u.prefixOverflow, ref)
	}
}

/*
	StringTable implementation
*/

// valueHit locates a live value string in both the global partition and its
// local partition.
type valueHit struct {
	globalID     int
	uriID        int
	localID      int
	localValueID int
}

// StringTable holds the URI, prefix, local-name, local-value and
// global-value partitions over one arena. Encoder and decoder run the same
// operations in the same order, which keeps their tables in lock-step.
type StringTable struct {
	arena     *Arena
	uris      []*uriEntry
	uriByName map[string]int
	uriLog    int

	valueMaxLength         int
	valuePartitionCapacity int

	globalValues   []StrRef
	globalSlotInfo []valueHit
	globalID       int // last assigned modular slot
	globalByHash   map[uint64][]valueHit
	globalValueLog int
}

// NewStringTable seeds the partitions for the given options: the empty URI,
// the XML and XSI namespaces, and additionally the XSD namespace whenever a
// schema identifier travels in the options.
func NewStringTable(opts *Options) *StringTable {
	t := &StringTable{
		arena:                  NewArena(),
		uriByName:              map[string]int{},
		valueMaxLength:         DefaultValueMaxLength,
		valuePartitionCapacity: DefaultValuePartitionCapacity,
		globalID:               -1,
		globalByHash:           map[uint64][]valueHit{},
	}
	if opts != nil {
		t.valueMaxLength = opts.ValueMaxLength
		t.valuePartitionCapacity = opts.ValuePartitionCapacity
	}

	empty := ""
	xml := XML_NS_Prefix
	xsi := XSIPrefix
	t.AddURI(XMLNullNS_URI, &empty)
	t.AddURI(XML_NS_URI, &xml)
	t.AddURI(XMLSchemaInstanceNS_URI, &xsi)
	for _, name := range xmlLocalNames {
		t.AddLocalName(1, name)
	}
	for _, name := range xsiLocalNames {
		t.AddLocalName(2, name)
	}
	if opts != nil && opts.SchemaID != nil {
		t.AddURI(XMLSchemaNS_URI, nil)
		for _, name := range xsdLocalNames {
			t.AddLocalName(3, name)
		}
	}
	return t
}

// Arena exposes the owning arena, e.g. for diagnostics.
func (t *StringTable) Arena() *Arena {
	return t.arena
}

/*
	URI partition
*/

func (t *StringTable) NumberOfURIs() int {
	return len(t.uris)
}

// AddURI appends a URI, giving it empty prefix and local-name partitions,
// and optionally seeds its first prefix.
func (t *StringTable) AddURI(uri string, prefix *string) (StrRef, int) {
	ref := t.arena.Intern(uri)
	entry := newURIEntry(ref)
	id := len(t.uris)
	t.uris = append(t.uris, entry)
	t.uriByName[uri] = id
	t.uriLog = utils.GetCodingLength(len(t.uris) + 1)
	if prefix != nil {
		entry.addPrefix(t.arena.Intern(*prefix))
	}
	return ref, id
}

// URIID resolves a URI string to its compact ID.
func (t *StringTable) URIID(uri string) (int, bool) {
	id, ok := t.uriByName[uri]
	return id, ok
}

// GetURI resolves a compact ID to the URI string.
func (t *StringTable) GetURI(id int) (string, error) {
	if id < 0 || id >= len(t.uris) {
		return "", Errorf(CodeInconsistentProcState, "URI id %d out of range", id)
	}
	return t.arena.Get(t.uris[id].uri), nil
}

// URILog is the bit width of the URI field: the partition count plus one,
// where value zero escapes to a literal URI.
func (t *StringTable) URILog() int {
	return t.uriLog
}

/*
	Prefix partition
*/

func (t *StringTable) NumberOfPrefixes(uriID int) int {
	if uriID < 0 || uriID >= len(t.uris) {
		return 0
	}
	return t.uris[uriID].prefixCount()
}

// AddPrefix appends a prefix to the URI's prefix partition.
func (t *StringTable) AddPrefix(uriID int, prefix string) (StrRef, error) {
	if uriID < 0 || uriID >= len(t.uris) {
		return InvalidStrRef, Errorf(CodeInconsistentProcState, "URI id %d out of range", uriID)
	}
	ref := t.arena.Intern(prefix)
	t.uris[uriID].addPrefix(ref)
	return ref, nil
}

func (t *StringTable) GetPrefix(uriID, prefixID int) (string, error) {
	if uriID < 0 || uriID >= len(t.uris) {
		return "", Errorf(CodeInconsistentProcState, "URI id %d out of range", uriID)
	}
	u := t.uris[uriID]
	if prefixID < 0 || prefixID >= u.prefixCount() {
		return "", Errorf(CodeInconsistentProcState, "prefix id %d out of range", prefixID)
	}
	return t.arena.Get(u.prefixAt(prefixID)), nil
}

// PrefixID resolves a prefix within a URI's partition.
func (t *StringTable) PrefixID(uriID int, prefix string) (int, bool) {
	if uriID < 0 || uriID >= len(t.uris) {
		return 0, false
	}
	u := t.uris[uriID]
	for i := 0; i < u.prefixCount(); i++ {
		if t.arena.Get(u.prefixAt(i)) == prefix {
			return i, true
		}
	}
	return 0, false
}

// PrefixLog is the compact-ID width for prefix hits.
func (t *StringTable) PrefixLog(uriID int) int {
	return utils.GetCodingLength(t.NumberOfPrefixes(uriID))
}

// PrefixEscapeLog is the width of the prefix field carrying a miss escape.
func (t *StringTable) PrefixEscapeLog(uriID int) int {
	return utils.GetCodingLength(t.NumberOfPrefixes(uriID) + 1)
}

/*
	LocalName partition
*/

func (t *StringTable) NumberOfLocalNames(uriID int) int {
	if uriID < 0 || uriID >= len(t.uris) {
		return 0
	}
	return len(t.uris[uriID].localNames)
}

// AddLocalName appends a local name with an empty local value partition.
func (t *StringTable) AddLocalName(uriID int, name string) (StrRef, int) {
	u := t.uris[uriID]
	ref := t.arena.Intern(name)
	ln := &LocalName{name: ref}
	id := len(u.localNames)
	u.localNames = append(u.localNames, ln)
	u.localByName[name] = id
	u.localNameLog = utils.GetCodingLength(len(u.localNames))
	return ref, id
}

// LocalNameID resolves a local name within a URI's partition.
func (t *StringTable) LocalNameID(uriID int, name string) (int, bool) {
	if uriID < 0 || uriID >= len(t.uris) {
		return 0, false
	}
	id, ok := t.uris[uriID].localByName[name]
	return id, ok
}

func (t *StringTable) GetLocalName(uriID, localID int) (string, error) {
	ln, err := t.localName(uriID, localID)
	if err != nil {
		return "", err
	}
	return t.arena.Get(ln.name), nil
}

// QNameString returns the pre-joined "uri:local" form, building and caching
// it on first use.
func (t *StringTable) QNameString(uriID, localID int) (string, error) {
	ln, err := t.localName(uriID, localID)
	if err != nil {
		return "", err
	}
	if ln.qname == "" {
		uri := t.arena.Get(t.uris[uriID].uri)
		local := t.arena.Get(ln.name)
		if uri == "" {
			ln.qname = local
		} else {
			ln.qname = uri + ":" + local
		}
	}
	return ln.qname, nil
}

func (t *StringTable) localName(uriID, localID int) (*LocalName, error) {
	if uriID < 0 || uriID >= len(t.uris) {
		return nil, Errorf(CodeInconsistentProcState, "URI id %d out of range", uriID)
	}
	u := t.uris[uriID]
	if localID < 0 || localID >= len(u.localNames) {
		return nil, Errorf(CodeInconsistentProcState, "local-name id %d out of range", localID)
	}
	return u.localNames[localID], nil
}

// LocalNameLog is the compact-ID width for local-name hits.
func (t *StringTable) LocalNameLog(uriID int) int {
	if uriID < 0 || uriID >= len(t.uris) {
		return 0
	}
	return t.uris[uriID].localNameLog
}

/*
	Element grammar cache
*/

// ElementGrammar returns the cached built-in grammar of an element name, or
// nil before its first use.
func (t *StringTable) ElementGrammar(uriID, localID int) *Grammar {
	ln, err := t.localName(uriID, localID)
	if err != nil {
		return nil
	}
	return ln.grammar
}

func (t *StringTable) SetElementGrammar(uriID, localID int, g *Grammar) {
	if ln, err := t.localName(uriID, localID); err == nil {
		ln.grammar = g
	}
}

/*
	Value partitions
*/

func (t *StringTable) NumberOfGlobalValues() int {
	return len(t.globalValues)
}

func (t *StringTable) NumberOfLocalValues(uriID, localID int) int {
	ln, err := t.localName(uriID, localID)
	if err != nil {
		return 0
	}
	return len(ln.localValues)
}

// GlobalValueLog is the compact-ID width for global value hits.
func (t *StringTable) GlobalValueLog() int {
	return t.globalValueLog
}

// LocalValueLog is the compact-ID width for local value hits.
func (t *StringTable) LocalValueLog(uriID, localID int) int {
	ln, err := t.localName(uriID, localID)
	if err != nil {
		return 0
	}
	return ln.localValueLog
}

func (t *StringTable) GetGlobalValue(globalID int) (string, error) {
	if globalID < 0 || globalID >= len(t.globalValues) {
		return "", Errorf(CodeInconsistentProcState, "global value id %d out of range", globalID)
	}
	ref := t.globalValues[globalID]
	if ref == InvalidStrRef {
		return "", Errorf(CodeInconsistentProcState, "global value id %d unassigned", globalID)
	}
	return t.arena.Get(ref), nil
}

func (t *StringTable) GetLocalValue(uriID, localID, localValueID int) (string, error) {
	ln, err := t.localName(uriID, localID)
	if err != nil {
		return "", err
	}
	if localValueID < 0 || localValueID >= len(ln.localValues) {
		return "", Errorf(CodeInconsistentProcState, "local value id %d out of range", localValueID)
	}
	ref := ln.localValues[localValueID]
	if ref == InvalidStrRef {
		return "", Errorf(CodeInconsistentProcState, "local value id %d evicted", localValueID)
	}
	return t.arena.Get(ref), nil
}

// FindValue looks a value string up in the global partition. Used by the
// encoder to pick the hit branch.
func (t *StringTable) FindValue(value string) (valueHit, bool) {
	hits := t.globalByHash[xxhash.Sum64String(value)]
	for _, h := range hits {
		ref := t.globalValues[h.globalID]
		if ref != InvalidStrRef && t.arena.Get(ref) == value {
			return h, true
		}
	}
	return valueHit{}, false
}

// AddGlobalValue appends a value to the global partition only.
func (t *StringTable) AddGlobalValue(value string) {
	t.addValue(-1, -1, value)
}

// AddValue appends a value to both the (uriID, localID) local partition and
// the global partition, honoring ValueMaxLength and the FIFO wrapping of
// ValuePartitionCapacity.
func (t *StringTable) AddValue(uriID, localID int, value string) {
	t.addValue(uriID, localID, value)
}

func (t *StringTable) addValue(uriID, localID int, value string) {
	if t.valueMaxLength >= 0 && utils.CodePointCount(value) > t.valueMaxLength {
		return
	}
	if t.valuePartitionCapacity == 0 {
		return
	}

	ref := t.arena.Intern(value)
	var ln *LocalName
	if uriID >= 0 {
		ln, _ = t.localName(uriID, localID)
	}

	hit := valueHit{uriID: uriID, localID: localID, localValueID: -1}

	if t.valuePartitionCapacity < 0 {
		// unbounded partitions
		hit.globalID = len(t.globalValues)
		t.globalValues = append(t.globalValues, ref)
		t.globalSlotInfo = append(t.globalSlotInfo, hit)
	} else {
		// ring: the next modular slot is reassigned, evicting its
		// occupant from both partitions
		t.globalID++
		if t.globalID == t.valuePartitionCapacity {
			t.globalID = 0
		}
		hit.globalID = t.globalID
		if t.globalID < len(t.globalValues) {
			t.evictSlot(t.globalID)
			t.globalValues[t.globalID] = ref
			t.globalSlotInfo[t.globalID] = hit
		} else {
			t.globalValues = append(t.globalValues, ref)
			t.globalSlotInfo = append(t.globalSlotInfo, hit)
		}
	}

	if ln != nil {
		hit.localValueID = len(ln.localValues)
		ln.localValues = append(ln.localValues, ref)
		ln.localValueLog = utils.GetCodingLength(len(ln.localValues))
		t.globalSlotInfo[hit.globalID] = hit
	}

	key := xxhash.Sum64String(value)
	t.globalByHash[key] = append(t.globalByHash[key], hit)

	n := len(t.globalValues)
	if t.valuePartitionCapacity >= 0 && n > t.valuePartitionCapacity {
		n = t.valuePartitionCapacity
	}
	t.globalValueLog = utils.GetCodingLength(n)
}

// evictSlot renders the occupant of a reused global slot permanently
// unassigned, locally and in the encoder lookup.
func (t *StringTable) evictSlot(globalID int) {
	old := t.globalSlotInfo[globalID]
	ref := t.globalValues[globalID]
	if ref == InvalidStrRef {
		return
	}
	value := t.arena.Get(ref)

	if old.uriID >= 0 && old.localValueID >= 0 {
		if ln, err := t.localName(old.uriID, old.localID); err == nil {
			ln.localValues[old.localValueID] = InvalidStrRef
		}
	}

	key := xxhash.Sum64String(value)
	hits := t.globalByHash[key]
	for i, h := range hits {
		if h.globalID == globalID {
			t.globalByHash[key] = append(hits[:i], hits[i+1:]...)
			break
		}
	}
	if len(t.globalByHash[key]) == 0 {
		delete(t.globalByHash, key)
	}
}
