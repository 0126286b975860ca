package core

// Fidelity feature keys.
const (
	FeatureComment      string = "PRESERVE_COMMENTS"
	FeaturePI           string = "PRESERVE_PIS"
	FeatureDTD          string = "PRESERVE_DTDS"
	FeaturePrefix       string = "PRESERVE_PREFIXES"
	FeatureLexicalValue string = "PRESERVE_LEXICAL_VALUES"
	FeatureSC           string = "SELF_CONTAINED"
	FeatureStrict       string = "STRICT"
)

// FidelityOptions are the preserve flags plus strictness. Strict mode keeps
// only lexical values; the event-producing fidelities are mutually
// exclusive with it.
type FidelityOptions struct {
	comments      bool
	pis           bool
	dtd           bool
	prefixes      bool
	lexicalValues bool
	selfContained bool
	strict        bool
}

func NewDefaultFidelityOptions() *FidelityOptions {
	return &FidelityOptions{}
}

func NewStrictFidelityOptions() *FidelityOptions {
	return &FidelityOptions{strict: true}
}

func NewAllFidelityOptions() *FidelityOptions {
	return &FidelityOptions{
		comments:      true,
		pis:           true,
		dtd:           true,
		prefixes:      true,
		lexicalValues: true,
	}
}

func (fo *FidelityOptions) SetFidelity(key string, decision bool) error {
	switch key {
	case FeatureComment:
		if decision && fo.strict {
			return Errorf(CodeInvalidExiConfiguration, "%s conflicts with strict mode", key)
		}
		fo.comments = decision
	case FeaturePI:
		if decision && fo.strict {
			return Errorf(CodeInvalidExiConfiguration, "%s conflicts with strict mode", key)
		}
		fo.pis = decision
	case FeatureDTD:
		if decision && fo.strict {
			return Errorf(CodeInvalidExiConfiguration, "%s conflicts with strict mode", key)
		}
		fo.dtd = decision
	case FeaturePrefix:
		if decision && fo.strict {
			return Errorf(CodeInvalidExiConfiguration, "%s conflicts with strict mode", key)
		}
		fo.prefixes = decision
	case FeatureLexicalValue:
		fo.lexicalValues = decision
	case FeatureSC:
		if decision && fo.strict {
			return Errorf(CodeInvalidExiConfiguration, "%s conflicts with strict mode", key)
		}
		fo.selfContained = decision
	case FeatureStrict:
		if decision {
			fo.comments = false
			fo.pis = false
			fo.dtd = false
			fo.prefixes = false
			fo.selfContained = false
		}
		fo.strict = decision
	default:
		return Errorf(CodeInvalidExiConfiguration, "unknown fidelity feature %q", key)
	}
	return nil
}

func (fo *FidelityOptions) IsFidelityEnabled(key string) bool {
	switch key {
	case FeatureComment:
		return fo.comments
	case FeaturePI:
		return fo.pis
	case FeatureDTD:
		return fo.dtd
	case FeaturePrefix:
		return fo.prefixes
	case FeatureLexicalValue:
		return fo.lexicalValues
	case FeatureSC:
		return fo.selfContained
	case FeatureStrict:
		return fo.strict
	default:
		return false
	}
}

func (fo *FidelityOptions) IsStrict() bool {
	return fo.strict
}

// secondLevelEvents lists the undeclared productions reachable from the
// second-level code space of a grammar kind, in their fixed order.
func (fo *FidelityOptions) secondLevelEvents(kind GrammarKind) []EventType {
	switch kind {
	case GrammarDocContent:
		if fo.dtd {
			return []EventType{EventDocType}
		}
		return nil
	case GrammarStartTagContent:
		events := []EventType{EventEndElementUndeclared, EventAttributeGenericUndeclared}
		if fo.prefixes {
			events = append(events, EventNamespaceDeclaration)
		}
		if fo.selfContained {
			events = append(events, EventSelfContained)
		}
		events = append(events, EventStartElementGenericUndeclared, EventCharactersUndeclared)
		if fo.dtd {
			events = append(events, EventEntityReference)
		}
		return events
	case GrammarElementContent:
		events := []EventType{EventStartElementGenericUndeclared, EventCharactersUndeclared}
		if fo.dtd {
			events = append(events, EventEntityReference)
		}
		return events
	default:
		// DocEnd and FragmentContent only carry comments and PIs beyond
		// their declared productions.
		return nil
	}
}

// thirdLevelEvents lists the comment and processing-instruction events when
// preserved.
func (fo *FidelityOptions) thirdLevelEvents() []EventType {
	var events []EventType
	if fo.comments {
		events = append(events, EventComment)
	}
	if fo.pis {
		events = append(events, EventProcessingInstruction)
	}
	return events
}

// secondLevelCharacteristics is the size of the second-level code space:
// the second-level events plus one escape slot when a third level exists.
func (fo *FidelityOptions) secondLevelCharacteristics(kind GrammarKind) int {
	n := len(fo.secondLevelEvents(kind))
	if len(fo.thirdLevelEvents()) > 0 {
		n++
	}
	return n
}

// hasHigherLevel reports whether any second- or third-level production is
// reachable from the grammar kind.
func (fo *FidelityOptions) hasHigherLevel(kind GrammarKind) bool {
	return fo.secondLevelCharacteristics(kind) > 0
}
