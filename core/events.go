package core

// EventType enumerates the EXI stream events of the built-in grammars.
// The *Undeclared variants live in the second-level code space.
type EventType int

const (
	EventStartDocument EventType = iota
	EventEndDocument
	EventStartElement
	EventStartElementGeneric
	EventStartElementGenericUndeclared
	EventAttribute
	EventAttributeGenericUndeclared
	EventEndElement
	EventEndElementUndeclared
	EventCharacters
	EventCharactersUndeclared
	EventNamespaceDeclaration
	EventSelfContained
	EventEntityReference
	EventComment
	EventProcessingInstruction
	EventDocType
)

func (e EventType) String() string {
	switch e {
	case EventStartDocument:
		return "SD"
	case EventEndDocument:
		return "ED"
	case EventStartElement:
		return "SE(qname)"
	case EventStartElementGeneric, EventStartElementGenericUndeclared:
		return "SE(*)"
	case EventAttribute:
		return "AT(qname)"
	case EventAttributeGenericUndeclared:
		return "AT(*)"
	case EventEndElement, EventEndElementUndeclared:
		return "EE"
	case EventCharacters, EventCharactersUndeclared:
		return "CH"
	case EventNamespaceDeclaration:
		return "NS"
	case EventSelfContained:
		return "SC"
	case EventEntityReference:
		return "ER"
	case EventComment:
		return "CM"
	case EventProcessingInstruction:
		return "PI"
	case EventDocType:
		return "DT"
	default:
		return "?"
	}
}

// QualifiedName is the name triple handed to content handlers. The strings
// are valid only until the handler returns unless it copies them.
type QualifiedName struct {
	Uri       string
	LocalName string
	Prefix    *string
}
