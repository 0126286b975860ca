package core

// ContentHandler receives the XML event stream produced by the body
// decoder. Every method may stop the decode loop by returning an error;
// returning ErrHandlerStop unwinds cleanly with the stream position intact.
//
// QualifiedName strings and Values are only valid until the method
// returns; handlers copy what they keep.
type ContentHandler interface {
	StartDocument() error
	EndDocument() error
	StartElement(qname QualifiedName) error
	EndElement() error
	NamespaceDeclaration(uri, prefix string, isLocalElementNS bool) error
	Attribute(qname QualifiedName, value Value) error
	Characters(value Value) error
	Comment(text string) error
	ProcessingInstruction(target, data string) error
	DocType(name, publicID, systemID, text string) error
	EntityReference(name string) error
}

// DefaultHandler is a no-op ContentHandler for embedding.
type DefaultHandler struct{}

func (DefaultHandler) StartDocument() error                    { return nil }
func (DefaultHandler) EndDocument() error                      { return nil }
func (DefaultHandler) StartElement(QualifiedName) error        { return nil }
func (DefaultHandler) EndElement() error                       { return nil }
func (DefaultHandler) NamespaceDeclaration(string, string, bool) error {
	return nil
}
func (DefaultHandler) Attribute(QualifiedName, Value) error    { return nil }
func (DefaultHandler) Characters(Value) error                  { return nil }
func (DefaultHandler) Comment(string) error                    { return nil }
func (DefaultHandler) ProcessingInstruction(string, string) error {
	return nil
}
func (DefaultHandler) DocType(string, string, string, string) error {
	return nil
}
func (DefaultHandler) EntityReference(string) error { return nil }
