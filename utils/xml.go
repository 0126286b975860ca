package utils

import "strings"

// IsWhiteSpace reports whether c is an XML white space character.
func IsWhiteSpace(c rune) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}

// IsWhiteSpaceOnly reports whether s consists of XML white space only.
func IsWhiteSpaceOnly(s string) bool {
	for _, c := range s {
		if !IsWhiteSpace(c) {
			return false
		}
	}
	return true
}

// GetQualifiedName joins a prefix and a local name into the lexical QName
// form used in document text.
func GetQualifiedName(localName string, prefix *string) string {
	if prefix == nil || *prefix == "" {
		return localName
	}
	return *prefix + ":" + localName
}

// GetPrefixPart extracts the prefix of a lexical QName, or the empty string
// when there is none.
func GetPrefixPart(qname string) string {
	if idx := strings.IndexByte(qname, ':'); idx >= 0 {
		return qname[:idx]
	}
	return ""
}

// GetLocalPart extracts the local part of a lexical QName.
func GetLocalPart(qname string) string {
	if idx := strings.IndexByte(qname, ':'); idx >= 0 {
		return qname[idx+1:]
	}
	return qname
}
