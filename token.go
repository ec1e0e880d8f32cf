package tagfilter

import (
	"strings"

	"golang.org/x/net/html"
)

type token struct {
	html.Token
}

func (self *token) Append(attr html.Attribute) {
	self.Attr = append(self.Attr, attr)
}

// Reset returns current attributes and empties the list, reusing its backing
// array. It's safe to Append while iterating over returned attributes, as
// long as every attribute appended at most once.
func (self *token) Reset() []html.Attribute {
	attrs := self.Attr
	self.Attr = self.Attr[:0]
	return attrs
}

// StartTag returns the start tag with its attributes. Attribute values must be
// escaped already.
func (self *token) StartTag() string {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(self.Data)
	for _, attr := range self.Attr {
		sb.WriteByte(' ')
		sb.WriteString(attr.Key)
		sb.WriteString(`="`)
		sb.WriteString(attr.Val)
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	return sb.String()
}

func closeTag(name string) string { return "</" + name + ">" }
