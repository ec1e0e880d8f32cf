package tagfilter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type tokenizer struct {
	*html.Tokenizer

	token token
}

func newTokenizer(r io.Reader) *tokenizer {
	return &tokenizer{
		Tokenizer: html.NewTokenizer(r),
		token:     token{Token: html.Token{Attr: []html.Attribute{}}},
	}
}

func (self *tokenizer) Next() html.TokenType {
	t := &self.token
	t.Type = self.Tokenizer.Next()
	t.Reset()
	return t.Type
}

func (self *tokenizer) Token() *token {
	t := &self.token
	switch t.Type {
	case html.TextToken, html.CommentToken, html.DoctypeToken:
		t.Data = string(self.Text())
	case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
		name, moreAttr := self.TagName()
		for moreAttr {
			var key, val []byte
			key, val, moreAttr = self.TagAttr()
			t.Attr = append(t.Attr,
				html.Attribute{Key: atom.String(key), Val: string(val)})
		}
		if a := atom.Lookup(name); a != 0 {
			t.DataAtom, t.Data = a, a.String()
		} else {
			t.DataAtom, t.Data = 0, string(name)
		}
	}
	return t
}

// nextToken returns next token or nil at the end of input.
func nextToken(t *tokenizer) (*token, error) {
	if t.Next() != html.ErrorToken {
		return t.Token(), nil
	}

	err := t.Err()
	if errors.Is(err, io.EOF) {
		// End of input means end of processing
		return nil, nil
	}
	// Raw tokenizer error
	return nil, fmt.Errorf(genericErrMsg, err)
}

// rawTextTags hold raw text up to their end tag, so markup inside them is
// text.
var rawTextTags = map[string]struct{}{
	"iframe":   {},
	"noembed":  {},
	"noframes": {},
	"noscript": {},
	"script":   {},
	"style":    {},
	"textarea": {},
	"title":    {},
	"xmp":      {},
}

// splitPending splits streamed chunk into a part, which can be tokenized now,
// and a tail of unterminated tag, comment or raw text element, which must wait
// for next chunk.
func splitPending(s string) (string, string) {
	for i := 0; i < len(s); {
		j := strings.IndexByte(s[i:], '<')
		if j < 0 {
			break
		}
		i += j

		n := markupLen(s[i:])
		if n < 0 {
			return s[:i], s[i:]
		}

		if name := startTagName(s[i : i+n]); name != "" {
			if _, ok := rawTextTags[name]; ok {
				end := indexFold(s[i+n:], "</"+name)
				if end < 0 {
					return s[:i], s[i:]
				}
				n += end
			}
		}
		i += n
	}
	return s, ""
}

// markupLen returns length of the tag or comment at the start of s, 1 if its
// '<' starts text, or -1 if it isn't terminated in s.
func markupLen(s string) int {
	if len(s) < len("<!--") && strings.HasPrefix("<!--", s) {
		return -1
	} else if strings.HasPrefix(s, "<!--") {
		if i := strings.Index(s[len("<!--"):], "-->"); i >= 0 {
			return i + len("<!---->")
		}
		return -1
	}

	switch c := s[1]; {
	case c == '/', c == '!', c == '?', isASCIILetter(c):
	default:
		return 1
	}

	// quotes open attribute values only after '='
	var quote, last byte
	for i := 2; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case (c == '"' || c == '\'') && last == '=':
			quote = c
		case c == '>':
			return i + 1
		}
		if !isSpace(c) {
			last = c
		}
	}
	return -1
}

// startTagName returns lower-cased name of start tag s or "".
func startTagName(s string) string {
	if len(s) < 2 || !isASCIILetter(s[1]) {
		return ""
	}

	end := 1
	for end < len(s) && !isSpace(s[end]) && s[end] != '/' && s[end] != '>' {
		end++
	}
	return strings.ToLower(s[1:end])
}

func indexFold(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
