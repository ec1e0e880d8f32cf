// Copyright (c) 2014, David Kitchen <david@buro9.com>
//
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
//
// * Redistributions of source code must retain the above copyright notice, this
//   list of conditions and the following disclaimer.
//
// * Redistributions in binary form must reproduce the above copyright notice,
//   this list of conditions and the following disclaimer in the documentation
//   and/or other materials provided with the distribution.
//
// * Neither the name of the organisation (Microcosm) nor the names of its
//   contributors may be used to endorse or promote products derived from
//   this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE LIABLE
// FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL
// DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER
// CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY,
// OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

package tagfilter

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

// Filter removes tags and attributes not permitted by its allow and deny
// rules, drops attributes with dangerous URLs and escapes whatever could
// break out of attribute values or text.
//
// Filter keeps output and rejections of current document, so it's not safe
// for concurrent use. Use one Filter per goroutine.
type Filter struct {
	rules   ruleStore
	xss     xssGuard
	out     output
	journal journal

	stripComments bool
	attrCallback  AttrCallback
	textCallback  TextCallback

	// pending is unterminated tail of last streamed chunk.
	pending string
}

// New returns a Filter configured by given options. If neither [WithAllow]
// nor [WithDeny] given, it uses [DefaultAllowRules] and [DefaultDenyRules].
func New(opts ...Option) *Filter {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	self := &Filter{
		rules: newRuleStore(),
		xss:   o.xss,
		out:   output{echo: o.echo},
		journal: journal{
			logRejects: o.logRejects,
			logger:     o.logger.With(slog.String("area", "tagfilter")),
		},
		stripComments: o.stripComments,
		attrCallback:  o.attrCallback,
		textCallback:  o.textCallback,
	}

	if !o.allowSet && !o.denySet {
		self.rules.allow, self.rules.deny = defaultAllow(), defaultDeny()
		return self
	}

	self.Allow(o.allow)
	self.Deny(o.deny)
	return self
}

// NewFromConfig returns a Filter configured by cfg. Warnings of cfg are
// copied into [Filter.ErrorLog].
func NewFromConfig(cfg *Config, opts ...Option) *Filter {
	self := New(append(cfg.Options(), opts...)...)
	self.journal.Warn(cfg.warnings...)
	return self
}

// Allow merges rules into allow rules. Rules of a tag replace all previous
// rules of the same tag. Empty rules remove all allow rules.
func (self *Filter) Allow(rules Rules) *Filter {
	self.journal.Warn(self.rules.Allow(rules)...)
	return self
}

// Deny merges rules into deny rules. Rules of a tag replace all previous
// rules of the same tag. Empty rules remove all deny rules.
func (self *Filter) Deny(rules Rules) *Filter {
	self.journal.Warn(self.rules.Deny(rules)...)
	return self
}

// ClearRules removes all allow and deny rules. Without rules nothing is
// permitted, only text passes.
func (self *Filter) ClearRules() *Filter {
	self.rules.Clear()
	return self
}

// HasAllowRules returns true if any allow rules configured.
func (self *Filter) HasAllowRules() bool { return self.rules.HasAllowRules() }

// HasDenyRules returns true if any deny rules configured.
func (self *Filter) HasDenyRules() bool { return self.rules.HasDenyRules() }

// HasRules returns true if any allow or deny rules configured.
func (self *Filter) HasRules() bool { return self.rules.HasRules() }

// SetRiskyAttributes replaces the list of attributes, which values are
// checked as URLs.
func (self *Filter) SetRiskyAttributes(names ...string) *Filter {
	self.xss.riskyAttrs = newStringSet(names)
	return self
}

// SetPermittedProtocols replaces the list of URL schemes allowed in risky
// attributes.
func (self *Filter) SetPermittedProtocols(schemes ...string) *Filter {
	self.xss.protocols = newStringSet(schemes)
	return self
}

// SetAllowLocalLinks says whether URLs starting with / or ../ are allowed
// whatever they contain.
func (self *Filter) SetAllowLocalLinks(allow bool) *Filter {
	self.xss.localLinks = allow
	return self
}

// Filter takes a string that contains a HTML fragment or document and applies
// the rules.
//
// It returns a HTML string that has been sanitized. In echo mode output goes
// to the echo writer and it returns an empty string.
func (self *Filter) Filter(s string) string {
	self.reset()
	// strings.Reader never fails
	_ = self.filter(strings.NewReader(s))
	return self.Output()
}

// FilterBytes is like [Filter.Filter], but for []byte.
func (self *Filter) FilterBytes(b []byte) []byte {
	return []byte(self.Filter(string(b)))
}

// FilterReader takes an io.Reader that contains a HTML fragment or document
// and applies the rules. It returns an error if r returns one.
func (self *Filter) FilterReader(r io.Reader) (string, error) {
	self.reset()
	if err := self.filter(r); err != nil {
		self.out.Reset()
		return "", err
	}
	return self.Output(), nil
}

// Parse applies the rules to a chunk of a document. Use it for streaming many
// chunks into one document and [Filter.Output] for getting the result. Chunk
// ending in the middle of a tag, a comment or content of a raw text element,
// like script, keeps its tail until next Parse or Output.
func (self *Filter) Parse(chunk string) {
	data, pending := splitPending(self.pending + chunk)
	self.pending = pending
	if data == "" {
		return
	}

	// strings.Reader never fails
	_ = self.filter(strings.NewReader(data))
}

// Output returns and clears sanitized text of the document streamed by
// [Filter.Parse].
func (self *Filter) Output() string {
	if self.pending != "" {
		_ = self.filter(strings.NewReader(self.pending))
		self.pending = ""
	}

	s, ok := self.out.Take()
	if !ok {
		self.journal.Warn(fmt.Errorf(
			"tagfilter: %w: all input removed, check the rules", ErrEmptyOutput))
	}
	return s
}

// Report returns and clears the list of removed tags and attributes. It's
// empty unless [WithLogRejects] given.
func (self *Filter) Report() []Rejection { return self.journal.Drain() }

// ReportText is like [Filter.Report], but returns human readable lines.
func (self *Filter) ReportText() string {
	return formatReport(self.journal.Drain())
}

// ErrorLog returns all warnings collected by this Filter since it was created
// or [Filter.DrainErrorLog] called. Documents don't reset it.
func (self *Filter) ErrorLog() []error { return self.journal.Errors() }

// DrainErrorLog returns and clears collected warnings. Long living filters
// should call it from time to time, because the error log isn't limited.
func (self *Filter) DrainErrorLog() []error { return self.journal.DrainErrors() }

func (self *Filter) reset() {
	self.out.Reset()
	self.journal.Drain()
	self.pending = ""
}

func (self *Filter) filter(r io.Reader) error {
	tokenizer := newTokenizer(&inputReader{r: r, out: &self.out})
	for {
		t, err := nextToken(tokenizer)
		if err != nil || t == nil {
			if err != nil {
				self.journal.Warn(err)
			}
			return err
		}

		switch t.Type {
		case html.DoctypeToken:

			// DocType is not handled as there is no safe parsing mechanism
			// provided by golang.org/x/net/html for the content, and this can
			// be misused to insert HTML tags that are not then sanitized

		case html.CommentToken:
			self.comment(t.Data)

		case html.StartTagToken, html.SelfClosingTagToken:
			self.startTag(t)

		case html.EndTagToken:
			self.endTag(t.Data)

		case html.TextToken:
			self.text(t.Data)
		}
	}
}

func (self *Filter) startTag(t *token) {
	if !self.rules.TagPermitted(t.Data) {
		self.journal.Reject(Rejection{Tag: t.Data, Reason: RejectTag})
		return
	}

	attrs := t.Reset()
	if self.attrCallback != nil {
		attrs = self.attrCallback(t.Data, attrs)
	}

	for _, attr := range attrs {
		switch {
		case !self.rules.AttrPermitted(t.Data, attr.Key, attr.Val):
			self.rejectAttr(t.Data, attr, RejectAttr)
		case !self.xss.URLPermitted(attr.Key, attr.Val),
			!self.xss.StylePermitted(attr.Key, attr.Val):
			self.rejectAttr(t.Data, attr, RejectURL)
		default:
			attr.Val = self.xss.AttrValue(attr.Key, attr.Val)
			t.Append(attr)
		}
	}
	self.write(t.StartTag())
}

func (self *Filter) rejectAttr(tag string, attr html.Attribute, reason Reason) {
	self.journal.Reject(Rejection{
		Tag:    tag,
		Attr:   attr.Key,
		Value:  attr.Val,
		Reason: reason,
	})
}

// endTag writes the end tag if the tag is permitted now. It doesn't remember
// whether its start tag was written, so changing rules in the middle of a
// document can leave unbalanced tags.
func (self *Filter) endTag(name string) {
	if self.rules.TagPermitted(name) {
		self.write(closeTag(name))
	}
}

func (self *Filter) text(s string) {
	s = self.xss.Text(s)
	if self.textCallback != nil {
		s = self.textCallback(s)
	}
	self.write(s)
}

// comment writes the comment escaped like text, so it can't be closed early by
// --> in its content.
func (self *Filter) comment(s string) {
	if self.stripComments {
		return
	}
	self.write("<!--" + self.xss.Text(s) + "-->")
}

func (self *Filter) write(s string) {
	if err := self.out.Append(s); err != nil {
		self.journal.Warn(err)
	}
}
