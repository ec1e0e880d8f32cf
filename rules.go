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
	"maps"
	"slices"
	"strings"
)

// Reserved rule tokens.
const (
	// Any matches every value when used as a value, every attribute when used
	// as an attribute name and every tag when used as a tag name.
	Any = "any"

	// None says the tag is allowed, but it has no attributes of its own.
	None = "none"

	// All removes the whole tag when used as an attribute name of deny rules
	// and removes the attribute whatever its value when used as a deny value.
	All = "all"
)

// Rules describe allowed or denied markup as tag name -> attribute name ->
// values. See [Any], [None] and [All] for reserved names.
//
//	tagfilter.Rules{
//		"p":   {tagfilter.None: nil},
//		"a":   {"href": {tagfilter.Any}, "target": {"_blank", "_self"}},
//		"any": {"align": {"left", "right", "center"}},
//	}
type Rules map[string]map[string][]string

// ruleTree is compiled Rules. It's never modified after compileRules returned
// it.
type ruleTree struct {
	elements map[string]*element
}

var emptyTree = &ruleTree{}

func compileRules(rules Rules, deny bool) (*ruleTree, []error) {
	if len(rules) == 0 {
		return emptyTree, nil
	}

	tree := &ruleTree{elements: make(map[string]*element, len(rules))}
	var errs []error
	for _, tag := range slices.Sorted(maps.Keys(rules)) {
		name := strings.ToLower(strings.TrimSpace(tag))
		if name == "" {
			errs = append(errs, rulesError("empty tag name"))
			continue
		}
		el, tagErrs := compileElement(name, rules[tag], deny)
		errs = append(errs, tagErrs...)
		tree.elements[name] = el
	}
	return tree, errs
}

func compileElement(tag string, attrs map[string][]string, deny bool,
) (*element, []error) {
	el := &element{attrs: make(map[string]valueSet, len(attrs))}
	var errs []error

	for _, attr := range slices.Sorted(maps.Keys(attrs)) {
		name := strings.ToLower(strings.TrimSpace(attr))
		values := attrs[attr]

		switch name {
		case "":
			errs = append(errs, rulesError("<%s>: empty attribute name", tag))
			continue
		case None:
			continue
		case All:
			if !deny {
				errs = append(errs, rulesError(
					"<%s>: %q is allowed in deny rules only", tag, All))
				continue
			}
			el.all = true
			continue
		case Any:
			if len(values) == 0 {
				values = []string{Any}
			}
		}

		if len(values) == 0 {
			errs = append(errs, rulesError("<%s %s>: no values", tag, name))
			continue
		}
		el.attrs[name] = newValueSet(values)
	}
	return el, errs
}

func (self *ruleTree) Empty() bool { return len(self.elements) == 0 }

func (self *ruleTree) Element(tag string) *element { return self.elements[tag] }

func (self *ruleTree) Wildcard() *element { return self.elements[Any] }

// Merge returns a new tree with elements of other replacing elements of self
// with the same tag name.
func (self *ruleTree) Merge(other *ruleTree) *ruleTree {
	switch {
	case other.Empty():
		return self
	case self.Empty():
		return other
	}

	tree := &ruleTree{elements: maps.Clone(self.elements)}
	maps.Copy(tree.elements, other.elements)
	return tree
}

// Removes returns true if deny rules remove the whole tag.
func (self *ruleTree) Removes(tag string) bool {
	if el := self.Element(tag); el != nil && el.all {
		return true
	}
	w := self.Wildcard()
	return w != nil && w.all
}

// Grants returns true if allow rules permit the tag. The wildcard tag grants
// every tag only with the Any attribute, like
//
//	any: {any: [any]}
//
// otherwise it contributes attribute rules only.
func (self *ruleTree) Grants(tag string) bool {
	if self.Element(tag) != nil {
		return true
	}
	return self.Wildcard().HasAttr(Any)
}

// Denies returns true if deny rules remove attribute attr with given value
// from the tag.
func (self *ruleTree) Denies(tag, attr, value string) bool {
	els := [...]*element{self.Element(tag), self.Wildcard()}

	for _, el := range els {
		if el.HasAttr(Any) {
			return true
		}
	}

	for _, el := range els {
		if values := el.Values(attr); values != nil {
			switch {
			case values.Contains(All), values.Contains(Any):
				return true
			case values.Contains(value):
				return true
			}
		}
	}
	return false
}

// Permits returns true if allow rules list attribute attr with given value,
// either for the tag itself or for any tag.
func (self *ruleTree) Permits(tag, attr, value string) bool {
	return self.Element(tag).Match(attr, value) ||
		self.Wildcard().Match(attr, value)
}

// ruleStore is a pair of allow and deny trees.
type ruleStore struct {
	allow *ruleTree
	deny  *ruleTree
}

func newRuleStore() ruleStore {
	return ruleStore{allow: emptyTree, deny: emptyTree}
}

// Allow merges rules into allow rules. Empty rules clear all allow rules.
func (self *ruleStore) Allow(rules Rules) []error {
	tree, errs := compileRules(rules, false)
	if len(rules) == 0 {
		self.allow = emptyTree
	} else {
		self.allow = self.allow.Merge(tree)
	}
	return errs
}

// Deny merges rules into deny rules. Empty rules clear all deny rules.
func (self *ruleStore) Deny(rules Rules) []error {
	tree, errs := compileRules(rules, true)
	if len(rules) == 0 {
		self.deny = emptyTree
	} else {
		self.deny = self.deny.Merge(tree)
	}
	return errs
}

func (self *ruleStore) Clear() { *self = newRuleStore() }

func (self *ruleStore) HasAllowRules() bool { return !self.allow.Empty() }

func (self *ruleStore) HasDenyRules() bool { return !self.deny.Empty() }

func (self *ruleStore) HasRules() bool {
	return self.HasAllowRules() || self.HasDenyRules()
}

// TagPermitted returns true if tag is allowed. Without any rules nothing is
// allowed.
func (self *ruleStore) TagPermitted(tag string) bool {
	if self.deny.Removes(tag) {
		return false
	}

	switch {
	case self.HasAllowRules():
		return self.allow.Grants(tag)
	case self.HasDenyRules():
		return true
	}
	return false
}

// AttrPermitted returns true if attribute attr with given value is allowed on
// the tag. Deny rules always win.
func (self *ruleStore) AttrPermitted(tag, attr, value string) bool {
	if self.deny.Denies(tag, attr, value) {
		return false
	} else if !self.HasAllowRules() {
		return true
	}
	return self.allow.Permits(tag, attr, value)
}
