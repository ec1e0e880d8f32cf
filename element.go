package tagfilter

import "strings"

type valueSet map[string]struct{}

func newValueSet(values []string) valueSet {
	set := make(valueSet, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

func (self valueSet) Contains(value string) bool {
	_, ok := self[strings.ToLower(value)]
	return ok
}

// element holds compiled rules of one tag: attribute name -> values.
type element struct {
	attrs map[string]valueSet

	// all is set for deny rules, which remove the whole tag.
	all bool
}

func (self *element) Values(attr string) valueSet {
	if self == nil {
		return nil
	}
	return self.attrs[attr]
}

func (self *element) HasAttr(attr string) bool {
	if self == nil {
		return false
	}
	_, ok := self.attrs[attr]
	return ok
}

// Match returns true if attribute attr with given value is listed, directly
// or through the Any attribute, with the exact value or the Any value.
func (self *element) Match(attr, value string) bool {
	if self == nil {
		return false
	}

	for _, key := range [...]string{attr, Any} {
		if values, ok := self.attrs[key]; ok {
			if values.Contains(Any) || values.Contains(value) {
				return true
			}
		}
	}
	return false
}
