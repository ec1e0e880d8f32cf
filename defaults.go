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
	"slices"
	"sync"
)

var (
	// defNoAttrs contains tags allowed by default rules without attributes of
	// their own.
	defNoAttrs = [...]string{
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p",
		"ul", "ol", "li",
		"em", "strong", "b", "i", "tt", "pre", "code",
		"hr",
		"blockquote",
	}

	// linkTarget handles the `target` attribute of links
	// https://developer.mozilla.org/en-US/docs/Web/HTML/Element/a#target
	linkTarget = [...]string{"_blank", "_top", "_parent", "_self"}

	// brClear handles obsolete `clear` attribute of line breaks
	// https://developer.mozilla.org/en-US/docs/Web/HTML/Element/br#clear
	brClear = [...]string{"left", "right", "all"}

	// blockAlign handles the `align` attribute allowed on every tag.
	blockAlign = [...]string{"left", "right", "center"}

	// defDenyTags are removed with their attributes, but not content.
	defDenyTags = [...]string{"blink", "marquee"}

	// defDenyAttrs are removed from every tag.
	defDenyAttrs = [...]string{"style", "onmouseover", "onclick", "onmouseout"}

	defaultAllow = sync.OnceValue(func() *ruleTree {
		tree, _ := compileRules(DefaultAllowRules(), false)
		return tree
	})

	defaultDeny = sync.OnceValue(func() *ruleTree {
		tree, _ := compileRules(DefaultDenyRules(), true)
		return tree
	})
)

// DefaultAllowRules returns a copy of allow rules used by [New] when neither
// [WithAllow] nor [WithDeny] given.
func DefaultAllowRules() Rules {
	rules := make(Rules, len(defNoAttrs)+4)
	for _, tag := range defNoAttrs {
		rules[tag] = map[string][]string{None: nil}
	}

	rules["a"] = map[string][]string{
		"href":   {Any},
		"name":   {Any},
		"target": slices.Clone(linkTarget[:]),
	}
	rules["br"] = map[string][]string{"clear": slices.Clone(brClear[:])}
	rules["img"] = map[string][]string{
		"src":    {Any},
		"height": {Any},
		"width":  {Any},
		"alt":    {Any},
		"align":  {Any},
	}
	rules[Any] = map[string][]string{"align": slices.Clone(blockAlign[:])}
	return rules
}

// DefaultDenyRules returns a copy of deny rules used by [New] when neither
// [WithAllow] nor [WithDeny] given.
func DefaultDenyRules() Rules {
	rules := make(Rules, len(defDenyTags)+1)
	for _, tag := range defDenyTags {
		rules[tag] = map[string][]string{All: nil}
	}

	attrs := make(map[string][]string, len(defDenyAttrs))
	for _, attr := range defDenyAttrs {
		attrs[attr] = []string{Any}
	}
	rules[Any] = attrs
	return rules
}
