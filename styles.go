package tagfilter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/parser"
)

var (
	cssUnicodeChar = regexp.MustCompile(`\\[0-9a-f]{1,6} ?`)
	cssURL         = regexp.MustCompile(`url\(\s*['"]?([^'")\s]*)`)

	// cssKeywords can't appear in values of style declarations.
	cssKeywords = [...]string{"expression(", "javascript:", "vbscript:"}

	// cssProperties are never allowed, because they bind scripts.
	cssProperties = [...]string{"behavior", "-moz-binding"}
)

// StylePermitted returns false if attr is a style attribute with scripting
// keywords or url() of a protocol which isn't permitted.
func (self *xssGuard) StylePermitted(attr, value string) bool {
	if !self.enabled || attr != "style" {
		return true
	}

	// Add semi-colon to end to fix parsing issue
	value = strings.TrimRight(value, " ")
	if value == "" {
		return true
	} else if value[len(value)-1] != ';' {
		value += ";"
	}

	decs, err := parser.ParseDeclarations(value)
	if err != nil {
		return false
	}

	for _, dec := range decs {
		property := strings.ToLower(strings.TrimSpace(dec.Property))
		for _, s := range cssProperties {
			if property == s {
				return false
			}
		}

		v, ok := removeUnicode(strings.ToLower(dec.Value))
		if !ok || !self.cssValuePermitted(v) {
			return false
		}
	}
	return true
}

func (self *xssGuard) cssValuePermitted(value string) bool {
	for _, keyword := range cssKeywords {
		if strings.Contains(value, keyword) {
			return false
		}
	}

	for _, m := range cssURL.FindAllStringSubmatch(value, -1) {
		if !self.urlPermitted(m[1]) {
			return false
		}
	}
	return true
}

// removeUnicode replaces CSS escapes like \6a by characters they encode.
func removeUnicode(value string) (string, bool) {
	substitutedValue := value
	currentLoc := cssUnicodeChar.FindStringIndex(substitutedValue)
	for currentLoc != nil {
		character := substitutedValue[currentLoc[0]+1 : currentLoc[1]]
		character = strings.TrimSpace(character)
		if len(character) < 4 {
			character = strings.Repeat("0", 4-len(character)) + character
		} else {
			for len(character) > 4 {
				if character[0] != '0' {
					return "", false
				}
				character = character[1:]
			}
		}

		translatedChar, err := strconv.Unquote(`"\u` + character + `"`)
		if err != nil {
			return "", false
		}
		translatedChar = strings.TrimSpace(translatedChar)
		substitutedValue = substitutedValue[0:currentLoc[0]] + translatedChar +
			substitutedValue[currentLoc[1]:]
		currentLoc = cssUnicodeChar.FindStringIndex(substitutedValue)
	}
	return substitutedValue, true
}
