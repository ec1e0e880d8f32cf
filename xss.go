package tagfilter

import "strings"

var (
	// attrEscaper replaces quotes and angle brackets of attribute values, so
	// they can't break out of double quoted attribute.
	attrEscaper = strings.NewReplacer(
		`"`, "&quot;",
		"'", "&rsquot;",
		"<", "&lt;",
		">", "&gt;",
	)

	ltgtEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

	defRiskyAttrs = [...]string{"src", "href", "cite", "lowsrc", "background"}

	defProtocols = [...]string{"http", "https", "mailto", "ftp"}
)

// xssGuard validates URL bearing attribute values and escapes values and text
// for output.
type xssGuard struct {
	enabled bool
	ltgt    bool
	mailto  bool

	riskyAttrs map[string]struct{}
	protocols  map[string]struct{}
	localLinks bool
}

func newXSSGuard() xssGuard {
	return xssGuard{
		enabled:    true,
		ltgt:       true,
		mailto:     true,
		riskyAttrs: newStringSet(defRiskyAttrs[:]),
		protocols:  newStringSet(defProtocols[:]),
		localLinks: true,
	}
}

func newStringSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return set
}

// AttrValue escapes quotes and angle brackets of attribute value and
// obfuscates mailto: links of href.
func (self *xssGuard) AttrValue(attr, value string) string {
	if !self.enabled {
		return value
	}

	value = attrEscaper.Replace(value)
	if attr == "href" && self.mailto {
		value = obfuscateMailto(value)
	}
	return value
}

// Text escapes angle brackets of text content.
func (self *xssGuard) Text(s string) string {
	if self.enabled && self.ltgt {
		return ltgtEscaper.Replace(s)
	}
	return s
}

// URLPermitted returns false if attr is a risky attribute and its value
// references a protocol which isn't permitted.
func (self *xssGuard) URLPermitted(attr, value string) bool {
	if !self.enabled {
		return true
	} else if _, ok := self.riskyAttrs[attr]; !ok {
		return true
	}

	if attr == "srcset" {
		return self.srcSetPermitted(value)
	}
	return self.urlPermitted(value)
}

func (self *xssGuard) urlPermitted(value string) bool {
	if self.localLinks &&
		(strings.HasPrefix(value, "/") || strings.HasPrefix(value, "../")) {
		return true
	}

	scheme, _, found := strings.Cut(value, ":")
	if !found {
		// relative reference
		return true
	}

	_, ok := self.protocols[strings.ToLower(scheme)]
	return ok
}
