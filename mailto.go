package tagfilter

import "strings"

const (
	mailtoPrefix = "mailto:"
	upperhex     = "0123456789ABCDEF"
)

// obfuscateMailto percent-encodes every byte of the address of a mailto: link,
// leaving the scheme as is. Browsers and mail clients still understand the
// link, but naive address harvesters don't.
func obfuscateMailto(value string) string {
	if len(value) < len(mailtoPrefix) ||
		!strings.EqualFold(value[:len(mailtoPrefix)], mailtoPrefix) {
		return value
	}

	addr := value[len(mailtoPrefix):]
	var sb strings.Builder
	sb.Grow(len(mailtoPrefix) + 3*len(addr))
	sb.WriteString(value[:len(mailtoPrefix)])
	for i := range len(addr) {
		c := addr[i]
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}
	return sb.String()
}
