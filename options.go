package tagfilter

import (
	"io"
	"log/slog"

	"golang.org/x/net/html"
)

// AttrCallback can add, remove or modify attributes of a permitted tag before
// they are checked. Returned attributes are checked as usual.
type AttrCallback func(tag string, attrs []html.Attribute) []html.Attribute

// TextCallback can modify text after it has been escaped.
type TextCallback func(text string) string

// Option configures a [Filter] during creation.
type Option func(o *options)

type options struct {
	xss xssGuard

	logRejects    bool
	stripComments bool
	echo          io.Writer

	allow    Rules
	deny     Rules
	allowSet bool
	denySet  bool

	attrCallback AttrCallback
	textCallback TextCallback
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		xss:    newXSSGuard(),
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithLogRejects enables recording of removed tags and attributes. See
// [Filter.Report].
func WithLogRejects() Option {
	return func(o *options) { o.logRejects = true }
}

// WithStripComments removes comments from output.
func WithStripComments() Option {
	return func(o *options) { o.stripComments = true }
}

// WithEcho writes sanitized output to w as soon as it's ready, instead of
// buffering it. Nil w disables echo.
func WithEcho(w io.Writer) Option {
	return func(o *options) { o.echo = w }
}

// SkipXSSProtection disables URL checks and escaping of attribute values and
// text. Only rules are applied.
func SkipXSSProtection() Option {
	return func(o *options) { o.xss.enabled = false }
}

// SkipLtGtEntification disables escaping of < and > in text.
func SkipLtGtEntification() Option {
	return func(o *options) { o.xss.ltgt = false }
}

// SkipMailtoEntification disables percent-encoding of mailto: addresses.
func SkipMailtoEntification() Option {
	return func(o *options) { o.xss.mailto = false }
}

// WithRiskyAttributes replaces the list of attributes, which values are
// checked as URLs. By default they are src, href, cite, lowsrc and
// background.
func WithRiskyAttributes(names ...string) Option {
	return func(o *options) { o.xss.riskyAttrs = newStringSet(names) }
}

// WithPermittedProtocols replaces the list of URL schemes allowed in risky
// attributes. By default they are http, https, mailto and ftp.
func WithPermittedProtocols(schemes ...string) Option {
	return func(o *options) { o.xss.protocols = newStringSet(schemes) }
}

// WithAllowLocalLinks says whether URLs starting with / or ../ are allowed
// whatever they contain. It's true by default.
func WithAllowLocalLinks(allow bool) Option {
	return func(o *options) { o.xss.localLinks = allow }
}

// WithAllow sets allow rules. Default rules are used only if neither WithAllow
// nor [WithDeny] given.
func WithAllow(rules Rules) Option {
	return func(o *options) {
		o.allow, o.allowSet = rules, true
	}
}

// WithDeny sets deny rules. Default rules are used only if neither [WithAllow]
// nor WithDeny given.
func WithDeny(rules Rules) Option {
	return func(o *options) {
		o.deny, o.denySet = rules, true
	}
}

// WithAttrCallback sets a callback, which is called for every permitted tag
// before its attributes are checked.
func WithAttrCallback(fn AttrCallback) Option {
	return func(o *options) { o.attrCallback = fn }
}

// WithTextCallback sets a callback, which is called for every piece of text.
func WithTextCallback(fn TextCallback) Option {
	return func(o *options) { o.textCallback = fn }
}

// WithLogger sets a logger for warnings and rejections. Nothing is logged by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
