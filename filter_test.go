package tagfilter

import (
	"bytes"
	_ "embed"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

//go:embed testdata/article.html
var articleHTML string

func BenchmarkFilter(b *testing.B) {
	f := New(WithLogRejects())

	b.ReportAllocs()
	for b.Loop() {
		f.Filter(articleHTML)
		f.Report()
	}
}

// test is a simple input vs output struct used to construct a slice of many
// tests to run within a single test method.
type test struct {
	in       string
	expected string
}

func TestEmpty(t *testing.T) {
	f := New()
	assert.Empty(t, f.Filter(""))
	assert.Equal(t, "\t\n \n\t", f.Filter("\t\n \n\t"))
	assert.Empty(t, f.ErrorLog())
}

func TestFilter_defaultRules(t *testing.T) {
	tests := []test{
		{
			in:       `<p>testing</p>`,
			expected: `<p>testing</p>`,
		},
		{
			in:       `<blink>testing</blink>`,
			expected: `testing`,
		},
		{
			in:       `<marquee behavior="scroll">testing</marquee>`,
			expected: `testing`,
		},
		{
			in:       `<p align="rubbish">testing</p>`,
			expected: `<p>testing</p>`,
		},
		{
			in:       `<p align="left">testing</p>`,
			expected: `<p align="left">testing</p>`,
		},
		{
			in:       `<P ALIGN="Center">testing</P>`,
			expected: `<p align="Center">testing</p>`,
		},
		{
			in:       `<div>testing</div>`,
			expected: `testing`,
		},
		{
			in:       `<script>alert(1)</script>`,
			expected: `alert(1)`,
		},
		{
			in:       `<a href="http://example.com/" target="_blank">link</a>`,
			expected: `<a href="http://example.com/" target="_blank">link</a>`,
		},
		{
			in:       `<a href="page.html" target="_new">link</a>`,
			expected: `<a href="page.html">link</a>`,
		},
		{
			in:       `<a href="page.html" onclick="evil()">link</a>`,
			expected: `<a href="page.html">link</a>`,
		},
		{
			in:       `<a href="/local:thing">link</a>`,
			expected: `<a href="/local:thing">link</a>`,
		},
		{
			in:       `<a href="ftp://example.com/">link</a>`,
			expected: `<a href="ftp://example.com/">link</a>`,
		},
		{
			in:       `<a href="data:text/html;base64,PHNjcmlwdD4=">link</a>`,
			expected: `<a>link</a>`,
		},
		{
			in:       `<p style="color: red">testing</p>`,
			expected: `<p>testing</p>`,
		},
		{
			in:       `<br clear="all"/>`,
			expected: `<br clear="all">`,
		},
		{
			in:       `<hr/>`,
			expected: `<hr>`,
		},
		{
			in:       `<img src="/images/cat.png" alt="cat" width="10">`,
			expected: `<img src="/images/cat.png" alt="cat" width="10">`,
		},
		{
			in:       `<img src="javascript:alert(1)">`,
			expected: `<img>`,
		},
		{
			in:       `<img src="JaVaScRiPt:alert(1)" alt="x">`,
			expected: `<img alt="x">`,
		},
		{
			in:       `<img src="image.png" onerror="alert(1)">`,
			expected: `<img src="image.png">`,
		},
		{
			in:       `<blockquote cite="javascript:alert(1)">quote</blockquote>`,
			expected: `<blockquote>quote</blockquote>`,
		},
		{
			in:       `<a href="mailto:will@x.org">w</a>`,
			expected: `<a href="mailto:%77%69%6C%6C%40%78%2E%6F%72%67">w</a>`,
		},
		{
			in:       `<img alt="&quot;&gt;&lt;script&gt;alert(1)&lt;/script&gt;">`,
			expected: `<img alt="&quot;&gt;&lt;script&gt;alert(1)&lt;/script&gt;">`,
		},
		{
			in:       `<img alt="it's">`,
			expected: `<img alt="it&rsquot;s">`,
		},
		{
			in:       `1 &lt; 2`,
			expected: `1 &lt; 2`,
		},
		{
			in:       `<!-- note -->`,
			expected: `<!-- note -->`,
		},
		{
			in:       `<!-- <script>alert(1)</script> -->`,
			expected: `<!-- &lt;script&gt;alert(1)&lt;/script&gt; -->`,
		},
		{
			in:       `<!DOCTYPE html><p>testing</p>`,
			expected: `<p>testing</p>`,
		},
		{
			in:       `<img alt="<!--"><p>hello</p>`,
			expected: `<img alt="&lt;!--"><p>hello</p>`,
		},
		{
			in:       `<script>var a = "<!--";</script><p>hello</p>`,
			expected: `var a = "&lt;!--";<p>hello</p>`,
		},
		{
			in:       `<script>a<b`,
			expected: `a&lt;b`,
		},
		{
			in:       `<style>p > a { color: red }</style>`,
			expected: `p &gt; a { color: red }`,
		},
	}

	f := New()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Filter(tt.in))
		})
	}
	assert.Empty(t, f.ErrorLog())
}

func TestAllowOnly(t *testing.T) {
	f := New(WithAllow(Rules{"p": {"class": {"lurid", "sombre", "plain"}}}))
	assert.False(t, f.HasDenyRules())

	assert.Equal(t, `<p class="lurid">testing</p>`,
		f.Filter(`<p class="lurid"><b>testing</b></p>`))
	assert.Equal(t, `<p>testing</p>`,
		f.Filter(`<p class="gaudy">testing</p>`))
}

func TestFailClosed(t *testing.T) {
	f := New(WithAllow(nil), WithDeny(nil))
	assert.False(t, f.HasRules())
	assert.Equal(t, "x", f.Filter("<p>x</p>"))

	f = New().ClearRules()
	assert.Equal(t, "x &lt;3", f.Filter(`<p align="left">x</p> <3`))
}

func TestTagDenySupremacy(t *testing.T) {
	allows := []Rules{
		{"blink": nil},
		{"blink": {Any: {Any}}},
		{Any: {Any: {Any}}},
	}

	for _, allow := range allows {
		f := New(WithAllow(allow), WithDeny(Rules{"blink": {All: nil}}))
		out := f.Filter(`<blink class="x">y</blink>`)
		assert.Equal(t, "y", out)
		assert.NotContains(t, out, "blink")
	}
}

func TestAttrOrder(t *testing.T) {
	f := New(WithAllow(Rules{
		"a": {"title": {Any}, "href": {Any}, "name": {Any}},
	}))

	tests := []test{
		{
			in:       `<a name="n" title="t" href="/x">link</a>`,
			expected: `<a name="n" title="t" href="/x">link</a>`,
		},
		{
			in:       `<a href="/x" id="i" name="n" title="t">link</a>`,
			expected: `<a href="/x" name="n" title="t">link</a>`,
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, f.Filter(tt.in))
	}
}

func TestQuotes(t *testing.T) {
	f := New(WithAllow(Rules{"a": {"title": {Any}, "href": {Any}}}))
	out := f.Filter(`<a title="&quot;><script>alert(1)</script>" href="/x">l</a>`)
	assert.Equal(t,
		`<a title="&quot;&gt;&lt;script&gt;alert(1)&lt;/script&gt;" href="/x">l</a>`,
		out)
	assert.NotContains(t, out, "<script>")
}

func TestReport(t *testing.T) {
	f := New(WithLogRejects())
	assert.Equal(t, `<img>`, f.Filter(`<img src="javascript:alert(1)">`))
	assert.Equal(t, []Rejection{
		{
			Tag:    "img",
			Attr:   "src",
			Value:  "javascript:alert(1)",
			Reason: RejectURL,
		},
	}, f.Report())
	assert.Empty(t, f.Report())

	f.Filter(`<blink>x</blink><p align="rubbish">y</p>`)
	assert.Equal(t, "tag <blink> removed\n"+
		`attribute align="rubbish" removed from <p>: attribute not permitted`+"\n",
		f.ReportText())
	assert.Empty(t, f.ReportText())

	f.Filter(`<blink>x</blink>`)
	f.Filter(`<p>x</p>`)
	assert.Empty(t, f.Report(), "reset by Filter")
}

func TestReport_disabled(t *testing.T) {
	f := New()
	f.Filter(`<blink>x</blink>`)
	assert.Empty(t, f.Report())
	assert.Empty(t, f.ReportText())
}

func TestStreaming(t *testing.T) {
	tests := []struct {
		name     string
		chunks   []string
		expected string
	}{
		{
			name:     "split tag",
			chunks:   []string{`<p cla`, `ss="x">hi`, `</p>`},
			expected: `<p class="x">hi</p>`,
		},
		{
			name:     "split comment",
			chunks:   []string{`<!-- a > b`, ` -->x`},
			expected: `<!-- a &gt; b -->x`,
		},
		{
			name:     "trailing lt",
			chunks:   []string{`1 <`, ` 2`},
			expected: `1 &lt; 2`,
		},
		{
			name:     "unterminated tag dropped",
			chunks:   []string{`<p class="x">hi</p><b`},
			expected: `<p class="x">hi</p>`,
		},
		{
			name:     "split quoted gt",
			chunks:   []string{`<a title="1>0`, `" href="/x">l</a>`},
			expected: `<a title="1&gt;0" href="/x">l</a>`,
		},
		{
			name:     "comment start in value",
			chunks:   []string{`<img alt="<!--">`, `<p>hello</p>`},
			expected: `<img alt="&lt;!--"><p>hello</p>`,
		},
		{
			name:     "split script",
			chunks:   []string{`<script>var a = "<!--";`, `</script><p>hello</p>`},
			expected: `var a = "&lt;!--";<p>hello</p>`,
		},
	}

	f := New(WithAllow(Rules{
		"p":   {"class": {Any}},
		"a":   {"title": {Any}, "href": {Any}},
		"img": {"alt": {Any}},
	}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range tt.chunks {
				f.Parse(s)
			}
			assert.Equal(t, tt.expected, f.Output())
			assert.Equal(t, tt.expected, f.Filter(strings.Join(tt.chunks, "")))
		})
	}
}

func TestChangeRulesMidDocument(t *testing.T) {
	f := New()
	f.Parse("<b>x")
	f.Deny(Rules{"b": {All: nil}})
	f.Parse("</b>")
	assert.Equal(t, "<b>x", f.Output())

	assert.Equal(t, "<b>x</b>", New().Filter("<b>x</b>"),
		"default rules not changed")
}

func TestEcho(t *testing.T) {
	var buf bytes.Buffer
	f := New(WithEcho(&buf))

	assert.Empty(t, f.Filter(`<p>x</p><blink>y</blink>`))
	assert.Equal(t, `<p>x</p>y`, buf.String())
	assert.Empty(t, f.ErrorLog())

	f.Parse("<b>")
	assert.Equal(t, `<p>x</p>y<b>`, buf.String(), "written before Output")
	assert.Empty(t, f.Output())
}

func TestEcho_writeError(t *testing.T) {
	errWrite := errors.New("test error")
	f := New(WithEcho(&errWriter{err: errWrite}))

	assert.Empty(t, f.Filter(`<p>x</p>`))
	errs := f.ErrorLog()
	require.NotEmpty(t, errs)
	assert.ErrorIs(t, errs[0], errWrite)
}

type errWriter struct {
	err error
}

func (self *errWriter) Write([]byte) (int, error) { return 0, self.err }

func TestEmptyOutput(t *testing.T) {
	f := New(WithAllow(nil), WithDeny(nil))
	assert.Empty(t, f.Filter(`<p></p>`))

	errs := f.ErrorLog()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrEmptyOutput)

	assert.Equal(t, "  ", f.Filter("  "))
	assert.Len(t, f.ErrorLog(), 1)
}

func TestDrainErrorLog(t *testing.T) {
	f := New(WithAllow(nil), WithDeny(nil))
	f.Filter(`<p></p>`)
	f.Filter(`<b></b>`)
	require.Len(t, f.ErrorLog(), 2, "not reset by Filter")

	errs := f.DrainErrorLog()
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrEmptyOutput)
	}
	assert.Empty(t, f.ErrorLog())
	assert.Empty(t, f.DrainErrorLog())
}

func TestComments(t *testing.T) {
	assert.Equal(t, "ac", New(WithStripComments()).Filter("a<!-- b -->c"))
	assert.Equal(t, "a<!-- b -->c", New().Filter("a<!-- b -->c"))
	assert.Equal(t, `<img alt="&lt;!--"><p>hello</p>`,
		New(WithStripComments()).Filter(`<img alt="<!--"><p>hello</p>`))
	assert.Equal(t, "<!-- <p>x</p> -->",
		New(SkipLtGtEntification()).Filter("<!-- <p>x</p> -->"))
}

func TestSkipXSSProtection(t *testing.T) {
	f := New(SkipXSSProtection())
	assert.Equal(t, `<img src="javascript:alert(1)" alt="a'b">`,
		f.Filter(`<img src="javascript:alert(1)" alt="a'b">`))
	assert.Equal(t, "1 < 2", f.Filter("1 &lt; 2"))
	assert.Equal(t, `<a href="mailto:a@b.c">x</a>`,
		f.Filter(`<a href="mailto:a@b.c">x</a>`))
}

func TestSkipLtGtEntification(t *testing.T) {
	f := New(SkipLtGtEntification())
	assert.Equal(t, "1 < 2", f.Filter("1 &lt; 2"))
	assert.Equal(t, `<img alt="&lt;b&gt;">`, f.Filter(`<img alt="<b>">`))
}

func TestSkipMailtoEntification(t *testing.T) {
	f := New(SkipMailtoEntification())
	assert.Equal(t, `<a href="mailto:a@b.c">x</a>`,
		f.Filter(`<a href="mailto:a@b.c">x</a>`))
}

func TestSetters(t *testing.T) {
	f := New().SetPermittedProtocols("https")
	assert.Equal(t, `<a>x</a>`, f.Filter(`<a href="http://example.com/">x</a>`))
	assert.Equal(t, `<a href="https://example.com/">x</a>`,
		f.Filter(`<a href="https://example.com/">x</a>`))

	f = New().SetAllowLocalLinks(false)
	assert.Equal(t, `<a>x</a>`, f.Filter(`<a href="/local:thing">x</a>`))
	assert.Equal(t, `<a href="/local">x</a>`, f.Filter(`<a href="/local">x</a>`))

	f = New().SetRiskyAttributes("src")
	assert.Equal(t, `<a href="javascript:x">y</a>`,
		f.Filter(`<a href="javascript:x">y</a>`))
	assert.Equal(t, `<img>`, f.Filter(`<img src="javascript:x">`))
}

func TestOptions(t *testing.T) {
	f := New(
		WithRiskyAttributes("href"),
		WithPermittedProtocols("HTTPS"),
		WithAllowLocalLinks(false),
	)
	assert.Equal(t, `<img src="javascript:x">`, f.Filter(`<img src="javascript:x">`))
	assert.Equal(t, `<a>x</a>`, f.Filter(`<a href="/local:thing">x</a>`))
	assert.Equal(t, `<a href="https://example.com/">x</a>`,
		f.Filter(`<a href="https://example.com/">x</a>`))
}

func TestStyles(t *testing.T) {
	tests := []test{
		{
			in:       `<p style="color: red">x</p>`,
			expected: `<p style="color: red">x</p>`,
		},
		{
			in:       `<p style="width: expression(alert(1))">x</p>`,
			expected: `<p>x</p>`,
		},
		{
			in:       `<p style="background: url(javascript:alert(1))">x</p>`,
			expected: `<p>x</p>`,
		},
		{
			in:       `<p style="background: url(http://example.com/a.png)">x</p>`,
			expected: `<p style="background: url(http://example.com/a.png)">x</p>`,
		},
	}

	f := New(WithAllow(Rules{"p": {"style": {Any}}}), WithLogRejects())
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Filter(tt.in))
		})
	}

	f.Filter(`<p style="width: expression(alert(1))">x</p>`)
	rejections := f.Report()
	require.Len(t, rejections, 1)
	assert.Equal(t, RejectURL, rejections[0].Reason)
}

func TestSrcSet(t *testing.T) {
	f := New(
		WithAllow(Rules{"img": {"srcset": {Any}, "src": {Any}}}),
		WithRiskyAttributes("src", "srcset"),
	)

	tests := []test{
		{
			in:       `<img srcset="a.jpg 1x, http://example.com/b.jpg 2x">`,
			expected: `<img srcset="a.jpg 1x, http://example.com/b.jpg 2x">`,
		},
		{
			in:       `<img srcset="a.jpg 1x, javascript:alert(1) 2x" src="a.jpg">`,
			expected: `<img src="a.jpg">`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Filter(tt.in))
		})
	}
}

func TestCallbackForAttributes(t *testing.T) {
	f := New(WithAttrCallback(
		func(tag string, attrs []html.Attribute) []html.Attribute {
			if tag != "a" {
				return nil
			}
			return append(attrs, html.Attribute{Key: "target", Val: "_blank"})
		}))

	assert.Equal(t, `<a href="http://example.com/" target="_blank">x</a>`,
		f.Filter(`<a href="http://example.com/">x</a>`))
	assert.Equal(t, `<p>x</p>`, f.Filter(`<p align="left">x</p>`))
}

func TestCallbackForText(t *testing.T) {
	f := New(WithTextCallback(strings.ToUpper))
	assert.Equal(t, `<p>HI &LT;3</p>`, f.Filter(`<p>hi &lt;3</p>`))
}

func TestAllowMerge(t *testing.T) {
	f := New(WithAllow(Rules{"p": {"class": {"a"}}}))
	f.Allow(Rules{"p": {"id": {Any}}})
	assert.Equal(t, `<p id="i">x</p>`, f.Filter(`<p class="a" id="i">x</p>`))
}

func TestInvalidRules(t *testing.T) {
	f := New(WithAllow(Rules{"": {None: nil}, "p": {"class": nil}}))
	errs := f.ErrorLog()
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrInvalidRules)
	}
	assert.Equal(t, `<p>x</p>`, f.Filter(`<p class="a">x</p>`))
}

func TestFilterBytes(t *testing.T) {
	f := New()
	assert.Equal(t, []byte(`<p>x</p>`), f.FilterBytes([]byte(`<p>x</p><blink>`)))
}

func TestFilterReader(t *testing.T) {
	f := New()
	s, err := f.FilterReader(strings.NewReader(`<p>x</p><blink>`))
	require.NoError(t, err)
	assert.Equal(t, `<p>x</p>`, s)

	errRead := errors.New("test error")
	s, err = f.FilterReader(iotest.ErrReader(errRead))
	require.ErrorIs(t, err, errRead)
	assert.Empty(t, s)
}

func TestArticle(t *testing.T) {
	f := New(WithLogRejects())
	out := f.Filter(articleHTML)

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "onerror")
	assert.NotContains(t, out, "<blink")
	assert.NotContains(t, out, "releases@example.com")
	assert.Contains(t, out, `<h1 align="center">Release notes</h1>`)
	assert.Contains(t, out, `<a href="/docs/upgrade.html" name="upgrade">`)
	assert.Contains(t, out,
		`alt="Graph &quot;before&quot; & after" width="640" height="480">`)
	assert.NotEmpty(t, f.Report())
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf,
		&slog.HandlerOptions{Level: slog.LevelDebug}))

	f := New(WithLogger(logger), WithLogRejects(),
		WithAllow(Rules{"p": {"class": nil}}))
	f.Filter(`<blink>x</blink>`)

	logs := buf.String()
	assert.Contains(t, logs, "level=WARN")
	assert.Contains(t, logs, "no values")
	assert.Contains(t, logs, "level=DEBUG msg=rejected area=tagfilter tag=blink")

	assert.NotPanics(t, func() { New(WithLogger(nil)).Filter("<blink>") })
}
