package tagfilter

import (
	"bytes"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"
)

// output accumulates sanitized text or forwards it to echo writer.
type output struct {
	buff bytes.Buffer
	echo io.Writer

	// seen is set when non-blank input of current document has been read.
	seen bool
}

func (self *output) Append(s string) error {
	if s == "" {
		return nil
	}

	if self.echo != nil {
		if _, err := io.WriteString(self.echo, s); err != nil {
			return fmt.Errorf(genericErrMsg, err)
		}
		return nil
	}
	self.buff.WriteString(s)
	return nil
}

// Take returns and clears accumulated text. It returns false if non-blank
// input gave nothing, which isn't expected in echo mode.
func (self *output) Take() (string, bool) {
	s := self.buff.String()
	self.buff.Reset()
	ok := s != "" || self.echo != nil || !self.seen
	self.seen = false
	return s, ok
}

func (self *output) Reset() {
	self.buff.Reset()
	self.seen = false
}

// inputReader reports to output if it read anything but whitespace.
type inputReader struct {
	r   io.Reader
	out *output
}

func (self *inputReader) Read(p []byte) (int, error) {
	n, err := self.r.Read(p)
	if !self.out.seen && n > 0 && !blank(p[:n]) {
		self.out.seen = true
	}
	return n, err //nolint:wrapcheck // call forwarder
}

func blank(b []byte) bool {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if !unicode.IsSpace(r) {
			return false
		}
		b = b[size:]
	}
	return true
}
