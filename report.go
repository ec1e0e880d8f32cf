package tagfilter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Reason says why something was removed.
type Reason int

const (
	RejectTag  Reason = iota + 1 // tag not permitted
	RejectAttr                   // attribute or its value not permitted
	RejectURL                    // URL or style of attribute not permitted
)

func (self Reason) String() string {
	switch self {
	case RejectTag:
		return "tag"
	case RejectAttr:
		return "attribute"
	case RejectURL:
		return "url"
	}
	return "unknown"
}

// Rejection records one removed tag or attribute.
type Rejection struct {
	Tag    string
	Attr   string
	Value  string
	Reason Reason
}

func (self Rejection) String() string {
	if self.Reason == RejectTag {
		return fmt.Sprintf("tag <%s> removed", self.Tag)
	}
	return fmt.Sprintf("attribute %s=%q removed from <%s>: %s not permitted",
		self.Attr, self.Value, self.Tag, self.Reason)
}

// journal keeps rejections of current document and warnings.
type journal struct {
	logRejects bool
	logger     *slog.Logger

	rejections []Rejection
	errs       []error
}

func (self *journal) Reject(r Rejection) {
	if !self.logRejects {
		return
	}
	self.rejections = append(self.rejections, r)
	self.logger.Debug("rejected", slog.String("tag", r.Tag),
		slog.String("attr", r.Attr), slog.String("reason", r.Reason.String()))
}

func (self *journal) Warn(errs ...error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		self.errs = append(self.errs, err)
		self.logger.Warn(err.Error())
	}
}

func (self *journal) Drain() []Rejection {
	rejections := self.rejections
	self.rejections = nil
	return rejections
}

func (self *journal) Errors() []error { return slices.Clone(self.errs) }

func (self *journal) DrainErrors() []error {
	errs := self.errs
	self.errs = nil
	return errs
}

func formatReport(rejections []Rejection) string {
	if len(rejections) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, r := range rejections {
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
