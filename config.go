package tagfilter

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config is a declarative form of [Option]s, which can be loaded from YAML or
// JSON with [LoadConfig].
type Config struct {
	LogRejects             bool     `yaml:"log_rejects" json:"log_rejects"`
	StripComments          bool     `yaml:"strip_comments" json:"strip_comments"`
	Echo                   bool     `yaml:"echo" json:"echo"`
	SkipXSSProtection      bool     `yaml:"skip_xss_protection" json:"skip_xss_protection"`
	SkipLtGtEntification   bool     `yaml:"skip_ltgt_entification" json:"skip_ltgt_entification"`
	SkipMailtoEntification bool     `yaml:"skip_mailto_entification" json:"skip_mailto_entification"`
	RiskyAttributes        []string `yaml:"risky_attributes,omitempty" json:"risky_attributes,omitempty"`
	PermittedProtocols     []string `yaml:"permitted_protocols,omitempty" json:"permitted_protocols,omitempty"`
	AllowLocalLinks        *bool    `yaml:"allow_local_links,omitempty" json:"allow_local_links,omitempty"`

	// Allow and Deny are used if not nil. An empty, but not nil, Rules means no
	// rules.
	Allow Rules `yaml:"allow,omitempty" json:"allow,omitempty"`
	Deny  Rules `yaml:"deny,omitempty" json:"deny,omitempty"`

	warnings []error
}

// LoadConfig decodes YAML or JSON document into Config. Unknown keys, options
// of wrong type and malformed rules are skipped and reported by
// [Config.Warnings]. It returns an error only if data isn't a mapping at all.
func LoadConfig(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tagfilter: %w: %w", ErrInvalidConfig, err)
	}

	cfg := new(Config)
	root := documentRoot(&doc)
	if root == nil {
		return cfg, nil
	} else if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("tagfilter: %w: mapping expected at line %d",
			ErrInvalidConfig, root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		cfg.decodeOption(root.Content[i].Value, root.Content[i+1])
	}
	return cfg, nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	switch {
	case doc.Kind == 0:
		return nil
	case doc.Kind != yaml.DocumentNode:
		return doc
	case len(doc.Content) == 0:
		return nil
	}
	return doc.Content[0]
}

func (self *Config) decodeOption(key string, node *yaml.Node) {
	var err error
	switch key {
	case "log_rejects":
		err = node.Decode(&self.LogRejects)
	case "strip_comments":
		err = node.Decode(&self.StripComments)
	case "echo":
		err = node.Decode(&self.Echo)
	case "skip_xss_protection":
		err = node.Decode(&self.SkipXSSProtection)
	case "skip_ltgt_entification":
		err = node.Decode(&self.SkipLtGtEntification)
	case "skip_mailto_entification":
		err = node.Decode(&self.SkipMailtoEntification)
	case "risky_attributes":
		self.RiskyAttributes, err = decodeStrings(node)
	case "permitted_protocols":
		self.PermittedProtocols, err = decodeStrings(node)
	case "allow_local_links":
		var allow bool
		if err = node.Decode(&allow); err == nil {
			self.AllowLocalLinks = &allow
		}
	case "allow":
		self.Allow = self.decodeRules(node)
	case "deny":
		self.Deny = self.decodeRules(node)
	default:
		self.warnings = append(self.warnings, fmt.Errorf(
			"tagfilter: %w: %q at line %d", ErrUnknownOption, key, node.Line))
		return
	}

	if err != nil {
		self.warnings = append(self.warnings, fmt.Errorf(
			"tagfilter: %w: %q: %w", ErrInvalidConfig, key, err))
	}
}

func (self *Config) decodeRules(node *yaml.Node) Rules {
	rules, errs := decodeRules(node)
	self.warnings = append(self.warnings, errs...)
	if rules == nil {
		rules = Rules{}
	}
	return rules
}

// Warnings returns problems found by [LoadConfig].
func (self *Config) Warnings() []error { return slices.Clone(self.warnings) }

// Options converts Config into options of [New]. Echo writes to
// [os.Stdout].
func (self *Config) Options() []Option {
	var opts []Option
	if self.LogRejects {
		opts = append(opts, WithLogRejects())
	}
	if self.StripComments {
		opts = append(opts, WithStripComments())
	}
	if self.Echo {
		opts = append(opts, WithEcho(os.Stdout))
	}
	if self.SkipXSSProtection {
		opts = append(opts, SkipXSSProtection())
	}
	if self.SkipLtGtEntification {
		opts = append(opts, SkipLtGtEntification())
	}
	if self.SkipMailtoEntification {
		opts = append(opts, SkipMailtoEntification())
	}
	if self.RiskyAttributes != nil {
		opts = append(opts, WithRiskyAttributes(self.RiskyAttributes...))
	}
	if self.PermittedProtocols != nil {
		opts = append(opts, WithPermittedProtocols(self.PermittedProtocols...))
	}
	if self.AllowLocalLinks != nil {
		opts = append(opts, WithAllowLocalLinks(*self.AllowLocalLinks))
	}
	if self.Allow != nil {
		opts = append(opts, WithAllow(self.Allow))
	}
	if self.Deny != nil {
		opts = append(opts, WithDeny(self.Deny))
	}
	return opts
}

// ParseRules decodes YAML or JSON document into Rules. Scalars are accepted
// in place of lists, so
//
//	p: none
//	blink: all
//	a:
//	  href: any
//	  target: [_blank, _self]
//
// is a valid document. Malformed branches are skipped and returned as
// warnings wrapping [ErrInvalidRules].
func ParseRules(data []byte) (Rules, []error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []error{fmt.Errorf("tagfilter: %w: %w", ErrInvalidRules, err)}
	}

	root := documentRoot(&doc)
	if root == nil {
		return nil, nil
	}
	return decodeRules(root)
}

func decodeRules(node *yaml.Node) (Rules, []error) {
	if node.Kind != yaml.MappingNode {
		return nil, []error{rulesError("mapping expected at line %d", node.Line)}
	}

	rules := make(Rules, len(node.Content)/2)
	var errs []error
	for i := 0; i+1 < len(node.Content); i += 2 {
		tag := node.Content[i].Value
		attrs, attrErrs := decodeAttrs(tag, node.Content[i+1])
		errs = append(errs, attrErrs...)
		if attrs != nil {
			rules[tag] = attrs
		}
	}
	return rules, errs
}

func decodeAttrs(tag string, node *yaml.Node) (map[string][]string, []error) {
	switch node.Kind {
	case yaml.ScalarNode:
		switch {
		case node.Tag == "!!null":
			return map[string][]string{}, nil
		case node.Value == None, node.Value == All, node.Value == Any:
			return map[string][]string{node.Value: nil}, nil
		}
	case yaml.MappingNode:
		attrs := make(map[string][]string, len(node.Content)/2)
		var errs []error
		for i := 0; i+1 < len(node.Content); i += 2 {
			name, valueNode := node.Content[i].Value, node.Content[i+1]
			values, err := decodeStrings(valueNode)
			if err != nil {
				errs = append(errs, rulesError("<%s %s>: %s", tag, name, err))
				continue
			}
			attrs[name] = values
		}
		return attrs, errs
	}

	return nil, []error{rulesError(
		"<%s>: attribute mapping expected at line %d", tag, node.Line)}
}

func decodeStrings(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		values := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("scalar expected at line %d", item.Line)
			}
			values = append(values, item.Value)
		}
		return values, nil
	}
	return nil, fmt.Errorf("list expected at line %d", node.Line)
}
