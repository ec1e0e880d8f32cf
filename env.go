package tagfilter

import (
	"fmt"
	"maps"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envConfig is the environment form of [Config]. Lists are comma separated,
// rules are YAML or JSON documents like ones accepted by [ParseRules].
type envConfig struct {
	LogRejects             bool     `env:"LOG_REJECTS"`
	StripComments          bool     `env:"STRIP_COMMENTS"`
	Echo                   bool     `env:"ECHO"`
	SkipXSSProtection      bool     `env:"SKIP_XSS_PROTECTION"`
	SkipLtGtEntification   bool     `env:"SKIP_LTGT_ENTIFICATION"`
	SkipMailtoEntification bool     `env:"SKIP_MAILTO_ENTIFICATION"`
	RiskyAttributes        []string `env:"RISKY_ATTRIBUTES"`
	PermittedProtocols     []string `env:"PERMITTED_PROTOCOLS"`
	AllowLocalLinks        bool     `env:"ALLOW_LOCAL_LINKS" envDefault:"true"`

	Allow string `env:"ALLOW"`
	Deny  string `env:"DENY"`
}

// LoadEnvConfig reads Config from environment variables with given prefix,
// like TAGFILTER_LOG_REJECTS or TAGFILTER_ALLOW. Variables from dotenv files
// are used if the same variable isn't set in the environment. Malformed rules
// are skipped and reported by [Config.Warnings].
func LoadEnvConfig(prefix string, dotenv ...string) (*Config, error) {
	environ := make(map[string]string)
	if len(dotenv) != 0 {
		vars, err := godotenv.Read(dotenv...)
		if err != nil {
			return nil, fmt.Errorf("tagfilter: %w: %w", ErrInvalidConfig, err)
		}
		maps.Copy(environ, vars)
	}
	maps.Copy(environ, env.ToMap(os.Environ()))

	var e envConfig
	err := env.ParseWithOptions(&e, env.Options{
		Environment: environ,
		Prefix:      prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("tagfilter: %w: %w", ErrInvalidConfig, err)
	}

	cfg := &Config{
		LogRejects:             e.LogRejects,
		StripComments:          e.StripComments,
		Echo:                   e.Echo,
		SkipXSSProtection:      e.SkipXSSProtection,
		SkipLtGtEntification:   e.SkipLtGtEntification,
		SkipMailtoEntification: e.SkipMailtoEntification,
		RiskyAttributes:        e.RiskyAttributes,
		PermittedProtocols:     e.PermittedProtocols,
		AllowLocalLinks:        &e.AllowLocalLinks,
	}

	if e.Allow != "" {
		cfg.Allow = cfg.parseRules(e.Allow)
	}
	if e.Deny != "" {
		cfg.Deny = cfg.parseRules(e.Deny)
	}
	return cfg, nil
}

func (self *Config) parseRules(s string) Rules {
	rules, errs := ParseRules([]byte(s))
	self.warnings = append(self.warnings, errs...)
	if rules == nil {
		rules = Rules{}
	}
	return rules
}
