package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"
)

// validLogLevels defines the allowed log level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// domainPattern accepts host names made of dot-separated labels.
var domainPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?)*$`)

// Validate checks the fields of a parsed Config that are set. It validates:
//   - ip is an IPv4 or IPv6 literal
//   - domain is a host name
//   - duration strings parse (prompt.debounce, watch.debounce)
//   - operation names (managers, blacklist, quit, fallback) are single words
//   - a vagrant box has both name and provider
//   - log.level is one of: debug, info, warn, error
func Validate(cfg *Config) error {
	if cfg.IP != "" && net.ParseIP(cfg.IP) == nil {
		return fmt.Errorf("ip: invalid address %q", cfg.IP)
	}
	if cfg.Domain != "" && !domainPattern.MatchString(cfg.Domain) {
		return fmt.Errorf("domain: invalid host name %q", cfg.Domain)
	}

	if cfg.Prompt.Debounce != "" {
		if err := validateDuration(cfg.Prompt.Debounce, "prompt.debounce"); err != nil {
			return err
		}
	}
	if err := validateNames(cfg.Prompt.Blacklist, "prompt.blacklist"); err != nil {
		return err
	}
	if err := validateNames(cfg.Prompt.Quit, "prompt.quit"); err != nil {
		return err
	}
	if cfg.Prompt.Fallback != "" {
		if err := validateNames([]string{cfg.Prompt.Fallback}, "prompt.fallback"); err != nil {
			return err
		}
	}
	if err := validateNames(cfg.Managers, "managers"); err != nil {
		return err
	}

	if v := cfg.Vagrant; v != nil {
		if v.Shell != "" && strings.TrimSpace(v.Shell) == "" {
			return fmt.Errorf("vagrant.shell: must not be blank")
		}
		if b := v.Box; b != nil && (b.Name == "" || b.Provider == "") {
			return fmt.Errorf("vagrant.box: name and provider are both required")
		}
	}

	if cfg.Watch.Debounce != "" {
		if err := validateDuration(cfg.Watch.Debounce, "watch.debounce"); err != nil {
			return err
		}
	}

	if cfg.Log.Level != "" && !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level: invalid value %q, must be one of: debug, info, warn, error", cfg.Log.Level)
	}

	return nil
}

// validateDuration validates that a duration string can be parsed by time.ParseDuration.
func validateDuration(d, field string) error {
	v, err := time.ParseDuration(d)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", field, d)
	}
	if v < 0 {
		return fmt.Errorf("%s: must not be negative, got %q", field, d)
	}
	return nil
}

// validateNames checks that each entry is a non-empty word without spaces.
func validateNames(names []string, field string) error {
	for i, name := range names {
		if name == "" || strings.ContainsAny(name, " \t\r\n") {
			return fmt.Errorf("%s[%d]: invalid operation name %q", field, i, name)
		}
	}
	return nil
}
