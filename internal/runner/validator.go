package runner

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator optionally restricts which command strings reach the shell. Each
// allowed command name carries a regular expression the full command line
// must match. With no rules configured every command passes, matching the
// historical raw-shell behavior.
type Validator struct {
	rules map[string]*regexp.Regexp
}

// NewValidator compiles an allowlist of command name -> pattern. A nil or
// empty allowlist yields a pass-through validator.
func NewValidator(allowlist map[string]string) (*Validator, error) {
	if len(allowlist) == 0 {
		return &Validator{}, nil
	}

	rules := make(map[string]*regexp.Regexp, len(allowlist))
	for name, pattern := range allowlist {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for command %q: %w", name, err)
		}
		rules[name] = re
	}
	return &Validator{rules: rules}, nil
}

// Validate returns nil when the command may be executed.
func (v *Validator) Validate(command string) error {
	if v == nil || len(v.rules) == 0 {
		return nil
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Errorf("empty command")
	}

	re, ok := v.rules[fields[0]]
	if !ok {
		return fmt.Errorf("command not allowed: %s", fields[0])
	}
	if !re.MatchString(command) {
		return fmt.Errorf("command rejected by policy: %s", command)
	}
	return nil
}
