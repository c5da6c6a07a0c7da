// Package promptspec loads prompt specification files and interpolates
// their template variables. A spec file is YAML with a system prompt, a
// user prompt, declared variables, and optional attachment paths.
package promptspec

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Spec is a loaded prompt specification.
type Spec struct {
	System      string            `yaml:"system"`
	User        string            `yaml:"user"`
	Variables   map[string]string `yaml:"variables"`
	Attachments []string          `yaml:"attachments"`
}

// Load reads and parses the spec file at path. Missing required fields
// fail with an error naming the first absent one.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt spec %s: %w", path, err)
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse prompt spec %s: %w", path, err)
	}

	if spec.System == "" {
		return nil, fmt.Errorf("prompt spec %s: missing required field %q", path, "system")
	}
	if spec.User == "" {
		return nil, fmt.Errorf("prompt spec %s: missing required field %q", path, "user")
	}
	return &spec, nil
}

// placeholderPattern matches {{var.NAME}} template placeholders.
var placeholderPattern = regexp.MustCompile(`\{\{var\.([A-Za-z0-9_]+)\}\}`)

// Interpolate substitutes {{var.NAME}} placeholders in text using the
// spec's declared variables overridden by overrides (override wins on
// key collision). Substitution is a single pure string pass,
// order-independent across distinct keys. A placeholder with no value
// in either map is an error.
func (s *Spec) Interpolate(text string, overrides map[string]string) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := overrides[name]; ok {
			return v
		}
		if v, ok := s.Variables[name]; ok {
			return v
		}
		if missing == "" {
			missing = name
		}
		return match
	})
	if missing != "" {
		return "", fmt.Errorf("interpolate: no value for variable %q", missing)
	}
	return out, nil
}
