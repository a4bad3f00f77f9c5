package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Set assigns value to a dotted YAML path such as
// "physics.solver.velocity_iterations" and revalidates the result. On error
// c is left unchanged.
func (c *Config) Set(path string, value any) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}

	keys := strings.Split(path, ".")
	node := tree
	for _, k := range keys[:len(keys)-1] {
		child, ok := node[k].(map[string]any)
		if !ok {
			return invalid(path, "is not a known setting")
		}
		node = child
	}
	last := keys[len(keys)-1]
	if _, ok := node[last]; !ok {
		return invalid(path, "is not a known setting")
	}
	node[last] = value

	data, err = yaml.Marshal(tree)
	if err != nil {
		return err
	}
	next := *c
	if err := yaml.Unmarshal(data, &next); err != nil {
		return invalid(path, "cannot take %v: %v", value, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// SetString parses key=value, decoding the value as YAML.
func (c *Config) SetString(assignment string) error {
	key, raw, ok := strings.Cut(assignment, "=")
	if !ok || key == "" {
		return fmt.Errorf("%w: expected key=value, got %q", ErrInvalidConfig, assignment)
	}
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return c.Set(key, value)
}
