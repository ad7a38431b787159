package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
)

// ConfigurationItem is a single named, typed setting the adapter exposes to
// the broker. The announcement carries the items with their default values;
// the broker's configuration message returns them, possibly overridden.
type ConfigurationItem struct {
	Name        string    `json:"name"`
	Type        ValueType `json:"type"`
	Description string    `json:"description,omitempty"`
	Value       any       `json:"value"`
}

// Configuration is an ordered collection of configuration items.
type Configuration struct {
	Items []ConfigurationItem `json:"items"`
}

// NewConfiguration builds a configuration from items.
func NewConfiguration(items ...ConfigurationItem) Configuration {
	return Configuration{Items: items}
}

// Item returns the item with the given name, if present.
func (c Configuration) Item(name string) (ConfigurationItem, bool) {
	for _, item := range c.Items {
		if item.Name == name {
			return item, true
		}
	}
	return ConfigurationItem{}, false
}

// String returns the string value stored under name.
func (c Configuration) String(name string) (string, error) {
	item, ok := c.Item(name)
	if !ok {
		return "", errors.WrapInvalid(errors.ErrMissingConfig, "Configuration", "String",
			fmt.Sprintf("no item named %q", name))
	}
	s, ok := item.Value.(string)
	if !ok {
		return "", errors.WrapInvalid(
			fmt.Errorf("item %s holds %T, not a string", name, item.Value),
			"Configuration", "String", "type mismatch")
	}
	return s, nil
}

// Integer returns the integer value stored under name. JSON decoding
// produces float64 numbers, so integral floats are accepted as well.
func (c Configuration) Integer(name string) (int64, error) {
	item, ok := c.Item(name)
	if !ok {
		return 0, errors.WrapInvalid(errors.ErrMissingConfig, "Configuration", "Integer",
			fmt.Sprintf("no item named %q", name))
	}
	switch v := item.Value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, errors.WrapInvalid(
				fmt.Errorf("item %s holds non-integral number %v", name, v),
				"Configuration", "Integer", "type mismatch")
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, errors.WrapInvalid(err, "Configuration", "Integer", "type mismatch")
		}
		return n, nil
	default:
		return 0, errors.WrapInvalid(
			fmt.Errorf("item %s holds %T, not an integer", name, item.Value),
			"Configuration", "Integer", "type mismatch")
	}
}

// Boolean returns the boolean value stored under name.
func (c Configuration) Boolean(name string) (bool, error) {
	item, ok := c.Item(name)
	if !ok {
		return false, errors.WrapInvalid(errors.ErrMissingConfig, "Configuration", "Boolean",
			fmt.Sprintf("no item named %q", name))
	}
	b, ok := item.Value.(bool)
	if !ok {
		return false, errors.WrapInvalid(
			fmt.Errorf("item %s holds %T, not a boolean", name, item.Value),
			"Configuration", "Boolean", "type mismatch")
	}
	return b, nil
}

// Validate checks that all items are well formed and names are unique.
func (c Configuration) Validate() error {
	seen := make(map[string]bool, len(c.Items))
	for _, item := range c.Items {
		if item.Name == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Configuration", "Validate",
				"configuration item name is empty")
		}
		if !item.Type.IsValid() {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Configuration", "Validate",
				fmt.Sprintf("item %s has unknown type %q", item.Name, item.Type))
		}
		if seen[item.Name] {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Configuration", "Validate",
				fmt.Sprintf("duplicate configuration item %q", item.Name))
		}
		seen[item.Name] = true
	}
	return nil
}
