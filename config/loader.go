package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	errs "github.com/larsvanarragon/axini-matrix-skeleton/errors"
)

//go:embed schema.json
var schemaJSON []byte

// maxConfigSize caps config files well above any reasonable adapter
// configuration.
const maxConfigSize = 1 << 20

// envPrefix namespaces the environment overrides applied after loading.
const envPrefix = "MATRIX"

// Load reads the configuration file at path, checks it against the
// embedded schema and merges it over the defaults, then applies
// environment overrides. An empty path skips the file and yields
// defaults plus environment. Validation beyond the schema is the
// caller's call, via Config.Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}

		doc, err := documentJSON(path, data)
		if err != nil {
			return nil, err
		}

		if err := validateSchema(doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		var raw map[string]any
		if err := json.Unmarshal(doc, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errs.ErrInvalidConfig, path, err)
		}
		normalizeDurations(raw)

		cfg, err = mergeOverDefaults(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// readConfigFile reads a config file after basic sanity checks.
func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", errs.ErrInvalidConfig, path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes > %d",
			errs.ErrInvalidConfig, info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return data, nil
}

// documentJSON returns the file contents as JSON, converting YAML files
// by round-tripping through a generic map. The extension selects the
// format.
func documentJSON(path string, data []byte) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return data, nil
	case ".yaml", ".yml":
		var parsed map[string]any
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("%w: parse YAML: %v", errs.ErrInvalidConfig, err)
		}
		doc, err := json.Marshal(parsed)
		if err != nil {
			return nil, fmt.Errorf("%w: convert YAML: %v", errs.ErrInvalidConfig, err)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q (use .json, .yaml or .yml)",
			errs.ErrInvalidConfig, ext)
	}
}

// validateSchema checks a JSON document against the embedded config
// schema. Typos in section or key names fail here rather than being
// silently dropped by the struct unmarshal.
func validateSchema(doc []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("%w: schema validation: %v", errs.ErrInvalidConfig, err)
	}
	if !result.Valid() {
		var b strings.Builder
		b.WriteString("config does not match schema:")
		for _, desc := range result.Errors() {
			fmt.Fprintf(&b, "\n  - %s: %s", desc.Field(), desc.Description())
		}
		return fmt.Errorf("%w: %s", errs.ErrInvalidConfig, b.String())
	}
	return nil
}

// normalizeDurations converts duration strings in the broker section to
// nanoseconds so they unmarshal into time.Duration fields. The schema
// has already vetted the format.
func normalizeDurations(raw map[string]any) {
	brokerMap, ok := raw["broker"].(map[string]any)
	if !ok {
		return
	}
	for _, key := range []string{"handshake_timeout", "ping_interval", "pong_timeout", "write_timeout"} {
		convertDuration(brokerMap, key)
	}
	if reconnect, ok := brokerMap["reconnect"].(map[string]any); ok {
		convertDuration(reconnect, "initial_interval")
		convertDuration(reconnect, "max_interval")
	}
}

func convertDuration(m map[string]any, key string) {
	if s, ok := m[key].(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			m[key] = d.Nanoseconds()
		}
	}
}

// mergeOverDefaults deep-merges a raw config map over the defaults and
// unmarshals the result. Keys absent from the file keep their default
// values, including inside nested sections.
func mergeOverDefaults(raw map[string]any) (*Config, error) {
	base, err := json.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	var baseMap map[string]any
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, fmt.Errorf("unmarshal defaults: %w", err)
	}

	merged, err := json.Marshal(deepMerge(baseMap, raw))
	if err != nil {
		return nil, fmt.Errorf("merge config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(merged, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// deepMerge recursively merges override into base, override winning on
// conflicts. Nil override values are skipped so explicit nulls cannot
// erase defaults.
func deepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := result[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMerge(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides lets deployment environments override the values
// most likely to differ per installation without editing the file.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(envPrefix + "_BROKER_URL"); val != "" {
		cfg.Broker.URL = val
	}
	if val := os.Getenv(envPrefix + "_BROKER_TOKEN"); val != "" {
		cfg.Broker.Token = val
	}
	if val := os.Getenv(envPrefix + "_SUT_ENDPOINT"); val != "" {
		cfg.SUT.Endpoint = val
	}
}
