// Package config loads and validates the server's YAML configuration:
// listen address, socket tuning, and the named regex routing rules that
// drive regexrouter.
package config

import (
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/aledsdavies/corelib/internal/corerr"
	"github.com/aledsdavies/corelib/pkg/regex"
)

// RoutingRule names a regex pattern evaluated, in declaration order, by
// regexrouter against the first line of every connection.
type RoutingRule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// Config is the fully decoded and validated server configuration.
type Config struct {
	ListenAddress     string        `yaml:"listen_address"`
	Backlog           int           `yaml:"backlog"`
	ScratchBufferSize int           `yaml:"scratch_buffer_size"`
	EventRingCapacity int           `yaml:"event_ring_capacity"`
	Rules             []RoutingRule `yaml:"rules"`
}

// CompiledRule pairs a RoutingRule's name with its parsed pattern, ready
// for regexrouter.
type CompiledRule struct {
	Name string
	Re   *regex.Regex
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		ListenAddress:     "127.0.0.1",
		Backlog:           128,
		ScratchBufferSize: 64 * 1024,
		EventRingCapacity: 1024,
	}
}

// Load reads path, validates it against the embedded schema, decodes it,
// and compiles every rule's pattern. Failure at any stage returns a
// *corerr.Error identifying the stage.
func Load(path string) (*Config, []CompiledRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, corerr.Wrap(corerr.CodeConfigRead, "reading config file", err)
	}

	if err := validateAgainstSchema(raw); err != nil {
		return nil, nil, corerr.Wrap(corerr.CodeConfigSchema, "schema validation", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, nil, corerr.Wrap(corerr.CodeConfigDecode, "yaml decode", err)
	}

	compiled, err := compileRules(cfg.Rules)
	if err != nil {
		return nil, nil, err
	}

	return cfg, compiled, nil
}

func compileRules(rules []RoutingRule) ([]CompiledRule, error) {
	compiled := make([]CompiledRule, 0, len(rules))
	for _, r := range rules {
		re, err := regex.Parse(r.Pattern)
		if err != nil {
			return nil, corerr.Wrap(corerr.CodeConfigRule, fmt.Sprintf("rule %q", r.Name), err)
		}
		compiled = append(compiled, CompiledRule{Name: r.Name, Re: re})
	}
	return compiled, nil
}

// validateAgainstSchema decodes raw YAML into a generic form jsonschema
// can walk (the schema package operates on JSON-shaped values, which a
// yaml.v3 decode into interface{} already produces) and checks it against
// the embedded schema document.
func validateAgainstSchema(raw []byte) error {
	// yaml.v3, unlike yaml.v2, decodes mappings into map[string]interface{}
	// directly, so the generic value is already JSON-shaped for jsonschema.
	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	return sch.Validate(generic)
}

func compiledSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResourceName, schemaDocument()); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaResourceName)
}
