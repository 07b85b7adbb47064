package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// builder accumulates partial configs from each source in precedence order.
// mergo.Merge only fills zero fields, so merging high-precedence sources
// first gives flags > env > JSON file > defaults.
type builder struct {
	configs []*StructuredConfig
	err     error
}

func newBuilder() *builder {
	return &builder{configs: make([]*StructuredConfig, 0, 4)}
}

func (b *builder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("collect config sources: %w", b.err)
	}

	cfg := new(StructuredConfig)
	for _, partial := range b.configs {
		if err := mergo.Merge(cfg, partial); err != nil {
			return nil, fmt.Errorf("merge config sources: %w", err)
		}
	}

	return cfg, cfg.validate()
}

func (b *builder) withFlags() *builder {
	b.configs = append(b.configs, parseFlags())
	return b
}

func (b *builder) withEnv() *builder {
	envCfg := new(StructuredConfig)
	if err := parseEnv(envCfg); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.configs = append(b.configs, envCfg)
	return b
}

func (b *builder) withJSON() *builder {
	var path string
	for _, cfg := range b.configs {
		if cfg.jsonFilePath != "" {
			path = cfg.jsonFilePath
		}
	}
	if path == "" {
		return b
	}

	jsonCfg, err := parseJSON(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.configs = append(b.configs, jsonCfg)
	return b
}

func (b *builder) withDefaults() *builder {
	b.configs = append(b.configs, defaults())
	return b
}
