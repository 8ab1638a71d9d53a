package filesource

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pulsedeck/scanner/internal/store"
)

// StrategySource is a YAML-backed store.StrategyRepo used by the CLI when
// no database is configured. The file is read once at construction;
// definitions are immutable afterwards.
type StrategySource struct {
	defs []store.StrategyDefinition
}

type strategiesFile struct {
	Strategies []store.StrategyDefinition `yaml:"strategies"`
}

// Load reads and validates strategy definitions from a YAML file.
func Load(path string) (*StrategySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategies file %s: %w", path, err)
	}

	var file strategiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse strategies file %s: %w", path, err)
	}

	for i := range file.Strategies {
		if err := file.Strategies[i].Validate(); err != nil {
			return nil, fmt.Errorf("strategies file %s: %w", path, err)
		}
	}
	return &StrategySource{defs: file.Strategies}, nil
}

// ListEnabled implements store.StrategyRepo.
func (s *StrategySource) ListEnabled(_ context.Context, owner string) ([]store.StrategyDefinition, error) {
	out := make([]store.StrategyDefinition, 0, len(s.defs))
	for _, def := range s.defs {
		if def.Enabled && (def.Owner == owner || def.Owner == "") {
			out = append(out, def)
		}
	}
	return out, nil
}
