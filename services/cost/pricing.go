package cost

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rate is the price in dollars per 1K tokens for one model.
type Rate struct {
	Prompt     float64 `yaml:"prompt"`
	Completion float64 `yaml:"completion"`
}

// Table maps a model identifier to its token rates.
type Table map[string]Rate

// DefaultTable returns the built-in pricing.
func DefaultTable() Table {
	return Table{
		"gpt-4o-mini": {Prompt: 0.00015, Completion: 0.0006},
	}
}

type pricingFile struct {
	Models Table `yaml:"models"`
}

// LoadTable reads a YAML pricing file and merges it over DefaultTable.
// An empty path returns the defaults.
//
//	models:
//	  gpt-4o:
//	    prompt: 0.005
//	    completion: 0.015
func LoadTable(path string) (Table, error) {
	table := DefaultTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}

	var file pricingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pricing file %s: %w", path, err)
	}

	for model, rate := range file.Models {
		if rate.Prompt < 0 || rate.Completion < 0 {
			return nil, fmt.Errorf("pricing for %s must not be negative", model)
		}
		table[model] = rate
	}
	return table, nil
}
