// Package config provides configuration file loading for recovery
// strategies.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// StrategyFile is the structure of the strategies.yaml file.
type StrategyFile struct {
	Strategies []StrategyConfig `yaml:"strategies"`
}

// StrategyConfig is one strategy entry in the YAML file.
type StrategyConfig struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Priority    int               `yaml:"priority"`
	Conditions  []ConditionConfig `yaml:"conditions"`
	Actions     []ActionConfig    `yaml:"actions"`
}

type ConditionConfig struct {
	Type     string `yaml:"type"`
	Operator string `yaml:"operator"`
	Value    string `yaml:"value"`
}

type ActionConfig struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

// LoadRecoveryStrategies reads custom recovery strategies from a YAML
// file. Validation happens when the strategies are registered with the
// engine, not here.
func LoadRecoveryStrategies(filepath string) ([]models.RecoveryStrategy, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategies file %s: %w", filepath, err)
	}

	var file StrategyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse strategies YAML: %w", err)
	}

	strategies := make([]models.RecoveryStrategy, 0, len(file.Strategies))

	for _, entry := range file.Strategies {
		strategy := models.RecoveryStrategy{
			ID:          entry.ID,
			Name:        entry.Name,
			Description: entry.Description,
			Priority:    entry.Priority,
		}

		for _, condition := range entry.Conditions {
			strategy.Conditions = append(strategy.Conditions, models.RecoveryCondition{
				Type:     models.ConditionType(condition.Type),
				Operator: models.ConditionOperator(condition.Operator),
				Value:    condition.Value,
			})
		}

		for _, action := range entry.Actions {
			strategy.Actions = append(strategy.Actions, models.RecoveryAction{
				Type:   models.ActionType(action.Type),
				Config: action.Config,
			})
		}

		strategies = append(strategies, strategy)
	}

	return strategies, nil
}
