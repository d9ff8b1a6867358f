package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// ErrInvalidStrategy indicates a strategy document failed schema
// validation.
var ErrInvalidStrategy = errors.New("invalid recovery strategy")

// strategySchema is the JSON Schema every strategy document must satisfy
// before it joins the rule set.
const strategySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "conditions", "actions"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 3},
    "description": {"type": "string"},
    "priority": {"type": "integer"},
    "conditions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["type", "operator", "value"],
        "properties": {
          "type": {"enum": ["error_message", "error_type", "retry_count", "workflow_type", "time_of_day"]},
          "operator": {"enum": ["equals", "contains", "matches", "greater_than", "less_than"]},
          "value": {"type": "string", "minLength": 1}
        }
      }
    },
    "actions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"enum": ["retry", "fallback_provider", "skip_step", "manual_intervention", "notify_admin"]},
          "config": {"type": "object"}
        }
      }
    }
  }
}`

var compiledStrategySchema = gojsonschema.NewStringLoader(strategySchema)

// validateStrategy checks the strategy document against the schema.
func validateStrategy(strategy models.RecoveryStrategy) error {
	document, err := json.Marshal(strategy)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy %s: %w", strategy.ID, err)
	}

	result, err := gojsonschema.Validate(compiledStrategySchema, gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate strategy %s: %w", strategy.ID, err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		violations = append(violations, violation.String())
	}

	return fmt.Errorf("strategy %s: %w: %s", strategy.ID, ErrInvalidStrategy, strings.Join(violations, "; "))
}
