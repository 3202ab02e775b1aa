package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidCondition = errors.New("invalid rule condition")

// conditionSchema restricts conditions to a flat object of comparable values.
var conditionSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"additionalProperties": {"type": ["string", "number", "boolean", "null"]}
}`)

// ValidateCondition checks that a rule condition can be evaluated by Matches.
func ValidateCondition(condition map[string]any) error {
	if condition == nil {
		condition = map[string]any{}
	}

	result, err := gojsonschema.Validate(conditionSchema, gojsonschema.NewGoLoader(condition))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCondition, err)
	}

	if !result.Valid() {
		var problems []string
		for _, resultErr := range result.Errors() {
			problems = append(problems, resultErr.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidCondition, strings.Join(problems, "; "))
	}

	return nil
}
