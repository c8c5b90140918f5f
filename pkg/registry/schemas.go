package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/retrace-dev/retrace/pkg/models"
)

// ValidateParams checks an action's parameters against the factory's JSON
// schema, then runs the handler's own validation.
func (r *Registry) ValidateParams(action *models.Action) error {
	factory, ok := r.factories[string(action.Type)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrHandlerNotRegistered, action.Type)
	}

	schema := factory.Schema()
	if schema != nil {
		if err := validateAgainstSchema(schema, action.Params); err != nil {
			return models.NewStepError(models.CodeValidationError, "step %s: %v", action.ID, err)
		}
	}

	handler, err := factory.Create()
	if err != nil {
		return err
	}

	return handler.Validate(action.Params)
}

func validateAgainstSchema(schema map[string]any, params map[string]any) error {
	if params == nil {
		params = map[string]any{}
	}

	// The schema loader round-trips through JSON, so template placeholders
	// in string values pass through untouched.
	document, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding parameters: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("evaluating schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return fmt.Errorf("invalid parameters: %s", strings.Join(details, "; "))
}
