package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"
)

// ValidateJSON validates a JSON raw message against a given JSON schema.
// It returns a list of validation errors if the JSON is invalid.
func ValidateJSON(content json.RawMessage, schemaString string) ([]jsonschema.KeyError, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(schemaString), rs); err != nil {
		return nil, err
	}

	return rs.ValidateBytes(context.Background(), content)
}

// RequireJSON is ValidateJSON folded into a single ErrValidation.
func RequireJSON(content json.RawMessage, schemaString string) error {
	keyErrors, err := ValidateJSON(content, schemaString)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(keyErrors) == 0 {
		return nil
	}

	messages := make([]string, 0, len(keyErrors))
	for _, keyError := range keyErrors {
		messages = append(messages, fmt.Sprintf("%s: %s", keyError.PropertyPath, keyError.Message))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(messages, "; "))
}
