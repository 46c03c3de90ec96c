// Package schemavalidator implements simplepublishing.SchemaValidator on top
// of go-playground/validator. A schema is a set of required payload keys plus
// per-key validation tag expressions; schemas are registered programmatically
// by name. Payloads for unregistered schema names pass unchanged, which keeps
// the validator permissive for schemas owned elsewhere.
package schemavalidator

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tendant/simple-publishing/pkg/simplepublishing"
)

// Schema describes the validation rules for one schema name.
type Schema struct {
	// Required lists payload keys that must be present and non-empty.
	Required []string

	// Rules maps payload keys to validator tag expressions (e.g.
	// "startswith=/", "oneof=major minor") applied when the key is present.
	Rules map[string]string
}

// Validator validates payloads against registered schemas.
type Validator struct {
	structValidator *validator.Validate

	mu      sync.RWMutex
	schemas map[string]Schema
}

// New creates an empty validator. Register schemas before use.
func New() *Validator {
	return &Validator{
		structValidator: validator.New(),
		schemas:         make(map[string]Schema),
	}
}

// Register adds or replaces the schema registered under name.
func (v *Validator) Register(name string, schema Schema) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemas[name] = schema
}

// Validate checks payload against the schema registered for schemaName and
// returns one violation per failing field. An unregistered schema name
// yields no violations.
func (v *Validator) Validate(ctx context.Context, schemaName string, payload map[string]interface{}) ([]simplepublishing.Violation, error) {
	v.mu.RLock()
	schema, ok := v.schemas[schemaName]
	v.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var violations []simplepublishing.Violation

	for _, field := range schema.Required {
		value, present := payload[field]
		if !present || value == nil || value == "" {
			violations = append(violations, simplepublishing.Violation{
				Field:   field,
				Message: "is required",
			})
		}
	}

	for field, tag := range schema.Rules {
		value, present := payload[field]
		if !present {
			continue
		}
		if err := v.structValidator.VarCtx(ctx, value, tag); err != nil {
			if _, invalid := err.(*validator.InvalidValidationError); invalid {
				return nil, fmt.Errorf("invalid validation rule %q for field %q: %w", tag, field, err)
			}
			violations = append(violations, simplepublishing.Violation{
				Field:   field,
				Message: fmt.Sprintf("does not satisfy %q", tag),
			})
		}
	}

	return violations, nil
}
