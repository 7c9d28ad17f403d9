package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ValidateInput checks if the JSON input matches the tool's parameter schema.
// It covers the subset the builtin tools use: required, type, enum, items,
// minimum and maximum.
func ValidateInput(schema map[string]interface{}, input json.RawMessage) error {
	var inputMap map[string]interface{}
	if err := json.Unmarshal(input, &inputMap); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	if inputMap == nil {
		inputMap = map[string]interface{}{}
	}

	return validateObject(schema, inputMap)
}

func requiredFields(schema map[string]interface{}) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []interface{}:
		out := make([]string, 0, len(required))
		for _, field := range required {
			if name, ok := field.(string); ok {
				out = append(out, name)
			}
		}
		return out
	}
	return nil
}

func validateObject(schema map[string]interface{}, input map[string]interface{}) error {
	for _, fieldName := range requiredFields(schema) {
		value, exists := input[fieldName]
		if !exists || value == nil {
			return fmt.Errorf("missing required field: %s", fieldName)
		}
	}

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil
	}

	for key, value := range input {
		propSchema, defined := properties[key]
		if !defined {
			// Unknown fields are ignored.
			continue
		}

		propSchemaMap, ok := propSchema.(map[string]interface{})
		if !ok {
			continue
		}
		if value == nil {
			continue
		}

		if err := validateType(key, propSchemaMap, value); err != nil {
			return err
		}
	}

	return nil
}

func validateType(fieldName string, schema map[string]interface{}, value interface{}) error {
	expectedType, _ := schema["type"].(string)

	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' expected string, got %s", fieldName, jsonTypeName(value))
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("field '%s' expected number, got %s", fieldName, jsonTypeName(value))
		}
	case "integer":
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("field '%s' expected integer, got %s", fieldName, jsonTypeName(value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' expected boolean, got %s", fieldName, jsonTypeName(value))
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("field '%s' expected array, got %s", fieldName, jsonTypeName(value))
		}
		if itemsSchema, ok := schema["items"].(map[string]interface{}); ok {
			for i, item := range arr {
				if err := validateType(fmt.Sprintf("%s[%d]", fieldName, i), itemsSchema, item); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("field '%s' expected object, got %s", fieldName, jsonTypeName(value))
		}
		if err := validateObject(schema, obj); err != nil {
			return err
		}
	}

	if err := validateEnum(fieldName, schema, value); err != nil {
		return err
	}
	return validateRange(fieldName, schema, value)
}

func validateEnum(fieldName string, schema map[string]interface{}, value interface{}) error {
	var allowed []string
	switch enum := schema["enum"].(type) {
	case []string:
		allowed = enum
	case []interface{}:
		for _, e := range enum {
			if s, ok := e.(string); ok {
				allowed = append(allowed, s)
			}
		}
	default:
		return nil
	}

	s, ok := value.(string)
	if !ok {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(a, s) {
			return nil
		}
	}
	return fmt.Errorf("field '%s' must be one of [%s], got %q", fieldName, strings.Join(allowed, ", "), s)
}

func validateRange(fieldName string, schema map[string]interface{}, value interface{}) error {
	n, ok := value.(float64)
	if !ok {
		return nil
	}
	if min, ok := numberOf(schema["minimum"]); ok && n < min {
		return fmt.Errorf("field '%s' must be >= %v", fieldName, min)
	}
	if max, ok := numberOf(schema["maximum"]); ok && n > max {
		return fmt.Errorf("field '%s' must be <= %v", fieldName, max)
	}
	return nil
}

func numberOf(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func jsonTypeName(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
