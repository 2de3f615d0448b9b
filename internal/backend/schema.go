package backend

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema names.
const (
	schemaEvaluation     = "evaluation"
	schemaEvaluationList = "evaluation-list"
	schemaQuestionList   = "question-list"
	schemaSection        = "section"
	schemaSectionList    = "section-list"
	schemaSubmitAck      = "submit-ack"
	schemaTokens         = "tokens"
)

// refSchema accepts a bare id or a populated object.
var refSchema = map[string]any{
	"type": []string{"string", "object", "null"},
}

var nullableNumber = map[string]any{"type": []string{"number", "null"}}

var answerSchema = map[string]any{
	"type":     "object",
	"required": []string{"questionId"},
	"properties": map[string]any{
		"questionId": map[string]any{"type": "string", "minLength": 1},
		"value":      map[string]any{"type": []string{"string", "integer", "null"}},
		"score":      nullableNumber,
	},
}

var evaluationSchema = map[string]any{
	"type":     "object",
	"required": []string{"id", "status"},
	"properties": map[string]any{
		"id":         map[string]any{"type": "string", "minLength": 1},
		"status":     map[string]any{"enum": []string{"pending", "in_progress", "completed"}},
		"user":       refSchema,
		"section":    refSchema,
		"totalScore": nullableNumber,
		"maxScore":   nullableNumber,
		"level":      map[string]any{"type": []string{"string", "null"}},
		"answers":    map[string]any{"type": []string{"array", "null"}, "items": answerSchema},
	},
}

var questionSchema = map[string]any{
	"type":     "object",
	"required": []string{"id", "type", "order"},
	"properties": map[string]any{
		"id":      map[string]any{"type": "string", "minLength": 1},
		"order":   map[string]any{"type": "integer"},
		"type":    map[string]any{"enum": []string{"multiple-choice", "scale", "free-text"}},
		"text":    map[string]any{"type": "string"},
		"points":  map[string]any{"type": "number", "minimum": 0},
		"options": map[string]any{"type": []string{"array", "null"}, "items": map[string]any{"type": "string"}},
		"min":     map[string]any{"type": "integer"},
		"max":     map[string]any{"type": "integer"},
	},
}

var sectionSchema = map[string]any{
	"type":     "object",
	"required": []string{"id", "name"},
	"properties": map[string]any{
		"id":            map[string]any{"type": "string", "minLength": 1},
		"name":          map[string]any{"type": "string"},
		"description":   map[string]any{"type": []string{"string", "null"}},
		"questionnaire": refSchema,
	},
}

var schemaDefinitions = map[string]map[string]any{
	schemaEvaluation:     evaluationSchema,
	schemaEvaluationList: {"type": "array", "items": evaluationSchema},
	schemaQuestionList:   {"type": "array", "items": questionSchema},
	schemaSection:        sectionSchema,
	schemaSectionList:    {"type": "array", "items": sectionSchema},
	schemaSubmitAck: {
		"type":     "object",
		"required": []string{"accepted"},
		"properties": map[string]any{
			"accepted": map[string]any{"type": "boolean"},
			"score":    nullableNumber,
			"message":  map[string]any{"type": "string"},
		},
	},
	schemaTokens: {
		"type":     "object",
		"required": []string{"accessToken"},
		"properties": map[string]any{
			"accessToken":  map[string]any{"type": "string", "minLength": 1},
			"refreshToken": map[string]any{"type": "string"},
		},
	},
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateSchema validates raw JSON against the named payload schema.
func validateSchema(name string, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	compiled, err := compiledSchema(name)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", name, err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compiledSchema(name string) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	def, ok := schemaDefinitions[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema")
	}

	// The compiler wants plain decoded JSON values, not Go slices of strings.
	defBytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}
