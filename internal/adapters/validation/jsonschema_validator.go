package validation

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/valyala/fastjson"

	"recordpipeline/internal/ports"
)

//go:embed schemas/ingest_record.schema.json
var ingestRecordSchema []byte

//go:embed schemas/validated_record.schema.json
var validatedRecordSchema []byte

type compiledSchema struct {
	schema   *jsonschema.Schema
	required []string
}

// JSONSchemaValidator implements ports.SchemaValidator using the embedded
// record schemas.
type JSONSchemaValidator struct {
	schemas map[string]compiledSchema
}

// NewJSONSchemaValidator compiles all embedded record schemas.
func NewJSONSchemaValidator() (ports.SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	sources := map[string][]byte{
		ports.SchemaIngestRecord:    ingestRecordSchema,
		ports.SchemaValidatedRecord: validatedRecordSchema,
	}

	schemas := make(map[string]compiledSchema, len(sources))
	for name, raw := range sources {
		resource := name + ".schema.json"
		if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("failed to load %s schema: %w", name, err)
		}
		schema, err := compiler.Compile(resource)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
		}

		var decl struct {
			Required []string `json:"required"`
		}
		if err := json.Unmarshal(raw, &decl); err != nil {
			return nil, fmt.Errorf("failed to read required list of %s schema: %w", name, err)
		}

		schemas[name] = compiledSchema{schema: schema, required: decl.Required}
	}

	return &JSONSchemaValidator{schemas: schemas}, nil
}

func (v *JSONSchemaValidator) Validate(ctx context.Context, name string, payload []byte) error {
	compiled, exists := v.schemas[name]
	if !exists {
		return fmt.Errorf("no schema found for %s", name)
	}

	// fastjson is the parser the transformer uses, so a payload accepted
	// here is never rejected as unparseable later.
	var p fastjson.Parser
	parsed, err := p.ParseBytes(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrUnparseable, err)
	}
	data := toInterface(parsed)

	if err := compiled.schema.Validate(data); err != nil {
		return &ports.SchemaViolation{
			Schema:  name,
			Missing: missingFields(data, compiled.required),
			Detail:  err.Error(),
		}
	}
	return nil
}

// missingFields returns the required keys absent from data, in schema order.
// A non-object document is missing every required key.
func missingFields(data interface{}, required []string) []string {
	obj, _ := data.(map[string]interface{})
	var missing []string
	for _, field := range required {
		if _, ok := obj[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// toInterface converts a parsed document into the value shapes the schema
// validator expects. Numbers keep their literal text.
func toInterface(v *fastjson.Value) interface{} {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		out := make(map[string]interface{}, obj.Len())
		obj.Visit(func(key []byte, child *fastjson.Value) {
			out[string(key)] = toInterface(child)
		})
		return out
	case fastjson.TypeArray:
		items, _ := v.Array()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = toInterface(item)
		}
		return out
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return json.Number(v.String())
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}
