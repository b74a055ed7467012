package llm

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaName is the name the response format is registered under.
const SchemaName = "migration_reviews"

// ReviewResponse is the structured reply every provider must produce.
type ReviewResponse struct {
	Migrations []ReviewEntry `json:"migrations" jsonschema:"required,description=An array of migration review objects."`
}

// ReviewEntry is the verdict for a single migration file.
type ReviewEntry struct {
	Filename string `json:"filename" jsonschema:"required,description=The exact name of the migration file."`
	Comment  string `json:"comment" jsonschema:"required,description=Assessment of what's happening in the migration."`
	Changes  string `json:"changes" jsonschema:"required,description=Needed changes to ensure migration safety. Empty string if already safe."`
	Safe     bool   `json:"safe" jsonschema:"required,description=Whether the migration is currently considered safe."`
}

// ResponseSchema returns the strict JSON schema of ReviewResponse as a plain
// map, ready to be handed to provider SDKs. Every object disallows
// additional properties and requires all of its fields.
func ResponseSchema() (map[string]any, error) {
	r := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	raw, err := json.Marshal(r.Reflect(&ReviewResponse{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response schema: %w", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("failed to decode response schema: %w", err)
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema, nil
}
