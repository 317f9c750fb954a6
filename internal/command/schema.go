package command

import (
	"github.com/invopop/jsonschema"
)

// SchemaID is the $id published with the command schema.
const SchemaID = "https://media-coordinator.local/schema/command.json"

// Schema returns the JSON Schema document describing Command.
//
// The document mirrors Validate: additional properties are forbidden and
// only action is required.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(&Command{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Media coordinator command"
	return schema
}
