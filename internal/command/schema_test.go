package command

import (
	"encoding/json"
	"testing"
)

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}

	var doc struct {
		ID                   string                     `json:"$id"`
		Type                 string                     `json:"type"`
		Required             []string                   `json:"required"`
		AdditionalProperties *bool                      `json:"additionalProperties"`
		Properties           map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}

	if doc.ID != SchemaID {
		t.Errorf("$id = %q, want %q", doc.ID, SchemaID)
	}
	if doc.Type != "object" {
		t.Errorf("type = %q, want object", doc.Type)
	}
	if len(doc.Required) != 1 || doc.Required[0] != "action" {
		t.Errorf("required = %v, want [action]", doc.Required)
	}
	if doc.AdditionalProperties == nil || *doc.AdditionalProperties {
		t.Errorf("additionalProperties = %v, want false", doc.AdditionalProperties)
	}
	for name := range rules {
		if _, ok := doc.Properties[name]; !ok {
			t.Errorf("schema is missing property %q", name)
		}
	}
	if len(doc.Properties) != len(rules) {
		t.Errorf("schema has %d properties, validator knows %d", len(doc.Properties), len(rules))
	}

	var volume struct {
		Minimum *float64 `json:"minimum"`
		Maximum *float64 `json:"maximum"`
	}
	if err := json.Unmarshal(doc.Properties["volumeLevel"], &volume); err != nil {
		t.Fatalf("unmarshal volumeLevel: %v", err)
	}
	if volume.Minimum == nil || *volume.Minimum != MinVolume || volume.Maximum == nil || *volume.Maximum != MaxVolume {
		t.Errorf("volumeLevel bounds = %+v", volume)
	}

	var action struct {
		Enum []string `json:"enum"`
	}
	if err := json.Unmarshal(doc.Properties["action"], &action); err != nil {
		t.Fatalf("unmarshal action: %v", err)
	}
	if len(action.Enum) != len(AllActions()) {
		t.Errorf("action enum = %v, want %d values", action.Enum, len(AllActions()))
	}
}
