package inventory

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/media-coordinator/internal/command"
)

// Top-level collections, in the order they are checked.
var collections = []string{"tvs", "audioZones", "bluetoothDevices"}

// itemSpec lists the string fields one item record must or may carry.
// Any other property is passed through untouched.
type itemSpec struct {
	idField  string
	required []string
	optional []string
}

var itemSpecs = map[string]itemSpec{
	"tvs": {
		idField:  "tvId",
		required: []string{"tvId", "displayName", "endpoint"},
		optional: []string{"playerType"},
	},
	"audioZones": {
		idField:  "audioZoneId",
		required: []string{"audioZoneId", "displayName", "endpoint"},
	},
	"bluetoothDevices": {
		idField:  "bluetoothDeviceId",
		required: []string{"bluetoothDeviceId", "displayName", "macAddress", "pairedWithZoneId"},
	},
}

// validator accumulates problems while walking a decoded document.
type validator struct {
	problems []Problem
}

// add records a problem at path, a JSON pointer into the document.
func (v *validator) add(path, format string, args ...any) {
	v.problems = append(v.problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}

// validateDocument checks a decoded JSON value against the inventory rules.
// Item records may carry properties beyond the known ones; the top level may not.
func validateDocument(raw any) []Problem {
	v := &validator{}

	doc, ok := raw.(map[string]any)
	if !ok {
		v.add("/", "must be an object")
		return v.problems
	}

	for key := range doc {
		if _, known := itemSpecs[key]; !known {
			v.add("/"+key, "is not an allowed property")
		}
	}

	for _, name := range collections {
		value, present := doc[name]
		if !present {
			v.add("/"+name, "is required")
			continue
		}
		items, ok := value.([]any)
		if !ok {
			v.add("/"+name, "must be an array")
			continue
		}
		v.checkItems(name, items)
	}

	return v.problems
}

// checkItems validates every record of one collection and reports ids that
// repeat within it. The first occurrence of an id wins; later ones are
// reported against it.
func (v *validator) checkItems(collection string, items []any) {
	spec := itemSpecs[collection]
	seen := make(map[string]int, len(items))

	for i, item := range items {
		path := "/" + collection + "/" + strconv.Itoa(i)
		obj, ok := item.(map[string]any)
		if !ok {
			v.add(path, "must be an object")
			continue
		}

		for _, field := range spec.required {
			v.checkNonEmptyString(path, field, obj)
		}
		for _, field := range spec.optional {
			if value, present := obj[field]; present {
				if _, ok := value.(string); !ok {
					v.add(path+"/"+field, "must be a string")
				}
			}
		}
		if collection == "audioZones" {
			v.checkOutputs(path, obj)
		}

		if id, ok := obj[spec.idField].(string); ok && id != "" {
			if first, dup := seen[id]; dup {
				v.add(path+"/"+spec.idField, "duplicates %s/%d (%q)", "/"+collection, first, id)
			} else {
				seen[id] = i
			}
		}
	}
}

func (v *validator) checkNonEmptyString(path, field string, obj map[string]any) {
	value, present := obj[field]
	if !present {
		v.add(path+"/"+field, "is required")
		return
	}
	s, ok := value.(string)
	if !ok {
		v.add(path+"/"+field, "must be a string")
		return
	}
	if s == "" {
		v.add(path+"/"+field, "must not be empty")
	}
}

// checkOutputs requires a non-empty outputs array of known output names.
func (v *validator) checkOutputs(path string, obj map[string]any) {
	value, present := obj["outputs"]
	if !present {
		v.add(path+"/outputs", "is required")
		return
	}
	outputs, ok := value.([]any)
	if !ok {
		v.add(path+"/outputs", "must be an array")
		return
	}
	if len(outputs) == 0 {
		v.add(path+"/outputs", "must contain at least one output")
	}
	for i, out := range outputs {
		s, ok := out.(string)
		if !ok || !command.AudioOutput(s).IsValid() {
			v.add(path+"/outputs/"+strconv.Itoa(i), "must be one of wired, bluetooth, both")
		}
	}
}
