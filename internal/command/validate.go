package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Volume bounds accepted by the schema.
const (
	MinVolume = 0
	MaxVolume = 100
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
)

type fieldRule struct {
	kind  fieldKind
	check func(v any) string
}

// rules is the closed set of properties a command may carry.
var rules = map[string]fieldRule{
	"action":            {kind: kindString, check: checkAction},
	"sessionId":         {kind: kindString},
	"contentRef":        {kind: kindString},
	"targetTvId":        {kind: kindString},
	"audioRoute":        {kind: kindString, check: checkAudioRoute},
	"audioZoneId":       {kind: kindString},
	"audioOutput":       {kind: kindString, check: checkAudioOutput},
	"bluetoothDeviceId": {kind: kindString},
	"seekSeconds":       {kind: kindNumber},
	"volumeLevel":       {kind: kindNumber, check: checkVolume},
}

// Parse decodes and validates a command payload.
//
// Returns ErrMalformed (wrapped) when data is not JSON, a *ValidationError
// when the payload breaks the schema, or the typed Command.
func Parse(data []byte) (Command, error) {
	raw, err := decode(data)
	if err != nil {
		return Command{}, err
	}

	if violations := Validate(raw); len(violations) > 0 {
		return Command{}, &ValidationError{Violations: violations}
	}

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return cmd, nil
}

// decode parses exactly one JSON value. Trailing data is malformed.
func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after command", ErrMalformed)
	}
	return raw, nil
}

// Validate checks a decoded JSON value against the command schema and
// returns every violation, sorted by field. It has no side effects.
func Validate(raw any) []Violation {
	obj, ok := raw.(map[string]any)
	if !ok {
		return []Violation{{Message: "must be an object"}}
	}

	var violations []Violation
	if _, ok := obj["action"]; !ok {
		violations = append(violations, Violation{Field: "action", Message: "is required"})
	}

	for name, value := range obj {
		rule, known := rules[name]
		if !known {
			violations = append(violations, Violation{Field: name, Message: "is not an allowed property"})
			continue
		}
		if msg := checkKind(rule.kind, value); msg != "" {
			violations = append(violations, Violation{Field: name, Message: msg})
			continue
		}
		if rule.check != nil {
			if msg := rule.check(value); msg != "" {
				violations = append(violations, Violation{Field: name, Message: msg})
			}
		}
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Field != violations[j].Field {
			return violations[i].Field < violations[j].Field
		}
		return violations[i].Message < violations[j].Message
	})
	return violations
}

// checkKind rejects null along with every other wrong JSON type.
func checkKind(kind fieldKind, v any) string {
	switch kind {
	case kindString:
		if _, ok := v.(string); !ok {
			return "must be a string"
		}
	case kindNumber:
		if _, ok := v.(float64); !ok {
			return "must be a number"
		}
	}
	return ""
}

func checkAction(v any) string {
	if Action(v.(string)).IsValid() {
		return ""
	}
	names := make([]string, 0, len(AllActions()))
	for _, a := range AllActions() {
		names = append(names, string(a))
	}
	return "must be one of " + strings.Join(names, ", ")
}

func checkAudioRoute(v any) string {
	if AudioRoute(v.(string)).IsValid() {
		return ""
	}
	return fmt.Sprintf("must be one of %s, %s", AudioRouteTV, AudioRouteZone)
}

func checkAudioOutput(v any) string {
	if AudioOutput(v.(string)).IsValid() {
		return ""
	}
	return fmt.Sprintf("must be one of %s, %s, %s", AudioOutputWired, AudioOutputBluetooth, AudioOutputBoth)
}

func checkVolume(v any) string {
	f := v.(float64)
	if f < MinVolume || f > MaxVolume {
		return fmt.Sprintf("must be between %d and %d", MinVolume, MaxVolume)
	}
	return ""
}

// Check applies the schema's type-independent rules to a command built in
// code: a known action, enumerated audio route and output, and a volume in
// range. It returns a *ValidationError or nil.
func (c Command) Check() error {
	var violations []Violation
	if c.Action == "" {
		violations = append(violations, Violation{Field: "action", Message: "is required"})
	} else if msg := checkAction(string(c.Action)); msg != "" {
		violations = append(violations, Violation{Field: "action", Message: msg})
	}
	if c.AudioOutput != nil {
		if msg := checkAudioOutput(string(*c.AudioOutput)); msg != "" {
			violations = append(violations, Violation{Field: "audioOutput", Message: msg})
		}
	}
	if c.AudioRoute != nil {
		if msg := checkAudioRoute(string(*c.AudioRoute)); msg != "" {
			violations = append(violations, Violation{Field: "audioRoute", Message: msg})
		}
	}
	if c.VolumeLevel != nil {
		if msg := checkVolume(*c.VolumeLevel); msg != "" {
			violations = append(violations, Violation{Field: "volumeLevel", Message: msg})
		}
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
