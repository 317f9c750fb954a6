// Package command defines the coordinator's command model and its closed
// schema.
//
// Every payload arriving at POST /command is untrusted, whether it came
// from a script, the interactive client or the utterance parser. Parse
// decodes it, checks it against the schema and only then produces a typed
// Command. Validation never stops at the first problem: the returned
// ValidationError lists every violation found.
//
// The schema is closed. Unknown top-level fields are rejected, action must
// be one of the known actions, volumeLevel must be a number in [0,100],
// and audioOutput/audioRoute must be one of their enumerated values.
//
// Schema publishes the same rules as a JSON Schema document.
package command
