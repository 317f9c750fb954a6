// Package utterance turns short Spanish or English phrases into coordinator
// commands.
//
// The parser is keyword based. It never talks to the coordinator; callers
// submit the resulting command through POST /command like any other client,
// and the coordinator validates it as untrusted input. When a phrase is
// understood but a required value is missing (usually the session), the
// result carries a clarification question for the user instead of a
// command that is ready to send.
package utterance
