// Package audit keeps an append-only log of every command the coordinator
// executed, in the command_log table.
//
// Recorder adapts the log to dispatch.Observer. Writes happen on a
// background goroutine so a slow disk never delays a command response.
package audit
