package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/nerrad567/media-coordinator/internal/coordclient"
	"github.com/nerrad567/media-coordinator/internal/utterance"
)

const replPrompt = "> "

// runREPL runs the interactive prompt until exit, Ctrl-C, EOF or ctx is
// cancelled. History is kept in a file under the temp directory.
func runREPL(ctx context.Context, client *coordclient.Client, out io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".mediactl_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          out,
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close() //nolint:errcheck

	fmt.Fprintf(out, "Media coordinator CLI on %s (type 'exit' to quit)\n", client.BaseURL())

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		if quit := handleLine(ctx, client, line, out); quit {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// exchange is what the prompt prints after running a command.
type exchange struct {
	Command     any             `json:"command"`
	Status      int             `json:"status"`
	Coordinator json.RawMessage `json:"coordinator"`
}

// handleLine processes one prompt line: fetch targets, parse the phrase,
// then either ask for clarification or submit the command. It reports
// whether the user asked to quit.
func handleLine(ctx context.Context, client *coordclient.Client, line string, out io.Writer) bool {
	input := strings.TrimSpace(line)
	switch strings.ToLower(input) {
	case "":
		return false
	case "exit", "quit":
		return true
	}

	inv, err := client.ListTargets(ctx)
	if err != nil {
		fmt.Fprintf(out, "LIST_TARGETS failed: %v\n", err)
		return false
	}

	res := utterance.Parse(input, utterance.DefaultsFrom(inv))
	if res.Clarification != "" {
		fmt.Fprintln(out, res.Clarification)
		return false
	}
	if res.Command == nil {
		fmt.Fprintln(out, "No command returned.")
		return false
	}

	reply, err := client.SendCommand(ctx, res.Command)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return false
	}
	body := reply.Body
	if !json.Valid(body) {
		body, _ = json.Marshal(map[string]string{"raw": string(reply.Body)})
	}
	//nolint:errcheck // terminal output
	encodeJSON(out, exchange{Command: res.Command, Status: reply.Status, Coordinator: body})
	return false
}
