package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/media-coordinator/internal/coordclient"
)

// envCoordinatorURL overrides the default coordinator address.
const envCoordinatorURL = "MEDIACOORD_URL"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	coordinator string
}

func (o *rootOptions) client() *coordclient.Client {
	return coordclient.New(o.coordinator, nil)
}

// defaultCoordinatorURL prefers MEDIACOORD_URL over the built-in default.
func defaultCoordinatorURL() string {
	if v := strings.TrimSpace(os.Getenv(envCoordinatorURL)); v != "" {
		return v
	}
	return coordclient.DefaultBaseURL
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "mediactl",
		Short: "Talk to the media coordinator",
		Example: `  mediactl repl
  mediactl send '{"action":"LIST_TARGETS"}'
  mediactl --coordinator http://coordinator:8080 sessions`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.coordinator, "coordinator", defaultCoordinatorURL(),
		"Coordinator base URL (env "+envCoordinatorURL+")")

	cmd.AddCommand(
		newReplCommand(opts),
		newSendCommand(opts),
		newTargetsCommand(opts),
		newSessionsCommand(opts),
	)
	return cmd
}

// newSendCommand posts a payload as-is. A payload of "-" is read from stdin.
// A non-2xx reply is printed, then reported as an error.
func newSendCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <json>",
		Short: "Send a raw command payload",
		Args:  cobra.ExactArgs(1),
		Example: `  mediactl send '{"action":"PLAY","targetTvId":"tv_living_room","contentRef":"movie:1","audioRoute":"tv"}'
  echo '{"action":"LIST_TARGETS"}' | mediactl send -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte(args[0])
			if args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				payload = bytes.TrimSpace(data)
			}

			reply, err := opts.client().Send(cmd.Context(), payload)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), reply.Body); err != nil {
				return err
			}
			if !reply.OK() {
				return fmt.Errorf("coordinator returned %d", reply.Status)
			}
			return nil
		},
	}
}

// newTargetsCommand prints the inventory as one line per item.
func newTargetsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List TVs, audio zones and Bluetooth devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := opts.client().ListTargets(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "TVs:")
			for _, tv := range inv.TVs {
				fmt.Fprintf(out, "  %-20s %s\n", tv.TVID, tv.DisplayName)
			}
			fmt.Fprintln(out, "Audio zones:")
			for _, z := range inv.AudioZones {
				fmt.Fprintf(out, "  %-20s %s %v\n", z.AudioZoneID, z.DisplayName, z.Outputs)
			}
			fmt.Fprintln(out, "Bluetooth devices:")
			for _, bt := range inv.BluetoothDevices {
				fmt.Fprintf(out, "  %-20s %s (zone %s)\n", bt.BluetoothDeviceID, bt.DisplayName, bt.PairedWithZoneID)
			}
			return nil
		},
	}
}

// newSessionsCommand lists all sessions, or shows one when an id is given.
func newSessionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "sessions [id]",
		Aliases: []string{"session"},
		Short:   "Show coordinator sessions",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			if len(args) == 1 {
				sess, err := c.Session(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return encodeJSON(cmd.OutOrStdout(), sess)
			}
			sessions, err := c.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
				return nil
			}
			return encodeJSON(cmd.OutOrStdout(), sessions)
		},
	}
}

func newReplCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive prompt that turns phrases into commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), opts.client(), cmd.OutOrStdout())
		},
	}
}

// printJSON re-indents a JSON body, or prints it verbatim if it is not JSON.
func printJSON(w io.Writer, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(body))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

// encodeJSON writes v as indented JSON.
func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
