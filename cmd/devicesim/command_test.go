package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()

	require.NotNil(t, cmd)
	assert.Equal(t, "devicesim", cmd.Use)
	assert.True(t, cmd.HasExample())
	assert.True(t, cmd.HasSubCommands())
	assert.Nil(t, cmd.RunE)
}

func TestNewRootCommand_DeviceSubcommands(t *testing.T) {
	tests := []struct {
		name        string
		defaultPort string
	}{
		{"tv", "8090"},
		{"zone", "8091"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, _, err := newRootCommand().Find([]string{tt.name})
			require.NoError(t, err)
			require.NotNil(t, sub)

			assert.Equal(t, tt.name, sub.Use)
			assert.NotNil(t, sub.RunE)

			port := sub.Flags().Lookup("port")
			require.NotNil(t, port)
			assert.Equal(t, tt.defaultPort, port.DefValue)
			assert.Equal(t, "p", port.Shorthand)
			assert.NotNil(t, sub.Flags().Lookup("host"))
			assert.NotNil(t, sub.Flags().Lookup("log-level"))
		})
	}
}

func TestNewRootCommand_RejectsArgs(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"tv", "extra"})
	cmd.SetOut(&discardWriter{})
	cmd.SetErr(&discardWriter{})

	assert.Error(t, cmd.Execute())
}

func TestServe_InvalidPort(t *testing.T) {
	err := serve(context.Background(), "tv", serveOptions{host: "127.0.0.1", port: 70000}, nil)
	assert.ErrorContains(t, err, "invalid port")
}

type discardWriter struct{}

func (*discardWriter) Write(p []byte) (int, error) { return len(p), nil }
