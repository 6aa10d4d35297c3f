package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCommand()

	for _, name := range []string{"serve", "migrate", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, cmd.Name())
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}

	root := newRootCommand()
	root.SetOut(buf)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "devicely ")
	require.Contains(t, buf.String(), "(commit ")
}

func TestVersionCommand_RejectsArguments(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"version", "extra"})

	require.Error(t, root.Execute())
}

func TestOrDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, "unknown", orDefault("", "unknown"))
	require.Equal(t, "abc123", orDefault("abc123", "unknown"))
}
