package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/aurora.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/aurora.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    string
		wantCmd    Command
		wantHelp   bool
		wantPath   string
		wantDirect bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantErr: "unexpected arguments after command"},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a path"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"toggle"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unexpected arguments"},
		{name: "direct only for text", args: []string{"listen", "--direct"}, wantErr: "unexpected arguments"},
		{name: "listen", args: []string{"listen"}, wantCmd: CommandListen},
		{name: "text", args: []string{"text"}, wantCmd: CommandText},
		{name: "text direct", args: []string{"--config", "/tmp/cfg", "text", "--direct"}, wantCmd: CommandText, wantPath: "/tmp/cfg", wantDirect: true},
		{name: "arm", args: []string{"arm"}, wantCmd: CommandArm},
		{name: "disarm with config", args: []string{"--config", "/tmp/cfg", "disarm"}, wantCmd: CommandDisarm, wantPath: "/tmp/cfg"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			require.Equal(t, tc.wantDirect, parsed.Direct)
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("aurora")
	for _, want := range []string{"listen", "text [--direct]", "arm", "disarm", "doctor", "--config PATH", "config.jsonc"} {
		require.Contains(t, text, want)
	}
}
