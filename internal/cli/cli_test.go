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
	parsed, err := Parse([]string{"--config", "/tmp/baserah.yaml", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/baserah.yaml", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantErr: "unexpected arguments after command"},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a path"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"toggle"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"reset", "now"}, wantErr: "unexpected arguments"},
		{name: "run command", args: []string{"run"}, wantCmd: CommandRun},
		{name: "reset with config", args: []string{"--config", "/tmp/cfg", "reset"}, wantCmd: CommandReset, wantPath: "/tmp/cfg"},
		{name: "devices", args: []string{"devices"}, wantCmd: CommandDevices},
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
		})
	}
}

func TestParseVoiceActions(t *testing.T) {
	tests := []struct {
		args []string
		want VoiceAction
	}{
		{args: []string{"voice"}, want: VoiceShow},
		{args: []string{"voice", "show"}, want: VoiceShow},
		{args: []string{"voice", "clear"}, want: VoiceClear},
		{args: []string{"--config", "/tmp/cfg", "voice", "preview"}, want: VoicePreview},
	}
	for _, tc := range tests {
		parsed, err := Parse(tc.args)
		require.NoError(t, err, tc.args)
		require.Equal(t, CommandVoice, parsed.Command)
		require.Equal(t, tc.want, parsed.VoiceAction)
	}
}

func TestParseVoiceSetFlags(t *testing.T) {
	parsed, err := Parse([]string{"voice", "set", "--name", "Noura", "--volume", "0.8", "--pitch", "1.2", "--language", "en-US"})
	require.NoError(t, err)
	require.Equal(t, VoiceSet, parsed.VoiceAction)
	require.Equal(t, "Noura", *parsed.Voice.Name)
	require.InDelta(t, 0.8, *parsed.Voice.Volume, 1e-9)
	require.InDelta(t, 1.2, *parsed.Voice.Pitch, 1e-9)
	require.Nil(t, parsed.Voice.Rate)
	require.Equal(t, "en-US", *parsed.Voice.Language)

	p := parsed.Voice.Profile()
	require.Equal(t, 0.5, p.Rate)
}

func TestParseVoiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown action", args: []string{"voice", "reset"}, wantErr: "unknown voice action"},
		{name: "args after clear", args: []string{"voice", "clear", "--name", "x"}, wantErr: "unexpected arguments after voice clear"},
		{name: "missing name", args: []string{"voice", "set", "--volume", "0.3"}, wantErr: "requires --name"},
		{name: "blank name", args: []string{"voice", "set", "--name", " "}, wantErr: "requires --name"},
		{name: "missing value", args: []string{"voice", "set", "--name"}, wantErr: "--name requires a value"},
		{name: "bad number", args: []string{"voice", "set", "--name", "x", "--rate", "fast"}, wantErr: "--rate expects a number"},
		{name: "unknown flag", args: []string{"voice", "set", "--name", "x", "--accent", "gulf"}, wantErr: "unknown voice set flag"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.args)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("baserah")
	require.Contains(t, text, "run")
	require.Contains(t, text, "reset")
	require.Contains(t, text, "voice set --name")
	require.Contains(t, text, "doctor")
	require.Contains(t, text, "--config PATH")
}
