// Package cli parses baserah command lines.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rbright/baserah/internal/voice"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandReset   Command = "reset"
	CommandStatus  Command = "status"
	CommandVoice   Command = "voice"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:     {},
	CommandReset:   {},
	CommandStatus:  {},
	CommandVoice:   {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// VoiceAction is the subcommand of `voice`.
type VoiceAction string

const (
	VoiceShow    VoiceAction = "show"
	VoiceSet     VoiceAction = "set"
	VoiceClear   VoiceAction = "clear"
	VoicePreview VoiceAction = "preview"
)

var validVoiceActions = map[VoiceAction]struct{}{
	VoiceShow:    {},
	VoiceSet:     {},
	VoiceClear:   {},
	VoicePreview: {},
}

type Parsed struct {
	Command     Command
	VoiceAction VoiceAction
	// Voice holds the fields given to `voice set`; unset flags stay nil.
	Voice      voice.Payload
	ConfigPath string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			rest := args[i+1:]
			if cmd == CommandVoice {
				return parseVoice(parsed, rest)
			}
			if len(rest) > 0 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func parseVoice(parsed Parsed, args []string) (Parsed, error) {
	if len(args) == 0 {
		parsed.VoiceAction = VoiceShow
		return parsed, nil
	}

	action := VoiceAction(args[0])
	if _, ok := validVoiceActions[action]; !ok {
		return Parsed{}, fmt.Errorf("unknown voice action: %s", args[0])
	}
	parsed.VoiceAction = action
	args = args[1:]

	if action != VoiceSet {
		if len(args) > 0 {
			return Parsed{}, fmt.Errorf("unexpected arguments after voice %s", action)
		}
		return parsed, nil
	}

	for i := 0; i < len(args); i++ {
		flag := args[i]
		i++
		if i >= len(args) {
			return Parsed{}, fmt.Errorf("%s requires a value", flag)
		}
		value := args[i]

		switch flag {
		case "--name":
			parsed.Voice.Name = &value
		case "--language":
			parsed.Voice.Language = &value
		case "--volume":
			v, err := parseFloat(flag, value)
			if err != nil {
				return Parsed{}, err
			}
			parsed.Voice.Volume = &v
		case "--rate":
			v, err := parseFloat(flag, value)
			if err != nil {
				return Parsed{}, err
			}
			parsed.Voice.Rate = &v
		case "--pitch":
			v, err := parseFloat(flag, value)
			if err != nil {
				return Parsed{}, err
			}
			parsed.Voice.Pitch = &v
		default:
			return Parsed{}, fmt.Errorf("unknown voice set flag: %s", flag)
		}
	}

	if parsed.Voice.Name == nil || strings.TrimSpace(*parsed.Voice.Name) == "" {
		return Parsed{}, errors.New("voice set requires --name")
	}
	return parsed, nil
}

func parseFloat(flag, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s expects a number, got %q", flag, value)
	}
	return v, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]

Commands:
  run                 Run the detection session until interrupted
  reset               Clear the current detection so the next object is announced
  status              Print detection state, label and active voice
  voice [show]        Print active, local and remote voice profiles
  voice set --name N [--volume V] [--rate R] [--pitch P] [--language L]
                      Save a local voice override for this device
  voice clear         Remove the local voice override
  voice preview       Speak a sample phrase with the active voice
  devices             List available output sinks
  doctor              Run configuration and environment checks
  version             Print version information
  help                Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/baserah/config.yaml)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
