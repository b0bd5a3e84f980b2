// Package cli parses the aurora command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandListen  Command = "listen"
	CommandText    Command = "text"
	CommandStatus  Command = "status"
	CommandArm     Command = "arm"
	CommandDisarm  Command = "disarm"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandListen:  {},
	CommandText:    {},
	CommandStatus:  {},
	CommandArm:     {},
	CommandDisarm:  {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// commandFlags lists the boolean flags each command accepts after its name.
var commandFlags = map[Command][]string{
	CommandText: {"--direct"},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	// Direct skips the wake word in text mode.
	Direct bool
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

			if err := parseCommandFlags(&parsed, args[i+1:]); err != nil {
				return Parsed{}, err
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func parseCommandFlags(parsed *Parsed, rest []string) error {
	for _, arg := range rest {
		if !accepts(parsed.Command, arg) {
			return fmt.Errorf("unexpected arguments after command %q: %s", parsed.Command, arg)
		}
		switch arg {
		case "--direct":
			parsed.Direct = true
		}
	}
	return nil
}

func accepts(cmd Command, flag string) bool {
	for _, allowed := range commandFlags[cmd] {
		if flag == allowed {
			return true
		}
	}
	return false
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [flags]

Commands:
  listen          Listen for the wake word and run spoken commands
  text [--direct] Read commands from stdin (--direct skips the wake word)
  status          Print the listener state
  arm             Open a command window on the running listener
  disarm          Close the command window on the running listener
  devices         List available input devices
  doctor          Run configuration and environment checks
  version         Print version information
  help            Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/aurora/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
