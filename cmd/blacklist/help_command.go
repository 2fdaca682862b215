package main

import (
	"fmt"
	"io"
)

var commandHelp = map[string]CommandHelp{
	"serve": {
		Usage:       "blacklist serve",
		Description: "Serves the HTTP api. SIGHUP reloads the config file and rebuilds the index,\nSIGINT and SIGTERM shut down gracefully.",
	},
	"check": {
		Usage:       "blacklist check [-json] <address>...",
		Description: "Builds the index from the source directory once and reports, for each\naddress, the most specific listed prefix containing it.",
		Examples:    []string{"blacklist check 192.0.2.1", "blacklist check -json 2001:db8::1"},
	},
	"export": {
		Usage:       "blacklist export [-o file]",
		Description: "Builds the index once and writes one canonical prefix per line,\nIPv4 first, in address order.",
	},
	"dump-config": {
		Usage:       "blacklist dump-config [-defaults]",
		Description: "Prints the effective configuration, a starting point for a config file.",
	},
	"journal": {
		Usage:       "blacklist journal [-limit n]",
		Description: "Lists the most recent rebuild attempts recorded in the journal database.",
	},
}

func runHelp(args []string, output io.Writer, mainUsage func()) error {
	if len(args) == 0 {
		mainUsage()
		return nil
	}
	help, ok := commandHelp[args[0]]
	if !ok {
		mainUsage()
		return fmt.Errorf("%w: %s", ErrUnknownHelpTopic, args[0])
	}
	help.Print(output, "")
	return nil
}
