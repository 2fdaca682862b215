package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"strings"
)

// CommandHelp is the content of a help screen.
type CommandHelp struct {
	Usage       string
	Description string
	Commands    []Command
	Options     *flag.FlagSet
	Examples    []string
}

type Command struct {
	Name        string
	Description string
}

// Print writes the help screen, one blank line between sections. With
// parent set, a footer points at per-command help.
func (h *CommandHelp) Print(w io.Writer, parent string) {
	first := true
	section := func(title string) {
		if !first {
			fmt.Fprintln(w)
		}
		first = false
		fmt.Fprintf(w, "%s:\n", title)
	}
	indent := func(text string) {
		scanner := bufio.NewScanner(strings.NewReader(text))
		for scanner.Scan() {
			fmt.Fprintf(w, "  %s\n", scanner.Text())
		}
	}

	if h.Usage != "" {
		section("Usage")
		indent(h.Usage)
	}
	if h.Description != "" {
		section("Description")
		indent(h.Description)
	}
	if len(h.Commands) > 0 {
		section("Commands")
		for _, c := range h.Commands {
			fmt.Fprintf(w, "  %-14s %s\n", c.Name, c.Description)
		}
	}
	if h.Options != nil {
		section("Options")
		var buf bytes.Buffer
		out := h.Options.Output()
		h.Options.SetOutput(&buf)
		h.Options.PrintDefaults()
		h.Options.SetOutput(out)
		indent(buf.String())
	}
	if len(h.Examples) > 0 {
		section("Examples")
		for _, ex := range h.Examples {
			fmt.Fprintf(w, "  %s\n", ex)
		}
	}
	if parent != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "For help on a command:\n  %s help <command>\n", parent)
	}
}
