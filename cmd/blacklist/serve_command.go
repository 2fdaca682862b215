package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/devilelephant/blacklist"
)

func runServe(configPath string, args []string, output io.Writer) error {
	fs := commandFlags("serve", output)
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: serve takes no arguments", ErrTooManyArguments)
	}

	_, srv, err := blacklist.New(configPath, blacklist.WithLogOutput(output))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	// Run exits the process
	srv.Run()
	return nil
}
