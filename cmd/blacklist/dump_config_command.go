package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/devilelephant/blacklist/config"
)

func runDumpConfig(configPath string, args []string, output io.Writer) error {
	fs := commandFlags("dump-config", output)
	defaults := fs.Bool("defaults", false, "Print the built-in defaults, ignoring any config file")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	var cfg *config.Config
	if *defaults {
		cfg = config.NewDefaultConfig()
	} else {
		var err error
		if cfg, _, err = loadConfig(configPath, output); err != nil {
			return err
		}
	}

	data, err := config.Dump(cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if _, err := output.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
