package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/devilelephant/blacklist"
)

func runExport(configPath string, args []string, output io.Writer) error {
	fs := commandFlags("export", output)
	outFile := fs.String("o", "", "Write to this file instead of standard output")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: export takes no arguments", ErrTooManyArguments)
	}

	cfg, logger, err := loadConfig(configPath, output)
	if err != nil {
		return err
	}
	snap, err := blacklist.BuildSnapshot(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}

	if *outFile == "" {
		if _, err := snap.WriteTo(output); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		return nil
	}

	// write next to the target and rename so readers never see a partial list
	tmp, err := os.CreateTemp(filepath.Dir(*outFile), ".export-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := snap.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	if err := os.Rename(tmp.Name(), *outFile); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	logger.Info("Exported block list", "path", *outFile, "entries", snap.Entries, "snapshot", snap.ID)
	return nil
}
