package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/devilelephant/blacklist"
	"github.com/devilelephant/blacklist/index"
)

// ErrInvalidAddress is returned when at least one checked address could
// not be looked up. The other addresses are still reported.
var ErrInvalidAddress = errors.New("invalid address")

func runCheck(configPath string, args []string, output io.Writer) error {
	fs := commandFlags("check", output)
	asJson := fs.Bool("json", false, "Print one JSON object per address")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: at least one address", ErrMissingArgument)
	}

	cfg, logger, err := loadConfig(configPath, output)
	if err != nil {
		return err
	}
	snap, err := blacklist.BuildSnapshot(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}

	tw := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	enc := json.NewEncoder(output)
	var failed int
	for _, ip := range fs.Args() {
		m, err := snap.Lookup(ip)
		if err != nil {
			failed++
		}
		if *asJson {
			if err := enc.Encode(checkResult(m, err)); err != nil {
				return fmt.Errorf("%w: %v", ErrWriteOutput, err)
			}
			continue
		}
		switch {
		case err != nil:
			fmt.Fprintf(tw, "%s\terror\t%v\n", ip, err)
		case m.Matched:
			fmt.Fprintf(tw, "%s\tlisted\t%s\t%s\n", m.IP, m.Prefix, m.Label)
		default:
			fmt.Fprintf(tw, "%s\tnot listed\n", m.IP)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalidAddress, failed, fs.NArg())
	}
	return nil
}

type checkLine struct {
	index.Match
	Error string `json:"error,omitempty"`
}

func checkResult(m index.Match, err error) checkLine {
	line := checkLine{Match: m}
	if err != nil {
		line.Error = err.Error()
	}
	return line
}
