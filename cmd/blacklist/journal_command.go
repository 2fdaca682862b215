package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/devilelephant/blacklist"
)

var ErrJournalNotFound = errors.New("journal database not found")

func runJournal(configPath string, args []string, output io.Writer) error {
	fs := commandFlags("journal", output)
	limit := fs.Int("limit", 20, "Number of rows to list, newest first")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *limit < 1 {
		return fmt.Errorf("%w: -limit must be positive", ErrInvalidFlag)
	}

	cfg, _, err := loadConfig(configPath, output)
	if err != nil {
		return err
	}
	// opening would create an empty database
	if _, err := os.Stat(cfg.Journal.DbPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrJournalNotFound, cfg.Journal.DbPath)
	}

	journal, err := blacklist.NewZombiezenJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer journal.Close()

	rows, err := journal.ListRebuilds(*limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTRIGGER\tOUTCOME\tDURATION\tENTRIES\tSNAPSHOT\tERROR")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Started.UTC().Format(time.RFC3339), r.Trigger, r.Outcome,
			time.Duration(r.DurationMs)*time.Millisecond, r.Entries, r.SnapshotID, r.Error)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
