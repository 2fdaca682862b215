// Command blacklist serves and inspects the CIDR block index.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/devilelephant/blacklist"
	"github.com/devilelephant/blacklist/config"
	"github.com/devilelephant/blacklist/log"
)

// defaultConfigFile is used when -config is not given and it exists in the
// working directory.
const defaultConfigFile = "blacklist.toml"

var (
	ErrMissingCommand   = errors.New("missing command")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrInvalidFlag      = errors.New("invalid flag provided")
	ErrMissingArgument  = errors.New("missing required argument")
	ErrTooManyArguments = errors.New("too many arguments")
	ErrConfig           = errors.New("configuration error")
	ErrBuild            = errors.New("failed to build the index")
	ErrWriteOutput      = errors.New("failed to write output")
	ErrUnknownHelpTopic = errors.New("unknown help topic")
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// discoverConfigPath returns provided, else defaultConfigFile when it
// exists, else the empty string for the built-in defaults.
func discoverConfigPath(provided string) (string, error) {
	if provided != "" {
		return provided, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("error checking for default config file %s: %w", defaultConfigFile, err)
	}
	return "", nil
}

var commands = []Command{
	{"serve", "Run the HTTP api, the refresh daemon and the DNS front end"},
	{"check", "Build the index once and look up addresses"},
	{"export", "Build the index once and write the normalized list"},
	{"dump-config", "Print the effective configuration as TOML"},
	{"journal", "List recent rebuild attempts"},
	{"help", "Show help for a command"},
}

func run(args []string, output io.Writer) error {
	fs := flag.NewFlagSet("blacklist", flag.ContinueOnError)
	fs.SetOutput(output)
	configFlag := fs.String("config", "", "Path to the TOML configuration (default ./"+defaultConfigFile+" if present)")

	fs.Usage = func() {
		help := CommandHelp{
			Usage:       "blacklist [-config file] <command> [options]",
			Description: "Answers whether an IP address is on a CIDR block list.",
			Commands:    commands,
			Options:     fs,
			Examples: []string{
				"blacklist -config blacklist.toml serve",
				"blacklist check 192.0.2.1 2001:db8::1",
				"blacklist export -o blocked_ips.txt",
			},
		}
		help.Print(output, "blacklist")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}

	cmdArgs := fs.Args()
	if len(cmdArgs) < 1 {
		fs.Usage()
		return ErrMissingCommand
	}
	command, commandArgs := cmdArgs[0], cmdArgs[1:]

	if command == "help" {
		return runHelp(commandArgs, output, fs.Usage)
	}

	configPath, err := discoverConfigPath(*configFlag)
	if err != nil {
		return err
	}

	switch command {
	case "serve":
		return runServe(configPath, commandArgs, output)
	case "check":
		return runCheck(configPath, commandArgs, output)
	case "export":
		return runExport(configPath, commandArgs, output)
	case "dump-config":
		return runDumpConfig(configPath, commandArgs, output)
	case "journal":
		return runJournal(configPath, commandArgs, output)
	default:
		fs.Usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

// loadConfig reads the configuration and returns it with a logger built
// from its log section writing to output. One-shot commands log warnings
// and errors only.
func loadConfig(configPath string, output io.Writer) (*config.Config, *slog.Logger, error) {
	boot := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := blacklist.LoadConfig(configPath, boot)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	logCfg := *cfg
	logCfg.Log.Level.Level = max(cfg.Log.Level.Level, slog.LevelWarn)
	logger, err := log.New(config.NewProvider(&logCfg), output)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, logger, nil
}

func commandFlags(name string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}
	return nil
}
