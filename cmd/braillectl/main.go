// braillectl is the command-line companion for the swipe braille keyboard.
package main

import (
	"flag"
	"fmt"
	"os"

	"swipebraille/internal/braille"
	"swipebraille/internal/config"
	"swipebraille/internal/logging"
)

var (
	configPath = flag.String("config", "", "path to config file")
	verbose    = flag.Bool("v", false, "log at debug level")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	switch cmd {
	case "resolve":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: braillectl resolve <dots|pattern>...")
			os.Exit(1)
		}
		cmdResolve(args)
	case "zones":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: braillectl zones <zone>...")
			os.Exit(1)
		}
		cmdZones(args)
	case "table":
		cmdTable(args)
	case "lint":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: braillectl lint <table.csv>...")
			os.Exit(1)
		}
		cmdLint(args)
	case "replay":
		cmdReplay(args)
	case "watch":
		cmdWatch(args)
	case "serve":
		cmdServe(args)
	case "config":
		cmdConfig(args)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `braillectl - Swipe braille keyboard utility

Usage: braillectl [options] <command> [args]

Commands:
  resolve <dots|pattern>...   Resolve dot lists ("1,4,5") or patterns ("100110")
  zones <zone>...             Resolve a chord given as touched zones (1-8)
  table [table.csv]           Print a mapping table (default: configured table)
  lint <table.csv>...         Report malformed and suspicious mapping rows
  replay [-json] <trace.json> Replay a recorded touch trace
  watch [table.csv]           Re-lint a mapping table whenever it changes
  serve [-addr host:port]     Run the HTTP decode service
  config show|init|path       Inspect or create the configuration file
  help                        Show this help message

Options:
  -config <path>  Path to config file (default: platform config dir)
  -v              Log at debug level`)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config) *logging.Logger {
	lc, err := cfg.LoggerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		lc.Level = logging.LevelDebug
	}
	lc.Component = "braillectl"
	logger, err := logging.New(lc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	return logger
}

// loadTable returns the table at path, the configured table, or the
// built-in table, in that order of preference.
func loadTable(cfg *config.Config, logger *logging.Logger, path string) *braille.Table {
	if path == "" {
		path = cfg.MappingPath()
	}
	if path == "" {
		return braille.DefaultTable()
	}
	return braille.LoadFile(path, logger.Logger)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
