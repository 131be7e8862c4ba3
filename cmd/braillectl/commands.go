package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"swipebraille/internal/braille"
	"swipebraille/internal/config"
	"swipebraille/internal/gesture"
	"swipebraille/internal/trace"
	"swipebraille/internal/watcher"
)

// parseChord accepts either a six-character pattern or a dot list.
func parseChord(arg string) (braille.DotSet, error) {
	if p := braille.Pattern(arg); p.Valid() {
		return p.DotSet()
	}
	return braille.ParseDots(arg)
}

func printResolution(label string, dots braille.DotSet, table *braille.Table) bool {
	char, ok := table.Resolve(dots)
	if !ok {
		char = "(unmapped)"
	}
	fmt.Printf("%-12s %s  %s  %-9s %s\n", label, dots.Pattern(), string(dots.Cell()), dots.String(), char)
	return ok
}

func cmdResolve(args []string) {
	cfg := loadConfig()
	table := loadTable(cfg, newLogger(cfg), "")

	failed := false
	for _, arg := range args {
		dots, err := parseChord(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", arg, err)
			failed = true
			continue
		}
		if !printResolution(arg, dots, table) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func cmdZones(args []string) {
	cfg := loadConfig()
	table := loadTable(cfg, newLogger(cfg), "")

	var zones []gesture.Zone
	for _, arg := range args {
		for _, f := range strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' }) {
			n, err := strconv.Atoi(f)
			if err != nil {
				fatalf("invalid zone %q", f)
			}
			zones = append(zones, gesture.Zone(n))
		}
	}

	dots, err := gesture.DotsForZones(zones...)
	if err != nil {
		fatalf("Error: %v", err)
	}
	if !printResolution(strings.Join(args, " "), dots, table) {
		os.Exit(1)
	}
}

func cmdTable(args []string) {
	cfg := loadConfig()
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	table := loadTable(cfg, newLogger(cfg), path)

	fmt.Printf("%-8s %-4s %-14s %s\n", "Pattern", "Cell", "Dots", "Char")
	fmt.Println(strings.Repeat("-", 36))
	for _, e := range table.Entries() {
		dots, err := e.Pattern.DotSet()
		if err != nil {
			fmt.Printf("%-8s %-4s %-14s %s\n", e.Pattern, "?", "(non-binary)", e.Char)
			continue
		}
		fmt.Printf("%-8s %-4s %-14s %s\n", e.Pattern, string(dots.Cell()), dots.String(), e.Char)
	}
	fmt.Printf("\n%d entries\n", table.Len())
}

// lintFile prints a load report and returns false if any row was skipped.
func lintFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("%s: %v\n", path, err)
		return false
	}
	defer f.Close()

	table, report, err := braille.Load(f)
	if err != nil {
		fmt.Printf("%s: %v\n", path, err)
		return false
	}

	fmt.Printf("%s: %d rows, %d entries, %d skipped, %d overwritten\n",
		path, report.Rows, table.Len(), len(report.Skipped), report.Overwritten)
	for _, issue := range report.Skipped {
		fmt.Printf("  line %d: skipped (%s): %q\n", issue.Line, issue.Reason, issue.Raw)
	}
	for _, issue := range report.NonBinary {
		fmt.Printf("  line %d: pattern can never be typed: %q\n", issue.Line, issue.Raw)
	}
	return len(report.Skipped) == 0
}

func cmdLint(args []string) {
	ok := true
	for _, path := range args {
		if !lintFile(path) {
			ok = false
		}
	}
	if !ok {
		os.Exit(1)
	}
}

func cmdReplay(args []string) {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the full result as JSON")
	tablePath := fs.String("table", "", "mapping table (default: configured table)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fatalf("Usage: braillectl replay [-json] [-table path] <trace.json>")
	}

	cfg := loadConfig()
	logger := newLogger(cfg)
	table := loadTable(cfg, logger, *tablePath)

	doc, err := trace.LoadFile(fs.Arg(0))
	if err != nil {
		fatalf("Error: %v", err)
	}
	res, err := trace.Replay(doc, table, trace.ReplayOptions{
		Layout: cfg.GestureLayout(),
		Repeat: cfg.RepeatTimings(),
		Logger: logger.Logger,
	})
	if err != nil {
		fatalf("Replay failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(res)
	} else {
		name := res.Name
		if name == "" {
			name = filepath.Base(fs.Arg(0))
		}
		fmt.Printf("Trace:      %s (%d events, %dms)\n", name, len(doc.Events), doc.Duration())
		fmt.Printf("Chords:     %d (%d unresolved)\n", res.Chords, res.Unresolved)
		fmt.Printf("Commands:   %d\n", len(res.Commands))
		fmt.Printf("Text:       %q\n", res.Text)
	}

	if res.Matched != nil {
		if !*res.Matched {
			fmt.Fprintf(os.Stderr, "\n✗ Expected %q\n", *doc.Expect)
			os.Exit(1)
		}
		if !*asJSON {
			fmt.Println("\n✓ Output matches expectation")
		}
	}
}

func cmdWatch(args []string) {
	cfg := loadConfig()
	logger := newLogger(cfg)

	path := cfg.MappingPath()
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		fatalf("No mapping table configured; pass a path")
	}

	w, err := watcher.New([]string{path}, cfg.MappingDebounce())
	if err != nil {
		fatalf("Error: %v", err)
	}
	if err := w.Start(); err != nil {
		fatalf("Error: %v", err)
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lintFile(path)
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			fmt.Println()
			if ev.Removed {
				fmt.Printf("%s: removed\n", ev.Path)
				continue
			}
			lintFile(ev.Path)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			logger.Error("watch error", "error", err)
		}
	}
}

func cmdConfig(args []string) {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	switch sub {
	case "show":
		cfg := loadConfig()
		data, err := config.Encode(cfg, filepath.Ext(path))
		if err != nil {
			fatalf("Error: %v", err)
		}
		os.Stdout.Write(data)
	case "init":
		_, created, err := config.LoadOrCreate(path)
		if err != nil {
			fatalf("Error: %v", err)
		}
		if created {
			fmt.Printf("Wrote default configuration to %s\n", path)
		} else {
			fmt.Printf("Configuration already exists at %s\n", path)
		}
	case "path":
		fmt.Println(path)
	default:
		fatalf("Usage: braillectl config show|init|path")
	}
}
