package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"swipebraille/internal/braille"
)

func TestParseChord(t *testing.T) {
	tests := []struct {
		arg     string
		want    braille.DotSet
		wantErr bool
	}{
		{"100110", braille.NewDotSet(1, 4, 5), false},
		{"1,4,5", braille.NewDotSet(1, 4, 5), false},
		{"145", braille.NewDotSet(1, 4, 5), false},
		{"000000", 0, false},
		{"7", 0, true},
		{"10011x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseChord(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseChord(%q) expected error", tt.arg)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseChord(%q) failed: %v", tt.arg, err)
			}
			if got != tt.want {
				t.Errorf("parseChord(%q) = %v, want %v", tt.arg, got, tt.want)
			}
		})
	}
}

func TestLintFile(t *testing.T) {
	dir := t.TempDir()

	clean := filepath.Join(dir, "clean.csv")
	if err := os.WriteFile(clean, []byte("char,pattern\na,100000\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if !lintFile(clean) {
		t.Error("clean table should lint")
	}

	broken := filepath.Join(dir, "broken.csv")
	if err := os.WriteFile(broken, []byte("char,pattern\na,100000\nonly-one-field\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if lintFile(broken) {
		t.Error("table with a malformed row should fail lint")
	}

	if lintFile(filepath.Join(dir, "missing.csv")) {
		t.Error("missing table should fail lint")
	}
}

func TestRunServeReturnsListenError(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "serve.log")
	cfgPath := filepath.Join(dir, "config.toml")
	content := "version = 1\n[logging]\noutput = \"file\"\nfile_path = \"" + filepath.ToSlash(logPath) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	old := *configPath
	*configPath = cfgPath
	defer func() { *configPath = old }()

	if err := runServe([]string{"-addr", "127.0.0.1:-1"}); err == nil {
		t.Fatal("expected a listen error")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(data), "server stopped") {
		t.Errorf("expected the failure in the log, got %q", data)
	}
}
