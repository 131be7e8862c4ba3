package braille

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SkipReason explains why a data row was not loaded.
type SkipReason int

const (
	// SkipArity means the row had fewer than two fields.
	SkipArity SkipReason = iota
	// SkipEmptyChar means the character field was empty.
	SkipEmptyChar
	// SkipPatternLength means the pattern was not six characters long.
	SkipPatternLength
	// WarnNonBinary marks a loaded row whose pattern has characters other
	// than '0' and '1'.
	WarnNonBinary
)

func (r SkipReason) String() string {
	switch r {
	case SkipArity:
		return "too few fields"
	case SkipEmptyChar:
		return "empty character"
	case SkipPatternLength:
		return "pattern length is not 6"
	case WarnNonBinary:
		return "pattern is not binary"
	default:
		return "unknown"
	}
}

// RowIssue records a skipped or suspicious row.
type RowIssue struct {
	Line   int
	Reason SkipReason
	Raw    string
}

// LoadReport summarizes a table load.
type LoadReport struct {
	// Rows is the number of data rows seen, excluding the header and blank lines.
	Rows int
	// Accepted is the number of rows inserted into the table.
	Accepted int
	// Overwritten counts accepted rows that replaced an earlier mapping.
	Overwritten int
	// Skipped lists malformed rows in file order.
	Skipped []RowIssue
	// NonBinary lists accepted patterns that contain characters other than
	// '0' and '1'. They load, but no chord can ever produce them.
	NonBinary []RowIssue
}

// Load parses a mapping resource. The only error is a read failure;
// malformed rows are skipped and reported.
func Load(r io.Reader) (*Table, *LoadReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read mapping: %w", err)
	}
	entries, report := parseRows(data)
	return &Table{entries: entries}, report, nil
}

// LoadFile loads the mapping table at path. A missing or unreadable file is
// logged and yields an empty table so the keyboard stays usable.
func LoadFile(path string, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Error("mapping table unavailable", "path", path, "error", err)
		return EmptyTable()
	}
	defer f.Close()

	t, report, err := Load(f)
	if err != nil {
		logger.Error("mapping table unreadable", "path", path, "error", err)
		return EmptyTable()
	}

	logger.Info("mapping table loaded",
		"path", path,
		"entries", t.Len(),
		"skipped", len(report.Skipped),
		"overwritten", report.Overwritten,
	)
	for _, issue := range report.Skipped {
		logger.Debug("mapping row skipped", "path", path, "line", issue.Line, "reason", issue.Reason.String())
	}
	return t
}

func parseRows(data []byte) (map[Pattern]string, *LoadReport) {
	entries := make(map[Pattern]string)
	report := &LoadReport{}

	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	lines := splitLines(string(data))
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		if line == "" {
			continue
		}
		report.Rows++

		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			report.Skipped = append(report.Skipped, RowIssue{Line: i + 1, Reason: SkipArity, Raw: line})
			continue
		}
		// NFC so that decomposed and precomposed spellings insert the same text
		char := norm.NFC.String(unquote(fields[0]))
		pattern := unquote(fields[1])
		if char == "" {
			report.Skipped = append(report.Skipped, RowIssue{Line: i + 1, Reason: SkipEmptyChar, Raw: line})
			continue
		}
		if utf8.RuneCountInString(pattern) != CellSize {
			report.Skipped = append(report.Skipped, RowIssue{Line: i + 1, Reason: SkipPatternLength, Raw: line})
			continue
		}

		p := Pattern(pattern)
		if !p.Valid() {
			report.NonBinary = append(report.NonBinary, RowIssue{Line: i + 1, Reason: WarnNonBinary, Raw: line})
		}
		if _, dup := entries[p]; dup {
			report.Overwritten++
		}
		entries[p] = char
		report.Accepted++
	}
	return entries, report
}

// splitLines splits on LF and lone CR. CRLF must already be folded to LF.
func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r", "\n"), "\n")
}

// unquote strips one pair of surrounding double quotes.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
