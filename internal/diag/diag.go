// Package diag renders compiler-core errors (internal/errors) as
// either caret-annotated, colorized human output or a single JSON
// object, mirroring the teacher's reporter.FormatError shape
// (kanso internal/errors/reporter.go) and spec.md §6's "optional JSON
// mode emits a single JSON object on stdout" contract.
package diag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"fifth/token"
)

// Level is the severity of a reported diagnostic.
type Level string

const (
	LevelError Level = "error"
	LevelNote  Level = "note"
)

// Diagnostic is the rendering-agnostic shape every typed error in
// internal/errors is converted to before being reported.
type Diagnostic struct {
	Level   Level          `json:"level"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Pos     token.Position `json:"position"`
	Notes   []string       `json:"notes,omitempty"`
}

// Reporter formats diagnostics against a known source file, the way
// kanso's ErrorReporter formats against the file it parsed.
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter builds a Reporter for a source file's contents.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

// FormatHuman renders a diagnostic as a caret-annotated, colorized
// message in the style of kanso's FormatError.
func (r *Reporter) FormatHuman(d Diagnostic) string {
	var b strings.Builder

	levelColor := color.New(color.FgRed, color.Bold)
	if d.Level == LevelNote {
		levelColor = color.New(color.FgCyan, color.Bold)
	}
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	if d.Code != "" {
		b.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor.Sprint(string(d.Level)), d.Code, bold(d.Message)))
	} else {
		b.WriteString(fmt.Sprintf("%s: %s\n", levelColor.Sprint(string(d.Level)), bold(d.Message)))
	}

	b.WriteString(fmt.Sprintf(" %s %s:%d:%d\n", dim("-->"), r.filename, d.Pos.Line, d.Pos.Column))

	if d.Pos.Line >= 1 && d.Pos.Line <= len(r.lines) {
		line := r.lines[d.Pos.Line-1]
		caretCol := d.Pos.Column - 1
		if caretCol < 0 {
			caretCol = 0
		}
		b.WriteString(fmt.Sprintf("  %s\n", line))
		b.WriteString("  " + strings.Repeat(" ", caretCol) + dim("^") + "\n")
	}

	for _, n := range d.Notes {
		b.WriteString(fmt.Sprintf("  %s %s\n", dim("note:"), n))
	}

	return b.String()
}

// FormatJSON renders a diagnostic as a single JSON object, per
// spec.md §6's JSON-mode contract (one object, nothing on stderr).
func (r *Reporter) FormatJSON(d Diagnostic) (string, error) {
	out, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
