// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/emitter"
	"github.com/jeremyhahn/go-objpoller/pkg/poller"
)

// OutputFormat defines the output format type.
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatJSON  OutputFormat = "json"
	FormatTable OutputFormat = "table"
)

// OperationResult holds the result of an operation.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// TickSummary is the printable form of a poller.TickReport.
type TickSummary struct {
	Started  time.Time         `json:"started"`
	Duration string            `json:"duration"`
	Checked  int               `json:"checked"`
	Failed   int               `json:"failed"`
	Emitted  int               `json:"emitted"`
	Errors   map[string]string `json:"errors,omitempty"`
	Events   []emitter.Event   `json:"events,omitempty"`
}

// NewTickSummary converts a tick report and the events it emitted.
func NewTickSummary(report poller.TickReport, events []emitter.Event) TickSummary {
	s := TickSummary{
		Started:  report.Started.UTC(),
		Duration: report.Duration.String(),
		Checked:  report.Checked,
		Failed:   report.Failed,
		Emitted:  report.Emitted,
		Events:   events,
	}
	if len(report.Errors) > 0 {
		s.Errors = make(map[string]string, len(report.Errors))
		for entity, err := range report.Errors {
			s.Errors[entity] = err.Error()
		}
	}
	return s
}

// FormatOperationResult formats an operation result in the specified format.
func FormatOperationResult(result *OperationResult, format OutputFormat) string {
	switch format {
	case FormatJSON:
		return formatJSON(result)
	case FormatTable:
		return formatResultTable(result)
	default:
		return formatResultText(result)
	}
}

// FormatError formats an error message in the specified format.
func FormatError(err error, format OutputFormat) string {
	result := &OperationResult{
		Success: false,
		Error:   err.Error(),
	}
	return FormatOperationResult(result, format)
}

// FormatTickSummary formats one poll in the specified format.
func FormatTickSummary(s TickSummary, format OutputFormat) string {
	switch format {
	case FormatJSON:
		return formatJSON(s)
	case FormatTable:
		return formatTickTable(s)
	default:
		return formatTickText(s)
	}
}

func formatResultText(result *OperationResult) string {
	if result.Success {
		if result.Message != "" {
			return result.Message + "\n"
		}
		return "Operation completed successfully\n"
	}
	return fmt.Sprintf("Error: %s\n", result.Error)
}

func formatResultTable(result *OperationResult) string {
	status, text := "SUCCESS", result.Message
	if !result.Success {
		status, text = "FAILED", result.Error
	}
	output := "┌────────────────────────────────────────────────────────┐\n"
	output += "│ Operation Result                                       │\n"
	output += "├────────────────────────────────────────────────────────┤\n"
	output += fmt.Sprintf("│ Status: %-46s │\n", status)
	if text != "" {
		for _, line := range wrapText(text, 54) {
			output += fmt.Sprintf("│ %-54s │\n", line)
		}
	}
	output += "└────────────────────────────────────────────────────────┘\n"
	return output
}

func formatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": \"failed to marshal JSON: %s\"}\n", err)
	}
	return string(data) + "\n"
}

func sortedErrorEntities(errs map[string]string) []string {
	entities := make([]string, 0, len(errs))
	for entity := range errs {
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	return entities
}

func formatTickText(s TickSummary) string {
	var output string
	output += fmt.Sprintf("Checked %d entit%s in %s: %d emitted, %d failed\n",
		s.Checked, plural(s.Checked, "y", "ies"), s.Duration, s.Emitted, s.Failed)
	for _, ev := range s.Events {
		output += fmt.Sprintf("  %s  %s  %s\n", ev.LastModified.UTC().Format(time.RFC3339), formatSize(ev.Size), ev.ObjectName)
	}
	for _, entity := range sortedErrorEntities(s.Errors) {
		output += fmt.Sprintf("  error %s: %s\n", entity, s.Errors[entity])
	}
	return output
}

func formatTickTable(s TickSummary) string {
	var output string
	output += "┌────────────────────────────────────────────┬──────────────┬──────────────────────┐\n"
	output += "│ Object                                     │ Size         │ Last Modified        │\n"
	output += "├────────────────────────────────────────────┼──────────────┼──────────────────────┤\n"
	for _, ev := range s.Events {
		output += fmt.Sprintf("│ %-42s │ %-12s │ %-20s │\n",
			truncate(ev.ObjectName, 42), formatSize(ev.Size), ev.LastModified.UTC().Format("2006-01-02 15:04:05"))
	}
	output += "└────────────────────────────────────────────┴──────────────┴──────────────────────┘\n"
	output += fmt.Sprintf("Checked: %d  Emitted: %d  Failed: %d  Duration: %s\n", s.Checked, s.Emitted, s.Failed, s.Duration)
	for _, entity := range sortedErrorEntities(s.Errors) {
		output += fmt.Sprintf("Error %s: %s\n", entity, s.Errors[entity])
	}
	return output
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// formatSize formats a byte size into a human-readable string.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

// wrapText wraps text to fit within maxWidth characters.
func wrapText(text string, maxWidth int) []string {
	if len(text) <= maxWidth {
		return []string{text}
	}

	if !strings.Contains(text, " ") {
		var lines []string
		for len(text) > maxWidth {
			lines = append(lines, text[:maxWidth])
			text = text[maxWidth:]
		}
		if len(text) > 0 {
			lines = append(lines, text)
		}
		return lines
	}

	var lines []string
	var currentLine string
	for _, word := range strings.Fields(text) {
		switch {
		case currentLine == "":
			currentLine = word
		case len(currentLine)+1+len(word) <= maxWidth:
			currentLine += " " + word
		default:
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}
	return lines
}
