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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jeremyhahn/go-objpoller/pkg/emitter"
	"github.com/jeremyhahn/go-objpoller/pkg/poller"
)

func sampleSummary() TickSummary {
	report := poller.TickReport{
		Started:  time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
		Duration: 12 * time.Millisecond,
		Checked:  2,
		Failed:   1,
		Emitted:  1,
		Errors:   map[string]error{"Users": errors.New("listing failed")},
	}
	events := []emitter.Event{{
		Entity:       "Orders",
		ObjectName:   "Orders/2024.01.01.00.01/a",
		LastModified: time.Date(2024, 1, 1, 0, 1, 10, 0, time.UTC),
		Size:         2048,
	}}
	return NewTickSummary(report, events)
}

func TestFormatTickSummary(t *testing.T) {
	s := sampleSummary()

	text := FormatTickSummary(s, FormatText)
	assert.Contains(t, text, "Checked 2 entities")
	assert.Contains(t, text, "Orders/2024.01.01.00.01/a")
	assert.Contains(t, text, "2.0 KiB")
	assert.Contains(t, text, "error Users: listing failed")

	table := FormatTickSummary(s, FormatTable)
	assert.Contains(t, table, "Orders/2024.01.01.00.01/a")
	assert.Contains(t, table, "Failed: 1")

	js := FormatTickSummary(s, FormatJSON)
	assert.Contains(t, js, `"object_name": "Orders/2024.01.01.00.01/a"`)
	assert.Contains(t, js, `"Users": "listing failed"`)
}

func TestFormatOperationResult(t *testing.T) {
	ok := &OperationResult{Success: true, Message: "Entity 'Orders' created"}
	assert.Equal(t, "Entity 'Orders' created\n", FormatOperationResult(ok, FormatText))
	assert.Contains(t, FormatOperationResult(ok, FormatTable), "SUCCESS")
	assert.Contains(t, FormatOperationResult(ok, FormatJSON), `"success": true`)

	failed := FormatError(errors.New("boom"), FormatText)
	assert.Equal(t, "Error: boom\n", failed)
	assert.Contains(t, FormatError(errors.New("boom"), FormatTable), "FAILED")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"short"}, wrapText("short", 10))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, wrapText("abcdefghijk", 5))
	lines := wrapText("the quick brown fox jumps", 10)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 10)
	}
	assert.Equal(t, "the quick brown fox jumps", strings.Join(lines, " "))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.0 KiB", formatSize(1024))
	assert.Equal(t, "1.5 MiB", formatSize(1536*1024))
}
