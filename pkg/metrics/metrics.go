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

// Package metrics defines the reporting collaborator injected into
// strategies and the poller. Nothing in this package is process-global:
// every Reporter is constructed and passed explicitly.
package metrics

import (
	"time"
)

// Reporter receives polling telemetry. Implementations must be safe for
// concurrent use; the poller checks entities in parallel.
type Reporter interface {
	// CheckCompleted is called once per strategy check, successful or not.
	CheckCompleted(entity, strategy string, d time.Duration, err error)

	// ObjectsScanned reports how many partitions and listing entries a check visited.
	ObjectsScanned(entity string, partitions, objects int)

	// ObjectsAdmitted reports how many records a check emitted.
	ObjectsAdmitted(entity string, n int)

	// WatermarkAdvanced reports the new watermark after a successful advance.
	WatermarkAdvanced(entity string, t time.Time)

	// TickCompleted is called by the poller after each fan-out.
	TickCompleted(d time.Duration, checked, failed int)
}

// NoOp discards everything.
type NoOp struct{}

// NewNoOp returns a Reporter that records nothing.
func NewNoOp() Reporter { return NoOp{} }

func (NoOp) CheckCompleted(string, string, time.Duration, error) {}
func (NoOp) ObjectsScanned(string, int, int)                     {}
func (NoOp) ObjectsAdmitted(string, int)                         {}
func (NoOp) WatermarkAdvanced(string, time.Time)                 {}
func (NoOp) TickCompleted(time.Duration, int, int)               {}

// Multi fans every call out to several reporters.
type Multi []Reporter

func (m Multi) CheckCompleted(entity, strategy string, d time.Duration, err error) {
	for _, r := range m {
		r.CheckCompleted(entity, strategy, d, err)
	}
}

func (m Multi) ObjectsScanned(entity string, partitions, objects int) {
	for _, r := range m {
		r.ObjectsScanned(entity, partitions, objects)
	}
}

func (m Multi) ObjectsAdmitted(entity string, n int) {
	for _, r := range m {
		r.ObjectsAdmitted(entity, n)
	}
}

func (m Multi) WatermarkAdvanced(entity string, t time.Time) {
	for _, r := range m {
		r.WatermarkAdvanced(entity, t)
	}
}

func (m Multi) TickCompleted(d time.Duration, checked, failed int) {
	for _, r := range m {
		r.TickCompleted(d, checked, failed)
	}
}
