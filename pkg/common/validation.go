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

package common

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	// MaxKeyLength is the maximum allowed length for object keys
	MaxKeyLength = 1024

	// MaxEntityLength is the maximum allowed length for an entity name
	MaxEntityLength = 255
)

// ValidationError describes an invalid key or entity name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidateKey rejects keys that could escape a filesystem root or that
// object stores refuse: empty, oversized, NUL or control characters,
// traversal segments and absolute paths.
func ValidateKey(key string) error {
	if key == "" {
		return &ValidationError{Field: "key", Message: "key cannot be empty"}
	}
	if len(key) > MaxKeyLength {
		return &ValidationError{
			Field:   "key",
			Message: fmt.Sprintf("key length exceeds maximum of %d bytes", MaxKeyLength),
		}
	}
	if !utf8.ValidString(key) {
		return &ValidationError{Field: "key", Message: "key must be valid UTF-8"}
	}
	if strings.ContainsAny(key, "\x00\n\r\t\\") {
		return &ValidationError{Field: "key", Message: "key contains invalid characters"}
	}
	if strings.Contains(key, "//") {
		return &ValidationError{Field: "key", Message: `key contains invalid character sequence: "//"`}
	}
	if filepath.IsAbs(key) || (len(key) >= 2 && key[1] == ':') {
		return &ValidationError{Field: "key", Message: "key cannot be an absolute path"}
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return &ValidationError{Field: "key", Message: "key cannot contain path traversal sequences (..)"}
		}
	}
	return nil
}

// ValidateEntity checks an entity name. Entities become the first segment of
// every object key, so they must be a single non-blank path segment.
func ValidateEntity(entity string) error {
	if strings.TrimSpace(entity) == "" {
		return &ValidationError{Field: "entity", Message: "entity cannot be blank"}
	}
	if len(entity) > MaxEntityLength {
		return &ValidationError{
			Field:   "entity",
			Message: fmt.Sprintf("entity length exceeds maximum of %d bytes", MaxEntityLength),
		}
	}
	if strings.Contains(entity, "/") || entity == "." || entity == ".." {
		return &ValidationError{Field: "entity", Message: "entity must be a single path segment"}
	}
	return ValidateKey(entity)
}
