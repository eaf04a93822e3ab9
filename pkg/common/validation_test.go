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

package common_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-objpoller/pkg/common"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid partitioned key",
			key:  "Orders/2024.01.01.00.01/0b3b7a48-3a43-4d4d-9d61-0b3f0b2d1c11",
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
			errMsg:  "key cannot be empty",
		},
		{
			name:    "path traversal in middle",
			key:     "Orders/../etc/passwd",
			wantErr: true,
			errMsg:  "path traversal",
		},
		{
			name:    "absolute path",
			key:     "/etc/passwd",
			wantErr: true,
			errMsg:  "absolute path",
		},
		{
			name:    "windows absolute path",
			key:     "C:\\data",
			wantErr: true,
		},
		{
			name:    "double slash",
			key:     "Orders//x",
			wantErr: true,
			errMsg:  "//",
		},
		{
			name:    "null byte",
			key:     "Orders/\x00",
			wantErr: true,
			errMsg:  "invalid characters",
		},
		{
			name:    "too long",
			key:     strings.Repeat("a", common.MaxKeyLength+1),
			wantErr: true,
			errMsg:  "exceeds maximum",
		},
		{
			name: "dots inside a segment are fine",
			key:  "Orders/v1..2/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := common.ValidateKey(tt.key)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ValidateKey(%q) expected error", tt.key)
				}
				var verr *common.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Fatalf("error %q does not contain %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateKey(%q) unexpected error: %v", tt.key, err)
			}
		})
	}
}

func TestValidateEntity(t *testing.T) {
	valid := []string{"Orders", "Product", "orders-2024", "a.b"}
	for _, e := range valid {
		if err := common.ValidateEntity(e); err != nil {
			t.Errorf("ValidateEntity(%q) unexpected error: %v", e, err)
		}
	}

	invalid := []string{"", "   ", "Orders/2024", "..", ".", strings.Repeat("x", common.MaxEntityLength+1)}
	for _, e := range invalid {
		if err := common.ValidateEntity(e); err == nil {
			t.Errorf("ValidateEntity(%q) expected error", e)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &common.ValidationError{Message: "boom"}
	if err.Error() != "validation error: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	err.Field = "entity"
	if !strings.Contains(err.Error(), "'entity'") {
		t.Fatalf("field missing from %q", err.Error())
	}
}
