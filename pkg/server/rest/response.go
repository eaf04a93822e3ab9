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

package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// CreateEntityResponse is returned when an entity is onboarded.
type CreateEntityResponse struct {
	Entity string `json:"entity"`
}

// AddRowsResponse carries the key of the stored object.
type AddRowsResponse struct {
	Path string `json:"path"`
}

// WatermarkResponse describes one entity's watermark.
type WatermarkResponse struct {
	Entity    string `json:"entity"`
	Watermark string `json:"watermark"`
}

// ListWatermarksResponse lists the known watermarks.
type ListWatermarksResponse struct {
	Watermarks []WatermarkResponse `json:"watermarks"`
	Count      int                 `json:"count"`
}

// RespondWithError sends a standard error response
func RespondWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}
