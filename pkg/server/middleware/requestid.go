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

package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"

	// RequestIDContextKey stores the request ID on the request context and
	// on the gin context.
	RequestIDContextKey contextKey = "request_id"

	// maxRequestIDLength bounds client-supplied IDs echoed back in headers.
	maxRequestIDLength = 128
)

// RequestIDMiddleware tags every push with an ID so a failed write in the
// server log can be matched to the producer's request. A client-supplied ID
// is kept unless it is empty or too long.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(string(RequestIDContextKey), id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), RequestIDContextKey, id))
		c.Next()
	}
}

// GetRequestIDFromGinContext returns the ID set by RequestIDMiddleware.
func GetRequestIDFromGinContext(c *gin.Context) string {
	return c.GetString(string(RequestIDContextKey))
}

// GetRequestIDFromContext returns the ID carried by a request context, or ""
// outside a request.
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
