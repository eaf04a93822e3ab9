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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/server/middleware"
)

// LoggingMiddleware logs one line per request. Pushes carry the entity so a
// producer's failures can be grouped; health and metrics scrapes log at debug.
func LoggingMiddleware(logger adapters.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []adapters.Field{
			{Key: "method", Value: c.Request.Method},
			{Key: "route", Value: c.FullPath()},
			{Key: "status", Value: status},
			{Key: "latency", Value: time.Since(started).String()},
			{Key: "client_ip", Value: c.ClientIP()},
		}
		if entity := c.Param("entity"); entity != "" {
			fields = append(fields, adapters.Field{Key: "entity", Value: entity})
		}
		if id := middleware.GetRequestIDFromGinContext(c); id != "" {
			fields = append(fields, adapters.Field{Key: "request_id", Value: id})
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(ctx, "request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn(ctx, "request rejected", fields...)
		default:
			logger.Debug(ctx, "request served", fields...)
		}
	}
}

// RequestSizeLimitMiddleware caps push bodies at maxSize bytes. A declared
// Content-Length over the cap is refused up front; chunked bodies are cut off
// by http.MaxBytesReader and surface as 413 from AddRows.
func RequestSizeLimitMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxSize {
			RespondWithError(c, http.StatusRequestEntityTooLarge, "Request entity too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
