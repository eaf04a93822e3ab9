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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/common"
	"github.com/jeremyhahn/go-objpoller/pkg/server/middleware"
	"github.com/jeremyhahn/go-objpoller/pkg/version"
)

// Writer is the write side the handlers drive. *ingest.Writer implements it.
type Writer interface {
	CreateEntity(ctx context.Context, entity string) error
	Append(ctx context.Context, entity string, payload []byte) (string, error)
}

// WatermarkSource reports per-entity watermarks. *watermark.Store implements it.
type WatermarkSource interface {
	Entities() []string
	Peek(entity string) (time.Time, bool)
}

// Handler serves the push API.
type Handler struct {
	writer     Writer
	logger     adapters.Logger
	watermarks WatermarkSource
}

// NewHandler creates a Handler. watermarks may be nil.
func NewHandler(writer Writer, logger adapters.Logger, watermarks WatermarkSource) *Handler {
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Handler{writer: writer, logger: logger, watermarks: watermarks}
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Get(),
	})
}

// writeError maps write-side failures onto status codes.
func (h *Handler) writeError(c *gin.Context, entity string, err error) {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		RespondWithError(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		RespondWithError(c, http.StatusServiceUnavailable, "request cancelled")
	default:
		ctx := c.Request.Context()
		h.logger.Error(ctx, "storage write failed",
			adapters.Field{Key: "request_id", Value: middleware.GetRequestIDFromContext(ctx)},
			adapters.Field{Key: "entity", Value: entity},
			adapters.Field{Key: "error", Value: err.Error()},
		)
		RespondWithError(c, http.StatusBadGateway, "storage unavailable")
	}
}

// CreateEntity onboards an entity.
// POST /push/create/:entity
func (h *Handler) CreateEntity(c *gin.Context) {
	entity := c.Param("entity")
	if err := h.writer.CreateEntity(c.Request.Context(), entity); err != nil {
		h.writeError(c, entity, err)
		return
	}
	c.Header("Location", "/push/"+entity+"/addRows")
	c.JSON(http.StatusCreated, CreateEntityResponse{Entity: entity})
}

// AddRows stores the JSON request body as one object.
// POST /push/:entity/addRows
func (h *Handler) AddRows(c *gin.Context) {
	entity := c.Param("entity")
	if err := common.ValidateEntity(entity); err != nil {
		RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(c, http.StatusRequestEntityTooLarge, "Request entity too large")
			return
		}
		RespondWithError(c, http.StatusBadRequest, "failed to read request body")
		return
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil || compact.Len() == 0 || compact.String() == "null" {
		RespondWithError(c, http.StatusBadRequest, "request body must be a JSON value")
		return
	}

	key, err := h.writer.Append(c.Request.Context(), entity, compact.Bytes())
	if err != nil {
		h.writeError(c, entity, err)
		return
	}
	c.JSON(http.StatusOK, AddRowsResponse{Path: key})
}

// ListWatermarks reports the watermark of every entity the poller has seen.
// GET /watermarks
func (h *Handler) ListWatermarks(c *gin.Context) {
	resp := ListWatermarksResponse{Watermarks: []WatermarkResponse{}}
	for _, entity := range h.watermarks.Entities() {
		wm, ok := h.watermarks.Peek(entity)
		if !ok {
			continue
		}
		resp.Watermarks = append(resp.Watermarks, WatermarkResponse{
			Entity:    entity,
			Watermark: wm.UTC().Format(time.RFC3339Nano),
		})
	}
	resp.Count = len(resp.Watermarks)
	c.JSON(http.StatusOK, resp)
}
