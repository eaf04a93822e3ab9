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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all routes for the REST API. A nil gatherer leaves
// /metrics unregistered.
func SetupRoutes(router *gin.Engine, handler *Handler, gatherer prometheus.Gatherer) {
	router.GET("/health", handler.HealthCheck)

	push := router.Group("/push")
	{
		push.GET("", handler.HealthCheck)
		push.POST("/create/:entity", handler.CreateEntity)
		push.POST("/:entity/addRows", handler.AddRows)
	}

	if handler.watermarks != nil {
		router.GET("/watermarks", handler.ListWatermarks)
	}

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}
