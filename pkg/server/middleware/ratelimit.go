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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
)

// Scope selects what a rate limit is keyed on.
type Scope string

const (
	// ScopeGlobal shares one bucket across all requests.
	ScopeGlobal Scope = "global"
	// ScopeClient keys buckets on the client IP.
	ScopeClient Scope = "client"
	// ScopeEntity keys buckets on the :entity route parameter, so one noisy
	// writer cannot starve the others.
	ScopeEntity Scope = "entity"
)

// DefaultMaxKeys bounds the number of keyed buckets kept in memory.
const DefaultMaxKeys = 10000

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	Scope             Scope
	// MaxKeys caps tracked buckets; the least recently used are evicted.
	MaxKeys int
}

// DefaultRateLimitConfig returns a rate limit config with sensible defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		Scope:             ScopeGlobal,
		MaxKeys:           DefaultMaxKeys,
	}
}

type limiterSet struct {
	config *RateLimitConfig
	global *rate.Limiter
	keyed  *lru.Cache[string, *rate.Limiter]
}

func newLimiterSet(config *RateLimitConfig) (*limiterSet, error) {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	ls := &limiterSet{config: config}
	if config.Scope == ScopeGlobal || config.Scope == "" {
		ls.global = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
		return ls, nil
	}
	size := config.MaxKeys
	if size <= 0 {
		size = DefaultMaxKeys
	}
	cache, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	ls.keyed = cache
	return ls, nil
}

func (ls *limiterSet) key(c *gin.Context) string {
	if ls.config.Scope == ScopeEntity {
		if entity := c.Param("entity"); entity != "" {
			return "entity:" + entity
		}
	}
	return "client:" + c.ClientIP()
}

func (ls *limiterSet) limiter(c *gin.Context) (*rate.Limiter, string) {
	if ls.global != nil {
		return ls.global, "global"
	}
	key := ls.key(c)
	fresh := rate.NewLimiter(rate.Limit(ls.config.RequestsPerSecond), ls.config.Burst)
	if prev, ok, _ := ls.keyed.PeekOrAdd(key, fresh); ok {
		return prev, key
	}
	return fresh, key
}

// RateLimitMiddleware creates a Gin middleware for rate limiting HTTP requests.
// It panics on an invalid configuration.
func RateLimitMiddleware(config *RateLimitConfig, logger adapters.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	ls, err := newLimiterSet(config)
	if err != nil {
		panic(err)
	}

	return func(c *gin.Context) {
		rl, key := ls.limiter(c)
		if rl.Allow() {
			c.Next()
			return
		}

		logger.Warn(c.Request.Context(), "Rate limit exceeded",
			adapters.Field{Key: "key", Value: key},
			adapters.Field{Key: "path", Value: c.Request.URL.Path},
		)
		c.Header("X-RateLimit-Limit", strconv.FormatFloat(ls.config.RequestsPerSecond, 'f', -1, 64))
		c.Header("X-RateLimit-Burst", strconv.Itoa(ls.config.Burst))
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":   "Rate limit exceeded",
			"message": "Too many requests, please try again later",
		})
	}
}
