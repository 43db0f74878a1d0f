// Package idempotency replays responses for requests retried with the same
// Idempotency-Key header.
package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/logger"
)

const (
	// HeaderKey is the request header carrying the client's idempotency key.
	HeaderKey = "Idempotency-Key"
	// HeaderReplayed is set on responses served from the cache.
	HeaderReplayed = "Idempotent-Replayed"

	maxKeyLength = 255
)

// Config controls key lifetimes.
type Config struct {
	// TTL is how long a completed response is replayed.
	TTL time.Duration
	// LockTTL bounds how long an in-flight request holds its key.
	LockTTL time.Duration
	// Prefix namespaces the redis keys.
	Prefix string
}

// DefaultConfig returns a 24h replay window with a 30s in-flight lock.
func DefaultConfig() Config {
	return Config{
		TTL:     24 * time.Hour,
		LockTTL: 30 * time.Second,
		Prefix:  "idempotency:",
	}
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyRecorder captures the response body while still writing it through.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware caches the first response for each (user, route, key) and
// replays it for retries. A concurrent retry of a request still in flight gets
// 409. Requests without the header pass through, and redis failures fail open.
func Middleware(client redis.Cmdable, cfg Config) gin.HandlerFunc {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderKey))
		if key == "" || client == nil {
			c.Next()
			return
		}
		if len(key) > maxKeyLength {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Idempotency-Key is too long"))
			return
		}

		ctx := c.Request.Context()
		responseKey := cfg.Prefix + scope(c) + ":" + key
		lockKey := responseKey + ":lock"

		cached, err := client.Get(ctx, responseKey).Bytes()
		switch {
		case err == nil:
			var stored storedResponse
			if err := json.Unmarshal(cached, &stored); err == nil {
				c.Header(HeaderReplayed, "true")
				c.Data(stored.Status, stored.ContentType, stored.Body)
				c.Abort()
				return
			}
			logger.Get().Warnw("Discarding unreadable idempotent response", "key", responseKey)
		case !errors.Is(err, redis.Nil):
			logger.Get().Warnw("Idempotency lookup failed, processing request", "key", responseKey, "error", err)
			c.Next()
			return
		}

		acquired, err := client.SetNX(ctx, lockKey, "1", cfg.LockTTL).Result()
		if err != nil {
			logger.Get().Warnw("Idempotency lock failed, processing request", "key", responseKey, "error", err)
			c.Next()
			return
		}
		if !acquired {
			abortWithError(c, apperrors.ErrConflict)
			return
		}
		defer release(client, lockKey)

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		payload, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err != nil {
			return
		}
		if err := client.Set(context.WithoutCancel(ctx), responseKey, payload, cfg.TTL).Err(); err != nil {
			logger.Get().Warnw("Failed to store idempotent response", "key", responseKey, "error", err)
		}
	}
}

// scope ties a key to the caller and the concrete request path, so one key
// sent to /goals/a/contribute and /goals/b/contribute names two operations.
func scope(c *gin.Context) string {
	user := "anonymous"
	if v, ok := c.Get("userID"); ok {
		user = fmt.Sprint(v)
	}
	return user + ":" + c.Request.Method + ":" + c.Request.URL.Path
}

func release(client redis.Cmdable, lockKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Del(ctx, lockKey).Err(); err != nil {
		logger.Get().Warnw("Failed to release idempotency lock", "key", lockKey, "error", err)
	}
}

func abortWithError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
