// SPDX-FileCopyrightText: 2025 FinOps Cloud
//
// SPDX-License-Identifier: Apache-2.0

package system

import (
	stdlog "log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReqLoggerKey is the context key used to store request-scoped logger in gin context.
const ReqLoggerKey = "reqLogger"

// SetupLogger builds the process logger: development config in debug
// mode, production JSON otherwise.
func SetupLogger(debug bool) *zap.SugaredLogger {
	var zlog *zap.Logger
	var err error
	if debug {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return zlog.Sugar()
}

// GetReqLogger returns the request-scoped sugared logger from gin.Context if present,
// otherwise returns the provided fallback.
func GetReqLogger(c *gin.Context, fallback *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return fallback
	}
	if v, ok := c.Get(ReqLoggerKey); ok {
		if l, ok2 := v.(*zap.SugaredLogger); ok2 {
			return l
		}
	}
	return fallback
}

// ReqLoggerMiddleware stores a request-scoped logger carrying the method
// and path so downstream handlers log with request context attached.
func ReqLoggerMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ReqLoggerKey, log.With(
			"method", c.Request.Method,
			"path", c.FullPath(),
		))
		c.Next()
	}
}

// TaskFields returns a variadic slice of key/value pairs suitable for passing
// to SugaredLogger.With or Infow/Errorw calls. If subtaskID is empty it will only
// include the "task" key; otherwise it includes both "task" and "subtask".
func TaskFields(taskID, subtaskID string) []interface{} {
	if subtaskID == "" {
		return []interface{}{"task", taskID}
	}
	return []interface{}{"task", taskID, "subtask", subtaskID}
}
