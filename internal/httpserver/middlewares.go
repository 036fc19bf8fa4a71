package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
)

const requestIDKey = "requestID"

type ErrorDetails struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Error ErrorDetails `json:"error"`
}

// ErrorResponder maps a handler error to a status code and a public error body.
type ErrorResponder func(err error) (int, ErrorBody)

func InternalError(error) (int, ErrorBody) {
	return http.StatusInternalServerError, ErrorBody{
		Error: ErrorDetails{Kind: "internal", Message: "Internal server error"},
	}
}

func JSONRecovery(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithFields(logrus.Fields{
					"path":      c.Request.URL.Path,
					"requestID": c.GetString(requestIDKey),
				}).Error(fmt.Sprintf("Panic recovered: %v", err))

				status, body := InternalError(nil)
				c.AbortWithStatusJSON(status, body)
			}
		}()
		c.Next()
	}
}

// JSONErrorHandler renders the last error a handler attached to the context.
func JSONErrorHandler(logger logrus.FieldLogger, responder ErrorResponder) gin.HandlerFunc {
	if responder == nil {
		responder = InternalError
	}

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, body := responder(err)

		entry := logger.WithError(err).WithFields(logrus.Fields{
			"path":      c.Request.URL.Path,
			"requestID": c.GetString(requestIDKey),
			"kind":      body.Error.Kind,
		})

		if status >= http.StatusInternalServerError {
			entry.Warn("Request failed")
		} else {
			entry.Debug("Request rejected")
		}

		if !c.Writer.Written() {
			c.JSON(status, body)
		}
	}
}

// RequestID propagates the X-Request-Id header, generating one when missing.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(core.RequestIDHeaderName)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Header(core.RequestIDHeaderName, requestID)

		c.Next()
	}
}

// LoggingMiddleware logs each request's URI and method.
func LoggingMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		defer func() {
			total := time.Since(start)
			logger.WithFields(logrus.Fields{
				"method":    c.Request.Method,
				"path":      c.Request.URL.Path,
				"duration":  total,
				"status":    c.Writer.Status(),
				"requestID": c.GetString(requestIDKey),
			}).Infof("%s %s", c.Request.Method, c.Request.URL.Path)
		}()

		c.Next()
	}
}
