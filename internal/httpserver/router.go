package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func NewRouter(logger logrus.FieldLogger, responder ErrorResponder) *gin.Engine {
	router := gin.New()

	router.Use(RequestID())
	router.Use(JSONRecovery(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(JSONErrorHandler(logger, responder))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorBody{Error: ErrorDetails{Kind: "not_found", Message: "Not found"}})
	})

	return router
}
