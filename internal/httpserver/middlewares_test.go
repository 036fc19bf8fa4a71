package httpserver_test

import (
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/httpserver"
	"github.com/zhulik/evote/pkg/json"
	"github.com/zhulik/evote/testhelpers"
)

var errTeapot = errors.New("teapot")

func teapot(error) (int, httpserver.ErrorBody) {
	return http.StatusTeapot, httpserver.ErrorBody{Error: httpserver.ErrorDetails{Kind: "teapot", Message: "short and stout"}}
}

var _ = Describe("Router", func() {
	var router *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)

		router = httpserver.NewRouter(testhelpers.NewLogger(), teapot)
		router.GET("/panic", func(*gin.Context) { panic("boom") })
		router.GET("/error", func(c *gin.Context) { c.Error(errTeapot) }) //nolint:errcheck
		router.GET("/ok", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "ok"}) })
	})

	serve := func(path string, header http.Header) (*httptest.ResponseRecorder, httpserver.ErrorBody) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, path, nil)

		for key, values := range header {
			request.Header[key] = values
		}

		router.ServeHTTP(recorder, request)

		body, _ := json.Unmarshal[httpserver.ErrorBody](recorder.Body.Bytes())

		return recorder, body
	}

	It("recovers panics as internal errors", func() {
		recorder, body := serve("/panic", nil)

		Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
		Expect(body.Error.Kind).To(Equal("internal"))
	})

	It("renders handler errors through the responder", func() {
		recorder, body := serve("/error", nil)

		Expect(recorder.Code).To(Equal(http.StatusTeapot))
		Expect(body.Error.Kind).To(Equal("teapot"))
	})

	It("renders unknown routes as not found", func() {
		recorder, body := serve("/missing", nil)

		Expect(recorder.Code).To(Equal(http.StatusNotFound))
		Expect(body.Error.Kind).To(Equal("not_found"))
	})

	It("generates a request id", func() {
		recorder, _ := serve("/ok", nil)

		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(recorder.Header().Get(core.RequestIDHeaderName)).ToNot(BeEmpty())
	})

	It("propagates the caller's request id", func() {
		recorder, _ := serve("/ok", http.Header{core.RequestIDHeaderName: {"req-1"}})

		Expect(recorder.Header().Get(core.RequestIDHeaderName)).To(Equal("req-1"))
	})
})
