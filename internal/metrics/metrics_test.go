package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordInvoiceFailure(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordInvoiceFailure(ReasonInsufficientStock)
	m.RecordInvoiceFailure(ReasonInsufficientStock)
	m.RecordInvoiceFailure(ReasonValidation)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.InvoiceFailures.WithLabelValues(ReasonInsufficientStock)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoiceFailures.WithLabelValues(ReasonValidation)))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(nil)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/bills/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bills/17", nil))
	require.Equal(t, http.StatusOK, w.Code)

	m.InvoicesCreated.Inc()

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `pharmacy_http_request_duration_seconds_count{method="GET",route="/bills/:id",status="200"} 1`))
	assert.Contains(t, body, "pharmacy_invoices_created_total 1")
}
