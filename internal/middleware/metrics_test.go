package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_LabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/v1/conversations/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	templated := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/conversations/:id", "200")
	unmatched := httpRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	beforeTemplated := testutil.ToFloat64(templated)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	for _, path := range []string{"/api/v1/conversations/a", "/api/v1/conversations/b", "/nowhere", "/metrics"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
	}

	assert.Equal(t, beforeTemplated+2, testutil.ToFloat64(templated))
	assert.Equal(t, beforeUnmatched+1, testutil.ToFloat64(unmatched))
}
