package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("jitr_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "jitr_test"))
	router.GET("/verifiers/:name", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": c.Param("name")})
	})
	router.POST("/events/certificate", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input"})
	})

	for _, name := range []string{"denylist", "ocsp"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verifiers/"+name, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/certificate", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	scrape := httptest.NewRecorder()
	provider.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()

	assert.Contains(t, body, "jitr_test_http_requests_total")
	assert.Contains(t, body, `route="/verifiers/:name"`)
	assert.NotContains(t, body, "denylist")
	assert.Contains(t, body, `surface="intake"`)
	assert.Contains(t, body, `status_class="4xx"`)
	assert.Contains(t, body, "jitr_test_http_requests_in_flight")
}

func TestRouteSurface(t *testing.T) {
	tests := []struct {
		route    string
		expected string
	}{
		{"", SurfaceUnmatched},
		{"/health", SurfaceHealth},
		{"/ready", SurfaceHealth},
		{"/events/certificate", SurfaceIntake},
		{"/verifiers/:name", SurfaceAdmin},
		{"/caRegister", SurfaceAdmin},
		{"/registrations/:caId", SurfaceAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.expected, RouteSurface(tt.route))
		})
	}
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(http.StatusOK))
	assert.Equal(t, "2xx", StatusClass(http.StatusNoContent))
	assert.Equal(t, "4xx", StatusClass(http.StatusConflict))
	assert.Equal(t, "5xx", StatusClass(http.StatusBadGateway))
	assert.Equal(t, "unknown", StatusClass(0))
}
