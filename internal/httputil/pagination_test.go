package httputil_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/httputil"
)

func TestParsePage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		url      string
		expected httputil.Page
		errorMsg string
	}{
		{name: "defaults", url: "/registrations", expected: httputil.Page{Offset: 0, Limit: httputil.DefaultLimit}},
		{name: "custom window", url: "/registrations?offset=10&limit=20", expected: httputil.Page{Offset: 10, Limit: 20}},
		{name: "max limit", url: "/registrations?limit=100", expected: httputil.Page{Limit: 100}},
		{name: "negative offset", url: "/registrations?offset=-1", errorMsg: "offset: must be no less than 0"},
		{name: "offset not an integer", url: "/registrations?offset=abc", errorMsg: "offset must be an integer"},
		{name: "limit zero", url: "/registrations?limit=0", errorMsg: "limit: cannot be blank"},
		{name: "limit over max", url: "/registrations?limit=101", errorMsg: "limit: must be no greater than 100"},
		{name: "limit not an integer", url: "/registrations?limit=xyz", errorMsg: "limit must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", tt.url, nil)

			page, err := httputil.ParsePage(c.DefaultQuery)

			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Equal(t, httputil.Page{}, page)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, page)
		})
	}
}
