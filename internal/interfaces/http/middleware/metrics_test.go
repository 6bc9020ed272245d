package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/portal/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: false}))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetricsWithMeter_RecordsByRoute(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(provider.Meter("http.server"), true))
	router.GET("/quotes/:id", func(c *gin.Context) { c.String(http.StatusOK, "quote") })

	for _, path := range []string{"/quotes/1", "/quotes/2", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_server_request_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value(attribute.Key("http.route"))
				counts[route.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), counts["/quotes/:id"])
	assert.Equal(t, int64(1), counts["unknown"])
}

func TestHTTPMetricsWithMeter_SeparatesCallers(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(provider.Meter("http.server"), true))
	router.POST("/invoices/:id/pay", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			c.Set(logger.GinUserIDKey, "u-1")
		}
		c.Status(http.StatusOK)
	})

	anon := httptest.NewRequest(http.MethodPost, "/invoices/3/pay", nil)
	authed := httptest.NewRequest(http.MethodPost, "/invoices/3/pay", nil)
	authed.Header.Set("Authorization", "Bearer t")
	for _, req := range []*http.Request{anon, authed, authed.Clone(context.Background())} {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byCaller := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_server_request_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				caller, _ := dp.Attributes.Value(AttrCaller)
				byCaller[caller.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"anonymous": 1, "customer": 2}, byCaller)
}
