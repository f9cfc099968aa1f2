package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	MidpointRequestsTotal.WithLabelValues("ok").Inc()
	CacheHitsTotal.WithLabelValues("places").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "midpoint_requests_total")
	assert.Contains(t, string(body), `midpoint_cache_hits_total{cache="places"}`)
}

func TestCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(DegradedTotal.WithLabelValues("reverse_geocode"))
	DegradedTotal.WithLabelValues("reverse_geocode").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DegradedTotal.WithLabelValues("reverse_geocode")))
}
