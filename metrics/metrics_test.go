package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, reg)

	m.IncrementSubmissions()
	m.IncrementSubmissions()
	m.RecordTransition("pending", "approved")
	m.RecordInviteResponse("accepted")
	m.ObserveRequest("GET", "/projects", 200, 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviewTransitions.WithLabelValues("pending", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inviteResponses.WithLabelValues("accepted")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "projectshelf_submissions_total 2")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementSubmissions()
		m.RecordTransition("a", "b")
		m.RecordCounter("view")
		m.ObserveRequest("GET", "/projects", 200, time.Second)
	})
}
