package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	r := New()
	r.Submission(KindExchange, "accepted")
	r.Submission(KindExchange, "accepted")
	r.ValidationRejected(KindBulkPayment, "empty_selection")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.submissions.WithLabelValues(KindExchange, "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejections.WithLabelValues(KindBulkPayment, "empty_selection")))
}

func TestHandlerExposesCounters(t *testing.T) {
	r := New()
	r.Submission(KindInstallmentPayment, "rejected")
	r.ObserveRequest("GET", "/healthz", "2xx", 0.01)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `montshop_submissions_total{kind="installment_payment",outcome="rejected"} 1`)
	assert.Contains(t, string(body), "montshop_http_request_duration_seconds")
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.Submission(KindExchange, "accepted")
	r.ValidationRejected(KindExchange, "x")
	r.ObserveRequest("GET", "/", "2xx", 0)
}
