package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.PassesTotal.WithLabelValues("success").Inc()
	m.SignalsStored.WithLabelValues(EntryPointSubmit).Add(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[f.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["test_ingestion_passes_total"])
	assert.Equal(t, 3.0, values["test_signals_stored_total"])
}

func TestHandler_ServesMetrics(t *testing.T) {
	RecordMessagesScanned(2)
	RecordExtraction(true)
	RecordSignalsStored(EntryPointAgent, 1)
	RecordChannelFailure()
	RecordPass("success", 1.5, 1700000000)
	RecordAPIRequest("list", http.StatusOK)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "telegram_signal_lab_ingestion_messages_scanned_total")
	assert.Contains(t, body, `telegram_signal_lab_signals_extractions_total{outcome="signal"}`)
	assert.Contains(t, body, `telegram_signal_lab_signals_stored_total{entry_point="agent"}`)
	assert.Contains(t, body, `telegram_signal_lab_api_requests_total{code="200",operation="list"}`)
	assert.Contains(t, body, "telegram_signal_lab_health_last_successful_pass_timestamp 1.7e+09")
}
