package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGateRejection(t *testing.T) {
	GateRejectionsTotal.Reset()

	RecordGateRejection(ReasonRateLimited, "auth")
	RecordGateRejection(ReasonRateLimited, "auth")
	RecordGateRejection(ReasonBodyTooLarge, "")

	assert.Equal(t, 2.0, testutil.ToFloat64(GateRejectionsTotal.WithLabelValues(ReasonRateLimited, "auth")))
	assert.Equal(t, 1.0, testutil.ToFloat64(GateRejectionsTotal.WithLabelValues(ReasonBodyTooLarge, "")))
}

func TestRecordLogin(t *testing.T) {
	LoginAttemptsTotal.Reset()

	RecordLogin(LoginFailure)
	RecordLogin(LoginLockout)

	assert.Equal(t, 1.0, testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues(LoginFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues(LoginLockout)))
	assert.Equal(t, 0.0, testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues(LoginSuccess)))
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	HTTPRequestsTotal.Reset()

	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/notes/42", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/notes/{id}", "204")))
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	RecordLogin(LoginSuccess)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "lulus_spp_auth_login_attempts_total"))
}
