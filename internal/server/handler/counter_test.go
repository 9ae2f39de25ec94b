package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alanyoungcy/coindash/internal/cache/memory"
	"github.com/alanyoungcy/coindash/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCounterHandler(policy service.InvalidPolicy) *CounterHandler {
	svc := service.NewCounterService(memory.NewCounterStore(), policy, "", testLogger())
	return NewCounterHandler(svc, testLogger())
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCounterScenario(t *testing.T) {
	h := newCounterHandler(service.PolicyCoerce)

	rec := do(t, h, http.MethodGet, "/total", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"total":0}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/total", `{"value":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Coin added","total":1}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/total", `{"value":10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Coin added","total":11}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/total", "")
	assert.JSONEq(t, `{"total":11}`, rec.Body.String())
}

func TestCounterRepeatedGetsHaveNoSideEffects(t *testing.T) {
	h := newCounterHandler(service.PolicyCoerce)
	do(t, h, http.MethodPost, "/total", `{"value":7}`)

	for i := 0; i < 5; i++ {
		rec := do(t, h, http.MethodGet, "/total", "")
		assert.JSONEq(t, `{"total":7}`, rec.Body.String())
	}
}

func TestCounterUnsupportedMethods(t *testing.T) {
	h := newCounterHandler(service.PolicyCoerce)
	for _, method := range []string{http.MethodDelete, http.MethodPut, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			rec := do(t, h, method, "/total", "")
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
			assert.Equal(t, "Method "+method+" Not Allowed", strings.TrimSpace(rec.Body.String()))
		})
	}

	rec := do(t, h, http.MethodGet, "/total", "")
	assert.JSONEq(t, `{"total":0}`, rec.Body.String(), "rejected verbs leave the total alone")
}

func TestCounterInvalidValueCoerced(t *testing.T) {
	h := newCounterHandler(service.PolicyCoerce)
	do(t, h, http.MethodPost, "/total", `{"value":5}`)

	rec := do(t, h, http.MethodPost, "/total", `{"value":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Coin added","total":5}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/total", `{"value":"5"}`)
	assert.JSONEq(t, `{"message":"Coin added","total":10}`, rec.Body.String())
}

func TestCounterInvalidValueRejected(t *testing.T) {
	h := newCounterHandler(service.PolicyReject)

	rec := do(t, h, http.MethodPost, "/total", `{"value":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Contains(t, body["error"], "invalid value")

	rec = do(t, h, http.MethodGet, "/total", "")
	assert.JSONEq(t, `{"total":0}`, rec.Body.String())
}

func TestCounterBodyTooLarge(t *testing.T) {
	h := newCounterHandler(service.PolicyCoerce)
	big := `{"value":1,"pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	rec := do(t, h, http.MethodPost, "/total", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/total", "")
	assert.JSONEq(t, `{"total":0}`, rec.Body.String())
}
