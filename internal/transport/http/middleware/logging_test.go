package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging_RecordsRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := chimiddleware.RequestID(Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/verify-otp", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "/verify-otp", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(len("short and stout")), fields["bytes"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestLogging_ServerErrorAtErrorLevel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestLogging_ImplicitOK(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logging(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, int64(http.StatusOK), logs.All()[0].ContextMap()["status"])
}
