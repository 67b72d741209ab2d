package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var seen string
	h := LoggerMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		LoggerFromContext(r.Context(), nil).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))

		entries := logs.TakeAll()
		require.Len(t, entries, 2)
		assert.Equal(t, "inside", entries[0].Message)
		assert.Equal(t, seen, entries[0].ContextMap()["request_id"])

		fields := entries[1].ContextMap()
		assert.Equal(t, "request", entries[1].Message)
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "/health", fields["path"])
		assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	})

	t.Run("keeps inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "trace-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, "trace-123", seen)
		assert.Equal(t, "trace-123", rr.Header().Get(RequestIDHeader))
		logs.TakeAll()
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Len(t, seen, 36)
		logs.TakeAll()
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Chain(LoggerMiddleware(zap.New(core)), RecoveryMiddleware)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/predict", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"An internal server error occurred"}`, rr.Body.String())
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ask", nil)
		req.Header.Set("Origin", "https://farm.example")
		rr := httptest.NewRecorder()
		CORSMiddleware([]string{"https://farm.example"})(next).ServeHTTP(rr, req)

		assert.Equal(t, "https://farm.example", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ask", nil)
		req.Header.Set("Origin", "https://evil.example")
		rr := httptest.NewRecorder()
		CORSMiddleware([]string{"https://farm.example"})(next).ServeHTTP(rr, req)

		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
		req.Header.Set("Origin", "https://any.example")
		rr := httptest.NewRecorder()
		CORSMiddleware([]string{"*"})(next).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "https://any.example", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}

func TestRequestSizeLimit(t *testing.T) {
	h := NewServer(ServerConfig{Port: 5000, MaxBodyBytes: 32}, Dependencies{Classifier: &fakeClassifier{label: "rice"}}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(validPredict))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.JSONEq(t, `{"error":"Request body too large"}`, rr.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeadersMiddleware(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestLoggerFromContextFallback(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fallback := zap.New(core)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	LoggerFromContext(ctx, fallback).Info("outside middleware")
	assert.Equal(t, 1, logs.FilterMessage("outside middleware").Len())
	assert.NotNil(t, LoggerFromContext(ctx, nil))
}
