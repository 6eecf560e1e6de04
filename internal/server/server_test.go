package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jolla3/maziwa-smart-sub000/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func do(s *Server, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.Engine.ServeHTTP(resp, req)
	return resp
}

func TestBearerAuth(t *testing.T) {
	s := New(Options{Addr: ":0", AuthToken: "s3cret"})
	s.API().GET("/v1/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	require.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/v1/ping", "").Code)
	require.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/v1/ping", "wrong").Code)

	resp := do(s, http.MethodGet, "/v1/ping", "s3cret")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "pong", resp.Body.String())

	require.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health", "").Code, "health is open")
}

func TestNoTokenDisablesAuth(t *testing.T) {
	s := New(Options{Addr: ":0"})
	s.API().GET("/v1/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	require.Equal(t, http.StatusNoContent, do(s, http.MethodGet, "/v1/ping", "").Code)
}

func TestHealth(t *testing.T) {
	healthy := New(Options{Health: PingFunc(func(context.Context) error { return nil })})
	require.Equal(t, http.StatusOK, do(healthy, http.MethodGet, "/health", "").Code)

	down := New(Options{Health: PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })})
	resp := do(down, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.NotContains(t, resp.Body.String(), "refused")
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.DirectoryStepBacks.Inc()

	resp := do(New(Options{}), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, strings.Contains(resp.Body.String(), "maziwa_directory_step_backs_total"))
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Run(ctx))
}
