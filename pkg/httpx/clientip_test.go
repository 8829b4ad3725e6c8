package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hiredeck/hiredeck/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	t.Run("transport peer address by default", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.9:44321"
		req.Header.Set("X-Forwarded-For", "203.0.113.1")

		// Headers are ignored unless the proxy is trusted.
		require.Equal(t, "192.168.1.9", httpx.ClientIP(req, false))
	})

	t.Run("first forwarded-for entry wins when proxy trusted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1000"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")

		require.Equal(t, "203.0.113.1", httpx.ClientIP(req, true))
	})

	t.Run("real-ip header when forwarded-for absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1000"
		req.Header.Set("X-Real-IP", "203.0.113.7")

		require.Equal(t, "203.0.113.7", httpx.ClientIP(req, true))
	})

	t.Run("unknown sentinel when nothing derivable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ""

		require.Equal(t, httpx.UnknownClient, httpx.ClientIP(req, true))
	})
}
