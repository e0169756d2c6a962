package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/prop/internal/config"
	"github.com/vango-dev/prop/pkg/wsbridge"
)

func startServer(t *testing.T, cfg *config.Config) (*server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s, err := newServer(ctx, cfg, testApp().logger, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(s.close)

	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)
	return s, srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func readFrame(t *testing.T, conn *websocket.Conn) wsbridge.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f wsbridge.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestServeHealth(t *testing.T) {
	_, srv := startServer(t, config.New())

	code, body := get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, code)

	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(0), health["clients"])
	assert.Equal(t, true, health["pending"])
}

func TestServeWebSocketRoundTrip(t *testing.T) {
	s, srv := startServer(t, config.New())

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + config.DefaultWSPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, wsbridge.Frame{Pending: true}, readFrame(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"a":1}`)))
	assert.Equal(t, wsbridge.Frame{Value: map[string]any{"a": float64(1)}}, readFrame(t, conn))
	assert.False(t, s.state.Pending())
}

func TestServeReadOnly(t *testing.T) {
	cfg := config.New()
	cfg.Serve.ReadOnly = true
	s, srv := startServer(t, cfg)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + config.DefaultWSPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"a":1}`)))
	time.Sleep(50 * time.Millisecond)
	assert.True(t, s.state.Pending())
}

func TestServeMetrics(t *testing.T) {
	s, srv := startServer(t, config.New())
	s.state.Next("value")

	code, body := get(t, srv.URL+config.DefaultMetricsPath)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `prop_emissions_total{prop="state"} 1`)
	assert.Contains(t, body, "prop_active 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestServeMetricsDisabled(t *testing.T) {
	cfg := config.New()
	cfg.Metrics.Enabled = false
	_, srv := startServer(t, cfg)

	code, _ := get(t, srv.URL+config.DefaultMetricsPath)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServeRedisFeed(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Channel = "states"
	s, _ := startServer(t, cfg)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()
	require.NoError(t, client.Publish(context.Background(), "states", `{"b":2}`).Err())

	require.Eventually(t, func() bool {
		return !s.state.Pending()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, map[string]any{"b": float64(2)}, s.state.Value())
}

func TestServeRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.New()
	cfg.Redis.Addr = addr
	cfg.Redis.Channel = "states"
	_, err := newServer(context.Background(), cfg, testApp().logger, prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestServeEndClosesClients(t *testing.T) {
	s, srv := startServer(t, config.New())

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + config.DefaultWSPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readFrame(t, conn)
	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	s.close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "err = %v", err)
}

func TestOriginChecker(t *testing.T) {
	request := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.Nil(t, originChecker(nil))

	wildcard := originChecker([]string{"*"})
	assert.True(t, wildcard(request("https://evil.example")))

	listed := originChecker([]string{"https://app.example"})
	assert.True(t, listed(request("https://app.example")))
	assert.True(t, listed(request("")))
	assert.False(t, listed(request("https://evil.example")))
}
