package trafficlight_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fujiwara/trafficlight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLight trafficlight.Phase

func (s staticLight) CurrentPhase() trafficlight.Phase {
	return trafficlight.Phase(s)
}

func TestResponderHandler(t *testing.T) {
	tests := []struct {
		phase trafficlight.Phase
		code  int
	}{
		{trafficlight.PhaseGreen, http.StatusOK},
		{trafficlight.PhaseRed, http.StatusServiceUnavailable},
		{trafficlight.Phase("yellow"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		r := trafficlight.NewResponder(&trafficlight.ResponderConfig{}, staticLight(tt.phase))
		rec := httptest.NewRecorder()
		r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tt.code, rec.Code, tt.phase)
		assert.Equal(t, tt.phase.String()+"\n", rec.Body.String())
	}
}

func TestResponderServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	c := trafficlight.NewController(nil)
	r := trafficlight.NewResponder(&trafficlight.ResponderConfig{}, c)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "red", strings.TrimSpace(string(body)))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("responder did not stop")
	}
}

func TestResponderServeClosedListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln.Close()

	r := trafficlight.NewResponder(&trafficlight.ResponderConfig{}, staticLight(trafficlight.PhaseRed))
	done := make(chan error, 1)
	// the context never ends, so Serve must return on its own
	go func() { done <- r.Serve(context.Background(), ln) }()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return on a closed listener")
	}
}
