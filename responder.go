package trafficlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// PhaseReader reports the phase of a light without blocking.
type PhaseReader interface {
	CurrentPhase() Phase
}

// Responder serves the current phase of a light over HTTP.
type Responder struct {
	addr  string
	light PhaseReader
}

func NewResponder(cfg *ResponderConfig, light PhaseReader) *Responder {
	return &Responder{
		addr:  cfg.Addr,
		light: light,
	}
}

func (r *Responder) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("failed to listen %s: %w", r.addr, err)
	}
	return r.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (r *Responder) Serve(ctx context.Context, ln net.Listener) error {
	srv := http.Server{
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()

	slog.Info("responder listening", "module", "responder", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler answers 200 while the light is green and 503 while it is red.
func (r *Responder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		code := http.StatusOK
		p := r.light.CurrentPhase()
		switch p {
		case PhaseGreen:
		case PhaseRed:
			code = http.StatusServiceUnavailable
		default:
			slog.Warn("unknown phase", "module", "responder", "phase", p.String())
			code = http.StatusInternalServerError
		}
		w.WriteHeader(code)
		fmt.Fprintln(w, p)
	})
}
