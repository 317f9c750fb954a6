package devicesim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// Logger defines the logging interface used by the simulators.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reply is the body of every POST response.
type Reply struct {
	Accepted bool   `json:"accepted"`
	State    any    `json:"state,omitempty"`
	Error    string `json:"error,omitempty"`
}

// payload is a decoded request body. Field checks follow the device
// contract: a missing or empty string is absent, numbers and booleans must
// have the right JSON type.
type payload map[string]any

func (p payload) str(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p payload) number(key string) (float64, bool) {
	n, ok := p[key].(float64)
	return n, ok
}

func (p payload) boolean(key string) (bool, bool) {
	b, ok := p[key].(bool)
	return b, ok
}

// decodePayload reads a JSON object body. An empty body is an empty payload.
func decodePayload(r *http.Request) (payload, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	p := payload{}
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = payload{}
	}
	return p, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	json.NewEncoder(w).Encode(v)
}

func accept(w http.ResponseWriter, state any) {
	writeJSON(w, http.StatusOK, Reply{Accepted: true, State: state})
}

func reject(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, Reply{Accepted: false, Error: msg})
}

// postHandler decodes the body and passes it to fn. Bodies that are not a
// JSON object get a 400.
func postHandler(fn func(w http.ResponseWriter, p payload)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := decodePayload(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Reply{Accepted: false, Error: "invalid JSON body"})
			return
		}
		fn(w, p)
	}
}

// newRouter returns a router with access logging, a JSON 404 and GET /health.
// Each simulator adds its POST routes on top.
func newRouter(kind string, logger Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(accessLog(kind, logger))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Reply{Error: "route not found"})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(kind string, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("device request",
				"device", kind,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// Serve runs h on addr until ctx is cancelled, then shuts down gracefully.
// ready, if non-nil, receives the bound address once listening.
func Serve(ctx context.Context, addr string, h http.Handler, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if ready != nil {
		ready(ln.Addr())
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
