package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/resolve"
)

// maxControlBody bounds control request bodies.
const maxControlBody = 1 << 20

// NewRouter exposes the engine's control commands below /wcm/ and sends
// every other request to the engine:
//
//	POST /wcm/manifest  body is the manifest JSON
//	GET  /wcm/manifest
//	POST /wcm/flush
//	POST /wcm/rpc       body is {"command": "...", "data": ...}
//	GET  /wcm/state
func NewRouter(e *Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(e.logger))

	r.Route("/wcm", func(r chi.Router) {
		r.Post("/manifest", e.handleSetManifest)
		r.Get("/manifest", e.handleCommand(GetManifest{}))
		r.Post("/flush", e.handleCommand(FlushCache{}))
		r.Post("/rpc", e.handleRPC)
		r.Get("/state", e.handleState)
	})
	r.NotFound(e.ServeHTTP)
	r.MethodNotAllowed(e.ServeHTTP)
	return r
}

func (e *Engine) handleSetManifest(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxControlBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Reply{Err: err})
		return
	}
	m, err := resolve.ParseManifest(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Reply{Err: err})
		return
	}
	e.handleCommand(SetManifest{Manifest: m})(w, r)
}

func (e *Engine) handleCommand(cmd Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := e.Call(r.Context(), cmd)
		writeJSON(w, statusFor(reply.Err), reply)
	}
}

// handleRPC always answers 200 so the caller gets a reply payload, even for
// unknown commands.
func (e *Engine) handleRPC(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxControlBody))
	if err != nil {
		writeJSON(w, http.StatusOK, Reply{Err: err})
		return
	}
	cmd, err := DecodeCommand(data)
	if err != nil {
		writeJSON(w, http.StatusOK, Reply{Err: err})
		return
	}
	writeJSON(w, http.StatusOK, e.Call(r.Context(), cmd))
}

type stateResponse struct {
	State     State      `json:"state"`
	ClaimedAt *time.Time `json:"claimedAt,omitempty"`
	Intercept string     `json:"interceptSrc"`
	Dest      string     `json:"interceptDest"`
}

func (e *Engine) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{State: e.lifecycle.State(), Intercept: e.src, Dest: e.dest}
	if t := e.lifecycle.ClaimedAt(); !t.IsZero() {
		resp.ClaimedAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case wcmerrors.Is(err, wcmerrors.ErrCodeInvalidManifest),
		wcmerrors.Is(err, wcmerrors.ErrCodeInvalidInput),
		wcmerrors.Is(err, wcmerrors.ErrCodeUnknownCommand):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"cache", ww.Header().Get(CacheHeader),
				"took", time.Since(start).Round(time.Microsecond),
			)
		})
	}
}
