// Package api answers the WLED JSON discovery endpoints so that lighting
// software recognises the bridge as a WLED device, and exposes the bridge's
// localhost-only debug routes.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/arctic.bridge/internal/httputil"
	"github.com/banshee-data/arctic.bridge/internal/monitoring"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves the info and state documents. Both are built once in
// NewServer and never change.
type Server struct {
	info  Info
	state State
}

// NewServer builds the documents for dev.
func NewServer(dev DeviceInfo) *Server {
	return &Server{
		info:  NewInfo(dev),
		state: DefaultState(),
	}
}

// Info returns the info document.
func (s *Server) Info() Info { return s.info }

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration at debug level.
// Discovery clients poll constantly, so nothing is logged outside console
// mode.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !monitoring.DebugEnabled() {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Debugf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns a mux answering every path outside /debug/.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleJSON)
	return mux
}

// Full is the /json document.
type Full struct {
	State State `json:"state"`
	Info  Info  `json:"info"`
}

// handleJSON routes on the path suffix: /json/info, /json/state, /json, and
// anything else gets the info document.
func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		httputil.MethodNotAllowed(w)
		return
	}

	path := strings.TrimRight(r.URL.Path, "/")
	switch {
	case strings.HasSuffix(path, "/json/info"):
		httputil.WriteJSONOK(w, s.info)
	case strings.HasSuffix(path, "/json/state"):
		httputil.WriteJSONOK(w, s.state)
	case strings.HasSuffix(path, "/json"):
		httputil.WriteJSONOK(w, Full{State: s.state, Info: s.info})
	default:
		httputil.WriteJSONOK(w, s.info)
	}
}
