// Package api serves the live annotated stream, track state, calibration
// summary, evidence captures, charts and metrics over HTTP.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/config"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/evidence"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/monitoring"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/pipeline"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/region"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Options wires a Server. Latest and Config are required.
type Options struct {
	Latest   *pipeline.Latest
	Config   *config.Config
	Region   region.Polygon
	Evidence *evidence.DiskStore // optional, enables /api/evidence and /evidence
	Metrics  *monitoring.Metrics // optional, enables /metrics
	Site     string
	// KeepAlive is how long /video_feed waits for a new frame before
	// resending the last one. Defaults to 5s.
	KeepAlive time.Duration
}

type Server struct {
	opts Options
}

func NewServer(opts Options) *Server {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 5 * time.Second
	}
	return &Server{opts: opts}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
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

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", s.index)
	mux.HandleFunc("/video_feed", s.videoFeed)
	mux.HandleFunc("/current_frame.jpg", s.currentFrame)
	mux.HandleFunc("/api/tracks", s.listTracks)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/charts/speeds", s.speedChart)
	if s.opts.Evidence != nil {
		mux.HandleFunc("/api/evidence/{track}", s.listEvidence)
		mux.HandleFunc("/evidence/{track}/{name}", s.evidenceFile)
	}
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics.Handler())
	}
	return mux
}
