package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/monitoring"
)

// videoFeed streams the latest annotated frame as multipart MJPEG. Frames
// are pulled from the single-slot handoff so a slow client skips frames
// instead of holding up the pipeline.
func (s *Server) videoFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	var seq uint64
	var last []byte
	for {
		waitCtx, cancel := context.WithTimeout(ctx, s.opts.KeepAlive)
		snap, err := s.opts.Latest.Wait(waitCtx, seq)
		cancel()
		switch {
		case err == nil:
			seq, last = snap.Seq, snap.JPEG
		case ctx.Err() != nil:
			return
		case errors.Is(err, context.DeadlineExceeded):
			// keepalive: resend the last frame if there is one
		default:
			return
		}
		if last == nil {
			continue
		}

		if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
			monitoring.Debugf("[mjpeg] client disconnected during write: %v", err)
			return
		}
		if _, err := w.Write(last); err != nil {
			monitoring.Debugf("[mjpeg] client disconnected during frame write: %v", err)
			return
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			monitoring.Debugf("[mjpeg] client disconnected during delimiter write: %v", err)
			return
		}
		flusher.Flush()

		// Cap per-client frame rate; the pipeline may publish faster.
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}
