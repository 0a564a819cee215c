package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/httputil"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/plane"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/units"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>Speed camera%s</title></head>
<body style="background:#111;color:#eee;font-family:sans-serif">
<h1>Speed camera%s</h1>
<img src="/video_feed" alt="live stream" style="max-width:100%%">
<p><a href="/api/tracks">tracks</a> | <a href="/charts/speeds">speeds</a> | <a href="/api/config">calibration</a></p>
</body>
</html>
`

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	site := ""
	if s.opts.Site != "" {
		site = " - " + s.opts.Site
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexHTML, site, site)
}

func (s *Server) currentFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	snap, ok := s.opts.Latest.Load()
	if !ok {
		http.Error(w, "No frame available", http.StatusNotFound)
		return
	}
	httputil.WriteBytes(w, "image/jpeg", snap.JPEG)
}

// unitsParam returns the requested display units, falling back to the
// configured ones.
func (s *Server) unitsParam(r *http.Request) (string, error) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.opts.Config.GetDisplayUnits(), nil
	}
	if !units.IsValid(u) {
		return "", fmt.Errorf("invalid units %q, must be one of %s", u, units.GetValidUnitsString())
	}
	return u, nil
}

type trackResponse struct {
	ID         int     `json:"id"`
	State      string  `json:"state"`
	Class      string  `json:"class,omitempty"`
	Inside     bool    `json:"inside"`
	Speed      float64 `json:"speed"`
	MeanSpeed  float64 `json:"mean_speed"`
	PeakSpeed  float64 `json:"peak_speed"`
	Readings   int     `json:"readings"`
	Detections int     `json:"detections"`
	LastSeen   float64 `json:"last_seen_s"`
}

type tracksResponse struct {
	FrameIndex int             `json:"frame_index"`
	Timestamp  float64         `json:"timestamp_s"`
	Units      string          `json:"units"`
	Tracks     []trackResponse `json:"tracks"`
}

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	u, err := s.unitsParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	resp := tracksResponse{Units: u, Tracks: []trackResponse{}}
	if snap, ok := s.opts.Latest.Load(); ok {
		resp.FrameIndex = snap.FrameIndex
		resp.Timestamp = snap.Timestamp.Seconds()
		for _, t := range snap.Tracks {
			resp.Tracks = append(resp.Tracks, trackResponse{
				ID:         t.ID,
				State:      string(t.State),
				Class:      string(t.Class),
				Inside:     t.Inside,
				Speed:      units.FromKMPH(t.Speed, u),
				MeanSpeed:  units.FromKMPH(t.MeanSpeed, u),
				PeakSpeed:  units.FromKMPH(t.PeakSpeed, u),
				Readings:   t.Readings,
				Detections: t.Detections,
				LastSeen:   t.LastSeenSec,
			})
		}
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	cfg := s.opts.Config
	pw, ph := cfg.GetProcessingWidth(), cfg.GetProcessingHeight()
	quad := plane.ScaledQuad(cfg.GetSourceQuad(), cfg.GetReferenceWidth(), cfg.GetReferenceHeight(), pw, ph)
	scaled := make([][2]float64, len(quad))
	for i, p := range quad {
		scaled[i] = [2]float64{p.X, p.Y}
	}
	httputil.WriteJSONOK(w, map[string]any{
		"site":                 s.opts.Site,
		"units":                cfg.GetDisplayUnits(),
		"processing_width":     pw,
		"processing_height":    ph,
		"fps":                  cfg.GetFPS(),
		"source_quad":          scaled,
		"target_width":         cfg.GetTargetWidth(),
		"target_height":        cfg.GetTargetHeight(),
		"sampling_interval":    cfg.GetSamplingInterval(),
		"scaling_factor":       cfg.GetScalingFactor(),
		"speed_limit":          cfg.GetSpeedLimit(),
		"fine_speed_limit":     cfg.GetFineSpeedLimit(),
		"evidence_capacity":    cfg.GetEvidenceCapacity(),
		"track_ttl":            cfg.GetTrackTTL().String(),
		"representative_point": cfg.GetRepresentativePoint(),
		"region":               s.opts.Region,
	})
}

func trackParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("track"))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid track id %q", r.PathValue("track"))
	}
	return id, nil
}

func (s *Server) listEvidence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id, err := trackParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	manifests, err := s.opts.Evidence.Manifests(id)
	if errors.Is(err, fs.ErrNotExist) {
		httputil.NotFound(w, fmt.Sprintf("no evidence for track %d", id))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list evidence: %v", err))
		return
	}
	httputil.WriteJSONOK(w, manifests)
}

func (s *Server) evidenceFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id, err := trackParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	name := r.PathValue("name")
	data, err := s.opts.Evidence.ReadFile(id, name)
	if errors.Is(err, fs.ErrNotExist) {
		httputil.NotFound(w, "evidence file not found")
		return
	}
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	ct := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg":
		ct = "image/jpeg"
	case ".png":
		ct = "image/png"
	case ".json":
		ct = "application/json"
	}
	httputil.WriteBytes(w, ct, data)
}
