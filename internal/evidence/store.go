package evidence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/fsutil"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/monitoring"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/security"
)

// Manifest describes one capture on disk.
type Manifest struct {
	ID          string         `json:"id"`
	TrackID     int            `json:"track_id"`
	FrameOffset int            `json:"frame_offset"`
	Speed       float64        `json:"speed"`
	Frames      []string       `json:"frames"`
	Plot        string         `json:"plot,omitempty"`
	History     []HistoryPoint `json:"history,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// HistoryPoint is a speed reading in manifest form.
type HistoryPoint struct {
	Seconds float64 `json:"t"`
	Speed   float64 `json:"speed"`
}

// DiskStore writes captures below a root directory:
//
//	<root>/<trackID>/<frameOffset+i>_<speed>.jpg
//	<root>/<trackID>/capture-<id>.json
//	<root>/<trackID>/speed-<id>.png
type DiskStore struct {
	fs   fsutil.FileSystem
	root string
}

// NewDiskStore returns a store rooted at root.
func NewDiskStore(fsys fsutil.FileSystem, root string) *DiskStore {
	return &DiskStore{fs: fsys, root: root}
}

// Root is the directory captures are written under.
func (s *DiskStore) Root() string { return s.root }

// FrameName is the file name of frame i of a capture.
func FrameName(frameOffset, i int, speed float64) string {
	return fmt.Sprintf("%d_%.2f.jpg", frameOffset+i, speed)
}

func (s *DiskStore) trackDir(trackID int) (string, error) {
	if trackID < 0 {
		return "", fmt.Errorf("invalid track id %d", trackID)
	}
	return security.ContainedPath(s.root, strconv.Itoa(trackID))
}

// Save writes every frame, the manifest and, when there are at least two
// readings, a speed profile plot.
func (s *DiskStore) Save(c Capture) error {
	dir, err := s.trackDir(c.TrackID)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create evidence dir: %w", err)
	}

	m := Manifest{
		ID:          c.ID.String(),
		TrackID:     c.TrackID,
		FrameOffset: c.FrameOffset,
		Speed:       c.Speed,
		Frames:      make([]string, 0, len(c.Frames)),
		CreatedAt:   c.CreatedAt,
	}
	for i, f := range c.Frames {
		name := FrameName(c.FrameOffset, i, c.Speed)
		if err := s.fs.WriteFile(filepath.Join(dir, name), f.JPEG, 0o644); err != nil {
			return fmt.Errorf("failed to write evidence frame %s: %w", name, err)
		}
		m.Frames = append(m.Frames, name)
	}

	for _, r := range c.History {
		m.History = append(m.History, HistoryPoint{Seconds: r.Timestamp.Seconds(), Speed: r.Speed})
	}
	if len(m.History) >= 2 {
		png, err := speedProfile(c.TrackID, m.History)
		if err != nil {
			monitoring.Logf("[evidence] track %d: speed plot failed: %v", c.TrackID, err)
		} else {
			m.Plot = "speed-" + m.ID + ".png"
			if err := s.fs.WriteFile(filepath.Join(dir, m.Plot), png, 0o644); err != nil {
				return fmt.Errorf("failed to write speed plot: %w", err)
			}
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := s.fs.WriteFile(filepath.Join(dir, "capture-"+m.ID+".json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	monitoring.Logf("[evidence] track %d: saved %d frames at %.2f to %s", c.TrackID, len(c.Frames), c.Speed, dir)
	return nil
}

// Manifests lists the captures stored for a track, oldest file name first.
func (s *DiskStore) Manifests(trackID int) ([]Manifest, error) {
	dir, err := s.trackDir(trackID)
	if err != nil {
		return nil, err
	}
	names, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Manifest
	for _, n := range names {
		if !strings.HasPrefix(n, "capture-") || !strings.HasSuffix(n, ".json") {
			continue
		}
		data, err := s.fs.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", n, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// ReadFile returns one stored file of a track. name must be a bare file name.
func (s *DiskStore) ReadFile(trackID int, name string) ([]byte, error) {
	if !security.IsPlainFilename(name) {
		return nil, fmt.Errorf("invalid evidence file name %q", name)
	}
	dir, err := s.trackDir(trackID)
	if err != nil {
		return nil, err
	}
	p, err := security.ContainedPath(dir, name)
	if err != nil {
		return nil, err
	}
	return s.fs.ReadFile(p)
}

func speedProfile(trackID int, history []HistoryPoint) ([]byte, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Track %d - Speed", trackID)
	p.X.Label.Text = "Stream time (s)"
	p.Y.Label.Text = "Speed (km/h)"

	pts := make(plotter.XYs, len(history))
	for i, h := range history {
		pts[i] = plotter.XY{X: h.Seconds, Y: h.Speed}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 220, A: 255}
	line.Width = vg.Points(1.5)
	p.Add(line, plotter.NewGrid())

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
