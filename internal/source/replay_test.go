package source

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrames(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 16, 12))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+3] = uint8(40*i), 255
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%06d.jpg", i)))
		require.NoError(t, err)
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 95}))
		require.NoError(t, f.Close())
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	return dir
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "detections.jsonl")
	var data []byte
	for _, l := range lines {
		data = append(data, l...)
		data = append(data, '\n')
	}
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func ids(t *testing.T, r *Replay) []int {
	t.Helper()
	f, err := r.Next(context.Background())
	require.NoError(t, err)
	out := []int{}
	for _, d := range f.Detections {
		out = append(out, d.TrackID)
	}
	return out
}

func TestReplay_FramesAndDetections(t *testing.T) {
	t.Parallel()
	dir := writeFrames(t, 3)
	log := writeLog(t,
		`{"frame": 0, "detections": [{"track_id": 1, "bbox": [1, 1, 5, 5], "confidence": 0.9}]}`,
		`{"frame": 2, "detections": [{"track_id": 1, "bbox": [2, 1, 6, 5], "confidence": 0.9}, {"track_id": 2, "bbox": [8, 2, 12, 6], "confidence": 0.6}]}`,
	)
	r, err := NewReplay(ReplayOptions{FramesDir: dir, DetectionsPath: log, Width: 8, Height: 6})
	require.NoError(t, err)
	defer r.Close()

	f, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)
	assert.Equal(t, image.Rect(0, 0, 8, 6), f.Image.Bounds())
	require.Len(t, f.Detections, 1)

	f, err = r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.Index)
	assert.Empty(t, f.Detections)
	assert.InDelta(t, 40, float64(f.Image.RGBAAt(4, 3).R), 10, "frames are scaled, not cropped")

	assert.Equal(t, []int{1, 2}, ids(t, r))

	_, err = r.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplay_DetectionsOnly(t *testing.T) {
	t.Parallel()
	log := writeLog(t,
		`{"frame": 1, "detections": [{"track_id": 4, "bbox": [1, 1, 5, 5], "confidence": 0.9}]}`,
	)
	r, err := NewReplay(ReplayOptions{DetectionsPath: log, Width: 32, Height: 16})
	require.NoError(t, err)
	defer r.Close()

	f, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.Detections)
	assert.Equal(t, Background, f.Image.RGBAAt(0, 0))

	assert.Equal(t, []int{4}, ids(t, r))

	_, err = r.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplay_LoopOffsetsTrackIDs(t *testing.T) {
	t.Parallel()
	dir := writeFrames(t, 2)
	log := writeLog(t,
		`{"frame": 0, "detections": [{"track_id": 3, "bbox": [1, 1, 5, 5], "confidence": 0.9}]}`,
		`{"frame": 1, "detections": [{"track_id": 7, "bbox": [1, 1, 5, 5], "confidence": 0.9}]}`,
	)
	r, err := NewReplay(ReplayOptions{FramesDir: dir, DetectionsPath: log, Width: 16, Height: 12, Loop: true})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []int{3}, ids(t, r))
	assert.Equal(t, []int{7}, ids(t, r))

	f, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.Index, "indices keep counting across passes")
	require.Len(t, f.Detections, 1)
	assert.Equal(t, 11, f.Detections[0].TrackID)
	assert.Equal(t, []int{15}, ids(t, r))
}

func TestReplay_SkipsUnknownFrameNumbers(t *testing.T) {
	t.Parallel()
	dir := writeFrames(t, 2)
	log := writeLog(t,
		`{"frame": 1, "detections": [{"track_id": 1, "bbox": [1, 1, 5, 5], "confidence": 0.9}]}`,
		`{"frame": 0, "detections": [{"track_id": 2, "bbox": [1, 1, 5, 5], "confidence": 0.9}]}`,
	)
	r, err := NewReplay(ReplayOptions{FramesDir: dir, DetectionsPath: log, Width: 16, Height: 12})
	require.NoError(t, err)
	defer r.Close()

	assert.Empty(t, ids(t, r))
	assert.Equal(t, []int{1}, ids(t, r))
}

func TestReplay_Errors(t *testing.T) {
	t.Parallel()
	_, err := NewReplay(ReplayOptions{Width: 10, Height: 10})
	assert.Error(t, err)

	_, err = NewReplay(ReplayOptions{FramesDir: t.TempDir(), Width: 10, Height: 10})
	assert.ErrorContains(t, err, "no frames")

	_, err = NewReplay(ReplayOptions{DetectionsPath: filepath.Join(t.TempDir(), "missing.jsonl"), Width: 10, Height: 10})
	assert.Error(t, err)

	_, err = NewReplay(ReplayOptions{FramesDir: writeFrames(t, 1), Width: 0, Height: 10})
	assert.Error(t, err)

	r, err := NewReplay(ReplayOptions{FramesDir: writeFrames(t, 1), Width: 4, Height: 4})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
