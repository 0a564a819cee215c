package evidence

import (
	"bytes"
	"encoding/json"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/fsutil"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/vehicle"
)

func TestFrameName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "120_134.57.jpg", FrameName(100, 20, 134.5678))
	assert.Equal(t, "0_0.00.jpg", FrameName(0, 0, 0))
}

func TestDiskStore_Save(t *testing.T) {
	t.Parallel()
	mem := fsutil.NewMemoryFileSystem()
	store := NewDiskStore(mem, "/evidence")

	c := Capture{
		ID:          uuid.MustParse("6f1c6f5e-3a51-4c59-9b5a-2a2d4f7d0c11"),
		TrackID:     12,
		FrameOffset: 300,
		Speed:       141.234,
		Frames:      []Frame{{Index: 298, JPEG: []byte("a")}, {Index: 299, JPEG: []byte("b")}},
		History: []vehicle.SpeedReading{
			{Timestamp: 11 * time.Second, Speed: 118.5},
			{Timestamp: 12 * time.Second, Speed: 141.234},
		},
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(c))

	names, err := mem.ReadDir("/evidence/12")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"300_141.23.jpg",
		"301_141.23.jpg",
		"capture-6f1c6f5e-3a51-4c59-9b5a-2a2d4f7d0c11.json",
		"speed-6f1c6f5e-3a51-4c59-9b5a-2a2d4f7d0c11.png",
	}, names)

	data, err := store.ReadFile(12, "301_141.23.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)

	plotPNG, err := store.ReadFile(12, "speed-6f1c6f5e-3a51-4c59-9b5a-2a2d4f7d0c11.png")
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(plotPNG))
	require.NoError(t, err)

	manifests, err := store.Manifests(12)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	want := Manifest{
		ID:          c.ID.String(),
		TrackID:     12,
		FrameOffset: 300,
		Speed:       141.234,
		Frames:      []string{"300_141.23.jpg", "301_141.23.jpg"},
		Plot:        "speed-6f1c6f5e-3a51-4c59-9b5a-2a2d4f7d0c11.png",
		History:     []HistoryPoint{{Seconds: 11, Speed: 118.5}, {Seconds: 12, Speed: 141.234}},
		CreatedAt:   c.CreatedAt,
	}
	if diff := cmp.Diff(want, manifests[0]); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestDiskStore_NoPlotWithoutHistory(t *testing.T) {
	t.Parallel()
	mem := fsutil.NewMemoryFileSystem()
	store := NewDiskStore(mem, "/evidence")
	c := Capture{ID: uuid.New(), TrackID: 3, Frames: []Frame{{JPEG: []byte("x")}}}
	require.NoError(t, store.Save(c))

	raw, err := mem.ReadFile(filepath.Join("/evidence", "3", "capture-"+c.ID.String()+".json"))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Empty(t, m.Plot)
	assert.Equal(t, []string{"0_0.00.jpg"}, m.Frames)
}

func TestDiskStore_OnDisk(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	store := NewDiskStore(fsutil.OSFileSystem{}, root)
	b := NewBuffer(2)
	b.Append(Frame{Index: 0, JPEG: []byte("f0")})
	b.Append(Frame{Index: 1, JPEG: []byte("f1")})

	_, err := b.Flush(store, Trigger{TrackID: 7, FrameOffset: 1, Speed: 99.999})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "7", "1_100.00.jpg"))
	assert.FileExists(t, filepath.Join(root, "7", "2_100.00.jpg"))
}

func TestDiskStore_RejectsBadInput(t *testing.T) {
	t.Parallel()
	store := NewDiskStore(fsutil.NewMemoryFileSystem(), "/evidence")

	assert.Error(t, store.Save(Capture{TrackID: -1}))

	_, err := store.ReadFile(1, "../2/x.jpg")
	assert.Error(t, err)
	_, err = store.ReadFile(1, "..")
	assert.Error(t, err)

	_, err = store.Manifests(99)
	assert.Error(t, err)
}
