package region

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygon_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions", "region_points.json")
	poly := Polygon{{417, 262}, {766, 267}, {1279, 719}, {0, 719}}

	require.NoError(t, SavePolygon(path, poly))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[[417,262],[766,267],[1279,719],[0,719]]\n", string(raw))

	got, err := LoadPolygon(path)
	require.NoError(t, err)
	if diff := cmp.Diff(poly, got); diff != "" {
		t.Errorf("polygon mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPolygon_DrawingToolOutput(t *testing.T) {
	// the drawing tool may emit fractional click coordinates
	path := filepath.Join(t.TempDir(), "region.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[10.7, 20.2], [30, 40], [50, 5]]`), 0644))

	got, err := LoadPolygon(path)
	require.NoError(t, err)
	assert.Equal(t, Polygon{{10, 20}, {30, 40}, {50, 5}}, got)
}

func TestLoadPolygon_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPolygon(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[[1,2,3]]`), 0644))
	_, err = LoadPolygon(bad)
	assert.Error(t, err)
}

func TestPoint_JSON(t *testing.T) {
	data, err := json.Marshal(Point{3, 4})
	require.NoError(t, err)
	assert.JSONEq(t, `[3,4]`, string(data))

	var p Point
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &p))
}

func TestPolygon_Bounds(t *testing.T) {
	b := Polygon{{5, 10}, {20, 3}, {8, 30}}.Bounds()
	assert.Equal(t, 5, b.Min.X)
	assert.Equal(t, 3, b.Min.Y)
	assert.Equal(t, 21, b.Max.X)
	assert.Equal(t, 31, b.Max.Y)
	assert.True(t, Polygon{}.Bounds().Empty())
}
