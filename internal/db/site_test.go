package db

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/config"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/plane"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/region"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "sites.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSite(name string) Site {
	s := SiteFromConfig(name, config.Defaults(), region.DefaultPolygon())
	s.Location = "N4 eastbound, km 12"
	return s
}

func TestMigrations(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp(), "re-running is a no-op")

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestOpenDB_NoSchema(t *testing.T) {
	t.Parallel()
	db, err := OpenDB(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestSiteCRUD(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	a := testSite("n4-km12")
	require.NoError(t, db.CreateSite(&a))
	assert.NotZero(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	b := testSite("r40-white-river")
	b.SpeedLimit = 80
	notes := "school zone"
	b.Notes = &notes
	require.NoError(t, db.CreateSite(&b))

	dup := testSite("n4-km12")
	assert.Error(t, db.CreateSite(&dup))

	got, err := db.GetSite("r40-white-river")
	require.NoError(t, err)
	if diff := cmp.Diff(b, *got); diff != "" {
		t.Errorf("site mismatch (-want +got):\n%s", diff)
	}

	sites, err := db.ListSites()
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "n4-km12", sites[0].Name)
	assert.Equal(t, "r40-white-river", sites[1].Name)

	b.Region = region.Polygon{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 50}}
	b.Notes = nil
	require.NoError(t, db.UpdateSite(&b))
	got, err = db.GetSite("r40-white-river")
	require.NoError(t, err)
	if diff := cmp.Diff(b, *got, cmpopts.IgnoreFields(Site{}, "UpdatedAt")); diff != "" {
		t.Errorf("updated site mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, db.DeleteSite("n4-km12"))
	_, err = db.GetSite("n4-km12")
	assert.ErrorIs(t, err, ErrSiteNotFound)
	assert.ErrorIs(t, db.DeleteSite("n4-km12"), ErrSiteNotFound)

	missing := testSite("nowhere")
	assert.ErrorIs(t, db.UpdateSite(&missing), ErrSiteNotFound)
}

func TestSiteValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		mut  func(*Site)
	}{
		{"no name", func(s *Site) { s.Name = " " }},
		{"short region", func(s *Site) { s.Region = s.Region[:2] }},
		{"bad reference", func(s *Site) { s.ReferenceWidth = 0 }},
		{"collinear quad", func(s *Site) { s.SourceQuad = [4][2]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}} }},
		{"tiny target", func(s *Site) { s.TargetWidth = 1 }},
		{"zero scaling", func(s *Site) { s.ScalingFactor = 0 }},
		{"negative margin", func(s *Site) { s.ViolationMargin = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testSite("x")
			tc.mut(&s)
			assert.Error(t, s.Validate())
		})
	}

	s := testSite("x")
	s.SourceQuad = [4][2]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}}
	var dge *plane.DegenerateGeometryError
	assert.ErrorAs(t, s.Validate(), &dge)
}

func TestSiteApply(t *testing.T) {
	t.Parallel()
	s := testSite("x")
	s.SpeedLimit = 60
	s.ViolationMargin = 5
	s.TargetHeight = 300

	base := config.Defaults()
	cfg := s.Apply(base)
	assert.Equal(t, 60.0, cfg.GetSpeedLimit())
	assert.Equal(t, 65.0, cfg.GetFineSpeedLimit())
	assert.Equal(t, 300.0, cfg.GetTargetHeight())
	assert.Equal(t, base.GetFPS(), cfg.GetFPS())
	assert.Equal(t, 120.0, base.GetSpeedLimit(), "base config is untouched")
}
