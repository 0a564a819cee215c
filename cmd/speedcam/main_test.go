package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/config"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/db"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/region"
)

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, config.DefaultConfigPath, *configPath)
	assert.Equal(t, ":8080", *listen)
	assert.True(t, *realtime)
	assert.False(t, *loop)
	assert.Zero(t, *maxFrames)
}

func TestLoadInputs_MissingDefaults(t *testing.T) {
	dir := t.TempDir()
	in, err := loadInputs("", filepath.Join(dir, "none.json"), "", "")
	require.NoError(t, err)
	assert.Equal(t, region.DefaultPolygon(), in.region)
	assert.Equal(t, 120.0, in.cfg.GetSpeedLimit())
}

func TestLoadInputs_Files(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cam.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"speed_limit": 60}`), 0o644))
	regionPath := filepath.Join(dir, "region.json")
	poly := region.Polygon{{X: 1, Y: 1}, {X: 50, Y: 1}, {X: 50, Y: 40}}
	require.NoError(t, region.SavePolygon(regionPath, poly))

	in, err := loadInputs(cfgPath, regionPath, "", "")
	require.NoError(t, err)
	assert.Equal(t, 60.0, in.cfg.GetSpeedLimit())
	assert.Equal(t, 70.0, in.cfg.GetFineSpeedLimit())
	assert.Equal(t, poly, in.region)
}

func TestLoadInputs_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"fps": 0}`), 0o644))

	_, err := loadInputs(bad, "", "", "")
	assert.Error(t, err)

	_, err = loadInputs(filepath.Join(dir, "missing.json"), "", "", "")
	assert.Error(t, err, "only the default config path may be missing")

	_, err = loadInputs("", "", "", "n4")
	assert.Error(t, err, "site without database")
}

func TestLoadInputs_Site(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sites.db")
	store, err := db.NewDB(dbPath)
	require.NoError(t, err)
	poly := region.Polygon{{X: 10, Y: 10}, {X: 200, Y: 10}, {X: 200, Y: 90}, {X: 10, Y: 90}}
	s := db.SiteFromConfig("n4-km12", config.Defaults(), poly)
	s.SpeedLimit = 100
	require.NoError(t, store.CreateSite(&s))
	require.NoError(t, store.Close())

	in, err := loadInputs("", "", dbPath, "n4-km12")
	require.NoError(t, err)
	assert.Equal(t, poly, in.region)
	assert.Equal(t, 110.0, in.cfg.GetFineSpeedLimit())
	assert.Equal(t, "n4-km12", in.site)

	_, err = loadInputs("", "", dbPath, "missing")
	assert.ErrorIs(t, err, db.ErrSiteNotFound)
}
