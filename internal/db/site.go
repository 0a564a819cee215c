package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/config"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/plane"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/region"
)

// ErrSiteNotFound is returned when no site has the requested name.
var ErrSiteNotFound = errors.New("site not found")

// Site is one camera installation: where it looks and how it is calibrated.
type Site struct {
	ID              int            `json:"id"`
	Name            string         `json:"name"`
	Location        string         `json:"location"`
	Region          region.Polygon `json:"region"`
	SourceQuad      [4][2]float64  `json:"source_quad"`
	ReferenceWidth  int            `json:"reference_width"`
	ReferenceHeight int            `json:"reference_height"`
	TargetWidth     float64        `json:"target_width"`
	TargetHeight    float64        `json:"target_height"`
	ScalingFactor   float64        `json:"scaling_factor"`
	SpeedLimit      float64        `json:"speed_limit"`
	ViolationMargin float64        `json:"violation_margin"`
	Notes           *string        `json:"notes"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// SiteFromConfig captures the calibration in cfg and the given region as a
// new site.
func SiteFromConfig(name string, cfg *config.Config, poly region.Polygon) Site {
	return Site{
		Name:            name,
		Region:          poly.Clone(),
		SourceQuad:      cfg.GetSourceQuad(),
		ReferenceWidth:  cfg.GetReferenceWidth(),
		ReferenceHeight: cfg.GetReferenceHeight(),
		TargetWidth:     cfg.GetTargetWidth(),
		TargetHeight:    cfg.GetTargetHeight(),
		ScalingFactor:   cfg.GetScalingFactor(),
		SpeedLimit:      cfg.GetSpeedLimit(),
		ViolationMargin: cfg.GetViolationMargin(),
	}
}

// Apply returns a copy of cfg with this site's calibration written over it.
func (s *Site) Apply(cfg *config.Config) *config.Config {
	out := *cfg
	quad := s.SourceQuad
	rw, rh := s.ReferenceWidth, s.ReferenceHeight
	tw, th := s.TargetWidth, s.TargetHeight
	sf, sl, vm := s.ScalingFactor, s.SpeedLimit, s.ViolationMargin
	out.SourceQuad = &quad
	out.ReferenceWidth, out.ReferenceHeight = &rw, &rh
	out.TargetWidth, out.TargetHeight = &tw, &th
	out.ScalingFactor, out.SpeedLimit, out.ViolationMargin = &sf, &sl, &vm
	return &out
}

// Validate rejects sites that could not drive a pipeline.
func (s *Site) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("site name is required")
	}
	if !s.Region.Valid() {
		return fmt.Errorf("site %q: region needs at least 3 points, got %d", s.Name, len(s.Region))
	}
	if s.ReferenceWidth <= 0 || s.ReferenceHeight <= 0 {
		return fmt.Errorf("site %q: invalid reference resolution %dx%d", s.Name, s.ReferenceWidth, s.ReferenceHeight)
	}
	if _, err := plane.New(plane.QuadFromArray(s.SourceQuad), s.TargetWidth, s.TargetHeight); err != nil {
		return fmt.Errorf("site %q: %w", s.Name, err)
	}
	if s.ScalingFactor <= 0 {
		return fmt.Errorf("site %q: scaling factor must be positive", s.Name)
	}
	if s.SpeedLimit < 0 || s.ViolationMargin < 0 {
		return fmt.Errorf("site %q: speed limit and margin must be non-negative", s.Name)
	}
	return nil
}

func encodeGeometry(s *Site) (regionJSON, quadJSON string, err error) {
	r, err := json.Marshal(s.Region)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode region: %w", err)
	}
	q, err := json.Marshal(s.SourceQuad)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode source quad: %w", err)
	}
	return string(r), string(q), nil
}

// CreateSite validates and inserts site, filling in its ID and timestamps.
func (db *DB) CreateSite(site *Site) error {
	if err := site.Validate(); err != nil {
		return err
	}
	regionJSON, quadJSON, err := encodeGeometry(site)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	result, err := db.DB.Exec(`
		INSERT INTO site (
			name, location, region, source_quad,
			reference_width, reference_height, target_width, target_height,
			scaling_factor, speed_limit, violation_margin, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		site.Name, site.Location, regionJSON, quadJSON,
		site.ReferenceWidth, site.ReferenceHeight, site.TargetWidth, site.TargetHeight,
		site.ScalingFactor, site.SpeedLimit, site.ViolationMargin, site.Notes,
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	site.ID = int(id)
	site.CreatedAt, site.UpdatedAt = now, now
	return nil
}

// UpdateSite rewrites every field of the site with the same name.
func (db *DB) UpdateSite(site *Site) error {
	if err := site.Validate(); err != nil {
		return err
	}
	regionJSON, quadJSON, err := encodeGeometry(site)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	result, err := db.DB.Exec(`
		UPDATE site SET
			location = ?, region = ?, source_quad = ?,
			reference_width = ?, reference_height = ?, target_width = ?, target_height = ?,
			scaling_factor = ?, speed_limit = ?, violation_margin = ?, notes = ?,
			updated_at = ?
		WHERE name = ?`,
		site.Location, regionJSON, quadJSON,
		site.ReferenceWidth, site.ReferenceHeight, site.TargetWidth, site.TargetHeight,
		site.ScalingFactor, site.SpeedLimit, site.ViolationMargin, site.Notes,
		now.Unix(), site.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update site: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSiteNotFound, site.Name)
	}
	site.UpdatedAt = now
	return nil
}

const siteColumns = `
	id, name, location, region, source_quad,
	reference_width, reference_height, target_width, target_height,
	scaling_factor, speed_limit, violation_margin, notes,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (*Site, error) {
	var site Site
	var regionJSON, quadJSON string
	var createdAtUnix, updatedAtUnix int64
	if err := row.Scan(
		&site.ID, &site.Name, &site.Location, &regionJSON, &quadJSON,
		&site.ReferenceWidth, &site.ReferenceHeight, &site.TargetWidth, &site.TargetHeight,
		&site.ScalingFactor, &site.SpeedLimit, &site.ViolationMargin, &site.Notes,
		&createdAtUnix, &updatedAtUnix,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(regionJSON), &site.Region); err != nil {
		return nil, fmt.Errorf("site %q: corrupt region: %w", site.Name, err)
	}
	if err := json.Unmarshal([]byte(quadJSON), &site.SourceQuad); err != nil {
		return nil, fmt.Errorf("site %q: corrupt source quad: %w", site.Name, err)
	}
	site.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	site.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()
	return &site, nil
}

// GetSite returns the site with the given name.
func (db *DB) GetSite(name string) (*Site, error) {
	site, err := scanSite(db.DB.QueryRow(`SELECT `+siteColumns+` FROM site WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

// ListSites returns every site ordered by name.
func (db *DB) ListSites() ([]Site, error) {
	rows, err := db.DB.Query(`SELECT ` + siteColumns + ` FROM site ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, *site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sites: %w", err)
	}
	return sites, nil
}

// DeleteSite removes the site with the given name.
func (db *DB) DeleteSite(name string) error {
	result, err := db.DB.Exec(`DELETE FROM site WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSiteNotFound, name)
	}
	return nil
}
