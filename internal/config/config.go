package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/units"
)

// DefaultConfigPath is the path to the canonical calibration defaults file.
const DefaultConfigPath = "config/speedcam.defaults.json"

// Representative points used for region containment.
const (
	PointBottomCenter = "bottom_center"
	PointCenter       = "center"
)

// Config is the root configuration for one camera. Every field is a pointer
// so partial JSON files are valid: Get* accessors fall back to the defaults
// measured on the reference footage.
type Config struct {
	// Processing resolution (frames are scaled to this before detection)
	ProcessingWidth  *int `json:"processing_width,omitempty"`
	ProcessingHeight *int `json:"processing_height,omitempty"`
	FPS              *int `json:"fps,omitempty"`

	// Ground-plane calibration. SourceQuad is expressed in the reference
	// resolution and scaled to the processing resolution at startup.
	ReferenceWidth  *int           `json:"reference_width,omitempty"`
	ReferenceHeight *int           `json:"reference_height,omitempty"`
	SourceQuad      *[4][2]float64 `json:"source_quad,omitempty"`
	TargetWidth     *float64       `json:"target_width,omitempty"`
	TargetHeight    *float64       `json:"target_height,omitempty"`

	// Speed estimation
	SamplingInterval *int     `json:"sampling_interval,omitempty"`
	ScalingFactor    *float64 `json:"scaling_factor,omitempty"`

	// Violation policy (km/h)
	SpeedLimit      *float64 `json:"speed_limit,omitempty"`
	ViolationMargin *float64 `json:"violation_margin,omitempty"`

	// Evidence capture
	EvidenceCapacity *int    `json:"evidence_capacity,omitempty"`
	EvidenceDir      *string `json:"evidence_dir,omitempty"`
	JPEGQuality      *int    `json:"jpeg_quality,omitempty"`

	// Track lifecycle
	TrackTTL *string `json:"track_ttl,omitempty"` // duration string like "2s"

	RepresentativePoint *string `json:"representative_point,omitempty"`
	DisplayUnits        *string `json:"display_units,omitempty"`
}

// defaultSourceQuad is the lane quadrilateral measured on the 3840x2160
// reference footage.
var defaultSourceQuad = [4][2]float64{{1252, 787}, {2298, 803}, {5039, 2159}, {-550, 2159}}

// Defaults returns a Config with every field populated.
func Defaults() *Config {
	quad := defaultSourceQuad
	return &Config{
		ProcessingWidth:     ptrInt(1280),
		ProcessingHeight:    ptrInt(720),
		FPS:                 ptrInt(25),
		ReferenceWidth:      ptrInt(3840),
		ReferenceHeight:     ptrInt(2160),
		SourceQuad:          &quad,
		TargetWidth:         ptrFloat64(25),
		TargetHeight:        ptrFloat64(250),
		SamplingInterval:    ptrInt(25),
		ScalingFactor:       ptrFloat64(3.4),
		SpeedLimit:          ptrFloat64(120),
		ViolationMargin:     ptrFloat64(10),
		EvidenceCapacity:    ptrInt(100),
		EvidenceDir:         ptrString("evidence"),
		JPEGQuality:         ptrInt(80),
		TrackTTL:            ptrString("2s"),
		RepresentativePoint: ptrString(PointBottomCenter),
		DisplayUnits:        ptrString(units.KMPH),
	}
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// LoadConfig loads a Config from a JSON file. Omitted fields keep their
// defaults through the Get* accessors.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *Config) Validate() error {
	for name, v := range map[string]*int{
		"processing_width":  c.ProcessingWidth,
		"processing_height": c.ProcessingHeight,
		"fps":               c.FPS,
		"reference_width":   c.ReferenceWidth,
		"reference_height":  c.ReferenceHeight,
		"sampling_interval": c.SamplingInterval,
		"evidence_capacity": c.EvidenceCapacity,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, *v)
		}
	}

	if c.TargetWidth != nil && *c.TargetWidth < 2 {
		return fmt.Errorf("target_width must be at least 2, got %g", *c.TargetWidth)
	}
	if c.TargetHeight != nil && *c.TargetHeight < 2 {
		return fmt.Errorf("target_height must be at least 2, got %g", *c.TargetHeight)
	}
	if c.ScalingFactor != nil && (*c.ScalingFactor <= 0 || math.IsInf(*c.ScalingFactor, 0) || math.IsNaN(*c.ScalingFactor)) {
		return fmt.Errorf("scaling_factor must be a positive finite number, got %g", *c.ScalingFactor)
	}
	if c.SpeedLimit != nil && *c.SpeedLimit < 0 {
		return fmt.Errorf("speed_limit must be non-negative, got %g", *c.SpeedLimit)
	}
	if c.ViolationMargin != nil && *c.ViolationMargin < 0 {
		return fmt.Errorf("violation_margin must be non-negative, got %g", *c.ViolationMargin)
	}
	if c.JPEGQuality != nil && (*c.JPEGQuality < 1 || *c.JPEGQuality > 100) {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", *c.JPEGQuality)
	}
	if c.TrackTTL != nil && *c.TrackTTL != "" {
		if _, err := time.ParseDuration(*c.TrackTTL); err != nil {
			return fmt.Errorf("invalid track_ttl '%s': %w", *c.TrackTTL, err)
		}
	}
	if c.RepresentativePoint != nil {
		switch *c.RepresentativePoint {
		case PointBottomCenter, PointCenter:
		default:
			return fmt.Errorf("representative_point must be %q or %q, got %q", PointBottomCenter, PointCenter, *c.RepresentativePoint)
		}
	}
	if c.DisplayUnits != nil && !units.IsValid(*c.DisplayUnits) {
		return fmt.Errorf("display_units must be one of %s, got %q", units.GetValidUnitsString(), *c.DisplayUnits)
	}
	return nil
}

// GetProcessingWidth returns the processing_width value or the default.
func (c *Config) GetProcessingWidth() int {
	if c.ProcessingWidth == nil {
		return 1280
	}
	return *c.ProcessingWidth
}

// GetProcessingHeight returns the processing_height value or the default.
func (c *Config) GetProcessingHeight() int {
	if c.ProcessingHeight == nil {
		return 720
	}
	return *c.ProcessingHeight
}

// GetFPS returns the fps value or the default.
func (c *Config) GetFPS() int {
	if c.FPS == nil {
		return 25
	}
	return *c.FPS
}

// GetReferenceWidth returns the reference_width value or the default.
func (c *Config) GetReferenceWidth() int {
	if c.ReferenceWidth == nil {
		return 3840
	}
	return *c.ReferenceWidth
}

// GetReferenceHeight returns the reference_height value or the default.
func (c *Config) GetReferenceHeight() int {
	if c.ReferenceHeight == nil {
		return 2160
	}
	return *c.ReferenceHeight
}

// GetSourceQuad returns the source quadrilateral in reference coordinates.
func (c *Config) GetSourceQuad() [4][2]float64 {
	if c.SourceQuad == nil {
		return defaultSourceQuad
	}
	return *c.SourceQuad
}

// GetTargetWidth returns the target_width value or the default.
func (c *Config) GetTargetWidth() float64 {
	if c.TargetWidth == nil {
		return 25
	}
	return *c.TargetWidth
}

// GetTargetHeight returns the target_height value or the default.
func (c *Config) GetTargetHeight() float64 {
	if c.TargetHeight == nil {
		return 250
	}
	return *c.TargetHeight
}

// GetSamplingInterval returns the sampling_interval value or the default.
func (c *Config) GetSamplingInterval() int {
	if c.SamplingInterval == nil {
		return 25
	}
	return *c.SamplingInterval
}

// GetScalingFactor returns the scaling_factor value or the default.
func (c *Config) GetScalingFactor() float64 {
	if c.ScalingFactor == nil {
		return 3.4
	}
	return *c.ScalingFactor
}

// GetSpeedLimit returns the speed_limit value or the default.
func (c *Config) GetSpeedLimit() float64 {
	if c.SpeedLimit == nil {
		return 120
	}
	return *c.SpeedLimit
}

// GetViolationMargin returns the violation_margin value or the default.
func (c *Config) GetViolationMargin() float64 {
	if c.ViolationMargin == nil {
		return 10
	}
	return *c.ViolationMargin
}

// GetFineSpeedLimit is the speed above which a track inside the region is a
// violation.
func (c *Config) GetFineSpeedLimit() float64 {
	return c.GetSpeedLimit() + c.GetViolationMargin()
}

// GetEvidenceCapacity returns the evidence_capacity value or the default.
func (c *Config) GetEvidenceCapacity() int {
	if c.EvidenceCapacity == nil {
		return 100
	}
	return *c.EvidenceCapacity
}

// GetEvidenceDir returns the evidence_dir value or the default.
func (c *Config) GetEvidenceDir() string {
	if c.EvidenceDir == nil || *c.EvidenceDir == "" {
		return "evidence"
	}
	return *c.EvidenceDir
}

// GetJPEGQuality returns the jpeg_quality value or the default.
func (c *Config) GetJPEGQuality() int {
	if c.JPEGQuality == nil {
		return 80
	}
	return *c.JPEGQuality
}

// GetTrackTTL parses and returns the TrackTTL. Zero disables eviction.
func (c *Config) GetTrackTTL() time.Duration {
	if c.TrackTTL == nil || *c.TrackTTL == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(*c.TrackTTL)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetRepresentativePoint returns the representative_point value or the default.
func (c *Config) GetRepresentativePoint() string {
	if c.RepresentativePoint == nil {
		return PointBottomCenter
	}
	return *c.RepresentativePoint
}

// GetDisplayUnits returns the display_units value or the default.
func (c *Config) GetDisplayUnits() string {
	if c.DisplayUnits == nil {
		return units.KMPH
	}
	return *c.DisplayUnits
}
