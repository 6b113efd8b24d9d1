// Package config provides TOML configuration loading for the highlight
// director pipeline.
//
// The configuration file supports the following structure:
//
//	[[cameras]]
//	id = 0
//	role = "LEFT"
//	source = "rtsp://cam-left.local/stream"
//
//	[[cameras]]
//	id = 1
//	role = "RIGHT"
//	source = "rtsp://cam-right.local/stream"
//
//	[detector]
//	tau_conf = 0.35
//	tau_high = 0.7
//	delta_max = 150
//	pitch_mask_enabled = true
//	ball_class = "ball"
//
//	[sticky]
//	tau_exclude_override = 0.85
//	alpha = 0.5
//
//	[switcher]
//	tau_found = 0.5
//	middle_opposite = false
//
//	[fallback]
//	t_fb_sec = 1.5
//	k_same = 3
//
//	[output]
//	duration_seconds = 90
//	sink_path = "highlight.mp4"
//	report_path = "report.json"
//
// Example usage:
//
//	cfg, err := config.Load("config.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("camera count: %d\n", len(cfg.Cameras))
package config

import (
	"fmt"
	"os"

	"time"

	"github.com/BurntSushi/toml"

	"github.com/abdullah-azi/football-highlights/pkg/highlight"
)

// Config is the complete configuration for a highlighter run.
type Config struct {
	Cameras              []CameraConfig `toml:"cameras"`
	Model                ModelConfig    `toml:"model"`
	Detector             DetectorConfig `toml:"detector"`
	Sticky               StickyConfig   `toml:"sticky"`
	Switcher             SwitcherConfig `toml:"switcher"`
	Zones                ZonesConfig    `toml:"zones"`
	Fallback             FallbackConfig `toml:"fallback"`
	Output               OutputConfig   `toml:"output"`
	Phase0               Phase0Config   `toml:"phase0"`
	PreSwitchRequireBall bool           `toml:"pre_switch_require_ball"`
	Logging              LoggingConfig  `toml:"logging"`
	Metrics              MetricsConfig  `toml:"metrics"`
}

// CameraConfig describes one input feed (spec §4.3's role assignments).
type CameraConfig struct {
	ID     int                 `toml:"id"`
	Role   highlight.CameraRole `toml:"role"`
	Source string              `toml:"source"`
}

// ModelConfig locates and configures the gocv DNN detector backend (spec
// §6.1's black-box boundary; the backend itself is out of scope, but the
// repo still needs somewhere to point at weights on disk).
type ModelConfig struct {
	Path        string   `toml:"path"`
	ConfigPath  string   `toml:"config_path"`
	InputW      int      `toml:"input_w"`
	InputH      int      `toml:"input_h"`
	ScaleFactor float64  `toml:"scale_factor"`
	MeanR       float64  `toml:"mean_r"`
	MeanG       float64  `toml:"mean_g"`
	MeanB       float64  `toml:"mean_b"`
	ClassNames  []string `toml:"class_names"`
	MinConf     float64  `toml:"min_conf"`
}

// DetectorConfig mirrors highlight.DetectorConfig (spec §4.1).
type DetectorConfig struct {
	// TauConf is the minimum candidate confidence considered at all.
	TauConf float64 `toml:"tau_conf"`
	// TauHigh is the confidence above which motion(c) is forced to 1.
	TauHigh float64 `toml:"tau_high"`
	// DeltaMax is the pixel-space distance from the motion prior above which
	// motion(c) = 0 unless conf(c) >= TauHigh. Candidate boxes come out of
	// the backend in pixel coordinates, so this threshold is pixels, not a
	// normalized fraction.
	DeltaMax float64 `toml:"delta_max"`
	// PitchMaskEnabled toggles the HSV green-band prior.
	PitchMaskEnabled bool `toml:"pitch_mask_enabled"`
	// BallClass restricts candidates to this backend class label.
	BallClass string `toml:"ball_class"`
}

// StickyConfig mirrors highlight.StickyConfig (spec §4.2). ExclusionZones is
// configured separately under [zones] and merged in by HighlightStickyConfig
// (via ExclusionZones), since a
// per-camera rectangle list doesn't fit a flat TOML table.
type StickyConfig struct {
	TauExcludeOverride float64 `toml:"tau_exclude_override"`
	TauStatLow         float64 `toml:"tau_stat_low"`
	// DeltaStat is the pixel-space radius a stationary candidate cluster
	// must stay within over NStatSeconds to trigger rule 2's reject.
	DeltaStat float64 `toml:"delta_stat"`
	// DeltaJump is the pixel-space distance from the last accepted center
	// beyond which a candidate is treated as a suspect jump (rule 3).
	DeltaJump float64 `toml:"delta_jump"`
	IotaMin   float64 `toml:"iota_min"`
	TauGate            float64 `toml:"tau_gate"`
	NStatSeconds       float64 `toml:"n_stat_seconds"`
	HMaxSeconds        float64 `toml:"h_max_seconds"`
	SuspectConfirmSec  float64 `toml:"suspect_confirm_sec"`
	Alpha              float64 `toml:"alpha"`
}

// SwitcherConfig mirrors highlight.SwitcherConfig plus the routing-wide
// middle_opposite flag (spec §4.3).
type SwitcherConfig struct {
	TauFound float64 `toml:"tau_found"`
	TauExit  float64 `toml:"tau_exit"`
	VAway    float64 `toml:"v_away"`

	TCooldownSec float64 `toml:"t_cooldown_sec"`
	TMinHoldSec  float64 `toml:"t_min_hold_sec"`
	TArmSec      float64 `toml:"t_arm_sec"`
	TStableSec   float64 `toml:"t_stable_sec"`
	TDisarmSec   float64 `toml:"t_disarm_sec"`
	TMissSec     float64 `toml:"t_miss_sec"`

	HistoryLen int `toml:"history_len"`

	MiddleOpposite bool `toml:"middle_opposite"`
}

// ZonesConfig configures the periphery-band geometry and each camera's
// exclusion rectangles (spec §4.2, §4.3).
type ZonesConfig struct {
	EdgeMargin       float64              `toml:"edge_margin"`
	TopBandHeight    float64              `toml:"top_band_height"`
	BottomBandHeight float64              `toml:"bottom_band_height"`
	EqualHalfWidth   float64              `toml:"equal_half_width"`
	Exclusion        []ExclusionZoneEntry `toml:"exclusion"`
}

// ExclusionZoneEntry binds one normalized rectangle to a camera id.
type ExclusionZoneEntry struct {
	CameraID int     `toml:"camera_id"`
	X1       float64 `toml:"x1"`
	Y1       float64 `toml:"y1"`
	X2       float64 `toml:"x2"`
	Y2       float64 `toml:"y2"`
}

// FallbackConfig mirrors highlight.FallbackConfig (spec §4.4).
type FallbackConfig struct {
	TFbSec        float64 `toml:"t_fb_sec"`
	DProx         float64 `toml:"d_prox"`
	KSame         int     `toml:"k_same"`
	KAlt          int     `toml:"k_alt"`
	Rho           float64 `toml:"rho"`
	TimeWindowSec float64 `toml:"time_window_sec"`
	AMax          int     `toml:"a_max"`
	PSec          float64 `toml:"p_sec"`
	CMax          int     `toml:"c_max"`
	OnePerTick    bool    `toml:"one_per_tick"`
}

// OutputConfig controls the Writer and run-report destinations (spec §4.5,
// §6.3).
type OutputConfig struct {
	DurationSeconds float64 `toml:"duration_seconds"`
	OutputFPS       float64 `toml:"output_fps"`
	FallbackFPS     float64 `toml:"fallback_fps"`
	SinkPath        string  `toml:"sink_path"`
	ReportPath      string  `toml:"report_path"`
}

// Phase0Config mirrors highlight.Phase0Config (spec §4.4).
type Phase0Config struct {
	NScan int `toml:"n_scan"`
}

// LoggingConfig controls the zerolog writer (ambient concern, not a spec
// feature).
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console, json
}

// MetricsConfig controls the optional Prometheus endpoint (ambient concern).
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the default configuration. Cameras is left empty; callers
// populate it from -stream flags or a config file's [[cameras]] tables.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			InputW:      416,
			InputH:      416,
			ScaleFactor: 1.0 / 255.0,
			ClassNames:  []string{"ball"},
			MinConf:     0.1,
		},
		Detector: DetectorConfig{
			TauConf:          0.35,
			TauHigh:          0.7,
			DeltaMax:         150,
			PitchMaskEnabled: true,
			BallClass:        "ball",
		},
		Sticky: StickyConfig{
			TauExcludeOverride: 0.85,
			TauStatLow:         0.40,
			DeltaStat:          8,
			DeltaJump:          80,
			IotaMin:            0.1,
			TauGate:            0.35,
			NStatSeconds:       3,
			HMaxSeconds:        1,
			SuspectConfirmSec:  0.15,
			Alpha:              0.5,
		},
		Switcher: SwitcherConfig{
			TauFound:     0.5,
			TauExit:      0.50,
			VAway:        0.002,
			TCooldownSec: 3,
			TMinHoldSec:  2,
			TArmSec:      0.2,
			TStableSec:   0.2,
			TDisarmSec:   0.3,
			TMissSec:     1,
			HistoryLen:   10,
		},
		Zones: ZonesConfig{
			EdgeMargin:       0.12,
			TopBandHeight:    0.12,
			BottomBandHeight: 0.12,
			EqualHalfWidth:   0.08,
		},
		Fallback: FallbackConfig{
			TFbSec:        1.5,
			DProx:         0.15,
			KSame:         3,
			KAlt:          4,
			Rho:           0.3,
			TimeWindowSec: 2,
			AMax:          6,
			PSec:          2,
			CMax:          3,
			OnePerTick:    true,
		},
		Output: OutputConfig{
			DurationSeconds: 90,
			FallbackFPS:     25,
			SinkPath:        "highlight.mp4",
			ReportPath:      "report.json",
		},
		Phase0: Phase0Config{
			NScan: 30,
		},
		PreSwitchRequireBall: false,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
	}
}

// Load reads and parses a TOML configuration file. If the file does not
// exist, it returns the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if len(c.Cameras) > 0 {
		seen := make(map[int]bool, len(c.Cameras))
		middleCount := 0
		for _, cam := range c.Cameras {
			if seen[cam.ID] {
				return fmt.Errorf("duplicate camera id %d", cam.ID)
			}
			seen[cam.ID] = true
			if cam.Source == "" {
				return fmt.Errorf("camera %d: source must not be empty", cam.ID)
			}
			if cam.Role == highlight.RoleMiddle {
				middleCount++
			}
		}
		if middleCount > 1 {
			return fmt.Errorf("at most one camera may have role MIDDLE, got %d", middleCount)
		}
	}

	if len(c.Cameras) > 0 && c.Model.Path == "" {
		return fmt.Errorf("model.path must be set when cameras are configured")
	}

	if c.Detector.TauConf < 0 || c.Detector.TauConf > 1 {
		return fmt.Errorf("detector.tau_conf must be between 0 and 1, got %f", c.Detector.TauConf)
	}
	if c.Detector.TauHigh < c.Detector.TauConf {
		return fmt.Errorf("detector.tau_high must be >= detector.tau_conf")
	}

	if c.Sticky.Alpha < 0 || c.Sticky.Alpha > 1 {
		return fmt.Errorf("sticky.alpha must be between 0 and 1, got %f", c.Sticky.Alpha)
	}

	if c.Switcher.TCooldownSec < 0 {
		return fmt.Errorf("switcher.t_cooldown_sec must not be negative, got %f", c.Switcher.TCooldownSec)
	}
	if c.Switcher.HistoryLen <= 0 {
		return fmt.Errorf("switcher.history_len must be positive, got %d", c.Switcher.HistoryLen)
	}

	if c.Fallback.KSame <= 0 || c.Fallback.KAlt <= 0 {
		return fmt.Errorf("fallback.k_same and fallback.k_alt must be positive")
	}
	if c.Fallback.Rho < 0 || c.Fallback.Rho > 1 {
		return fmt.Errorf("fallback.rho must be between 0 and 1, got %f", c.Fallback.Rho)
	}

	if c.Output.DurationSeconds <= 0 {
		return fmt.Errorf("output.duration_seconds must be positive, got %f", c.Output.DurationSeconds)
	}
	if c.Output.SinkPath == "" {
		return fmt.Errorf("output.sink_path must not be empty")
	}

	if c.Phase0.NScan <= 0 {
		return fmt.Errorf("phase0.n_scan must be positive, got %d", c.Phase0.NScan)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	return nil
}

// HighlightCameras converts the configured camera list into highlight.Camera values.
func (c *Config) HighlightCameras() []highlight.Camera {
	out := make([]highlight.Camera, 0, len(c.Cameras))
	for _, cam := range c.Cameras {
		out = append(out, highlight.Camera{ID: cam.ID, Role: cam.Role, Source: cam.Source})
	}
	return out
}

// ExclusionZones converts the flat [zones.exclusion] entries into the
// per-camera map highlight.StickyConfig expects.
func (c *Config) ExclusionZones() map[int][]highlight.Zone {
	if len(c.Zones.Exclusion) == 0 {
		return nil
	}
	out := make(map[int][]highlight.Zone, len(c.Zones.Exclusion))
	for _, e := range c.Zones.Exclusion {
		out[e.CameraID] = append(out[e.CameraID], highlight.Zone{X1: e.X1, Y1: e.Y1, X2: e.X2, Y2: e.Y2})
	}
	return out
}

// HighlightStickyConfig builds a highlight.StickyConfig from this config's
// [sticky] table and [zones.exclusion] entries.
func (c *Config) HighlightStickyConfig() highlight.StickyConfig {
	return highlight.StickyConfig{
		TauExcludeOverride: c.Sticky.TauExcludeOverride,
		TauStatLow:         c.Sticky.TauStatLow,
		DeltaStat:          c.Sticky.DeltaStat,
		DeltaJump:          c.Sticky.DeltaJump,
		IotaMin:            c.Sticky.IotaMin,
		TauGate:            c.Sticky.TauGate,
		NStatSeconds:       c.Sticky.NStatSeconds,
		HMaxSeconds:        c.Sticky.HMaxSeconds,
		SuspectConfirmSec:  c.Sticky.SuspectConfirmSec,
		Alpha:              c.Sticky.Alpha,
		ExclusionZones:     c.ExclusionZones(),
	}
}

// HighlightSwitcherConfig builds a highlight.SwitcherConfig from this
// config's [switcher] table.
func (c *Config) HighlightSwitcherConfig() highlight.SwitcherConfig {
	return highlight.SwitcherConfig{
		TauFound:     c.Switcher.TauFound,
		TauExit:      c.Switcher.TauExit,
		VAway:        c.Switcher.VAway,
		TCooldownSec: c.Switcher.TCooldownSec,
		TMinHoldSec:  c.Switcher.TMinHoldSec,
		TArmSec:      c.Switcher.TArmSec,
		TStableSec:   c.Switcher.TStableSec,
		TDisarmSec:   c.Switcher.TDisarmSec,
		TMissSec:     c.Switcher.TMissSec,
		HistoryLen:   c.Switcher.HistoryLen,
	}
}

// HighlightZoneGeometryConfig builds a highlight.ZoneGeometryConfig from
// this config's [zones] table.
func (c *Config) HighlightZoneGeometryConfig() highlight.ZoneGeometryConfig {
	return highlight.ZoneGeometryConfig{
		EdgeMargin:       c.Zones.EdgeMargin,
		TopBandHeight:    c.Zones.TopBandHeight,
		BottomBandHeight: c.Zones.BottomBandHeight,
		EqualHalfWidth:   c.Zones.EqualHalfWidth,
	}
}

// HighlightFallbackConfig builds a highlight.FallbackConfig from this
// config's [fallback] table.
func (c *Config) HighlightFallbackConfig() highlight.FallbackConfig {
	return highlight.FallbackConfig{
		TFbSec:        c.Fallback.TFbSec,
		DProx:         c.Fallback.DProx,
		KSame:         c.Fallback.KSame,
		KAlt:          c.Fallback.KAlt,
		Rho:           c.Fallback.Rho,
		TimeWindowSec: c.Fallback.TimeWindowSec,
		AMax:          c.Fallback.AMax,
		PSec:          c.Fallback.PSec,
		CMax:          c.Fallback.CMax,
		OnePerTick:    c.Fallback.OnePerTick,
	}
}

// HighlightWriterConfig builds a highlight.WriterConfig from this config's
// [output] table.
func (c *Config) HighlightWriterConfig() highlight.WriterConfig {
	return highlight.WriterConfig{
		Duration:    secondsToDuration(c.Output.DurationSeconds),
		OutputFPS:   c.Output.OutputFPS,
		FallbackFPS: c.Output.FallbackFPS,
	}
}

// HighlightDetectorConfig builds a highlight.DetectorConfig from this
// config's [detector] table.
func (c *Config) HighlightDetectorConfig() highlight.DetectorConfig {
	return highlight.DetectorConfig{
		TauConf:          c.Detector.TauConf,
		TauHigh:          c.Detector.TauHigh,
		DeltaMax:         c.Detector.DeltaMax,
		PitchMaskEnabled: c.Detector.PitchMaskEnabled,
		BallClass:        c.Detector.BallClass,
	}
}

// HighlightPhase0Config builds a highlight.Phase0Config from this config's
// [phase0] table.
func (c *Config) HighlightPhase0Config() highlight.Phase0Config {
	return highlight.Phase0Config{NScan: c.Phase0.NScan}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
