// Package main provides the CLI entry point for the highlight director.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/abdullah-azi/football-highlights/internal/config"
	"github.com/abdullah-azi/football-highlights/pkg/highlight"
)

var version = "0.1.0"

// streamFlag collects repeated -stream id:role:source flags into camera
// overrides, so a run's full camera list can be specified on the command
// line without a config file.
type streamFlag struct {
	cameras *[]config.CameraConfig
}

func (f *streamFlag) String() string { return "" }

func (f *streamFlag) Set(value string) error {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) != 3 {
		return fmt.Errorf("-stream must be id:role:source, got %q", value)
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("-stream id %q: %w", parts[0], err)
	}
	var role highlight.CameraRole
	if err := role.UnmarshalText([]byte(strings.ToUpper(parts[1]))); err != nil {
		return fmt.Errorf("-stream role %q: %w", parts[1], err)
	}
	*f.cameras = append(*f.cameras, config.CameraConfig{ID: id, Role: role, Source: parts[2]})
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	var streamOverrides []config.CameraConfig
	flag.Var(&streamFlag{cameras: &streamOverrides}, "stream", "Camera stream as id:role:source (repeatable), e.g. -stream 0:LEFT:cam0.mp4")
	preview := flag.Bool("preview", false, "Show a debug preview window of the active camera")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve Prometheus metrics on (overrides config, empty disables)")
	telemetryAddr := flag.String("telemetry-addr", "", "UDP address to broadcast SwitchEvents to (empty disables)")
	telemetryPort := flag.Int("telemetry-port", 0, "UDP port to broadcast SwitchEvents to")
	reportPath := flag.String("report", "", "Path to write the JSON run report (overrides config)")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "highlighter - multi-camera football highlight director\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -config director.toml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -stream 0:LEFT:cam0.mp4 -stream 1:RIGHT:cam1.mp4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -preview -verbose\n", os.Args[0])
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("highlighter version %s\n", version)
		os.Exit(0)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if len(streamOverrides) > 0 {
		cfg.Cameras = streamOverrides
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = *metricsAddr
	}
	if *reportPath != "" {
		cfg.Output.ReportPath = *reportPath
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid logging.level")
	}
	logger = logger.Level(level)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if len(cfg.Cameras) == 0 {
		logger.Fatal().Msg("no cameras configured; use [[cameras]] in the config file or -stream")
	}

	backend, err := highlight.NewDNNBackend(cfg.HighlightDNNBackendConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load detector model")
	}
	defer backend.Close()

	var pitchMasker highlight.PitchMasker
	if cfg.Detector.PitchMaskEnabled {
		pitchMasker = highlight.NewHSVPitchMasker(35, 40, 40, 85, 255, 255)
	}
	detector := highlight.NewDetector(backend, pitchMasker, cfg.HighlightDetectorConfig())

	cameras := cfg.HighlightCameras()
	streams := make(map[int]highlight.StreamSource, len(cameras))
	for _, cam := range cfg.Cameras {
		s := highlight.NewGoCVStream(cam.ID)
		if err := s.Open(cam.Source); err != nil {
			logger.Fatal().Err(err).Int("camera", cam.ID).Msg("failed to open stream")
		}
		defer s.Close()
		streams[cam.ID] = s
	}

	sticky := highlight.NewStickyTracker(cameras[0].ID, cfg.HighlightStickyConfig())
	switcher, err := highlight.NewSwitcher(cameras, cfg.HighlightSwitcherConfig(), cfg.HighlightZoneGeometryConfig(), cfg.Switcher.MiddleOpposite, cameras[0].ID)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct switcher")
	}
	fallback := highlight.NewFallbackScanner(detector, cfg.HighlightFallbackConfig())

	sink := highlight.NewGoCVSink(cfg.Output.SinkPath)

	orchCfg := highlight.OrchestratorConfig{
		Phase0:               cfg.HighlightPhase0Config(),
		PreSwitchRequireBall: cfg.PreSwitchRequireBall,
		Writer:               cfg.HighlightWriterConfig(),
	}
	orch, err := highlight.NewOrchestrator(cameras, streams, detector, sticky, switcher, fallback, sink, orchCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct orchestrator")
	}

	if *telemetryAddr != "" {
		sender, err := highlight.NewTelemetrySender(*telemetryAddr, *telemetryPort)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create telemetry sender")
		}
		defer sender.Close()
		if err := orch.SetTelemetry(sender); err != nil {
			logger.Fatal().Err(err).Msg("failed to wire telemetry sender")
		}
	}

	var metrics *highlight.Metrics
	if cfg.Metrics.Enabled {
		metrics = highlight.NewMetrics()
		if err := orch.SetMetrics(metrics); err != nil {
			logger.Fatal().Err(err).Msg("failed to wire metrics")
		}
		go serveMetrics(cfg.Metrics.ListenAddr, metrics, logger)
	}

	if *preview {
		dp := highlight.NewDebugPreview("highlighter preview")
		defer dp.Close()
		if err := orch.SetPreview(dp); err != nil {
			logger.Fatal().Err(err).Msg("failed to wire preview")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Int("cameras", len(cameras)).Str("sink", cfg.Output.SinkPath).Msg("starting run")
	report, runErr := orch.Run(ctx)

	if writeErr := writeReport(cfg.Output.ReportPath, report); writeErr != nil {
		logger.Error().Err(writeErr).Msg("failed to write run report")
	}

	if runErr != nil {
		logger.Fatal().Err(runErr).Msg("run ended with error")
	}
	logger.Info().
		Int64("frames_written", report.Counters.FramesWritten).
		Int64("switches_applied", report.Counters.SwitchesApplied).
		Msg("run complete")
}

func serveMetrics(addr string, m *highlight.Metrics, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}

func writeReport(path string, report highlight.Report) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
