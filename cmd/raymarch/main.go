// Command raymarch renders a procedurally generated sphere scene to PNG.
//
//	raymarch -config scene.toml -out frame.png -backend gpu -width 1280 -height 720
//
// With -watch the scene file is watched and the image re-rendered on
// every change until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/raymarch"
	"github.com/gogpu/raymarch/internal/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "scene file (TOML); built-in scene if empty")
		output     = flag.String("out", "", "output PNG file (overrides [output] path)")
		backend    = flag.String("backend", "", "compute backend: software or gpu (overrides [output] backend)")
		width      = flag.Int("width", 0, "image width (overrides [output] width)")
		height     = flag.Int("height", 0, "image height (overrides [output] height)")
		seed       = flag.Uint("seed", 0, "random seed (overrides [scene] seed)")
		verbose    = flag.Bool("v", false, "verbose logging")
		watch      = flag.Bool("watch", false, "re-render when the scene file changes")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	raymarch.SetLogger(logger)

	overrides := func(cfg *config.Config) {
		if *output != "" {
			cfg.Output.Path = *output
		}
		if *backend != "" {
			cfg.Output.Backend = *backend
		}
		if *width > 0 {
			cfg.Output.Width = *width
		}
		if *height > 0 {
			cfg.Output.Height = *height
		}
		if *seed > 0 {
			cfg.Scene.Seed = uint32(*seed) //nolint:gosec // user input, truncation accepted
		}
	}

	if *watch && *configPath == "" {
		logger.Error("-watch requires -config")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, overrides, *watch); err != nil {
		logger.Error("raymarch failed", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path string, overrides func(*config.Config)) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	overrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, path string, overrides func(*config.Config), watch bool) error {
	cfg, err := loadConfig(path, overrides)
	if err != nil {
		return err
	}

	b := newBackend(logger, cfg.Output.Backend)
	defer b.Close()

	m := raymarch.New(b, cfg.GenerationParams(), raymarch.WithLight(cfg.NewLight()))
	if err := m.Initialize(); err != nil {
		return err
	}
	defer m.Teardown()

	if err := render(m, cfg); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	logger.Info("watching scene file", "path", path)
	err = config.Watch(ctx, path, func(_ config.Config, err error) {
		if err == nil {
			cfg, err = loadConfig(path, overrides)
		}
		if err != nil {
			logger.Warn("scene file rejected", "err", err)
			return
		}
		if err := m.OnParametersChanged(cfg.GenerationParams()); err != nil {
			logger.Warn("scene parameters rejected", "err", err)
			return
		}
		m.SetLight(cfg.NewLight())
		if err := render(m, cfg); err != nil {
			logger.Error("render failed", "err", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newBackend returns the requested backend, falling back to software when
// the GPU cannot be initialized.
func newBackend(logger *slog.Logger, name string) raymarch.ComputeBackend {
	if name == config.BackendGPU {
		b, err := newGPUBackend(logger)
		if err == nil {
			return b
		}
		logger.Warn("GPU backend not available, using software", "err", err)
	}
	return raymarch.NewSoftwareBackend()
}

func render(m *raymarch.Master, cfg config.Config) error {
	size := cfg.Size()
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	if err := m.RenderFrame(cfg.NewCamera(), size, img); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := savePNG(cfg.Output.Path, img); err != nil {
		return err
	}
	raymarch.Logger().Info("frame saved", "path", cfg.Output.Path, "size", size.String(), "spheres", m.SphereCount())
	return nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
