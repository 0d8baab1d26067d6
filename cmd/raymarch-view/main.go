//go:build ebiten

// Command raymarch-view renders the sphere scene interactively.
//
// Arrow keys orbit the camera, W/S zoom, R reseeds the scene, +/- change
// the sphere count. The window is re-rendered every frame at its current
// size.
package main

import (
	"errors"
	"flag"
	"image"
	"log"
	"log/slog"
	"os"

	"github.com/chewxy/math32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gogpu/raymarch"
	_ "github.com/gogpu/raymarch/gpu" // enable GPU rendering when available
	"github.com/gogpu/raymarch/internal/config"
)

type viewer struct {
	master *raymarch.Master
	cam    *raymarch.Camera
	cfg    config.Config

	yaw, pitch, distance float32
	target               raymarch.Vec3

	frame *image.RGBA
	size  raymarch.Size
}

func newViewer(m *raymarch.Master, cfg config.Config) *viewer {
	eye, target := cfg.Camera.Eye, cfg.Camera.Target
	d := raymarch.V3(eye[0]-target[0], eye[1]-target[1], eye[2]-target[2])
	v := &viewer{
		master:   m,
		cam:      cfg.NewCamera(),
		cfg:      cfg,
		distance: d.Length(),
		yaw:      math32.Atan2(d.X, d.Z),
		pitch:    math32.Asin(d.Y / d.Length()),
		target:   raymarch.V3(target[0], target[1], target[2]),
	}
	return v
}

func (v *viewer) Update() error {
	const turn = 0.03
	switch {
	case ebiten.IsKeyPressed(ebiten.KeyArrowLeft):
		v.yaw -= turn
	case ebiten.IsKeyPressed(ebiten.KeyArrowRight):
		v.yaw += turn
	}
	switch {
	case ebiten.IsKeyPressed(ebiten.KeyArrowUp):
		v.pitch = min(v.pitch+turn, 1.5)
	case ebiten.IsKeyPressed(ebiten.KeyArrowDown):
		v.pitch = max(v.pitch-turn, -1.5)
	}
	switch {
	case ebiten.IsKeyPressed(ebiten.KeyW):
		v.distance = max(v.distance*0.98, 1)
	case ebiten.IsKeyPressed(ebiten.KeyS):
		v.distance *= 1.02
	}

	p := v.master.Params()
	changed := false
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		p.Seed++
		changed = true
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
		p.Count = min(p.Count+5, raymarch.MaxSphereCount)
		changed = true
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
		p.Count = max(p.Count-5, 1)
		changed = true
	}
	if changed {
		if err := v.master.OnParametersChanged(p); err != nil {
			raymarch.Logger().Warn("parameters rejected", "err", err)
		}
	}

	cp, sp := math32.Cos(v.pitch), math32.Sin(v.pitch)
	eye := v.target.Add(raymarch.V3(math32.Sin(v.yaw)*cp, sp, math32.Cos(v.yaw)*cp).Mul(v.distance))
	v.cam.SetTransform(raymarch.LookAt(eye, v.target, raymarch.V3(0, 1, 0)))
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	b := screen.Bounds()
	size := raymarch.Size{Width: b.Dx(), Height: b.Dy()}
	if size != v.size {
		v.size = size
		v.frame = image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
		if !size.Empty() {
			v.cam.SetAspect(float32(size.Width) / float32(size.Height))
		}
	}
	if err := v.master.RenderFrame(v.cam, size, v.frame); err != nil {
		raymarch.Logger().Error("render failed", "err", err)
		return
	}
	screen.WritePixels(v.frame.Pix)
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	// Render at half resolution to keep the software backend interactive.
	return max(outsideWidth/2, 1), max(outsideHeight/2, 1)
}

func main() {
	var (
		configPath = flag.String("config", "", "scene file (TOML)")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	raymarch.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}

	m := raymarch.New(raymarch.DefaultBackend(), cfg.GenerationParams(), raymarch.WithLight(cfg.NewLight()))
	if err := m.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer m.Teardown()

	ebiten.SetWindowTitle("raymarch")
	ebiten.SetWindowSize(cfg.Output.Width, cfg.Output.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(newViewer(m, cfg)); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
