// Package config loads raymarch scene descriptions from TOML files.
//
// A scene file looks like:
//
//	[scene]
//	seed = 1
//	count = 30
//	radius_min = 1.0
//	radius_max = 10.0
//	center = [0.0, 10.0, 0.0]
//	size = [60.0, 20.0, 60.0]
//
//	[camera]
//	eye = [0.0, 15.0, 70.0]
//	target = [0.0, 10.0, 0.0]
//	fov = 60.0
//
//	[light]
//	forward = [-1.0, -2.0, -1.0]
//	intensity = 1.0
//
//	[output]
//	width = 640
//	height = 360
//	path = "frame.png"
//	backend = "software"
//
// Every key is optional; missing keys keep the values of Default.
// Unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/chewxy/math32"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/raymarch"
)

// Backend names accepted in [output].
const (
	BackendSoftware = "software"
	BackendGPU      = "gpu"
)

// ErrInvalidConfig is returned for values outside their allowed range.
var ErrInvalidConfig = errors.New("config: invalid value")

// Config is a complete scene description.
type Config struct {
	Scene  Scene  `toml:"scene"`
	Camera Camera `toml:"camera"`
	Light  Light  `toml:"light"`
	Output Output `toml:"output"`
}

// Scene holds the generation parameters. The spawn volume is given by its
// center and full size.
type Scene struct {
	Seed      uint32     `toml:"seed"`
	Count     int        `toml:"count"`
	RadiusMin float32    `toml:"radius_min"`
	RadiusMax float32    `toml:"radius_max"`
	Center    [3]float32 `toml:"center"`
	Size      [3]float32 `toml:"size"`
}

// Camera is a perspective camera. FOV is the vertical field of view in
// degrees.
type Camera struct {
	Eye    [3]float32 `toml:"eye"`
	Target [3]float32 `toml:"target"`
	Up     [3]float32 `toml:"up"`
	FOV    float32    `toml:"fov"`
	Near   float32    `toml:"near"`
	Far    float32    `toml:"far"`
}

// Light is the directional light.
type Light struct {
	Forward   [3]float32 `toml:"forward"`
	Intensity float32    `toml:"intensity"`
}

// Output controls the rendered image.
type Output struct {
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Path    string `toml:"path"`
	Backend string `toml:"backend"`
}

// Default returns the built-in scene: 30 spheres with radii in [1, 10] in
// a 60x20x60 volume centered at (0, 10, 0).
func Default() Config {
	p := raymarch.DefaultGenerationParams()
	size := p.Bounds.Size()
	return Config{
		Scene: Scene{
			Seed:      p.Seed,
			Count:     p.Count,
			RadiusMin: p.RadiusRange.Min,
			RadiusMax: p.RadiusRange.Max,
			Center:    vecArray(p.Bounds.Center),
			Size:      vecArray(size),
		},
		Camera: Camera{
			Eye:    [3]float32{0, 15, 70},
			Target: [3]float32{0, 10, 0},
			Up:     [3]float32{0, 1, 0},
			FOV:    60,
			Near:   0.3,
			Far:    1000,
		},
		Light: Light{
			Forward:   [3]float32{-1, -2, -1},
			Intensity: 1,
		},
		Output: Output{
			Width:   640,
			Height:  360,
			Path:    "frame.png",
			Backend: BackendSoftware,
		},
	}
}

// Parse decodes a TOML document on top of Default and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("config: %s", strict.String())
		}
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes cfg as TOML.
func Marshal(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// Validate checks every section. Scene errors wrap the raymarch sentinel
// errors; the rest wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if err := c.GenerationParams().Validate(); err != nil {
		return fmt.Errorf("config: [scene]: %w", err)
	}
	if !(c.Camera.FOV > 0 && c.Camera.FOV < 180) {
		return fmt.Errorf("%w: [camera] fov %v not in (0, 180)", ErrInvalidConfig, c.Camera.FOV)
	}
	if !(c.Camera.Near > 0 && c.Camera.Far > c.Camera.Near) {
		return fmt.Errorf("%w: [camera] clip range [%v, %v]", ErrInvalidConfig, c.Camera.Near, c.Camera.Far)
	}
	if arrayVec(c.Camera.Target).Sub(arrayVec(c.Camera.Eye)).Length() == 0 {
		return fmt.Errorf("%w: [camera] eye and target coincide", ErrInvalidConfig)
	}
	if arrayVec(c.Light.Forward).Length() == 0 {
		return fmt.Errorf("%w: [light] forward is zero", ErrInvalidConfig)
	}
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("%w: [output] size %dx%d", ErrInvalidConfig, c.Output.Width, c.Output.Height)
	}
	switch c.Output.Backend {
	case BackendSoftware, BackendGPU:
	default:
		return fmt.Errorf("%w: [output] unknown backend %q", ErrInvalidConfig, c.Output.Backend)
	}
	return nil
}

// GenerationParams converts the [scene] section.
func (c Config) GenerationParams() raymarch.GenerationParams {
	return raymarch.GenerationParams{
		Seed:        c.Scene.Seed,
		Count:       c.Scene.Count,
		RadiusRange: raymarch.RadiusRange{Min: c.Scene.RadiusMin, Max: c.Scene.RadiusMax},
		Bounds:      raymarch.NewBounds(arrayVec(c.Scene.Center), arrayVec(c.Scene.Size)),
	}
}

// NewCamera builds the [camera] section for the output aspect ratio.
func (c Config) NewCamera() *raymarch.Camera {
	aspect := float32(c.Output.Width) / float32(c.Output.Height)
	return raymarch.NewPerspectiveCamera(
		arrayVec(c.Camera.Eye), arrayVec(c.Camera.Target), arrayVec(c.Camera.Up),
		c.Camera.FOV*math32.Pi/180, aspect, c.Camera.Near, c.Camera.Far)
}

// NewLight builds the [light] section.
func (c Config) NewLight() *raymarch.DirectionalLight {
	return raymarch.NewDirectionalLight(arrayVec(c.Light.Forward), c.Light.Intensity)
}

// Size returns the [output] image size.
func (c Config) Size() raymarch.Size {
	return raymarch.Size{Width: c.Output.Width, Height: c.Output.Height}
}

func arrayVec(a [3]float32) raymarch.Vec3 { return raymarch.V3(a[0], a[1], a[2]) }

func vecArray(v raymarch.Vec3) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }
