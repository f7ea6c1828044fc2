package render

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"dynamic-sky/internal/sky"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// Renderer draws full-frame overlay images with a sprite centred on the
// body's position. Sprites are cached on disk per size and moon bucket.
type Renderer struct {
	cacheDir string
	width    int
	height   int
	sunSize  int
	moonSize int
	logger   zerolog.Logger
}

type Config struct {
	CacheDir string
	Width    int
	Height   int
	SunSize  int
	MoonSize int
	Logger   zerolog.Logger
}

func NewRenderer(cfg Config) *Renderer {
	return &Renderer{
		cacheDir: cfg.CacheDir,
		width:    cfg.Width,
		height:   cfg.Height,
		sunSize:  cfg.SunSize,
		moonSize: cfg.MoonSize,
		logger:   cfg.Logger.With().Str("component", "render").Logger(),
	}
}

func (r *Renderer) sunSpritePath() string {
	return filepath.Join(r.cacheDir, fmt.Sprintf("sun_%d.png", r.sunSize))
}

func (r *Renderer) moonSpritePath(bucket int) string {
	return filepath.Join(r.cacheDir, fmt.Sprintf("moon_%02d_%d.png", bucket, r.moonSize))
}

// Sprite returns the cached sprite for body, drawing and storing it on a miss.
func (r *Renderer) Sprite(body sky.Body, moonPhase float64) (image.Image, error) {
	var path string
	var draw func() *image.NRGBA
	if body == sky.Sun {
		path = r.sunSpritePath()
		draw = func() *image.NRGBA { return DrawSun(r.sunSize) }
	} else {
		bucket := MoonBucket(moonPhase)
		path = r.moonSpritePath(bucket)
		draw = func() *image.NRGBA {
			return DrawMoon(r.moonSize, float64(bucket)/(MoonBuckets-1))
		}
	}

	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	img := draw()
	if err := os.MkdirAll(r.cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sprite cache: %w", err)
	}
	if err := WritePNG(img, path); err != nil {
		r.logger.Debug().Err(err).Str("path", path).Msg("sprite not cached")
	}
	return img, nil
}

// DrawOverlay composes the overlay for body at pos and writes it to path.
func (r *Renderer) DrawOverlay(body sky.Body, pos sky.Point, moonPhase float64, path string) error {
	sprite, err := r.Sprite(body, moonPhase)
	if err != nil {
		return err
	}

	b := sprite.Bounds()
	frame := imaging.New(r.width, r.height, color.NRGBA{})
	at := image.Pt(pos.X-b.Dx()/2, pos.Y-b.Dy()/2)
	frame = imaging.Overlay(frame, sprite, at, 1.0)

	if err := WritePNG(frame, path); err != nil {
		return fmt.Errorf("failed to write %s overlay: %w", body, err)
	}
	return nil
}

// EnsurePlaceholder writes a transparent full-frame image if path is missing.
func (r *Renderer) EnsurePlaceholder(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return WritePNG(imaging.New(r.width, r.height, color.NRGBA{}), path)
}

// WritePNG writes img next to path as "<path>.tmp.png" and renames it into
// place so readers never see a partial file.
func WritePNG(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmp := path + ".tmp.png"
	if err := imaging.Save(img, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
