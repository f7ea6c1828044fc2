package render

import (
	"os"
	"path/filepath"
	"testing"

	"dynamic-sky/internal/sky"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) (*Renderer, string) {
	t.Helper()
	dir := t.TempDir()
	return NewRenderer(Config{
		CacheDir: filepath.Join(dir, "cache"),
		Width:    200,
		Height:   100,
		SunSize:  40,
		MoonSize: 30,
		Logger:   zerolog.Nop(),
	}), dir
}

func alphaAt(t *testing.T, path string, x, y int) uint8 {
	t.Helper()
	img, err := imaging.Open(path)
	require.NoError(t, err)
	return imaging.Clone(img).NRGBAAt(x, y).A
}

func TestMoonBucket(t *testing.T) {
	assert.Equal(t, 0, MoonBucket(0))
	assert.Equal(t, 15, MoonBucket(0.5))
	assert.Equal(t, 29, MoonBucket(1))
	assert.Equal(t, 0, MoonBucket(-0.3))
	assert.Equal(t, 29, MoonBucket(1.7))
}

func TestDrawSun(t *testing.T) {
	img := DrawSun(40)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Greater(t, img.NRGBAAt(20, 20).A, uint8(150))
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
}

func TestDrawMoon_Phases(t *testing.T) {
	newMoon := DrawMoon(40, 0)
	assert.Equal(t, uint8(0), newMoon.NRGBAAt(20, 20).A, "new moon is dark")

	full := DrawMoon(40, 0.5)
	assert.Greater(t, full.NRGBAAt(20, 20).A, uint8(200), "full moon is lit at the centre")
	assert.Greater(t, full.NRGBAAt(6, 20).A, uint8(200))

	quarter := DrawMoon(40, 0.25)
	assert.Greater(t, quarter.NRGBAAt(30, 20).A, uint8(200), "waxing lights the right side")
	assert.Equal(t, uint8(0), quarter.NRGBAAt(10, 20).A)

	waning := DrawMoon(40, 0.75)
	assert.Greater(t, waning.NRGBAAt(10, 20).A, uint8(200))
	assert.Equal(t, uint8(0), waning.NRGBAAt(30, 20).A)
}

func TestDrawOverlay(t *testing.T) {
	r, dir := newTestRenderer(t)
	out := filepath.Join(dir, "tmp", "sun_overlay.png")

	require.NoError(t, r.DrawOverlay(sky.Sun, sky.Point{X: 100, Y: 50}, 0.5, out))

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
	assert.Greater(t, alphaAt(t, out, 100, 50), uint8(150))
	assert.Equal(t, uint8(0), alphaAt(t, out, 0, 0))

	_, err = os.Stat(out + ".tmp.png")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
	assert.FileExists(t, filepath.Join(dir, "cache", "sun_40.png"))
}

func TestDrawOverlay_MoonCachedPerBucket(t *testing.T) {
	r, dir := newTestRenderer(t)
	out := filepath.Join(dir, "moon_overlay.png")

	require.NoError(t, r.DrawOverlay(sky.Moon, sky.Point{X: 10, Y: 10}, 0.5, out))
	require.NoError(t, r.DrawOverlay(sky.Moon, sky.Point{X: 10, Y: 10}, 0.25, out))

	assert.FileExists(t, filepath.Join(dir, "cache", "moon_15_30.png"))
	assert.FileExists(t, filepath.Join(dir, "cache", "moon_07_30.png"))
}

func TestEnsurePlaceholder(t *testing.T) {
	r, dir := newTestRenderer(t)
	path := filepath.Join(dir, "tmp", "sun_overlay.png")

	require.NoError(t, r.EnsurePlaceholder(path))
	assert.Equal(t, uint8(0), alphaAt(t, path, 100, 50))

	require.NoError(t, os.WriteFile(path, []byte("keep"), 0644))
	require.NoError(t, r.EnsurePlaceholder(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestEnsureAssets(t *testing.T) {
	dir := t.TempDir()
	EnsureAssets(dir, 100, 100, zerolog.Nop())

	data, err := os.ReadFile(filepath.Join(dir, SunSVGName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `width="200"`)
	assert.Contains(t, string(data), `r="70"`)

	entries, err := os.ReadDir(filepath.Join(dir, MoonSVGDir))
	require.NoError(t, err)
	assert.Len(t, entries, MoonBuckets)
	assert.FileExists(t, filepath.Join(dir, MoonSVGDir, "moon_29.svg"))
}
