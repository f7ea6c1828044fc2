package render

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const (
	SunSVGName  = "sun.svg"
	MoonSVGDir  = "moon_svgs"
	minSVGWidth = 200
)

// GenerateSunSVG writes an illustrative radial-gradient sun.
func GenerateSunSVG(path string, diameter int) error {
	half := diameter / 2
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[1]d" viewBox="0 0 %[1]d %[1]d">
  <defs>
    <radialGradient id="g" cx="50%%" cy="50%%" r="50%%">
      <stop offset="0%%" stop-color="#fff59e" stop-opacity="1"/>
      <stop offset="60%%" stop-color="#ffd54f" stop-opacity="0.95"/>
      <stop offset="100%%" stop-color="#ffb300" stop-opacity="0.0"/>
    </radialGradient>
  </defs>
  <circle cx="%[2]d" cy="%[2]d" r="%[2]d" fill="url(#g)"/>
  <circle cx="%[2]d" cy="%[2]d" r="%[3]d" fill="#ffeb3b"/>
</svg>
`, diameter, half, int(float64(diameter)*0.35))
	return os.WriteFile(path, []byte(svg), 0644)
}

// GenerateMoonSVGs writes one masked-disc SVG per phase bucket as moon_NN.svg.
func GenerateMoonSVGs(dir string, buckets, diameter int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	r := float64(diameter) / 2
	for i := 0; i < buckets; i++ {
		p := 0.0
		if buckets > 1 {
			p = float64(i) / float64(buckets-1)
		}
		dx := r * math.Cos(p*2*math.Pi)

		var b strings.Builder
		fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[1]d" viewBox="0 0 %[1]d %[1]d">`+"\n", diameter)
		fmt.Fprintf(&b, "  <defs>\n    <mask id=\"m\"><rect width=\"100%%\" height=\"100%%\" fill=\"white\"/>\n")
		fmt.Fprintf(&b, "      <circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=\"black\"/>\n    </mask>\n  </defs>\n", r+dx, r, r)
		fmt.Fprintf(&b, "  <circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=\"#f5f5f5\"/>\n", r, r, r)
		fmt.Fprintf(&b, "  <circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=\"#f5f5f5\" mask=\"url(#m)\"/>\n</svg>\n", r, r, r)

		name := filepath.Join(dir, fmt.Sprintf("moon_%02d.svg", i))
		if err := os.WriteFile(name, []byte(b.String()), 0644); err != nil {
			return err
		}
	}
	return nil
}

// EnsureAssets generates the demo SVGs when missing. Failures are logged and
// otherwise ignored.
func EnsureAssets(assetsDir string, sunSize, moonSize int, logger zerolog.Logger) {
	logger = logger.With().Str("component", "assets").Logger()
	sunPath := filepath.Join(assetsDir, SunSVGName)
	if _, err := os.Stat(sunPath); err != nil {
		if err := GenerateSunSVG(sunPath, max(minSVGWidth, sunSize)); err != nil {
			logger.Debug().Err(err).Msg("sun svg not generated")
		}
	}

	moonDir := filepath.Join(assetsDir, MoonSVGDir)
	if entries, err := os.ReadDir(moonDir); err != nil || len(entries) == 0 {
		if err := GenerateMoonSVGs(moonDir, MoonBuckets, max(minSVGWidth, moonSize)); err != nil {
			logger.Debug().Err(err).Msg("moon svgs not generated")
		}
	}
}
