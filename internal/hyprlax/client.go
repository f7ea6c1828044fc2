package hyprlax

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	FallbackWidth  = 3840
	FallbackHeight = 2160
)

var ErrNoLayerID = errors.New("hyprlax add: no layer id in response")

type Monitor struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Status struct {
	Monitors []Monitor `json:"monitors"`
}

// Layer is one entry of the compositor's layer list.
type Layer struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
	Z    int    `json:"z"`
}

// AddOptions are the rendering settings passed to `add`.
type AddOptions struct {
	Z               int
	Opacity         float64
	ShiftMultiplier float64
	Fit             string
}

// OverlayOptions is the low-impact configuration used for sun and moon
// overlays: full opacity, no parallax shift, cover fit.
func OverlayOptions(z int) AddOptions {
	return AddOptions{Z: z, Opacity: 1.0, ShiftMultiplier: 0.0, Fit: "cover"}
}

func (o AddOptions) args() []string {
	fit := o.Fit
	if fit == "" {
		fit = "cover"
	}
	return []string{
		fmt.Sprintf("z=%d", o.Z),
		"opacity=" + strconv.FormatFloat(o.Opacity, 'f', 1, 64),
		"shift_multiplier=" + strconv.FormatFloat(o.ShiftMultiplier, 'f', 1, 64),
		"fit=" + fit,
	}
}

type Client struct {
	runner Runner
	logger zerolog.Logger
}

func NewClient(runner Runner, logger zerolog.Logger) *Client {
	return &Client{
		runner: runner,
		logger: logger.With().Str("component", "hyprlax").Logger(),
	}
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	c.logger.Debug().Strs("args", args).Msg("ctl")
	return c.runner.Run(ctx, args...)
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	out, err := c.run(ctx, "status", "--json")
	if err != nil {
		return nil, err
	}

	var st Status
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		return nil, fmt.Errorf("failed to parse status JSON: %w", err)
	}
	return &st, nil
}

// MonitorGeometry returns the size of the largest monitor, or 3840x2160 when
// the status cannot be read. Only a missing binary is reported as an error.
func (c *Client) MonitorGeometry(ctx context.Context) (width, height int, err error) {
	st, err := c.Status(ctx)
	if err != nil {
		if errors.Is(err, ErrBinaryNotFound) {
			return 0, 0, err
		}
		c.logger.Debug().Err(err).Msg("status unavailable, using fallback geometry")
		return FallbackWidth, FallbackHeight, nil
	}

	bestArea := -1
	for _, m := range st.Monitors {
		if area := m.Width * m.Height; area > bestArea {
			bestArea = area
			width, height = m.Width, m.Height
		}
	}
	if width <= 0 || height <= 0 {
		return FallbackWidth, FallbackHeight, nil
	}
	return width, height, nil
}

// List returns the current layers. The structured form is tried first; a
// failure or undecodable output falls back to the textual listing.
func (c *Client) List(ctx context.Context) ([]Layer, error) {
	out, err := c.run(ctx, "list", "--json")
	if err == nil {
		if layers, jerr := decodeLayerJSON(out); jerr == nil {
			return layers, nil
		}
		c.logger.Debug().Msg("list --json not decodable, trying text")
		if layers := ParseLayerText(out); len(layers) > 0 {
			return layers, nil
		}
	} else if errors.Is(err, ErrBinaryNotFound) {
		return nil, err
	}

	out, err = c.run(ctx, "list")
	if err != nil {
		return nil, err
	}
	return ParseLayerText(out), nil
}

func decodeLayerJSON(out string) ([]Layer, error) {
	trimmed := strings.TrimSpace(out)
	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Layers []Layer `json:"layers"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
			return nil, err
		}
		return wrapped.Layers, nil
	}

	var layers []Layer
	if err := json.Unmarshal([]byte(trimmed), &layers); err != nil {
		return nil, err
	}
	return layers, nil
}

var (
	textIDRe   = regexp.MustCompile(`^\s*(?:\[(\d+)\]|ID:\s*(\d+)|id=(\d+))`)
	textPathRe = regexp.MustCompile(`Path:\s*([^|]+?)\s*(?:\||$)|\bpath=(\S+)|^\s*\[\d+\]\s+(\S+)`)
	textZRe    = regexp.MustCompile(`(?:\bZ:\s*|\bz=)(-?\d+)`)
	addedIDRe  = regexp.MustCompile(`ID:\s*(\d+)`)
)

// ParseLayerText extracts layers from the human-readable listing. Lines
// without an id and a path are skipped.
func ParseLayerText(out string) []Layer {
	var layers []Layer
	for _, line := range strings.Split(out, "\n") {
		id := firstGroup(textIDRe.FindStringSubmatch(line))
		path := firstGroup(textPathRe.FindStringSubmatch(line))
		if id == "" || path == "" {
			continue
		}
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		l := Layer{ID: n, Path: path}
		if z := firstGroup(textZRe.FindStringSubmatch(line)); z != "" {
			l.Z, _ = strconv.Atoi(z)
		}
		layers = append(layers, l)
	}
	return layers
}

func firstGroup(m []string) string {
	for _, g := range m[min(1, len(m)):] {
		if g != "" {
			return g
		}
	}
	return ""
}

// Add creates a layer and returns the id parsed from "Layer added with ID: N".
func (c *Client) Add(ctx context.Context, path string, opts AddOptions) (int, error) {
	out, err := c.run(ctx, append([]string{"add", path}, opts.args()...)...)
	if err != nil {
		return 0, err
	}

	m := addedIDRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrNoLayerID, strings.TrimSpace(out))
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoLayerID, m[1])
	}
	c.logger.Debug().Int("id", id).Str("path", path).Msg("layer added")
	return id, nil
}

// Modify sets one property; success is the exit status.
func (c *Client) Modify(ctx context.Context, id int, prop, value string) error {
	_, err := c.run(ctx, "modify", strconv.Itoa(id), prop, value)
	return err
}

func (c *Client) SetVisible(ctx context.Context, id int, visible bool) error {
	return c.Modify(ctx, id, "visible", strconv.FormatBool(visible))
}

func (c *Client) SetPath(ctx context.Context, id int, path string) error {
	return c.Modify(ctx, id, "path", path)
}

func (c *Client) SetTint(ctx context.Context, id int, tint string) error {
	return c.Modify(ctx, id, "tint", tint)
}

func (c *Client) SetZ(ctx context.Context, id, z int) error {
	return c.Modify(ctx, id, "z", strconv.Itoa(z))
}
